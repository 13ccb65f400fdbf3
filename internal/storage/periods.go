package storage

import (
	"context"
	"fmt"

	"cashlog/internal/core"

	"github.com/google/uuid"
)

const upsertYearHistory = `
INSERT INTO year_history (id, organization_id, year, total_income_cents, total_expense_cents)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (organization_id, year) DO UPDATE SET
    total_income_cents  = total_income_cents + excluded.total_income_cents,
    total_expense_cents = total_expense_cents + excluded.total_expense_cents
RETURNING id
`

const upsertMonthHistory = `
INSERT INTO month_history (id, organization_id, year, month, year_history_id, total_income_cents, total_expense_cents)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (organization_id, year, month) DO UPDATE SET
    total_income_cents  = total_income_cents + excluded.total_income_cents,
    total_expense_cents = total_expense_cents + excluded.total_expense_cents
RETURNING id
`

// ApplyPeriodDelta upserts the year and month aggregate rows for the given
// date and adds delta to the counter matching typ. The increment is a
// single SQL statement, never a read-modify-write in Go, so concurrent
// postings for the same period cannot lose updates. Negative deltas reverse
// a previously applied amount. Returns the month history row id.
func (q *Queries) ApplyPeriodDelta(ctx context.Context, orgID string, date core.Date, delta core.Money, typ core.TransactionType) (string, error) {
	var incomeDelta, expenseDelta int64
	if typ == core.Income {
		incomeDelta = delta.Cents
	} else {
		expenseDelta = delta.Cents
	}

	var yearID string
	err := q.db.QueryRowContext(ctx, upsertYearHistory,
		uuid.NewString(), orgID, date.Year(), incomeDelta, expenseDelta,
	).Scan(&yearID)
	if err != nil {
		return "", fmt.Errorf("upsert year history: %w", classify(err))
	}

	var monthID string
	err = q.db.QueryRowContext(ctx, upsertMonthHistory,
		uuid.NewString(), orgID, date.Year(), date.Month(), yearID, incomeDelta, expenseDelta,
	).Scan(&monthID)
	if err != nil {
		return "", fmt.Errorf("upsert month history: %w", classify(err))
	}

	return monthID, nil
}

// GetMonthHistory returns the aggregate row for one (org, year, month).
func (q *Queries) GetMonthHistory(ctx context.Context, orgID string, year, month int) (*core.MonthHistory, error) {
	var h core.MonthHistory
	err := q.db.QueryRowContext(ctx, `
SELECT id, organization_id, year, month, year_history_id, total_income_cents, total_expense_cents
FROM month_history
WHERE organization_id = ? AND year = ? AND month = ?`,
		orgID, year, month,
	).Scan(&h.ID, &h.OrganizationID, &h.Year, &h.Month, &h.YearHistoryID, &h.TotalIncome.Cents, &h.TotalExpense.Cents)
	if err != nil {
		return nil, fmt.Errorf("get month history: %w", classify(err))
	}
	return &h, nil
}

// GetYearHistory returns the aggregate row for one (org, year).
func (q *Queries) GetYearHistory(ctx context.Context, orgID string, year int) (*core.YearHistory, error) {
	var h core.YearHistory
	err := q.db.QueryRowContext(ctx, `
SELECT id, organization_id, year, total_income_cents, total_expense_cents
FROM year_history
WHERE organization_id = ? AND year = ?`,
		orgID, year,
	).Scan(&h.ID, &h.OrganizationID, &h.Year, &h.TotalIncome.Cents, &h.TotalExpense.Cents)
	if err != nil {
		return nil, fmt.Errorf("get year history: %w", classify(err))
	}
	return &h, nil
}
