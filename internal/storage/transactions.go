package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cashlog/internal/core"
)

const insertTransaction = `
INSERT INTO transactions (
    id, organization_id, user_id, date, type, description, amount_cents,
    payment_image_ref, category_id, related_party_id, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertTransaction writes the scalar transaction row. Items and the month
// history stamp follow as separate statements inside the same transaction.
func (q *Queries) InsertTransaction(ctx context.Context, t *core.Transaction) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		t.ID, t.OrganizationID, t.UserID, t.Date.String(), string(t.Type),
		t.Description, t.Amount.Cents, t.PaymentImageRef,
		t.CategoryID, t.RelatedPartyID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", classify(err))
	}
	return nil
}

const insertItem = `
INSERT INTO items (
    id, transaction_id, organization_id, user_id, name,
    price_cents, quantity, total_cents, master_item_id, position
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertItem writes one line item for the given transaction.
func (q *Queries) InsertItem(ctx context.Context, it *core.Item, orgID, userID string) error {
	_, err := q.db.ExecContext(ctx, insertItem,
		it.ID, it.TransactionID, orgID, userID, it.Name,
		it.Price.Cents, it.Quantity, it.Total.Cents,
		nullableID(it.MasterItemID), it.Position,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", classify(err))
	}
	return nil
}

// SetTransactionMonthHistory stamps the month aggregate reference on a
// posted transaction.
func (q *Queries) SetTransactionMonthHistory(ctx context.Context, id, monthHistoryID string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET month_history_id = ? WHERE id = ?`,
		monthHistoryID, id,
	)
	if err != nil {
		return fmt.Errorf("stamp month history: %w", classify(err))
	}
	return nil
}

const updateTransaction = `
UPDATE transactions SET
    date = ?, type = ?, description = ?, amount_cents = ?,
    payment_image_ref = ?, category_id = ?, related_party_id = ?,
    sheet_synced = 0, updated_at = ?
WHERE id = ?
`

// UpdateTransaction rewrites the scalar fields of an existing transaction
// and resets its spreadsheet sync flag.
func (q *Queries) UpdateTransaction(ctx context.Context, t *core.Transaction) error {
	_, err := q.db.ExecContext(ctx, updateTransaction,
		t.Date.String(), string(t.Type), t.Description, t.Amount.Cents,
		t.PaymentImageRef, t.CategoryID, t.RelatedPartyID,
		time.Now().UTC(), t.ID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", classify(err))
	}
	return nil
}

const selectTransaction = `
SELECT t.id, t.organization_id, t.user_id, t.date, t.type, t.description,
       t.amount_cents, t.payment_image_ref, t.category_id, c.name,
       t.related_party_id, p.name, COALESCE(t.month_history_id, ''),
       t.created_at, t.updated_at
FROM transactions t
JOIN categories c ON c.id = t.category_id
JOIN related_parties p ON p.id = t.related_party_id
`

// GetTransaction loads one transaction by id with resolved category and
// related-party names plus its line items. The caller is responsible for
// the organization ownership check; lookups here are by id only so a
// cross-organization access can be distinguished from a missing record.
func (q *Queries) GetTransaction(ctx context.Context, id string) (*core.Transaction, error) {
	t, err := q.scanTransaction(q.db.QueryRowContext(ctx, selectTransaction+`WHERE t.id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", classify(err))
	}

	items, err := q.ListItems(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Items = items
	return t, nil
}

// ListItems returns the line items of a transaction in input order.
func (q *Queries) ListItems(ctx context.Context, transactionID string) ([]core.Item, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, transaction_id, name, price_cents, quantity, total_cents,
       COALESCE(master_item_id, ''), position
FROM items
WHERE transaction_id = ?
ORDER BY position`,
		transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", classify(err))
	}
	defer rows.Close()

	var items []core.Item
	for rows.Next() {
		var it core.Item
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.Name,
			&it.Price.Cents, &it.Quantity, &it.Total.Cents,
			&it.MasterItemID, &it.Position); err != nil {
			return nil, fmt.Errorf("scan item: %w", classify(err))
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", classify(err))
	}
	return items, nil
}

// DeleteTransactionItems removes every line item of a transaction. Used by
// the wholesale replacement on update and by deletion.
func (q *Queries) DeleteTransactionItems(ctx context.Context, transactionID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM items WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return fmt.Errorf("delete transaction items: %w", classify(err))
	}
	return nil
}

// DeleteTransaction removes the transaction row itself.
func (q *Queries) DeleteTransaction(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", classify(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// TransactionFilter bounds and pages a transaction listing. Zero values
// mean "no constraint"; Page and PageSize are normalized by the caller.
type TransactionFilter struct {
	OrganizationID string
	Search         string
	Type           core.TransactionType
	CategoryID     string
	RelatedPartyID string
	From           core.Date
	To             core.Date
	Page           int
	PageSize       int
}

// ListTransactions returns one page of scalar transaction rows (newest
// first) plus the total match count for pagination metadata.
func (q *Queries) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, int64, error) {
	where := []string{"t.organization_id = ?"}
	args := []any{f.OrganizationID}

	if f.Search != "" {
		where = append(where, "t.description LIKE '%' || ? || '%'")
		args = append(args, f.Search)
	}
	if f.Type != "" {
		where = append(where, "t.type = ?")
		args = append(args, string(f.Type))
	}
	if f.CategoryID != "" {
		where = append(where, "t.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.RelatedPartyID != "" {
		where = append(where, "t.related_party_id = ?")
		args = append(args, f.RelatedPartyID)
	}
	if !f.From.IsZero() {
		where = append(where, "t.date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "t.date <= ?")
		args = append(args, f.To.String())
	}

	cond := " WHERE " + strings.Join(where, " AND ")

	var total int64
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions t"+cond, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", classify(err))
	}

	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	rows, err := q.db.QueryContext(ctx,
		selectTransaction+cond+" ORDER BY t.date DESC, t.created_at DESC LIMIT ? OFFSET ?",
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", classify(err))
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := q.scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", classify(err))
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transactions: %w", classify(err))
	}
	return out, total, nil
}

// PeriodRow is the minimal transaction projection the report aggregator
// folds over. No items are loaded for report kinds.
type PeriodRow struct {
	Date           core.Date
	Type           core.TransactionType
	Amount         core.Money
	CategoryID     string
	RelatedPartyID string
}

// ListTransactionsInRange returns report projections for an organization
// within the inclusive [from, to] date range, in date order.
func (q *Queries) ListTransactionsInRange(ctx context.Context, orgID string, from, to core.Date) ([]PeriodRow, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT date, type, amount_cents, category_id, related_party_id
FROM transactions
WHERE organization_id = ? AND date >= ? AND date <= ?
ORDER BY date, created_at`,
		orgID, from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions in range: %w", classify(err))
	}
	defer rows.Close()

	var out []PeriodRow
	for rows.Next() {
		var (
			r       PeriodRow
			dateStr string
			typ     string
		)
		if err := rows.Scan(&dateStr, &typ, &r.Amount.Cents, &r.CategoryID, &r.RelatedPartyID); err != nil {
			return nil, fmt.Errorf("scan period row: %w", classify(err))
		}
		if r.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", dateStr, err)
		}
		r.Type = core.TransactionType(typ)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period rows: %w", classify(err))
	}
	return out, nil
}

// ListUnsyncedTransactionIDs returns ids of posted transactions not yet
// mirrored to the spreadsheet, oldest first.
func (q *Queries) ListUnsyncedTransactionIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id FROM transactions WHERE sheet_synced = 0 ORDER BY created_at LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list unsynced transactions: %w", classify(err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan unsynced id: %w", classify(err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unsynced ids: %w", classify(err))
	}
	return ids, nil
}

// MarkSheetSynced marks a transaction as mirrored to the spreadsheet.
func (q *Queries) MarkSheetSynced(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE transactions SET sheet_synced = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark sheet synced: %w", classify(err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (q *Queries) scanTransaction(row rowScanner) (*core.Transaction, error) {
	var (
		t       core.Transaction
		dateStr string
		typ     string
	)
	err := row.Scan(&t.ID, &t.OrganizationID, &t.UserID, &dateStr, &typ,
		&t.Description, &t.Amount.Cents, &t.PaymentImageRef,
		&t.CategoryID, &t.CategoryName, &t.RelatedPartyID, &t.RelatedPartyName,
		&t.MonthHistoryID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if t.Date, err = core.ParseDate(dateStr); err != nil {
		return nil, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	t.Type = core.TransactionType(typ)
	return &t, nil
}

func nullableID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}
