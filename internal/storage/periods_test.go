package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"golang.org/x/sync/errgroup"

	"cashlog/internal/core"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q) error = %v", s, err)
	}
	return d
}

func TestApplyPeriodDeltaAccumulates(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	q := repo.Queries()
	date := mustDate(t, "2024-12-05")

	monthID, err := q.ApplyPeriodDelta(ctx, "org-1", date, core.Money{Cents: 300}, core.Expense)
	if err != nil {
		t.Fatalf("ApplyPeriodDelta() error = %v", err)
	}
	if monthID == "" {
		t.Fatal("ApplyPeriodDelta() returned empty month history id")
	}

	// A second delta for the same period must hit the same rows.
	monthID2, err := q.ApplyPeriodDelta(ctx, "org-1", date, core.Money{Cents: 500}, core.Income)
	if err != nil {
		t.Fatalf("ApplyPeriodDelta() second call error = %v", err)
	}
	if monthID2 != monthID {
		t.Errorf("month history id = %s, want %s (same period row)", monthID2, monthID)
	}

	month, err := q.GetMonthHistory(ctx, "org-1", 2024, 12)
	if err != nil {
		t.Fatalf("GetMonthHistory() error = %v", err)
	}
	if month.TotalExpense.Cents != 300 || month.TotalIncome.Cents != 500 {
		t.Errorf("month totals = income %d expense %d, want 500/300",
			month.TotalIncome.Cents, month.TotalExpense.Cents)
	}

	year, err := q.GetYearHistory(ctx, "org-1", 2024)
	if err != nil {
		t.Fatalf("GetYearHistory() error = %v", err)
	}
	if year.TotalExpense.Cents != 300 || year.TotalIncome.Cents != 500 {
		t.Errorf("year totals = income %d expense %d, want 500/300",
			year.TotalIncome.Cents, year.TotalExpense.Cents)
	}
	if month.YearHistoryID != year.ID {
		t.Errorf("month.YearHistoryID = %s, want %s", month.YearHistoryID, year.ID)
	}
}

func TestApplyPeriodDeltaReversal(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	q := repo.Queries()
	date := mustDate(t, "2025-03-14")

	if _, err := q.ApplyPeriodDelta(ctx, "org-1", date, core.Money{Cents: 700}, core.Expense); err != nil {
		t.Fatalf("ApplyPeriodDelta() error = %v", err)
	}
	if _, err := q.ApplyPeriodDelta(ctx, "org-1", date, core.Money{Cents: -700}, core.Expense); err != nil {
		t.Fatalf("ApplyPeriodDelta() reversal error = %v", err)
	}

	month, err := q.GetMonthHistory(ctx, "org-1", 2025, 3)
	if err != nil {
		t.Fatalf("GetMonthHistory() error = %v", err)
	}
	if month.TotalExpense.Cents != 0 || month.TotalIncome.Cents != 0 {
		t.Errorf("month totals after reversal = income %d expense %d, want 0/0",
			month.TotalIncome.Cents, month.TotalExpense.Cents)
	}
}

func TestApplyPeriodDeltaConcurrent(t *testing.T) {
	repo := openTestRepo(t)
	q := repo.Queries()
	date := mustDate(t, "2024-06-01")

	// The increment is one SQL statement, so parallel writers must never
	// lose an update.
	g, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < 2; w++ {
		g.Go(func() error {
			for i := 0; i < 10; i++ {
				if _, err := q.ApplyPeriodDelta(ctx, "org-1", date, core.Money{Cents: 200}, core.Expense); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent ApplyPeriodDelta() error = %v", err)
	}

	month, err := q.GetMonthHistory(context.Background(), "org-1", 2024, 6)
	if err != nil {
		t.Fatalf("GetMonthHistory() error = %v", err)
	}
	if month.TotalExpense.Cents != 4000 {
		t.Errorf("month expense = %d, want 4000", month.TotalExpense.Cents)
	}
	year, err := q.GetYearHistory(context.Background(), "org-1", 2024)
	if err != nil {
		t.Fatalf("GetYearHistory() error = %v", err)
	}
	if year.TotalExpense.Cents != 4000 {
		t.Errorf("year expense = %d, want 4000", year.TotalExpense.Cents)
	}
}

func TestPeriodAggregatesAreOrganizationScoped(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	q := repo.Queries()
	date := mustDate(t, "2024-12-05")

	if _, err := q.ApplyPeriodDelta(ctx, "org-a", date, core.Money{Cents: 300}, core.Expense); err != nil {
		t.Fatalf("ApplyPeriodDelta() error = %v", err)
	}

	if _, err := q.GetMonthHistory(ctx, "org-b", 2024, 12); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetMonthHistory(org-b) error = %v, want ErrNotFound", err)
	}
	if _, err := q.GetYearHistory(ctx, "org-b", 2024); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetYearHistory(org-b) error = %v, want ErrNotFound", err)
	}
}
