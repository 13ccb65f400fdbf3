package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"cashlog/internal/core"
	"cashlog/internal/storage"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
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

// seedMasterData creates one category and one related party for orgID and
// returns their ids.
func seedMasterData(t *testing.T, repo *storage.Repository, orgID string) (categoryID, partyID string) {
	t.Helper()
	ctx := context.Background()
	categoryID = uuid.NewString()
	partyID = uuid.NewString()
	if err := repo.Queries().CreateCategory(ctx, &core.Category{
		ID: categoryID, OrganizationID: orgID, UserID: "user-1",
		Name: "Groceries", Type: core.Expense,
	}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if err := repo.Queries().CreateRelatedParty(ctx, &core.RelatedParty{
		ID: partyID, OrganizationID: orgID, UserID: "user-1",
		Name: "Corner Shop", Type: core.Supplier,
	}); err != nil {
		t.Fatalf("CreateRelatedParty() error = %v", err)
	}
	return categoryID, partyID
}

// recordingPublisher captures published ledger events in order.
type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, event, _, _ string) error {
	p.events = append(p.events, event)
	return nil
}

func validInput(t *testing.T, categoryID, partyID string) TransactionInput {
	t.Helper()
	return TransactionInput{
		Date:           mustDate(t, "2024-12-05"),
		Type:           core.Expense,
		Description:    "weekly shop",
		CategoryID:     categoryID,
		RelatedPartyID: partyID,
		Items: []ItemInput{
			{Name: "bread", Price: core.Money{Cents: 1000}, Quantity: 2},
			{Name: "milk", Price: core.Money{Cents: 500}, Quantity: 1},
		},
	}
}

func TestPostTransactionDerivesAmountFromItems(t *testing.T) {
	repo := newTestRepo(t)
	categoryID, partyID := seedMasterData(t, repo, "org-1")
	pub := &recordingPublisher{}
	svc := NewLedgerService(repo, pub)

	tx, err := svc.PostTransaction(context.Background(), "org-1", "user-1", validInput(t, categoryID, partyID))
	if err != nil {
		t.Fatalf("PostTransaction() error = %v", err)
	}

	if tx.Amount.Cents != 2500 {
		t.Errorf("Amount = %d cents, want 2500 (1000*2 + 500*1)", tx.Amount.Cents)
	}
	if len(tx.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(tx.Items))
	}
	if tx.Items[0].Total.Cents != 2000 || tx.Items[1].Total.Cents != 500 {
		t.Errorf("item totals = %d/%d, want 2000/500", tx.Items[0].Total.Cents, tx.Items[1].Total.Cents)
	}
	if tx.CategoryName != "Groceries" || tx.RelatedPartyName != "Corner Shop" {
		t.Errorf("resolved names = %q/%q, want Groceries/Corner Shop", tx.CategoryName, tx.RelatedPartyName)
	}

	month, err := repo.Queries().GetMonthHistory(context.Background(), "org-1", 2024, 12)
	if err != nil {
		t.Fatalf("GetMonthHistory() error = %v", err)
	}
	if month.TotalExpense.Cents != 2500 {
		t.Errorf("month expense = %d, want 2500", month.TotalExpense.Cents)
	}
	if tx.MonthHistoryID != month.ID {
		t.Errorf("MonthHistoryID = %s, want %s", tx.MonthHistoryID, month.ID)
	}

	if len(pub.events) != 1 || pub.events[0] != EventTransactionPosted {
		t.Errorf("published events = %v, want [%s]", pub.events, EventTransactionPosted)
	}
}

func TestPostTransactionClientAmountMustMatch(t *testing.T) {
	repo := newTestRepo(t)
	categoryID, partyID := seedMasterData(t, repo, "org-1")
	svc := NewLedgerService(repo, nil)

	in := validInput(t, categoryID, partyID)
	in.Amount = core.Money{Cents: 9900}
	in.HasAmount = true

	_, err := svc.PostTransaction(context.Background(), "org-1", "user-1", in)
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("PostTransaction() error = %v, want ValidationError", err)
	}
	if _, ok := ve.Fields["amount"]; !ok {
		t.Errorf("violated fields = %v, want amount", ve.Fields)
	}

	// A matching client amount is accepted.
	in.Amount = core.Money{Cents: 2500}
	if _, err := svc.PostTransaction(context.Background(), "org-1", "user-1", in); err != nil {
		t.Errorf("PostTransaction() with matching amount error = %v", err)
	}
}

func TestPostTransactionValidationCollectsAllFields(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)

	_, err := svc.PostTransaction(context.Background(), "org-1", "user-1", TransactionInput{
		Items: []ItemInput{
			{Name: "", Price: core.Money{Cents: -100}, Quantity: 0},
		},
	})
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("PostTransaction() error = %v, want ValidationError", err)
	}
	for _, field := range []string{
		"date", "type", "categoryId", "relatedPartyId",
		"items[0].name", "items[0].price", "items[0].quantity",
	} {
		if _, ok := ve.Fields[field]; !ok {
			t.Errorf("violated fields = %v, missing %s", ve.Fields, field)
		}
	}
}

func TestPostTransactionRejectsOverflowingItemTotal(t *testing.T) {
	repo := newTestRepo(t)
	categoryID, partyID := seedMasterData(t, repo, "org-1")
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()

	// price and quantity each pass their range checks, but the product
	// wraps int64 to exactly zero.
	in := validInput(t, categoryID, partyID)
	in.Items = []ItemInput{
		{Name: "bulk", Price: core.Money{Cents: 1 << 32}, Quantity: 1 << 32},
	}

	_, err := svc.PostTransaction(ctx, "org-1", "user-1", in)
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("PostTransaction() error = %v, want ValidationError", err)
	}
	if _, ok := ve.Fields["items[0].quantity"]; !ok {
		t.Errorf("violated fields = %v, want items[0].quantity", ve.Fields)
	}

	// Nothing may have been accepted with a wrapped total.
	_, total, err := svc.ListTransactions(ctx, storage.TransactionFilter{OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if total != 0 {
		t.Errorf("transaction count = %d, want 0", total)
	}
	if _, err := repo.Queries().GetMonthHistory(ctx, "org-1", 2024, 12); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetMonthHistory() error = %v, want ErrNotFound", err)
	}

	// The sum across items is bounds-checked too, not just each product.
	in.Items = []ItemInput{
		{Name: "a", Price: core.Money{Cents: 1 << 62}, Quantity: 1},
		{Name: "b", Price: core.Money{Cents: 1 << 62}, Quantity: 1},
	}
	_, err = svc.PostTransaction(ctx, "org-1", "user-1", in)
	if !errors.As(err, &ve) {
		t.Fatalf("PostTransaction() error = %v, want ValidationError", err)
	}
	if _, ok := ve.Fields["amount"]; !ok {
		t.Errorf("violated fields = %v, want amount", ve.Fields)
	}
}

func TestPostTransactionIsAtomic(t *testing.T) {
	repo := newTestRepo(t)
	categoryID, partyID := seedMasterData(t, repo, "org-1")
	svc := NewLedgerService(repo, nil)

	in := validInput(t, categoryID, partyID)
	in.Items[1].MasterItemID = uuid.NewString() // dangling reference

	_, err := svc.PostTransaction(context.Background(), "org-1", "user-1", in)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("PostTransaction() error = %v, want ErrNotFound", err)
	}

	// The failed posting must leave no trace: no transaction, no aggregates.
	_, total, err := svc.ListTransactions(context.Background(), storage.TransactionFilter{OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if total != 0 {
		t.Errorf("transaction count after failed posting = %d, want 0", total)
	}
	if _, err := repo.Queries().GetMonthHistory(context.Background(), "org-1", 2024, 12); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetMonthHistory() error = %v, want ErrNotFound (no partial aggregate)", err)
	}
}

func TestUpdateTransactionCompensatesAggregates(t *testing.T) {
	repo := newTestRepo(t)
	categoryID, partyID := seedMasterData(t, repo, "org-1")
	pub := &recordingPublisher{}
	svc := NewLedgerService(repo, pub)
	ctx := context.Background()

	tx, err := svc.PostTransaction(ctx, "org-1", "user-1", validInput(t, categoryID, partyID))
	if err != nil {
		t.Fatalf("PostTransaction() error = %v", err)
	}

	// Move the transaction to another month and flip it to income.
	in := validInput(t, categoryID, partyID)
	in.Date = mustDate(t, "2025-01-10")
	in.Type = core.Income
	in.Items = []ItemInput{{Name: "refund", Price: core.Money{Cents: 1200}, Quantity: 1}}

	updated, err := svc.UpdateTransaction(ctx, "org-1", tx.ID, in)
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if updated.Amount.Cents != 1200 || updated.Type != core.Income {
		t.Errorf("updated = %s %s, want 12.00 income", updated.Amount, updated.Type)
	}
	if len(updated.Items) != 1 || updated.Items[0].Name != "refund" {
		t.Errorf("items after update = %v, want the replacement set", updated.Items)
	}

	// Old period fully reversed, new period carries the new amount.
	dec, err := repo.Queries().GetMonthHistory(ctx, "org-1", 2024, 12)
	if err != nil {
		t.Fatalf("GetMonthHistory(2024-12) error = %v", err)
	}
	if dec.TotalExpense.Cents != 0 || dec.TotalIncome.Cents != 0 {
		t.Errorf("old month totals = income %d expense %d, want 0/0", dec.TotalIncome.Cents, dec.TotalExpense.Cents)
	}
	jan, err := repo.Queries().GetMonthHistory(ctx, "org-1", 2025, 1)
	if err != nil {
		t.Fatalf("GetMonthHistory(2025-01) error = %v", err)
	}
	if jan.TotalIncome.Cents != 1200 || jan.TotalExpense.Cents != 0 {
		t.Errorf("new month totals = income %d expense %d, want 1200/0", jan.TotalIncome.Cents, jan.TotalExpense.Cents)
	}

	if len(pub.events) != 2 || pub.events[1] != EventTransactionUpdated {
		t.Errorf("published events = %v, want updated event last", pub.events)
	}
}

func TestDeleteTransactionReversesAggregates(t *testing.T) {
	repo := newTestRepo(t)
	categoryID, partyID := seedMasterData(t, repo, "org-1")
	pub := &recordingPublisher{}
	svc := NewLedgerService(repo, pub)
	ctx := context.Background()

	tx, err := svc.PostTransaction(ctx, "org-1", "user-1", validInput(t, categoryID, partyID))
	if err != nil {
		t.Fatalf("PostTransaction() error = %v", err)
	}
	if err := svc.DeleteTransaction(ctx, "org-1", tx.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}

	if _, err := svc.GetTransaction(ctx, "org-1", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetTransaction() after delete error = %v, want ErrNotFound", err)
	}
	month, err := repo.Queries().GetMonthHistory(ctx, "org-1", 2024, 12)
	if err != nil {
		t.Fatalf("GetMonthHistory() error = %v", err)
	}
	if month.TotalExpense.Cents != 0 {
		t.Errorf("month expense after delete = %d, want 0", month.TotalExpense.Cents)
	}
	if pub.events[len(pub.events)-1] != EventTransactionDeleted {
		t.Errorf("published events = %v, want deleted event last", pub.events)
	}
}

func TestTransactionsAreOrganizationScoped(t *testing.T) {
	repo := newTestRepo(t)
	categoryID, partyID := seedMasterData(t, repo, "org-a")
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()

	tx, err := svc.PostTransaction(ctx, "org-a", "user-1", validInput(t, categoryID, partyID))
	if err != nil {
		t.Fatalf("PostTransaction() error = %v", err)
	}

	// Another organization sees the record as forbidden, not absent.
	if _, err := svc.GetTransaction(ctx, "org-b", tx.ID); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("GetTransaction(org-b) error = %v, want ErrForbidden", err)
	}
	if _, err := svc.UpdateTransaction(ctx, "org-b", tx.ID, validInput(t, categoryID, partyID)); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("UpdateTransaction(org-b) error = %v, want ErrForbidden", err)
	}
	if err := svc.DeleteTransaction(ctx, "org-b", tx.ID); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("DeleteTransaction(org-b) error = %v, want ErrForbidden", err)
	}

	// Listings never leak across organizations.
	_, total, err := svc.ListTransactions(ctx, storage.TransactionFilter{OrganizationID: "org-b"})
	if err != nil {
		t.Fatalf("ListTransactions(org-b) error = %v", err)
	}
	if total != 0 {
		t.Errorf("org-b transaction count = %d, want 0", total)
	}

	// Posting against another organization's master data is rejected too.
	if _, err := svc.PostTransaction(ctx, "org-b", "user-2", validInput(t, categoryID, partyID)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("PostTransaction(org-b) with org-a refs error = %v, want ErrNotFound", err)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	repo := newTestRepo(t)
	categoryID, partyID := seedMasterData(t, repo, "org-1")
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()

	dates := []string{"2024-12-01", "2024-12-15", "2025-01-03"}
	for i, d := range dates {
		in := validInput(t, categoryID, partyID)
		in.Date = mustDate(t, d)
		if i == 2 {
			in.Description = "rare find"
		}
		if _, err := svc.PostTransaction(ctx, "org-1", "user-1", in); err != nil {
			t.Fatalf("PostTransaction(%s) error = %v", d, err)
		}
	}

	rows, total, err := svc.ListTransactions(ctx, storage.TransactionFilter{
		OrganizationID: "org-1", Page: 1, PageSize: 2,
	})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if total != 3 || len(rows) != 2 {
		t.Errorf("page = %d rows, total %d; want 2 rows, total 3", len(rows), total)
	}

	rows, total, err = svc.ListTransactions(ctx, storage.TransactionFilter{
		OrganizationID: "org-1",
		From:           mustDate(t, "2025-01-01"),
		To:             mustDate(t, "2025-12-31"),
	})
	if err != nil {
		t.Fatalf("ListTransactions() range error = %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Description != "rare find" {
		t.Errorf("range filter got total %d, want the single january transaction", total)
	}

	_, total, err = svc.ListTransactions(ctx, storage.TransactionFilter{
		OrganizationID: "org-1", Search: "rare",
	})
	if err != nil {
		t.Fatalf("ListTransactions() search error = %v", err)
	}
	if total != 1 {
		t.Errorf("search total = %d, want 1", total)
	}
}
