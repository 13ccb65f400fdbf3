package worker

import (
	"context"
	"path/filepath"
	"testing"

	"cashlog/internal/core"
	"cashlog/internal/events"
	"cashlog/internal/services"
	"cashlog/internal/sheets/memory"
	"cashlog/internal/storage"

	"github.com/google/uuid"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.Open(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func postTestTransaction(t *testing.T, repo *storage.Repository, orgID string) *core.Transaction {
	t.Helper()
	ctx := context.Background()

	categoryID := uuid.NewString()
	partyID := uuid.NewString()
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

	date, err := core.ParseDate("2024-12-05")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}

	svc := services.NewLedgerService(repo, nil)
	tx, err := svc.PostTransaction(ctx, orgID, "user-1", services.TransactionInput{
		Date:           date,
		Type:           core.Expense,
		Description:    "weekly shop",
		CategoryID:     categoryID,
		RelatedPartyID: partyID,
		Items: []services.ItemInput{
			{Name: "bread", Price: core.Money{Cents: 350}, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("PostTransaction() error = %v", err)
	}
	return tx
}

func TestHandleLedgerEvent(t *testing.T) {
	repo := newTestRepo(t)
	tx := postTestTransaction(t, repo, "org-1")
	appender := memory.New()
	w := NewSyncWorker(repo, appender, 10)

	ev := events.NewLedgerEvent(services.EventTransactionPosted, "org-1", tx.ID)
	if err := w.HandleLedgerEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleLedgerEvent() error = %v", err)
	}

	rows := appender.Rows()
	if len(rows) != 1 || rows[0].ID != tx.ID {
		t.Fatalf("appended rows = %v, want one row for %s", rows, tx.ID)
	}

	// Synced transactions must not show up as pending anymore.
	ids, err := repo.Queries().ListUnsyncedTransactionIDs(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListUnsyncedTransactionIDs() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("unsynced ids = %v, want none", ids)
	}
}

func TestHandleLedgerEventSkipsDeleted(t *testing.T) {
	repo := newTestRepo(t)
	appender := memory.New()
	w := NewSyncWorker(repo, appender, 10)

	ev := events.NewLedgerEvent(services.EventTransactionDeleted, "org-1", uuid.NewString())
	if err := w.HandleLedgerEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleLedgerEvent() error = %v", err)
	}
	if len(appender.Rows()) != 0 {
		t.Error("delete events should not append rows")
	}
}

func TestHandleLedgerEventMissingTransaction(t *testing.T) {
	repo := newTestRepo(t)
	w := NewSyncWorker(repo, memory.New(), 10)

	ev := events.NewLedgerEvent(services.EventTransactionPosted, "org-1", uuid.NewString())
	if err := w.HandleLedgerEvent(context.Background(), ev); err != nil {
		t.Errorf("HandleLedgerEvent() for a vanished transaction should not error, got %v", err)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	repo := newTestRepo(t)
	first := postTestTransaction(t, repo, "org-1")
	appender := memory.New()
	w := NewSyncWorker(repo, appender, 10)

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}
	rows := appender.Rows()
	if len(rows) != 1 || rows[0].ID != first.ID {
		t.Fatalf("appended rows = %v, want one row for %s", rows, first.ID)
	}

	// A second pass finds nothing left to do.
	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if len(appender.Rows()) != 1 {
		t.Error("already synced transactions must not be mirrored twice")
	}
}

func TestProcessPendingContinuesAfterFailure(t *testing.T) {
	repo := newTestRepo(t)
	postTestTransaction(t, repo, "org-1")
	appender := memory.New()
	appender.FailNext = true
	w := NewSyncWorker(repo, appender, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if len(appender.Rows()) != 0 {
		t.Error("failed append should not record a row")
	}

	// The transaction stays pending and succeeds on the next pass.
	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() retry error = %v", err)
	}
	if len(appender.Rows()) != 1 {
		t.Errorf("rows after retry = %d, want 1", len(appender.Rows()))
	}
}
