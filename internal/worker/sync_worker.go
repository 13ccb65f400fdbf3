package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cashlog/internal/core"
	"cashlog/internal/events"
	"cashlog/internal/services"
	"cashlog/internal/sheets"
	"cashlog/internal/storage"
)

// SyncWorker mirrors posted transactions to an external spreadsheet.
type SyncWorker struct {
	repo      *storage.Repository
	appender  sheets.TransactionAppender
	batchSize int
}

func NewSyncWorker(repo *storage.Repository, appender sheets.TransactionAppender, batchSize int) *SyncWorker {
	return &SyncWorker{
		repo:      repo,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, ev *events.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event", ev.Event,
		"transaction_id", ev.TransactionID)

	// Deletions leave nothing to mirror.
	if ev.Event == services.EventTransactionDeleted {
		return nil
	}

	tx, err := w.repo.Queries().GetTransaction(ctx, ev.TransactionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Transaction gone before sync, skipping",
				"transaction_id", ev.TransactionID)
			return nil
		}
		return fmt.Errorf("get transaction: %w", err)
	}
	if tx.OrganizationID != ev.OrganizationID {
		return fmt.Errorf("event organization %s does not match transaction %s", ev.OrganizationID, tx.ID)
	}

	return w.syncTransaction(ctx, tx)
}

// ProcessPending mirrors transactions that have not been synced yet. This is
// a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	ids, err := w.repo.Queries().ListUnsyncedTransactionIDs(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unsynced transactions: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(ids))
	w.syncByID(ctx, ids)
	return nil
}

// StartupSyncCheck recovers transactions missed during worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	ids, err := w.repo.Queries().ListUnsyncedTransactionIDs(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list unsynced transactions for startup check: %w", err)
	}
	if len(ids) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup", "count", len(ids))
	synced := w.syncByID(ctx, ids)
	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(ids),
		"synced", synced,
		"errors", len(ids)-synced)
	return nil
}

func (w *SyncWorker) syncByID(ctx context.Context, ids []string) int {
	synced := 0
	for _, id := range ids {
		tx, err := w.repo.Queries().GetTransaction(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load transaction", "transaction_id", id, "error", err)
			continue
		}
		if err := w.syncTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "transaction_id", id, "error", err)
			continue
		}
		synced++
	}
	return synced
}

func (w *SyncWorker) syncTransaction(ctx context.Context, tx *core.Transaction) error {
	ref, err := w.appender.Append(ctx, tx)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.repo.Queries().MarkSheetSynced(ctx, tx.ID); err != nil {
		// The append worked; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark transaction as synced",
			"transaction_id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Transaction synced",
		"transaction_id", tx.ID,
		"sheets_ref", ref,
		"amount_cents", tx.Amount.Cents)
	return nil
}
