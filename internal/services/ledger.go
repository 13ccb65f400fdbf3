// Package services orchestrates ledger operations across storage and the
// event stream. Services validate typed inputs once, run every mutation
// inside a single database transaction, and never catch-and-recover store
// errors - those propagate to the HTTP boundary.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cashlog/internal/core"
	"cashlog/internal/storage"

	"github.com/google/uuid"
)

// Ledger event names published after successful mutations.
const (
	EventTransactionPosted  = "transaction.posted"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
)

// LedgerEventPublisher pushes ledger events to the message broker. A nil
// publisher disables the stream without affecting posting.
type LedgerEventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event, orgID, transactionID string) error
}

// LedgerService implements transaction posting, update with wholesale item
// replacement, and deletion - each with compensating period-aggregate
// deltas so month/year totals always track the current transaction set.
type LedgerService struct {
	repo      *storage.Repository
	publisher LedgerEventPublisher
}

// NewLedgerService creates a ledger service. publisher may be nil.
func NewLedgerService(repo *storage.Repository, publisher LedgerEventPublisher) *LedgerService {
	return &LedgerService{repo: repo, publisher: publisher}
}

// ItemInput is one line item of a posting request.
type ItemInput struct {
	Name         string
	Price        core.Money
	Quantity     int64
	MasterItemID string
}

// TransactionInput carries the validated fields of a posting or update
// request. Amount is the optional client-supplied total; when HasAmount is
// set it must equal the sum of the line items.
type TransactionInput struct {
	Date            core.Date
	Type            core.TransactionType
	Description     string
	CategoryID      string
	RelatedPartyID  string
	Amount          core.Money
	HasAmount       bool
	PaymentImageRef string
	Items           []ItemInput
}

// Validate checks every precondition before any mutation and reports all
// violated fields at once.
func (in TransactionInput) Validate() error {
	ve := core.NewValidationError()

	if in.Date.IsZero() {
		ve.Add("date", "is required")
	}
	if !in.Type.Valid() {
		ve.Add("type", "must be income or expense")
	}
	if in.CategoryID == "" {
		ve.Add("categoryId", "is required")
	}
	if in.RelatedPartyID == "" {
		ve.Add("relatedPartyId", "is required")
	}
	if len(in.Items) == 0 {
		ve.Add("items", "must contain at least one line item")
	}
	var sum core.Money
	sumOK := true
	for i, it := range in.Items {
		if it.Name == "" {
			ve.Addf(fmt.Sprintf("items[%d].name", i), "is required")
		}
		if it.Price.IsNegative() {
			ve.Addf(fmt.Sprintf("items[%d].price", i), "must not be negative")
		}
		if it.Quantity < 1 {
			ve.Addf(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
		if it.Price.IsNegative() || it.Quantity < 1 {
			sumOK = false
			continue
		}
		// Checked arithmetic: a price and quantity that each pass their
		// range checks can still overflow the total.
		total, ok := it.Price.MulChecked(it.Quantity)
		if !ok {
			ve.Addf(fmt.Sprintf("items[%d].quantity", i), "price times quantity exceeds the supported amount range")
			sumOK = false
			continue
		}
		if sum, ok = sum.AddChecked(total); !ok {
			ve.Add("amount", "sum of line items exceeds the supported amount range")
			sumOK = false
		}
	}
	if in.HasAmount && sumOK {
		if in.Amount.IsNegative() {
			ve.Add("amount", "must not be negative")
		} else if in.Amount != sum {
			ve.Addf("amount", "must equal the sum of line items (%s)", sum)
		}
	}

	return ve.OrNil()
}

// itemSum assumes Validate has already bounds-checked every line item.
func (in TransactionInput) itemSum() core.Money {
	var cents int64
	for _, it := range in.Items {
		cents += it.Price.Cents * it.Quantity
	}
	return core.Money{Cents: cents}
}

// PostTransaction creates a transaction with its line items and updates
// the period aggregates in one atomic unit of work. On success the fully
// hydrated transaction is returned and a posted event is published
// (best-effort).
func (s *LedgerService) PostTransaction(ctx context.Context, orgID, userID string, in TransactionInput) (*core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	amount := in.itemSum()

	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		if err := s.checkReferences(ctx, q, orgID, in); err != nil {
			return err
		}

		t := &core.Transaction{
			ID:              id,
			Date:            in.Date,
			Type:            in.Type,
			Description:     in.Description,
			Amount:          amount,
			PaymentImageRef: in.PaymentImageRef,
			OrganizationID:  orgID,
			UserID:          userID,
			CategoryID:      in.CategoryID,
			RelatedPartyID:  in.RelatedPartyID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := q.InsertTransaction(ctx, t); err != nil {
			return err
		}
		if err := insertItems(ctx, q, id, orgID, userID, in.Items); err != nil {
			return err
		}

		monthID, err := q.ApplyPeriodDelta(ctx, orgID, in.Date, amount, in.Type)
		if err != nil {
			return err
		}
		return q.SetTransactionMonthHistory(ctx, id, monthID)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventTransactionPosted, orgID, id)
	return s.repo.Queries().GetTransaction(ctx, id)
}

// UpdateTransaction replaces the scalar fields and the whole item set of
// an existing transaction. The old amount is reversed out of its period
// aggregates and the new amount applied, atomically with the rewrite.
func (s *LedgerService) UpdateTransaction(ctx context.Context, orgID, id string, in TransactionInput) (*core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	amount := in.itemSum()

	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if old.OrganizationID != orgID {
			return core.ErrForbidden
		}
		if err := s.checkReferences(ctx, q, orgID, in); err != nil {
			return err
		}

		// Compensating delta: period totals must track the current
		// transaction set, not just initial postings.
		if _, err := q.ApplyPeriodDelta(ctx, orgID, old.Date, core.Money{Cents: -old.Amount.Cents}, old.Type); err != nil {
			return err
		}
		monthID, err := q.ApplyPeriodDelta(ctx, orgID, in.Date, amount, in.Type)
		if err != nil {
			return err
		}

		if err := q.DeleteTransactionItems(ctx, id); err != nil {
			return err
		}
		if err := insertItems(ctx, q, id, orgID, old.UserID, in.Items); err != nil {
			return err
		}

		updated := &core.Transaction{
			ID:              id,
			Date:            in.Date,
			Type:            in.Type,
			Description:     in.Description,
			Amount:          amount,
			PaymentImageRef: in.PaymentImageRef,
			CategoryID:      in.CategoryID,
			RelatedPartyID:  in.RelatedPartyID,
		}
		if err := q.UpdateTransaction(ctx, updated); err != nil {
			return err
		}
		return q.SetTransactionMonthHistory(ctx, id, monthID)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventTransactionUpdated, orgID, id)
	return s.repo.Queries().GetTransaction(ctx, id)
}

// DeleteTransaction removes a transaction with its items and reverses its
// period-aggregate contribution.
func (s *LedgerService) DeleteTransaction(ctx context.Context, orgID, id string) error {
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if old.OrganizationID != orgID {
			return core.ErrForbidden
		}

		if _, err := q.ApplyPeriodDelta(ctx, orgID, old.Date, core.Money{Cents: -old.Amount.Cents}, old.Type); err != nil {
			return err
		}
		if err := q.DeleteTransactionItems(ctx, id); err != nil {
			return err
		}
		return q.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, EventTransactionDeleted, orgID, id)
	return nil
}

// GetTransaction loads one hydrated transaction, enforcing organization
// ownership: a cross-organization id yields ErrForbidden, not ErrNotFound.
func (s *LedgerService) GetTransaction(ctx context.Context, orgID, id string) (*core.Transaction, error) {
	t, err := s.repo.Queries().GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.OrganizationID != orgID {
		return nil, core.ErrForbidden
	}
	return t, nil
}

// Pagination bounds for transaction listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListTransactions returns one page of transactions matching the filter
// plus the total match count. Page defaults to 1 and PageSize to
// DefaultPageSize, capped at MaxPageSize.
func (s *LedgerService) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return s.repo.Queries().ListTransactions(ctx, f)
}

// checkReferences verifies every referenced master-data id resolves within
// the caller's organization before any row is written.
func (s *LedgerService) checkReferences(ctx context.Context, q *storage.Queries, orgID string, in TransactionInput) error {
	ok, err := q.CategoryExists(ctx, orgID, in.CategoryID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("category %s: %w", in.CategoryID, core.ErrNotFound)
	}

	ok, err = q.RelatedPartyExists(ctx, orgID, in.RelatedPartyID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("related party %s: %w", in.RelatedPartyID, core.ErrNotFound)
	}

	for i, it := range in.Items {
		if it.MasterItemID == "" {
			continue
		}
		ok, err := q.MasterItemExists(ctx, orgID, it.MasterItemID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("master item %s (items[%d]): %w", it.MasterItemID, i, core.ErrNotFound)
		}
	}
	return nil
}

func insertItems(ctx context.Context, q *storage.Queries, transactionID, orgID, userID string, items []ItemInput) error {
	for i, in := range items {
		it := &core.Item{
			ID:            uuid.NewString(),
			TransactionID: transactionID,
			Name:          in.Name,
			Price:         in.Price,
			Quantity:      in.Quantity,
			Total:         in.Price.Mul(in.Quantity),
			MasterItemID:  in.MasterItemID,
			Position:      i,
		}
		if err := q.InsertItem(ctx, it, orgID, userID); err != nil {
			return err
		}
	}
	return nil
}

// publish emits a ledger event without failing the originating request;
// the write already committed.
func (s *LedgerService) publish(ctx context.Context, event, orgID, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, event, orgID, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event", event, "transaction_id", id, "error", err)
	}
}
