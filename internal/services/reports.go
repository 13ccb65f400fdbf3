package services

import (
	"context"
	"fmt"

	"cashlog/internal/core"
	"cashlog/internal/storage"
)

// ReportService folds date-bounded transaction sets into per-period or
// per-master-data totals. Every call re-scans the range; there is no
// caching and no hidden state, so results are a deterministic function of
// the snapshot at fetch time.
type ReportService struct {
	repo *storage.Repository
}

// NewReportService creates a report service over the repository.
func NewReportService(repo *storage.Repository) *ReportService {
	return &ReportService{repo: repo}
}

// Aggregate fetches all transactions of the organization within the
// inclusive [start, end] range and folds them by the kind's grouping key.
// An empty range yields an empty slice, not an error.
func (s *ReportService) Aggregate(ctx context.Context, kind core.ReportKind, orgID string, start, end core.Date) ([]core.ReportRow, error) {
	if !kind.Valid() {
		ve := core.NewValidationError()
		ve.Addf("type", "unknown report kind %q", string(kind))
		return nil, ve
	}
	if start.IsZero() || end.IsZero() {
		ve := core.NewValidationError()
		if start.IsZero() {
			ve.Add("startDate", "is required")
		}
		if end.IsZero() {
			ve.Add("endDate", "is required")
		}
		return nil, ve
	}
	if end.Before(start) {
		ve := core.NewValidationError()
		ve.Add("endDate", "must not be before startDate")
		return nil, ve
	}

	rows, err := s.repo.Queries().ListTransactionsInRange(ctx, orgID, start, end)
	if err != nil {
		return nil, err
	}

	labels, err := s.labelsFor(ctx, kind, orgID)
	if err != nil {
		return nil, err
	}

	return Fold(kind, rows, labels), nil
}

// labelsFor resolves display names for id-keyed report kinds. Grouping is
// always by stable id; names are presentation only, so a renamed category
// never splits historical buckets.
func (s *ReportService) labelsFor(ctx context.Context, kind core.ReportKind, orgID string) (map[string]string, error) {
	labels := make(map[string]string)
	switch kind {
	case core.ReportCategory:
		cats, err := s.repo.Queries().ListCategories(ctx, orgID)
		if err != nil {
			return nil, err
		}
		for _, c := range cats {
			labels[c.ID] = c.Name
		}
	case core.ReportRelatedParty:
		parties, err := s.repo.Queries().ListRelatedParties(ctx, orgID)
		if err != nil {
			return nil, err
		}
		for _, p := range parties {
			labels[p.ID] = p.Name
		}
	}
	return labels, nil
}

// Fold groups the rows by the kind's key and accumulates income and
// expense totals per bucket. Buckets are created lazily and returned in
// first-occurrence order; callers sort if they need a different order.
func Fold(kind core.ReportKind, rows []storage.PeriodRow, labels map[string]string) []core.ReportRow {
	out := []core.ReportRow{}
	index := make(map[string]int)

	for _, r := range rows {
		key, label := bucketKey(kind, r, labels)

		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, core.ReportRow{Key: key, Label: label})
		}

		if r.Type == core.Income {
			out[i].Income = out[i].Income.Add(r.Amount)
		} else {
			out[i].Expense = out[i].Expense.Add(r.Amount)
		}
	}

	return out
}

func bucketKey(kind core.ReportKind, r storage.PeriodRow, labels map[string]string) (key, label string) {
	switch kind {
	case core.ReportMonthly:
		key = fmt.Sprintf("%04d-%02d", r.Date.Year(), r.Date.Month())
		return key, key
	case core.ReportYearly:
		key = fmt.Sprintf("%04d", r.Date.Year())
		return key, key
	case core.ReportCategory:
		key = r.CategoryID
	case core.ReportRelatedParty:
		key = r.RelatedPartyID
	}
	if label = labels[key]; label == "" {
		label = key
	}
	return key, label
}
