package services

import (
	"context"
	"time"

	"cashlog/internal/core"
	"cashlog/internal/storage"

	"github.com/google/uuid"
)

// MasterDataService manages categories, related parties and master items.
// Deletion is restricted while historical transactions still reference the
// record, so the ledger never acquires orphaned foreign keys.
type MasterDataService struct {
	repo *storage.Repository
}

// NewMasterDataService creates a master data service over the repository.
func NewMasterDataService(repo *storage.Repository) *MasterDataService {
	return &MasterDataService{repo: repo}
}

// CategoryInput carries a category create/update request.
type CategoryInput struct {
	Name        string
	Description string
	Type        core.TransactionType
}

func (in CategoryInput) validate() error {
	ve := core.NewValidationError()
	if in.Name == "" {
		ve.Add("name", "is required")
	}
	if !in.Type.Valid() {
		ve.Add("type", "must be income or expense")
	}
	return ve.OrNil()
}

func (s *MasterDataService) CreateCategory(ctx context.Context, orgID, userID string, in CategoryInput) (*core.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &core.Category{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Description:    in.Description,
		Type:           in.Type,
		OrganizationID: orgID,
		UserID:         userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Queries().CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *MasterDataService) GetCategory(ctx context.Context, orgID, id string) (*core.Category, error) {
	c, err := s.repo.Queries().GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OrganizationID != orgID {
		return nil, core.ErrForbidden
	}
	return c, nil
}

func (s *MasterDataService) ListCategories(ctx context.Context, orgID string) ([]core.Category, error) {
	return s.repo.Queries().ListCategories(ctx, orgID)
}

func (s *MasterDataService) UpdateCategory(ctx context.Context, orgID, id string, in CategoryInput) (*core.Category, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c, err := s.GetCategory(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	c.Name = in.Name
	c.Description = in.Description
	c.Type = in.Type
	c.UpdatedAt = time.Now().UTC()
	if err := s.repo.Queries().UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *MasterDataService) DeleteCategory(ctx context.Context, orgID, id string) error {
	if _, err := s.GetCategory(ctx, orgID, id); err != nil {
		return err
	}
	n, err := s.repo.Queries().CountTransactionsByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return core.Conflictf("category is referenced by %d transaction(s)", n)
	}
	return s.repo.Queries().DeleteCategory(ctx, id)
}

// RelatedPartyInput carries a related-party create/update request.
type RelatedPartyInput struct {
	Name        string
	Description string
	Type        core.PartyType
}

func (in RelatedPartyInput) validate() error {
	ve := core.NewValidationError()
	if in.Name == "" {
		ve.Add("name", "is required")
	}
	if !in.Type.Valid() {
		ve.Add("type", "must be customer or supplier")
	}
	return ve.OrNil()
}

func (s *MasterDataService) CreateRelatedParty(ctx context.Context, orgID, userID string, in RelatedPartyInput) (*core.RelatedParty, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p := &core.RelatedParty{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Description:    in.Description,
		Type:           in.Type,
		OrganizationID: orgID,
		UserID:         userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Queries().CreateRelatedParty(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *MasterDataService) GetRelatedParty(ctx context.Context, orgID, id string) (*core.RelatedParty, error) {
	p, err := s.repo.Queries().GetRelatedParty(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OrganizationID != orgID {
		return nil, core.ErrForbidden
	}
	return p, nil
}

func (s *MasterDataService) ListRelatedParties(ctx context.Context, orgID string) ([]core.RelatedParty, error) {
	return s.repo.Queries().ListRelatedParties(ctx, orgID)
}

func (s *MasterDataService) UpdateRelatedParty(ctx context.Context, orgID, id string, in RelatedPartyInput) (*core.RelatedParty, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.GetRelatedParty(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Type = in.Type
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Queries().UpdateRelatedParty(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *MasterDataService) DeleteRelatedParty(ctx context.Context, orgID, id string) error {
	if _, err := s.GetRelatedParty(ctx, orgID, id); err != nil {
		return err
	}
	n, err := s.repo.Queries().CountTransactionsByRelatedParty(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return core.Conflictf("related party is referenced by %d transaction(s)", n)
	}
	return s.repo.Queries().DeleteRelatedParty(ctx, id)
}

// MasterItemInput carries a master-item create/update request.
type MasterItemInput struct {
	Name         string
	Description  string
	Type         core.TransactionType
	DefaultPrice core.Money
}

func (in MasterItemInput) validate() error {
	ve := core.NewValidationError()
	if in.Name == "" {
		ve.Add("name", "is required")
	}
	if !in.Type.Valid() {
		ve.Add("type", "must be income or expense")
	}
	if in.DefaultPrice.IsNegative() {
		ve.Add("defaultPrice", "must not be negative")
	}
	return ve.OrNil()
}

func (s *MasterDataService) CreateMasterItem(ctx context.Context, orgID, userID string, in MasterItemInput) (*core.MasterItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	m := &core.MasterItem{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Description:    in.Description,
		Type:           in.Type,
		DefaultPrice:   in.DefaultPrice,
		OrganizationID: orgID,
		UserID:         userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Queries().CreateMasterItem(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MasterDataService) GetMasterItem(ctx context.Context, orgID, id string) (*core.MasterItem, error) {
	m, err := s.repo.Queries().GetMasterItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OrganizationID != orgID {
		return nil, core.ErrForbidden
	}
	return m, nil
}

func (s *MasterDataService) ListMasterItems(ctx context.Context, orgID string) ([]core.MasterItem, error) {
	return s.repo.Queries().ListMasterItems(ctx, orgID)
}

func (s *MasterDataService) UpdateMasterItem(ctx context.Context, orgID, id string, in MasterItemInput) (*core.MasterItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	m, err := s.GetMasterItem(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	m.Name = in.Name
	m.Description = in.Description
	m.Type = in.Type
	m.DefaultPrice = in.DefaultPrice
	m.UpdatedAt = time.Now().UTC()
	if err := s.repo.Queries().UpdateMasterItem(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MasterDataService) DeleteMasterItem(ctx context.Context, orgID, id string) error {
	if _, err := s.GetMasterItem(ctx, orgID, id); err != nil {
		return err
	}
	n, err := s.repo.Queries().CountItemsByMasterItem(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return core.Conflictf("master item is referenced by %d line item(s)", n)
	}
	return s.repo.Queries().DeleteMasterItem(ctx, id)
}
