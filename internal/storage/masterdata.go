package storage

import (
	"context"
	"fmt"

	"cashlog/internal/core"
)

// Master data: categories, related parties and master items. Name
// uniqueness per (organization, type) is enforced by unique indexes;
// violations surface as ConflictError through classify.

func (q *Queries) CreateCategory(ctx context.Context, c *core.Category) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO categories (id, organization_id, user_id, name, description, type, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OrganizationID, c.UserID, c.Name, c.Description, string(c.Type), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create category: %w", classify(err))
	}
	return nil
}

func (q *Queries) GetCategory(ctx context.Context, id string) (*core.Category, error) {
	var c core.Category
	var typ string
	err := q.db.QueryRowContext(ctx, `
SELECT id, organization_id, user_id, name, description, type, created_at, updated_at
FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.OrganizationID, &c.UserID, &c.Name, &c.Description, &typ, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", classify(err))
	}
	c.Type = core.TransactionType(typ)
	return &c, nil
}

func (q *Queries) ListCategories(ctx context.Context, orgID string) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, organization_id, user_id, name, description, type, created_at, updated_at
FROM categories WHERE organization_id = ? ORDER BY type, name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", classify(err))
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.UserID, &c.Name, &c.Description, &typ, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", classify(err))
		}
		c.Type = core.TransactionType(typ)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", classify(err))
	}
	return out, nil
}

func (q *Queries) UpdateCategory(ctx context.Context, c *core.Category) error {
	res, err := q.db.ExecContext(ctx, `
UPDATE categories SET name = ?, description = ?, type = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Description, string(c.Type), c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", classify(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (q *Queries) DeleteCategory(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", classify(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// CategoryExists reports whether a category id resolves within the
// given organization scope.
func (q *Queries) CategoryExists(ctx context.Context, orgID, id string) (bool, error) {
	return q.exists(ctx, `SELECT 1 FROM categories WHERE id = ? AND organization_id = ?`, id, orgID)
}

// CountTransactionsByCategory counts historical references so deletion of
// a still-referenced category can be refused.
func (q *Queries) CountTransactionsByCategory(ctx context.Context, id string) (int64, error) {
	return q.count(ctx, `SELECT COUNT(*) FROM transactions WHERE category_id = ?`, id)
}

func (q *Queries) CreateRelatedParty(ctx context.Context, p *core.RelatedParty) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO related_parties (id, organization_id, user_id, name, description, type, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrganizationID, p.UserID, p.Name, p.Description, string(p.Type), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create related party: %w", classify(err))
	}
	return nil
}

func (q *Queries) GetRelatedParty(ctx context.Context, id string) (*core.RelatedParty, error) {
	var p core.RelatedParty
	var typ string
	err := q.db.QueryRowContext(ctx, `
SELECT id, organization_id, user_id, name, description, type, created_at, updated_at
FROM related_parties WHERE id = ?`, id,
	).Scan(&p.ID, &p.OrganizationID, &p.UserID, &p.Name, &p.Description, &typ, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get related party: %w", classify(err))
	}
	p.Type = core.PartyType(typ)
	return &p, nil
}

func (q *Queries) ListRelatedParties(ctx context.Context, orgID string) ([]core.RelatedParty, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, organization_id, user_id, name, description, type, created_at, updated_at
FROM related_parties WHERE organization_id = ? ORDER BY type, name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list related parties: %w", classify(err))
	}
	defer rows.Close()

	var out []core.RelatedParty
	for rows.Next() {
		var p core.RelatedParty
		var typ string
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.UserID, &p.Name, &p.Description, &typ, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan related party: %w", classify(err))
		}
		p.Type = core.PartyType(typ)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate related parties: %w", classify(err))
	}
	return out, nil
}

func (q *Queries) UpdateRelatedParty(ctx context.Context, p *core.RelatedParty) error {
	res, err := q.db.ExecContext(ctx, `
UPDATE related_parties SET name = ?, description = ?, type = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, string(p.Type), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update related party: %w", classify(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (q *Queries) DeleteRelatedParty(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM related_parties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete related party: %w", classify(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (q *Queries) RelatedPartyExists(ctx context.Context, orgID, id string) (bool, error) {
	return q.exists(ctx, `SELECT 1 FROM related_parties WHERE id = ? AND organization_id = ?`, id, orgID)
}

func (q *Queries) CountTransactionsByRelatedParty(ctx context.Context, id string) (int64, error) {
	return q.count(ctx, `SELECT COUNT(*) FROM transactions WHERE related_party_id = ?`, id)
}

func (q *Queries) CreateMasterItem(ctx context.Context, m *core.MasterItem) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO master_items (id, organization_id, user_id, name, description, type, default_price_cents, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.OrganizationID, m.UserID, m.Name, m.Description, string(m.Type), m.DefaultPrice.Cents, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create master item: %w", classify(err))
	}
	return nil
}

func (q *Queries) GetMasterItem(ctx context.Context, id string) (*core.MasterItem, error) {
	var m core.MasterItem
	var typ string
	err := q.db.QueryRowContext(ctx, `
SELECT id, organization_id, user_id, name, description, type, default_price_cents, created_at, updated_at
FROM master_items WHERE id = ?`, id,
	).Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Name, &m.Description, &typ, &m.DefaultPrice.Cents, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get master item: %w", classify(err))
	}
	m.Type = core.TransactionType(typ)
	return &m, nil
}

func (q *Queries) ListMasterItems(ctx context.Context, orgID string) ([]core.MasterItem, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, organization_id, user_id, name, description, type, default_price_cents, created_at, updated_at
FROM master_items WHERE organization_id = ? ORDER BY type, name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list master items: %w", classify(err))
	}
	defer rows.Close()

	var out []core.MasterItem
	for rows.Next() {
		var m core.MasterItem
		var typ string
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Name, &m.Description, &typ, &m.DefaultPrice.Cents, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan master item: %w", classify(err))
		}
		m.Type = core.TransactionType(typ)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate master items: %w", classify(err))
	}
	return out, nil
}

func (q *Queries) UpdateMasterItem(ctx context.Context, m *core.MasterItem) error {
	res, err := q.db.ExecContext(ctx, `
UPDATE master_items SET name = ?, description = ?, type = ?, default_price_cents = ?, updated_at = ? WHERE id = ?`,
		m.Name, m.Description, string(m.Type), m.DefaultPrice.Cents, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("update master item: %w", classify(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (q *Queries) DeleteMasterItem(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM master_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete master item: %w", classify(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (q *Queries) MasterItemExists(ctx context.Context, orgID, id string) (bool, error) {
	return q.exists(ctx, `SELECT 1 FROM master_items WHERE id = ? AND organization_id = ?`, id, orgID)
}

func (q *Queries) CountItemsByMasterItem(ctx context.Context, id string) (int64, error) {
	return q.count(ctx, `SELECT COUNT(*) FROM items WHERE master_item_id = ?`, id)
}

func (q *Queries) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err != nil {
		if classify(err) == core.ErrNotFound {
			return false, nil
		}
		return false, classify(err)
	}
	return true, nil
}

func (q *Queries) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}
