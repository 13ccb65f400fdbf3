// Package storage persists the ledger in SQLite via database/sql. All
// queries are organization-scoped; multi-statement operations run inside a
// single immediate transaction through Repository.InTx.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"cashlog/internal/core"

	_ "modernc.org/sqlite"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so query methods work
// inside and outside explicit transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries bundles all SQL access over a DBTX.
type Queries struct {
	db DBTX
}

// New creates a Queries instance over the given handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Repository owns the database handle and runs migrations on open.
type Repository struct {
	db      *sql.DB
	queries *Queries
}

// Open creates the database file if needed, applies pragmas and migrations,
// and returns a ready repository. Transactions open in immediate mode so
// writes fail fast on lock contention instead of deadlocking.
func Open(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := "file:" + dbPath + "?" + url.Values{
		"_txlock": {"immediate"},
		"_pragma": {"busy_timeout(5000)", "journal_mode(WAL)", "foreign_keys(1)"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:      db,
		queries: New(db),
	}, nil
}

// Close releases the underlying database handle.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Queries returns the non-transactional query set.
func (r *Repository) Queries() *Queries {
	return r.queries
}

// InTx runs fn inside one database transaction. Any error rolls the whole
// unit of work back; no partial effect is observable by other readers.
func (r *Repository) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin transaction: %w", err))
	}

	if err := fn(New(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return classify(fmt.Errorf("%w (rollback failed: %v)", err, rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// classify maps low-level sqlite failures onto the domain error taxonomy.
// Callers wrap the result with operation context.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return core.ErrNotFound
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return core.Conflictf("a record with the same name already exists")
	case strings.Contains(err.Error(), "FOREIGN KEY constraint failed"):
		return core.Conflictf("record is referenced by existing transactions")
	default:
		return &core.StoreUnavailableError{Err: err}
	}
}
