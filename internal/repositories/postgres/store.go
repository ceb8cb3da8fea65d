package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asakaida/pagetypes/internal/repositories"
)

// PageTypeChangedChannel is the NOTIFY channel that receives the ID of a
// page type whose attribute set changed. Notifications are delivered when
// the writing transaction commits.
const PageTypeChangedChannel = "page_type_changed"

// querier is the subset of *sql.DB and *sql.Tx used by the repositories
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PostgresStore implements repositories.Transactor using PostgreSQL
type PostgresStore struct {
	db *sql.DB
	q  querier
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

// PageTypes returns the page type repository
func (s *PostgresStore) PageTypes() repositories.PageTypeRepository {
	return &PostgresPageTypeRepository{q: s.q}
}

// Attributes returns the attribute repository
func (s *PostgresStore) Attributes() repositories.AttributeRepository {
	return &PostgresAttributeRepository{q: s.q}
}

// PageTypeAttributes returns the assignment repository
func (s *PostgresStore) PageTypeAttributes() repositories.PageTypeAttributeRepository {
	return &PostgresPageTypeAttributeRepository{q: s.q}
}

// WithinTx runs fn in a single transaction
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store repositories.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &txStore{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// txStore is the view of the repositories bound to one transaction
type txStore struct {
	q querier
}

func (s *txStore) PageTypes() repositories.PageTypeRepository {
	return &PostgresPageTypeRepository{q: s.q}
}

func (s *txStore) Attributes() repositories.AttributeRepository {
	return &PostgresAttributeRepository{q: s.q}
}

func (s *txStore) PageTypeAttributes() repositories.PageTypeAttributeRepository {
	return &PostgresPageTypeAttributeRepository{q: s.q}
}
