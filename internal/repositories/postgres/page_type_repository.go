package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/repositories"
)

// PostgresPageTypeRepository implements PageTypeRepository using PostgreSQL
type PostgresPageTypeRepository struct {
	q querier
}

// NewPostgresPageTypeRepository creates a new PostgreSQL page type repository
func NewPostgresPageTypeRepository(db *sql.DB) repositories.PageTypeRepository {
	return &PostgresPageTypeRepository{q: db}
}

// Create stores a new page type and sets its ID
func (r *PostgresPageTypeRepository) Create(ctx context.Context, pageType *entities.PageType) error {
	if err := pageType.Validate(); err != nil {
		return fmt.Errorf("invalid page type: %w", err)
	}

	query := `
		INSERT INTO page_types (name, slug, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query, pageType.Name, pageType.Slug, time.Now()).Scan(&pageType.ID)
	if err != nil {
		return fmt.Errorf("failed to create page type: %w", err)
	}

	return nil
}

// Get retrieves a page type with its assigned attributes
func (r *PostgresPageTypeRepository) Get(ctx context.Context, id int64) (*entities.PageType, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate retrieves a page type and locks its row
func (r *PostgresPageTypeRepository) GetForUpdate(ctx context.Context, id int64) (*entities.PageType, error) {
	return r.get(ctx, id, true)
}

func (r *PostgresPageTypeRepository) get(ctx context.Context, id int64, forUpdate bool) (*entities.PageType, error) {
	query := `
		SELECT id, name, slug
		FROM page_types
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var pageType entities.PageType
	err := r.q.QueryRowContext(ctx, query, id).Scan(&pageType.ID, &pageType.Name, &pageType.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page type %d: %w", id, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page type: %w", err)
	}

	attrs, err := r.attributes(ctx, id)
	if err != nil {
		return nil, err
	}
	pageType.Attributes = attrs

	return &pageType, nil
}

// attributes loads the assignment set of a page type
func (r *PostgresPageTypeRepository) attributes(ctx context.Context, pageTypeID int64) ([]*entities.Attribute, error) {
	query := `
		SELECT a.id, a.name, a.slug, a.type
		FROM attributes a
		JOIN page_type_attributes pa ON pa.attribute_id = a.id
		WHERE pa.page_type_id = $1
		ORDER BY a.id
	`
	rows, err := r.q.QueryContext(ctx, query, pageTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to read page type attributes: %w", err)
	}
	return scanAttributes(rows)
}
