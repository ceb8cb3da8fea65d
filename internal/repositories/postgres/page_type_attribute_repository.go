package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/repositories"
	"github.com/lib/pq"
)

// PostgresPageTypeAttributeRepository implements PageTypeAttributeRepository using PostgreSQL
type PostgresPageTypeAttributeRepository struct {
	q querier
}

// NewPostgresPageTypeAttributeRepository creates a new PostgreSQL assignment repository
func NewPostgresPageTypeAttributeRepository(db *sql.DB) repositories.PageTypeAttributeRepository {
	return &PostgresPageTypeAttributeRepository{q: db}
}

// Add links the attributes to the page type with set-union semantics
func (r *PostgresPageTypeAttributeRepository) Add(ctx context.Context, pageTypeID int64, attributeIDs ...int64) error {
	if len(attributeIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO page_type_attributes (page_type_id, attribute_id, created_at)
		SELECT $1, attribute_id, $3
		FROM unnest($2::bigint[]) AS attribute_id
		ON CONFLICT (page_type_id, attribute_id) DO NOTHING
	`
	if _, err := r.q.ExecContext(ctx, query, pageTypeID, pq.Array(attributeIDs), time.Now()); err != nil {
		return fmt.Errorf("failed to add page type attributes: %w", err)
	}

	return r.notify(ctx, pageTypeID)
}

// Remove unlinks the attributes from the page type
func (r *PostgresPageTypeAttributeRepository) Remove(ctx context.Context, pageTypeID int64, attributeIDs ...int64) error {
	if len(attributeIDs) == 0 {
		return nil
	}

	query := `
		DELETE FROM page_type_attributes
		WHERE page_type_id = $1 AND attribute_id = ANY($2)
	`
	result, err := r.q.ExecContext(ctx, query, pageTypeID, pq.Array(attributeIDs))
	if err != nil {
		return fmt.Errorf("failed to remove page type attributes: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil
	}
	return r.notify(ctx, pageTypeID)
}

// List returns the assignment rows of the page type
func (r *PostgresPageTypeAttributeRepository) List(ctx context.Context, pageTypeID int64) ([]*entities.PageTypeAttribute, error) {
	query := `
		SELECT page_type_id, attribute_id, created_at
		FROM page_type_attributes
		WHERE page_type_id = $1
		ORDER BY attribute_id
	`
	rows, err := r.q.QueryContext(ctx, query, pageTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list page type attributes: %w", err)
	}
	defer rows.Close()

	var assignments []*entities.PageTypeAttribute
	for rows.Next() {
		var pa entities.PageTypeAttribute
		if err := rows.Scan(&pa.PageTypeID, &pa.AttributeID, &pa.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page type attribute: %w", err)
		}
		assignments = append(assignments, &pa)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating page type attributes: %w", err)
	}

	return assignments, nil
}

// notify queues a change notification for the page type
func (r *PostgresPageTypeAttributeRepository) notify(ctx context.Context, pageTypeID int64) error {
	_, err := r.q.ExecContext(ctx, "SELECT pg_notify($1, $2)", PageTypeChangedChannel, strconv.FormatInt(pageTypeID, 10))
	if err != nil {
		return fmt.Errorf("failed to notify page type change: %w", err)
	}
	return nil
}
