package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/repositories"
	"github.com/lib/pq"
)

// PostgresAttributeRepository implements AttributeRepository using PostgreSQL
type PostgresAttributeRepository struct {
	q querier
}

// NewPostgresAttributeRepository creates a new PostgreSQL attribute repository
func NewPostgresAttributeRepository(db *sql.DB) repositories.AttributeRepository {
	return &PostgresAttributeRepository{q: db}
}

// Create stores a new attribute and sets its ID
func (r *PostgresAttributeRepository) Create(ctx context.Context, attr *entities.Attribute) error {
	if err := attr.Validate(); err != nil {
		return fmt.Errorf("invalid attribute: %w", err)
	}

	query := `
		INSERT INTO attributes (name, slug, type, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query, attr.Name, attr.Slug, string(attr.Type), time.Now()).Scan(&attr.ID)
	if err != nil {
		return fmt.Errorf("failed to create attribute: %w", err)
	}

	return nil
}

// GetByIDs returns the existing attributes whose ID is in ids
func (r *PostgresAttributeRepository) GetByIDs(ctx context.Context, ids []int64) ([]*entities.Attribute, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, slug, type
		FROM attributes
		WHERE id = ANY($1)
		ORDER BY id
	`
	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to read attributes: %w", err)
	}
	return scanAttributes(rows)
}

// FilterByIDsExcludingType returns the attributes in ids whose type differs from attrType
func (r *PostgresAttributeRepository) FilterByIDsExcludingType(ctx context.Context, ids []int64, attrType entities.AttributeType) ([]*entities.Attribute, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, slug, type
		FROM attributes
		WHERE id = ANY($1) AND type <> $2
		ORDER BY id
	`
	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids), string(attrType))
	if err != nil {
		return nil, fmt.Errorf("failed to filter attributes by type: %w", err)
	}
	return scanAttributes(rows)
}

// AssignedToPageType returns the attributes in ids already assigned to the page type
func (r *PostgresAttributeRepository) AssignedToPageType(ctx context.Context, pageTypeID int64, ids []int64) ([]*entities.Attribute, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT a.id, a.name, a.slug, a.type
		FROM attributes a
		JOIN page_type_attributes pa ON pa.attribute_id = a.id
		WHERE pa.page_type_id = $1 AND a.id = ANY($2)
		ORDER BY a.id
	`
	rows, err := r.q.QueryContext(ctx, query, pageTypeID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to read assigned attributes: %w", err)
	}
	return scanAttributes(rows)
}

// scanAttributes reads id, name, slug, type rows and closes them
func scanAttributes(rows *sql.Rows) ([]*entities.Attribute, error) {
	defer rows.Close()

	var attrs []*entities.Attribute
	for rows.Next() {
		var attr entities.Attribute
		var attrType string
		if err := rows.Scan(&attr.ID, &attr.Name, &attr.Slug, &attrType); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		attr.Type = entities.AttributeType(attrType)
		attrs = append(attrs, &attr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attributes: %w", err)
	}

	return attrs, nil
}
