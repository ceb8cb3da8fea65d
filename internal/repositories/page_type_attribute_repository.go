package repositories

import (
	"context"

	"github.com/asakaida/pagetypes/internal/entities"
)

// PageTypeAttributeRepository defines the interface for the assignment relation
type PageTypeAttributeRepository interface {
	// Add links the attributes to the page type; existing pairs are kept
	Add(ctx context.Context, pageTypeID int64, attributeIDs ...int64) error

	// Remove unlinks the attributes from the page type; missing pairs are ignored
	Remove(ctx context.Context, pageTypeID int64, attributeIDs ...int64) error

	// List returns the assignment rows of the page type ordered by attribute ID
	List(ctx context.Context, pageTypeID int64) ([]*entities.PageTypeAttribute, error)
}
