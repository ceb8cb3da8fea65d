package repositories

import (
	"context"

	"github.com/asakaida/pagetypes/internal/entities"
)

// PageTypeRepository defines the interface for page type data access
type PageTypeRepository interface {
	// Create stores a new page type and sets its ID
	Create(ctx context.Context, pageType *entities.PageType) error

	// Get retrieves a page type with its assigned attributes
	// Returns ErrNotFound if the page type does not exist
	Get(ctx context.Context, id int64) (*entities.PageType, error)

	// GetForUpdate is Get with the page type row locked until the
	// surrounding transaction ends
	GetForUpdate(ctx context.Context, id int64) (*entities.PageType, error)
}
