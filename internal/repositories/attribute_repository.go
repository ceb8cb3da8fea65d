package repositories

import (
	"context"

	"github.com/asakaida/pagetypes/internal/entities"
)

// AttributeRepository defines the interface for attribute data access.
// Every list is ordered by attribute ID.
type AttributeRepository interface {
	// Create stores a new attribute and sets its ID
	Create(ctx context.Context, attr *entities.Attribute) error

	// GetByIDs returns the existing attributes whose ID is in ids
	GetByIDs(ctx context.Context, ids []int64) ([]*entities.Attribute, error)

	// FilterByIDsExcludingType returns the attributes whose ID is in ids
	// and whose type differs from attrType
	FilterByIDsExcludingType(ctx context.Context, ids []int64, attrType entities.AttributeType) ([]*entities.Attribute, error)

	// AssignedToPageType returns the attributes assigned to the page type
	// whose ID is in ids
	AssignedToPageType(ctx context.Context, pageTypeID int64, ids []int64) ([]*entities.Attribute, error)
}
