package repositories

import "context"

// Store bundles the repositories that share one unit of work
type Store interface {
	PageTypes() PageTypeRepository
	Attributes() AttributeRepository
	PageTypeAttributes() PageTypeAttributeRepository
}

// Transactor runs a function inside a single atomic unit of work.
// The unit is committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	Store
	WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
