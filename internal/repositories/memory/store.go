// Package memory implements the repositories in process memory. It backs
// the server when STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/repositories"
)

type pageTypeRow struct {
	id   int64
	name string
	slug string
}

// state is one consistent version of the data
type state struct {
	attributes  map[int64]*entities.Attribute
	pageTypes   map[int64]*pageTypeRow
	assignments map[int64]map[int64]time.Time
	nextAttrID  int64
	nextPTID    int64
}

func newState() *state {
	return &state{
		attributes:  make(map[int64]*entities.Attribute),
		pageTypes:   make(map[int64]*pageTypeRow),
		assignments: make(map[int64]map[int64]time.Time),
	}
}

func (s *state) clone() *state {
	c := &state{
		attributes:  make(map[int64]*entities.Attribute, len(s.attributes)),
		pageTypes:   make(map[int64]*pageTypeRow, len(s.pageTypes)),
		assignments: make(map[int64]map[int64]time.Time, len(s.assignments)),
		nextAttrID:  s.nextAttrID,
		nextPTID:    s.nextPTID,
	}
	for id, a := range s.attributes {
		cp := *a
		c.attributes[id] = &cp
	}
	for id, pt := range s.pageTypes {
		cp := *pt
		c.pageTypes[id] = &cp
	}
	for ptID, set := range s.assignments {
		cs := make(map[int64]time.Time, len(set))
		for attrID, at := range set {
			cs[attrID] = at
		}
		c.assignments[ptID] = cs
	}
	return c
}

// db guards a state. serial is held by every writer of the shared store so
// a committing transaction never overwrites a concurrent write.
type db struct {
	mu     sync.RWMutex
	serial *sync.Mutex
	st     *state
}

func (d *db) read(fn func(st *state) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return fn(d.st)
}

func (d *db) write(fn func(st *state) error) error {
	if d.serial != nil {
		d.serial.Lock()
		defer d.serial.Unlock()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.st)
}

// MemoryStore implements repositories.Transactor in memory.
// Transactions are serialized and work on a private copy of the data that
// replaces the shared state on commit.
type MemoryStore struct {
	serial sync.Mutex
	db     *db
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.db = &db{serial: &s.serial, st: newState()}
	return s
}

// PageTypes returns the page type repository
func (s *MemoryStore) PageTypes() repositories.PageTypeRepository {
	return &pageTypeRepository{db: s.db}
}

// Attributes returns the attribute repository
func (s *MemoryStore) Attributes() repositories.AttributeRepository {
	return &attributeRepository{db: s.db}
}

// PageTypeAttributes returns the assignment repository
func (s *MemoryStore) PageTypeAttributes() repositories.PageTypeAttributeRepository {
	return &pageTypeAttributeRepository{db: s.db}
}

// WithinTx runs fn against a copy of the data and publishes the copy
// only when fn returns nil
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store repositories.Store) error) error {
	s.serial.Lock()
	defer s.serial.Unlock()

	s.db.mu.RLock()
	tx := &db{st: s.db.st.clone()}
	s.db.mu.RUnlock()

	if err := fn(ctx, &txStore{db: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.db.mu.Lock()
	s.db.st = tx.st
	s.db.mu.Unlock()
	return nil
}

type txStore struct {
	db *db
}

func (s *txStore) PageTypes() repositories.PageTypeRepository {
	return &pageTypeRepository{db: s.db}
}

func (s *txStore) Attributes() repositories.AttributeRepository {
	return &attributeRepository{db: s.db}
}

func (s *txStore) PageTypeAttributes() repositories.PageTypeAttributeRepository {
	return &pageTypeAttributeRepository{db: s.db}
}

type pageTypeRepository struct {
	db *db
}

func (r *pageTypeRepository) Create(ctx context.Context, pageType *entities.PageType) error {
	if err := pageType.Validate(); err != nil {
		return fmt.Errorf("invalid page type: %w", err)
	}

	return r.db.write(func(st *state) error {
		for _, pt := range st.pageTypes {
			if pt.slug == pageType.Slug {
				return fmt.Errorf("failed to create page type: slug %q already exists", pageType.Slug)
			}
		}
		st.nextPTID++
		pageType.ID = st.nextPTID
		st.pageTypes[pageType.ID] = &pageTypeRow{id: pageType.ID, name: pageType.Name, slug: pageType.Slug}
		return nil
	})
}

func (r *pageTypeRepository) Get(ctx context.Context, id int64) (*entities.PageType, error) {
	var pageType *entities.PageType
	err := r.db.read(func(st *state) error {
		row, ok := st.pageTypes[id]
		if !ok {
			return repositories.ErrNotFound
		}
		pageType = &entities.PageType{ID: row.id, Name: row.name, Slug: row.slug}
		for _, attrID := range sortedIDs(st.assignments[id]) {
			if a, ok := st.attributes[attrID]; ok {
				cp := *a
				pageType.Attributes = append(pageType.Attributes, &cp)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pageType, nil
}

// GetForUpdate is Get; transactions already run one at a time
func (r *pageTypeRepository) GetForUpdate(ctx context.Context, id int64) (*entities.PageType, error) {
	return r.Get(ctx, id)
}

type attributeRepository struct {
	db *db
}

func (r *attributeRepository) Create(ctx context.Context, attr *entities.Attribute) error {
	if err := attr.Validate(); err != nil {
		return fmt.Errorf("invalid attribute: %w", err)
	}

	return r.db.write(func(st *state) error {
		for _, a := range st.attributes {
			if a.Slug == attr.Slug {
				return fmt.Errorf("failed to create attribute: slug %q already exists", attr.Slug)
			}
		}
		st.nextAttrID++
		attr.ID = st.nextAttrID
		cp := *attr
		st.attributes[attr.ID] = &cp
		return nil
	})
}

func (r *attributeRepository) GetByIDs(ctx context.Context, ids []int64) ([]*entities.Attribute, error) {
	return r.filter(ids, func(st *state, a *entities.Attribute) bool { return true })
}

func (r *attributeRepository) FilterByIDsExcludingType(ctx context.Context, ids []int64, attrType entities.AttributeType) ([]*entities.Attribute, error) {
	return r.filter(ids, func(st *state, a *entities.Attribute) bool { return a.Type != attrType })
}

func (r *attributeRepository) AssignedToPageType(ctx context.Context, pageTypeID int64, ids []int64) ([]*entities.Attribute, error) {
	return r.filter(ids, func(st *state, a *entities.Attribute) bool {
		_, ok := st.assignments[pageTypeID][a.ID]
		return ok
	})
}

// filter returns the attributes in ids accepted by keep, ordered by ID and
// each listed once
func (r *attributeRepository) filter(ids []int64, keep func(st *state, a *entities.Attribute) bool) ([]*entities.Attribute, error) {
	var result []*entities.Attribute
	err := r.db.read(func(st *state) error {
		seen := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			a, ok := st.attributes[id]
			if !ok || !keep(st, a) {
				continue
			}
			cp := *a
			result = append(result, &cp)
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, err
}

type pageTypeAttributeRepository struct {
	db *db
}

func (r *pageTypeAttributeRepository) Add(ctx context.Context, pageTypeID int64, attributeIDs ...int64) error {
	if len(attributeIDs) == 0 {
		return nil
	}

	return r.db.write(func(st *state) error {
		if _, ok := st.pageTypes[pageTypeID]; !ok {
			return fmt.Errorf("failed to add page type attributes: page type %d does not exist", pageTypeID)
		}
		for _, id := range attributeIDs {
			if _, ok := st.attributes[id]; !ok {
				return fmt.Errorf("failed to add page type attributes: attribute %d does not exist", id)
			}
		}

		set, ok := st.assignments[pageTypeID]
		if !ok {
			set = make(map[int64]time.Time, len(attributeIDs))
			st.assignments[pageTypeID] = set
		}
		now := time.Now()
		for _, id := range attributeIDs {
			if _, exists := set[id]; !exists {
				set[id] = now
			}
		}
		return nil
	})
}

func (r *pageTypeAttributeRepository) Remove(ctx context.Context, pageTypeID int64, attributeIDs ...int64) error {
	if len(attributeIDs) == 0 {
		return nil
	}

	return r.db.write(func(st *state) error {
		set := st.assignments[pageTypeID]
		for _, id := range attributeIDs {
			delete(set, id)
		}
		if len(set) == 0 {
			delete(st.assignments, pageTypeID)
		}
		return nil
	})
}

func (r *pageTypeAttributeRepository) List(ctx context.Context, pageTypeID int64) ([]*entities.PageTypeAttribute, error) {
	var assignments []*entities.PageTypeAttribute
	err := r.db.read(func(st *state) error {
		set := st.assignments[pageTypeID]
		for _, id := range sortedIDs(set) {
			assignments = append(assignments, &entities.PageTypeAttribute{
				PageTypeID:  pageTypeID,
				AttributeID: id,
				CreatedAt:   set[id],
			})
		}
		return nil
	})
	return assignments, err
}

func sortedIDs(set map[int64]time.Time) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
