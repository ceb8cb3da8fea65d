package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/repositories"
)

var _ repositories.Transactor = (*MemoryStore)(nil)

func seed(t *testing.T, s *MemoryStore) (*entities.PageType, []*entities.Attribute) {
	t.Helper()
	ctx := context.Background()

	pt := &entities.PageType{Name: "Blog post", Slug: "blog-post"}
	if err := s.PageTypes().Create(ctx, pt); err != nil {
		t.Fatalf("Create page type: %v", err)
	}

	attrs := []*entities.Attribute{
		{Name: "Author", Slug: "author", Type: entities.AttributeTypePageType},
		{Name: "Color", Slug: "color", Type: entities.AttributeTypeProductType},
		{Name: "Topic", Slug: "topic", Type: entities.AttributeTypePageType},
	}
	for _, a := range attrs {
		if err := s.Attributes().Create(ctx, a); err != nil {
			t.Fatalf("Create attribute: %v", err)
		}
	}
	return pt, attrs
}

func ids(attrs []*entities.Attribute) []int64 {
	out := make([]int64, len(attrs))
	for i, a := range attrs {
		out[i] = a.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMemoryStore_Create(t *testing.T) {
	s := NewMemoryStore()
	pt, attrs := seed(t, s)

	if pt.ID != 1 {
		t.Errorf("page type ID = %d, want 1", pt.ID)
	}
	if !equalIDs(ids(attrs), []int64{1, 2, 3}) {
		t.Errorf("attribute IDs = %v, want [1 2 3]", ids(attrs))
	}

	dup := &entities.Attribute{Name: "Author 2", Slug: "author", Type: entities.AttributeTypePageType}
	if err := s.Attributes().Create(context.Background(), dup); err == nil {
		t.Error("expected error for duplicate attribute slug")
	}

	invalid := &entities.PageType{Name: "No slug"}
	if err := s.PageTypes().Create(context.Background(), invalid); err == nil {
		t.Error("expected error for page type without slug")
	}
}

func TestMemoryStore_PageTypeGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	pt, attrs := seed(t, s)

	if err := s.PageTypeAttributes().Add(ctx, pt.ID, attrs[2].ID, attrs[0].ID); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.PageTypes().Get(ctx, pt.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Slug != "blog-post" {
		t.Errorf("Slug = %q, want blog-post", got.Slug)
	}
	if !equalIDs(got.AttributeIDs(), []int64{attrs[0].ID, attrs[2].ID}) {
		t.Errorf("AttributeIDs() = %v, want ordered by ID", got.AttributeIDs())
	}

	if _, err := s.PageTypes().Get(ctx, 99); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Get(99) error = %v, want ErrNotFound", err)
	}
	if _, err := s.PageTypes().GetForUpdate(ctx, 99); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("GetForUpdate(99) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_AttributeQueries(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	pt, attrs := seed(t, s)

	if err := s.PageTypeAttributes().Add(ctx, pt.ID, attrs[0].ID); err != nil {
		t.Fatalf("Add: %v", err)
	}

	tests := []struct {
		name string
		call func() ([]*entities.Attribute, error)
		want []int64
	}{
		{
			name: "get by ids skips unknown and duplicates",
			call: func() ([]*entities.Attribute, error) {
				return s.Attributes().GetByIDs(ctx, []int64{3, 99, 1, 3})
			},
			want: []int64{1, 3},
		},
		{
			name: "excluding page type attributes",
			call: func() ([]*entities.Attribute, error) {
				return s.Attributes().FilterByIDsExcludingType(ctx, []int64{3, 2, 1, 2}, entities.AttributeTypePageType)
			},
			want: []int64{2},
		},
		{
			name: "assigned to page type",
			call: func() ([]*entities.Attribute, error) {
				return s.Attributes().AssignedToPageType(ctx, pt.ID, []int64{1, 2, 3, 1})
			},
			want: []int64{1},
		},
		{
			name: "assigned to unknown page type",
			call: func() ([]*entities.Attribute, error) {
				return s.Attributes().AssignedToPageType(ctx, 42, []int64{1})
			},
			want: []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.call()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestMemoryStore_AddRemove(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	pt, attrs := seed(t, s)
	repo := s.PageTypeAttributes()

	if err := repo.Add(ctx, pt.ID, attrs[0].ID, attrs[0].ID); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := repo.Add(ctx, pt.ID, attrs[0].ID, attrs[2].ID); err != nil {
		t.Fatalf("Add again: %v", err)
	}

	list, err := repo.List(ctx, pt.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].AttributeID != attrs[0].ID || list[1].AttributeID != attrs[2].ID {
		t.Fatalf("List() = %v, want attributes 1 and 3", list)
	}

	if err := repo.Add(ctx, pt.ID, 99); err == nil {
		t.Error("expected error for unknown attribute")
	}
	if err := repo.Add(ctx, 99, attrs[0].ID); err == nil {
		t.Error("expected error for unknown page type")
	}

	if err := repo.Remove(ctx, pt.ID, attrs[0].ID, attrs[1].ID, 99); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := repo.Remove(ctx, pt.ID, attrs[0].ID); err != nil {
		t.Fatalf("Remove twice: %v", err)
	}

	list, err = repo.List(ctx, pt.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].AttributeID != attrs[2].ID {
		t.Errorf("List() after remove = %v, want only attribute 3", list)
	}
}

func TestMemoryStore_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		s := NewMemoryStore()
		pt, attrs := seed(t, s)

		err := s.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
			return tx.PageTypeAttributes().Add(ctx, pt.ID, attrs[0].ID)
		})
		if err != nil {
			t.Fatalf("WithinTx: %v", err)
		}

		got, _ := s.PageTypes().Get(ctx, pt.ID)
		if !got.HasAttribute(attrs[0].ID) {
			t.Error("committed assignment is missing")
		}
	})

	t.Run("rollback", func(t *testing.T) {
		s := NewMemoryStore()
		pt, attrs := seed(t, s)
		boom := errors.New("boom")

		err := s.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
			if err := tx.PageTypeAttributes().Add(ctx, pt.ID, attrs[0].ID); err != nil {
				return err
			}
			inTx, err := tx.PageTypes().Get(ctx, pt.ID)
			if err != nil {
				return err
			}
			if !inTx.HasAttribute(attrs[0].ID) {
				t.Error("write not visible inside the transaction")
			}
			outside, _ := s.PageTypes().Get(ctx, pt.ID)
			if outside.HasAttribute(attrs[0].ID) {
				t.Error("uncommitted write visible outside the transaction")
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("WithinTx error = %v, want boom", err)
		}

		got, _ := s.PageTypes().Get(ctx, pt.ID)
		if len(got.Attributes) != 0 {
			t.Errorf("rolled back assignment persisted: %v", got.AttributeIDs())
		}
	})

	t.Run("concurrent transactions keep every write", func(t *testing.T) {
		s := NewMemoryStore()
		pt, attrs := seed(t, s)

		var wg sync.WaitGroup
		for _, a := range attrs {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				err := s.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
					return tx.PageTypeAttributes().Add(ctx, pt.ID, id)
				})
				if err != nil {
					t.Errorf("WithinTx: %v", err)
				}
			}(a.ID)
		}
		wg.Wait()

		got, _ := s.PageTypes().Get(ctx, pt.ID)
		if len(got.Attributes) != len(attrs) {
			t.Errorf("got %d attributes, want %d", len(got.Attributes), len(attrs))
		}
	})
}
