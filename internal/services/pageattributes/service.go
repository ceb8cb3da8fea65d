package pageattributes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/infrastructure/logger"
	"github.com/asakaida/pagetypes/internal/infrastructure/metrics"
	"github.com/asakaida/pagetypes/internal/repositories"
	"github.com/asakaida/pagetypes/internal/services/permissions"
	"github.com/asakaida/pagetypes/pkg/cache"
	"github.com/asakaida/pagetypes/pkg/globalid"
)

// ErrPermissionDenied is returned when the principal may not change page types
var ErrPermissionDenied = permissions.ErrPermissionDenied

const (
	OperationAssign   = "assign"
	OperationUnassign = "unassign"
)

// PageAttributeServiceInterface defines the page type attribute operations
type PageAttributeServiceInterface interface {
	Assign(ctx context.Context, principal *permissions.Principal, pageTypeID string, attributeIDs []string) (*entities.PageType, error)
	Unassign(ctx context.Context, principal *permissions.Principal, pageTypeID string, attributeIDs []string) (*entities.PageType, error)
	PageType(ctx context.Context, id string) (*entities.PageType, error)
}

// PageAttributeService assigns attributes to page types and removes them
type PageAttributeService struct {
	store     repositories.Transactor
	checker   *permissions.Checker
	validator *AttributeAssignmentValidator
	cache     cache.Cache[*entities.PageType]
	recorder  metrics.Recorder
	logger    *logger.Logger

	// generations counts invalidations per page type so that a read which
	// raced with a mutation does not put its stale result back in the cache
	genMu       sync.Mutex
	generations map[int64]uint64
	epoch       uint64
}

// Option configures a PageAttributeService
type Option func(*PageAttributeService)

// WithCache serves PageType reads through c; mutations invalidate it
func WithCache(c cache.Cache[*entities.PageType]) Option {
	return func(s *PageAttributeService) { s.cache = c }
}

// WithRecorder reports page errors and assignment counts to r
func WithRecorder(r metrics.Recorder) Option {
	return func(s *PageAttributeService) { s.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *PageAttributeService) { s.logger = l }
}

// NewPageAttributeService creates a new PageAttributeService
func NewPageAttributeService(store repositories.Transactor, checker *permissions.Checker, opts ...Option) *PageAttributeService {
	s := &PageAttributeService{
		store:     store,
		checker:   checker,
		validator:   NewAttributeAssignmentValidator(),
		logger:      logger.NewNop(),
		generations: make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assign adds the attributes to the page type. Every validation problem
// is returned at once as entities.ValidationErrors and nothing is written.
func (s *PageAttributeService) Assign(ctx context.Context, principal *permissions.Principal, pageTypeID string, attributeIDs []string) (*entities.PageType, error) {
	return s.mutate(ctx, OperationAssign, principal, pageTypeID, attributeIDs)
}

// Unassign removes the attributes from the page type. Attributes that are
// not assigned are ignored.
func (s *PageAttributeService) Unassign(ctx context.Context, principal *permissions.Principal, pageTypeID string, attributeIDs []string) (*entities.PageType, error) {
	return s.mutate(ctx, OperationUnassign, principal, pageTypeID, attributeIDs)
}

func (s *PageAttributeService) mutate(ctx context.Context, op string, principal *permissions.Principal, pageTypeID string, attributeIDs []string) (*entities.PageType, error) {
	if err := s.checker.Require(principal, permissions.ManagePageTypesAndAttributes); err != nil {
		if errors.Is(err, permissions.ErrPermissionDenied) {
			s.logger.Warn("Page attribute change denied", "operation", op, "principal", principalID(principal))
			return nil, err
		}
		return nil, fmt.Errorf("failed to check permissions: %w", err)
	}

	var required entities.ValidationErrors
	if pageTypeID == "" {
		required.Add(FieldPageTypeID, "This field is required.", entities.PageErrorCodeRequired)
	}
	if len(attributeIDs) == 0 {
		required.Add(FieldAttributeIDs, "This field is required.", entities.PageErrorCodeRequired)
	}
	if !required.Empty() {
		return nil, s.rejected(op, pageTypeID, required)
	}

	ptPK, err := globalid.ParseID(pageTypeID, PageTypeTypeName)
	if err != nil {
		return nil, s.rejected(op, pageTypeID, entities.NewValidationError(
			FieldPageTypeID, "Must receive a PageType id", entities.PageErrorCodeGraphQLError))
	}

	// reported after the page type lookup, which takes precedence
	attrPKs, attrErr := globalid.ResolveToPrimaryKeys(attributeIDs, AttributeTypeName)

	var result *entities.PageType
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		pageType, err := tx.PageTypes().GetForUpdate(ctx, ptPK)
		if errors.Is(err, repositories.ErrNotFound) {
			return entities.NewValidationError(FieldPageTypeID,
				fmt.Sprintf("Couldn't resolve to a node: %s", pageTypeID), entities.PageErrorCodeNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load page type: %w", err)
		}

		if attrErr != nil {
			return entities.NewValidationError(FieldAttributeIDs, attrErr.Error(), entities.PageErrorCodeInvalid)
		}

		switch op {
		case OperationAssign:
			report, existing, err := s.checkExist(ctx, tx, attrPKs)
			if err != nil {
				return err
			}
			rules, err := s.validator.Validate(ctx, tx.Attributes(), pageType, existing)
			if err != nil {
				return err
			}
			report = append(report, rules...)
			if !report.Empty() {
				return report
			}
			if err := tx.PageTypeAttributes().Add(ctx, ptPK, attrPKs...); err != nil {
				return err
			}
		case OperationUnassign:
			if err := tx.PageTypeAttributes().Remove(ctx, ptPK, attrPKs...); err != nil {
				return err
			}
		}

		result, err = tx.PageTypes().Get(ctx, ptPK)
		if err != nil {
			return fmt.Errorf("failed to reload page type: %w", err)
		}
		return nil
	})

	var report entities.ValidationErrors
	if errors.As(err, &report) {
		return nil, s.rejected(op, pageTypeID, report)
	}
	if err != nil {
		s.logger.Error("Page attribute change failed", "operation", op, "page_type_id", pageTypeID, "error", err)
		return nil, fmt.Errorf("failed to %s page attributes: %w", op, err)
	}

	s.invalidate(ctx, ptPK)
	if s.recorder != nil {
		s.recorder.RecordAssignments(op, countUnique(attrPKs))
	}
	s.logger.Info("Page attributes changed",
		"operation", op,
		"page_type_id", pageTypeID,
		"attributes", len(attributeIDs),
		"principal", principalID(principal),
	)

	return result, nil
}

// checkExist reports candidate attributes that do not exist and returns
// the candidates that do, in input order
func (s *PageAttributeService) checkExist(ctx context.Context, tx repositories.Store, ids []int64) (entities.ValidationErrors, []int64, error) {
	found, err := tx.Attributes().GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load attributes: %w", err)
	}

	known := make(map[int64]bool, len(found))
	for _, a := range found {
		known[a.ID] = true
	}
	existing := make([]int64, 0, len(ids))
	reported := make(map[int64]bool)
	var missing []int64
	for _, id := range ids {
		if known[id] {
			existing = append(existing, id)
			continue
		}
		if !reported[id] {
			missing = append(missing, id)
			reported[id] = true
		}
	}
	if len(missing) == 0 {
		return nil, existing, nil
	}

	gids := globalid.ToGlobalIDs(AttributeTypeName, missing)
	report := entities.NewValidationError(FieldAttributeIDs,
		fmt.Sprintf("Couldn't resolve to a node: %s", strings.Join(gids, ", ")),
		entities.PageErrorCodeNotFound, gids...)
	return report, existing, nil
}

// PageType returns the page type with its assigned attributes, or nil
// when it does not exist
func (s *PageAttributeService) PageType(ctx context.Context, id string) (*entities.PageType, error) {
	pk, err := globalid.ParseID(id, PageTypeTypeName)
	if err != nil {
		return nil, entities.NewValidationError("id", "Must receive a PageType id", entities.PageErrorCodeGraphQLError)
	}

	key := cacheKey(pk)
	var gen generation
	if s.cache != nil {
		if pageType, ok := s.cache.Get(ctx, key); ok {
			return pageType, nil
		}
		gen = s.generation(pk)
	}

	pageType, err := s.store.PageTypes().Get(ctx, pk)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load page type: %w", err)
	}

	if s.cache != nil {
		s.fill(ctx, key, pageType, gen)
	}
	return pageType, nil
}

type generation struct {
	epoch uint64
	page  uint64
}

func (s *PageAttributeService) generation(pageTypeID int64) generation {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return generation{epoch: s.epoch, page: s.generations[pageTypeID]}
}

// fill caches pageType unless the page type was invalidated after gen was
// taken. The check and the write happen under genMu, and invalidation bumps
// the generation under genMu before deleting, so a skipped or late fill is
// always followed by the delete.
func (s *PageAttributeService) fill(ctx context.Context, key string, pageType *entities.PageType, gen generation) {
	s.genMu.Lock()
	defer s.genMu.Unlock()

	if gen != (generation{epoch: s.epoch, page: s.generations[pageType.ID]}) {
		return
	}
	if err := s.cache.Set(ctx, key, pageType, 0); err != nil {
		s.logger.Warn("Failed to cache page type", "page_type_id", pageType.ID, "error", err)
	}
}

// Invalidate drops the cached view of a page type
func (s *PageAttributeService) Invalidate(ctx context.Context, pageTypeID int64) {
	s.invalidate(ctx, pageTypeID)
}

// InvalidateAll drops every cached page type view
func (s *PageAttributeService) InvalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	s.epoch++
	s.genMu.Unlock()
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("Failed to clear page type cache", "error", err)
	}
}

func (s *PageAttributeService) invalidate(ctx context.Context, pageTypeID int64) {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	s.generations[pageTypeID]++
	s.genMu.Unlock()
	if err := s.cache.Delete(ctx, cacheKey(pageTypeID)); err != nil {
		s.logger.Warn("Failed to invalidate page type", "page_type_id", pageTypeID, "error", err)
	}
}

func (s *PageAttributeService) rejected(op, pageTypeID string, report entities.ValidationErrors) error {
	if s.recorder != nil {
		for _, code := range report.Codes() {
			s.recorder.RecordPageError(string(code))
		}
	}
	s.logger.Info("Page attribute change rejected", "operation", op, "page_type_id", pageTypeID, "errors", report.Error())
	return report
}

func cacheKey(pageTypeID int64) string {
	return strconv.FormatInt(pageTypeID, 10)
}

func countUnique(ids []int64) int {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

func principalID(p *permissions.Principal) string {
	if p == nil {
		return permissions.Anonymous.ID
	}
	return p.ID
}
