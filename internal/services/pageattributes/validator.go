package pageattributes

import (
	"context"
	"fmt"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/repositories"
	"github.com/asakaida/pagetypes/pkg/globalid"
)

const (
	FieldPageTypeID   = "page_type_id"
	FieldAttributeIDs = "attribute_ids"

	AttributeTypeName = "Attribute"
	PageTypeTypeName  = "PageType"

	MessageOnlyPageAttributes = "Only page attributes can be assigned."
	MessageAlreadyAssigned    = "Some of the attributes have been already assigned to this page type."
)

// AttributeAssignmentValidator checks whether a set of attributes may be
// assigned to a page type. It reads through the given repository only.
type AttributeAssignmentValidator struct{}

// NewAttributeAssignmentValidator creates a new validator
func NewAttributeAssignmentValidator() *AttributeAssignmentValidator {
	return &AttributeAssignmentValidator{}
}

// Validate runs every check and returns all problems found. Both checks
// always run. The returned error is reserved for repository failures.
func (v *AttributeAssignmentValidator) Validate(
	ctx context.Context,
	attributes repositories.AttributeRepository,
	pageType *entities.PageType,
	candidateIDs []int64,
) (entities.ValidationErrors, error) {
	var report entities.ValidationErrors

	wrongKind, err := attributes.FilterByIDsExcludingType(ctx, candidateIDs, entities.AttributeTypePageType)
	if err != nil {
		return nil, fmt.Errorf("failed to check attribute types: %w", err)
	}
	if len(wrongKind) > 0 {
		report.Add(FieldAttributeIDs, MessageOnlyPageAttributes, entities.PageErrorCodeInvalid, offendingIDs(wrongKind, candidateIDs)...)
	}

	assigned, err := attributes.AssignedToPageType(ctx, pageType.ID, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check assigned attributes: %w", err)
	}
	if len(assigned) > 0 {
		report.Add(FieldAttributeIDs, MessageAlreadyAssigned, entities.PageErrorCodeAttributeAlreadyAssigned, offendingIDs(assigned, candidateIDs)...)
	}

	return report, nil
}

// offendingIDs returns the global IDs of attrs in the order they first
// appear among the candidates, each once
func offendingIDs(attrs []*entities.Attribute, candidateIDs []int64) []string {
	offending := make(map[int64]bool, len(attrs))
	for _, a := range attrs {
		offending[a.ID] = true
	}

	pks := make([]int64, 0, len(attrs))
	for _, id := range candidateIDs {
		if offending[id] {
			pks = append(pks, id)
			offending[id] = false
		}
	}
	return globalid.ToGlobalIDs(AttributeTypeName, pks)
}
