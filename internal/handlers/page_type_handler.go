package handlers

import (
	"context"
	"errors"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/services/pageattributes"
	"github.com/asakaida/pagetypes/internal/services/permissions"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// PageTypeHandler handles PageTypeService gRPC requests
type PageTypeHandler struct {
	service pageattributes.PageAttributeServiceInterface
}

var _ PageTypeServiceServer = (*PageTypeHandler)(nil)

// NewPageTypeHandler creates a new PageTypeHandler
func NewPageTypeHandler(service pageattributes.PageAttributeServiceInterface) *PageTypeHandler {
	return &PageTypeHandler{service: service}
}

// PageAttributeAssign handles the PageAttributeAssign RPC
func (h *PageTypeHandler) PageAttributeAssign(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pageTypeID, attributeIDs, err := parseMutationRequest(req)
	if err != nil {
		return nil, err
	}

	pt, err := h.service.Assign(ctx, permissions.PrincipalFromContext(ctx), pageTypeID, attributeIDs)
	return mutationResponse(pt, err)
}

// PageAttributeUnassign handles the PageAttributeUnassign RPC
func (h *PageTypeHandler) PageAttributeUnassign(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pageTypeID, attributeIDs, err := parseMutationRequest(req)
	if err != nil {
		return nil, err
	}

	pt, err := h.service.Unassign(ctx, permissions.PrincipalFromContext(ctx), pageTypeID, attributeIDs)
	return mutationResponse(pt, err)
}

// PageType handles the PageType RPC
func (h *PageTypeHandler) PageType(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredString(req, "id")
	if err != nil {
		return nil, err
	}

	pt, err := h.service.PageType(ctx, id)
	var report entities.ValidationErrors
	if errors.As(err, &report) {
		return nil, status.Error(codes.InvalidArgument, report.Error())
	}
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to read page type: %v", err)
	}

	resp, err := structpb.NewStruct(map[string]interface{}{
		"page_type": pageTypeToValue(pt),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return resp, nil
}

func parseMutationRequest(req *structpb.Struct) (string, []string, error) {
	pageTypeID, err := requiredString(req, "page_type_id")
	if err != nil {
		return "", nil, err
	}
	attributeIDs, err := requiredStringList(req, "attribute_ids")
	if err != nil {
		return "", nil, err
	}
	return pageTypeID, attributeIDs, nil
}

// mutationResponse maps a service result to the mutation payload.
// Validation errors travel in page_errors; everything else is a gRPC status.
func mutationResponse(pt *entities.PageType, err error) (*structpb.Struct, error) {
	var report entities.ValidationErrors
	switch {
	case err == nil:
		return mutationPayload(pt, nil)
	case errors.As(err, &report):
		return mutationPayload(nil, report)
	case errors.Is(err, pageattributes.ErrPermissionDenied):
		return nil, status.Error(codes.PermissionDenied, "you need MANAGE_PAGE_TYPES_AND_ATTRIBUTES permission")
	case errors.Is(err, context.Canceled):
		return nil, status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return nil, status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return nil, status.Errorf(codes.Internal, "failed to update page type: %v", err)
	}
}
