package handlers

import (
	"fmt"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/services/pageattributes"
	"github.com/asakaida/pagetypes/pkg/globalid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// === Request decoding ===

func requiredString(req *structpb.Struct, field string) (string, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", field)
	}
	return s.StringValue, nil
}

func requiredStringList(req *structpb.Struct, field string) ([]string, error) {
	v, ok := req.GetFields()[field]
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list of strings", field)
	}

	values := list.ListValue.GetValues()
	out := make([]string, 0, len(values))
	for i, item := range values {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d] must be a string", field, i)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

// === Response encoding ===

func pageTypeToValue(pt *entities.PageType) interface{} {
	if pt == nil {
		return nil
	}

	attrs := make([]interface{}, 0, len(pt.Attributes))
	for _, a := range pt.Attributes {
		attrs = append(attrs, map[string]interface{}{
			"id":   globalid.ToGlobalID(pageattributes.AttributeTypeName, a.ID),
			"name": a.Name,
			"slug": a.Slug,
			"type": string(a.Type),
		})
	}

	return map[string]interface{}{
		"id":         globalid.ToGlobalID(pageattributes.PageTypeTypeName, pt.ID),
		"name":       pt.Name,
		"slug":       pt.Slug,
		"attributes": attrs,
	}
}

func pageErrorsToValue(report entities.ValidationErrors) []interface{} {
	out := make([]interface{}, 0, len(report))
	for _, e := range report {
		attrs := make([]interface{}, 0, len(e.Attributes))
		for _, id := range e.Attributes {
			attrs = append(attrs, id)
		}
		var field interface{}
		if e.Field != "" {
			field = e.Field
		}
		out = append(out, map[string]interface{}{
			"field":      field,
			"message":    e.Message,
			"code":       string(e.Code),
			"attributes": attrs,
		})
	}
	return out
}

func mutationPayload(pt *entities.PageType, report entities.ValidationErrors) (*structpb.Struct, error) {
	payload, err := structpb.NewStruct(map[string]interface{}{
		"page_type":   pageTypeToValue(pt),
		"page_errors": pageErrorsToValue(report),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	return payload, nil
}
