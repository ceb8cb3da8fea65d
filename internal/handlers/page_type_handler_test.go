package handlers

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/services/permissions"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestPageTypeHandler_PageAttributeAssign(t *testing.T) {
	ts := newTestServer(t)
	ctx := withToken(context.Background(), staffToken)

	t.Run("success", func(t *testing.T) {
		resp, err := ts.client.PageAttributeAssign(ctx, mutationRequest(t, ts.pageTypeID(), attributeID(ts.topic)))
		if err != nil {
			t.Fatalf("PageAttributeAssign() error = %v", err)
		}
		if errs := resp.GetFields()["page_errors"].GetListValue().GetValues(); len(errs) != 0 {
			t.Errorf("page_errors = %v, want empty", errs)
		}

		want := []string{attributeID(ts.author), attributeID(ts.topic)}
		if got := attributeIDsOf(t, resp); !reflect.DeepEqual(got, want) {
			t.Errorf("attributes = %v, want %v", got, want)
		}

		pt := resp.GetFields()["page_type"].GetStructValue().GetFields()
		if pt["id"].GetStringValue() != ts.pageTypeID() || pt["slug"].GetStringValue() != "blog-post" {
			t.Errorf("page_type = %v", pt)
		}
	})

	t.Run("validation errors in payload", func(t *testing.T) {
		resp, err := ts.client.PageAttributeAssign(ctx, mutationRequest(t, ts.pageTypeID(), attributeID(ts.color), attributeID(ts.author)))
		if err != nil {
			t.Fatalf("PageAttributeAssign() error = %v", err)
		}

		if _, isNull := resp.GetFields()["page_type"].GetKind().(*structpb.Value_NullValue); !isNull {
			t.Errorf("page_type = %v, want null", resp.GetFields()["page_type"])
		}

		errs := resp.GetFields()["page_errors"].GetListValue().GetValues()
		if len(errs) != 2 {
			t.Fatalf("got %d page_errors, want 2", len(errs))
		}
		wantCodes := []string{string(entities.PageErrorCodeInvalid), string(entities.PageErrorCodeAttributeAlreadyAssigned)}
		wantAttrs := []string{attributeID(ts.color), attributeID(ts.author)}
		for i, v := range errs {
			fields := v.GetStructValue().GetFields()
			if fields["field"].GetStringValue() != "attribute_ids" {
				t.Errorf("errors[%d].field = %v", i, fields["field"])
			}
			if fields["code"].GetStringValue() != wantCodes[i] {
				t.Errorf("errors[%d].code = %v, want %s", i, fields["code"], wantCodes[i])
			}
			attrs := fields["attributes"].GetListValue().GetValues()
			if len(attrs) != 1 || attrs[0].GetStringValue() != wantAttrs[i] {
				t.Errorf("errors[%d].attributes = %v, want [%s]", i, attrs, wantAttrs[i])
			}
		}
	})
}

func TestPageTypeHandler_PageAttributeUnassign(t *testing.T) {
	ts := newTestServer(t)
	ctx := withToken(context.Background(), staffToken)

	for i := 0; i < 2; i++ {
		resp, err := ts.client.PageAttributeUnassign(ctx, mutationRequest(t, ts.pageTypeID(), attributeID(ts.author), attributeID(ts.color)))
		if err != nil {
			t.Fatalf("PageAttributeUnassign() call %d error = %v", i+1, err)
		}
		if got := attributeIDsOf(t, resp); len(got) != 0 {
			t.Errorf("call %d: attributes = %v, want none", i+1, got)
		}
	}
}

func TestPageTypeHandler_Errors(t *testing.T) {
	ts := newTestServer(t)
	staff := withToken(context.Background(), staffToken)

	missingIDs, _ := structpb.NewStruct(map[string]interface{}{"page_type_id": ts.pageTypeID()})
	wrongType, _ := structpb.NewStruct(map[string]interface{}{
		"page_type_id":  ts.pageTypeID(),
		"attribute_ids": []interface{}{1.0},
	})

	tests := []struct {
		name     string
		ctx      context.Context
		req      *structpb.Struct
		wantCode codes.Code
	}{
		{
			name:     "anonymous",
			ctx:      context.Background(),
			req:      mutationRequest(t, ts.pageTypeID(), attributeID(ts.topic)),
			wantCode: codes.PermissionDenied,
		},
		{
			name:     "missing permission",
			ctx:      withToken(context.Background(), guestToken),
			req:      mutationRequest(t, ts.pageTypeID(), attributeID(ts.topic)),
			wantCode: codes.PermissionDenied,
		},
		{
			name:     "missing attribute_ids",
			ctx:      staff,
			req:      missingIDs,
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "non-string attribute id",
			ctx:      staff,
			req:      wrongType,
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "missing page_type_id",
			ctx:      staff,
			req:      &structpb.Struct{},
			wantCode: codes.InvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.client.PageAttributeAssign(tt.ctx, tt.req)
			if status.Code(err) != tt.wantCode {
				t.Errorf("PageAttributeAssign() code = %v, want %v (err: %v)", status.Code(err), tt.wantCode, err)
			}
		})
	}
}

func TestPageTypeHandler_PageType(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	req, _ := structpb.NewStruct(map[string]interface{}{"id": ts.pageTypeID()})
	resp, err := ts.client.PageType(ctx, req)
	if err != nil {
		t.Fatalf("PageType() error = %v", err)
	}
	if got := attributeIDsOf(t, resp); !reflect.DeepEqual(got, []string{attributeID(ts.author)}) {
		t.Errorf("attributes = %v", got)
	}

	unknown, _ := structpb.NewStruct(map[string]interface{}{"id": "UGFnZVR5cGU6NDA0"}) // PageType:404
	resp, err = ts.client.PageType(ctx, unknown)
	if err != nil {
		t.Fatalf("PageType(unknown) error = %v", err)
	}
	if _, isNull := resp.GetFields()["page_type"].GetKind().(*structpb.Value_NullValue); !isNull {
		t.Errorf("page_type = %v, want null", resp.GetFields()["page_type"])
	}

	wrong, _ := structpb.NewStruct(map[string]interface{}{"id": attributeID(ts.author)})
	if _, err := ts.client.PageType(ctx, wrong); status.Code(err) != codes.InvalidArgument {
		t.Errorf("PageType(attribute id) code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestMutationResponse(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
	}{
		{name: "permission", err: permissions.ErrPermissionDenied, wantCode: codes.PermissionDenied},
		{name: "store failure", err: errors.New("connection refused"), wantCode: codes.Internal},
		{name: "canceled", err: context.Canceled, wantCode: codes.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mutationResponse(nil, tt.err)
			if status.Code(err) != tt.wantCode {
				t.Errorf("code = %v, want %v", status.Code(err), tt.wantCode)
			}
		})
	}
}
