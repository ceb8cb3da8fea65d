package handlers

import (
	"context"
	"net"
	"testing"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/infrastructure/config"
	"github.com/asakaida/pagetypes/internal/repositories/memory"
	"github.com/asakaida/pagetypes/internal/services/pageattributes"
	"github.com/asakaida/pagetypes/internal/services/permissions"
	"github.com/asakaida/pagetypes/pkg/globalid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	bufSize    = 1024 * 1024
	staffToken = "staff-token"
	guestToken = "guest-token"
)

// testServer serves PageTypeHandler over bufconn with a seeded memory store:
// page type "blog-post" with "author" assigned, page attribute "topic"
// and product attribute "color"
type testServer struct {
	client PageTypeServiceClient
	store  *memory.MemoryStore

	pageType *entities.PageType
	author   *entities.Attribute
	topic    *entities.Attribute
	color    *entities.Attribute
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	ts := &testServer{
		store:    memory.NewMemoryStore(),
		pageType: &entities.PageType{Name: "Blog post", Slug: "blog-post"},
		author:   &entities.Attribute{Name: "Author", Slug: "author", Type: entities.AttributeTypePageType},
		topic:    &entities.Attribute{Name: "Topic", Slug: "topic", Type: entities.AttributeTypePageType},
		color:    &entities.Attribute{Name: "Color", Slug: "color", Type: entities.AttributeTypeProductType},
	}
	if err := ts.store.PageTypes().Create(ctx, ts.pageType); err != nil {
		t.Fatalf("failed to create page type: %v", err)
	}
	for _, a := range []*entities.Attribute{ts.author, ts.topic, ts.color} {
		if err := ts.store.Attributes().Create(ctx, a); err != nil {
			t.Fatalf("failed to create attribute: %v", err)
		}
	}
	if err := ts.store.PageTypeAttributes().Add(ctx, ts.pageType.ID, ts.author.ID); err != nil {
		t.Fatalf("failed to assign attribute: %v", err)
	}

	checker, err := permissions.NewChecker(config.DefaultAuthPolicy)
	if err != nil {
		t.Fatalf("failed to create checker: %v", err)
	}
	service := pageattributes.NewPageAttributeService(ts.store, checker)
	auth := permissions.NewTokenAuthenticator(map[string][]string{
		staffToken: {permissions.ManagePageTypesAndAttributes},
		guestToken: {"MANAGE_PAGES"},
	})

	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		auth.UnaryServerInterceptor(),
		LoggingUnaryServerInterceptor(nil),
	))
	RegisterPageTypeServiceServer(server, NewPageTypeHandler(service))
	go func() {
		_ = server.Serve(listener)
	}()

	conn, err := grpc.NewClient(
		"passthrough://bufconn",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return listener.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to create client connection: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		server.Stop()
		listener.Close()
	})

	ts.client = NewPageTypeServiceClient(conn)
	return ts
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func (ts *testServer) pageTypeID() string {
	return globalid.ToGlobalID(pageattributes.PageTypeTypeName, ts.pageType.ID)
}

func attributeID(a *entities.Attribute) string {
	return globalid.ToGlobalID(pageattributes.AttributeTypeName, a.ID)
}

func mutationRequest(t *testing.T, pageTypeID string, attributeIDs ...string) *structpb.Struct {
	t.Helper()
	ids := make([]interface{}, 0, len(attributeIDs))
	for _, id := range attributeIDs {
		ids = append(ids, id)
	}
	req, err := structpb.NewStruct(map[string]interface{}{
		"page_type_id":  pageTypeID,
		"attribute_ids": ids,
	})
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	return req
}

// attributeIDsOf returns the attribute IDs of the page_type in a response
func attributeIDsOf(t *testing.T, resp *structpb.Struct) []string {
	t.Helper()
	pt := resp.GetFields()["page_type"].GetStructValue()
	if pt == nil {
		t.Fatalf("page_type is null in %v", resp)
	}
	var ids []string
	for _, v := range pt.GetFields()["attributes"].GetListValue().GetValues() {
		ids = append(ids, v.GetStructValue().GetFields()["id"].GetStringValue())
	}
	return ids
}
