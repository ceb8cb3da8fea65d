package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/handlers"
	cacheinvalidation "github.com/asakaida/pagetypes/internal/infrastructure/cache"
	"github.com/asakaida/pagetypes/internal/infrastructure/config"
	"github.com/asakaida/pagetypes/internal/infrastructure/database"
	"github.com/asakaida/pagetypes/internal/infrastructure/metrics"
	"github.com/asakaida/pagetypes/internal/repositories/postgres"
	"github.com/asakaida/pagetypes/internal/services/pageattributes"
	"github.com/asakaida/pagetypes/internal/services/permissions"
	"github.com/asakaida/pagetypes/pkg/cache/memorycache"
	"github.com/asakaida/pagetypes/pkg/globalid"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	bufSize    = 1024 * 1024
	staffToken = "e2e-staff"
	adminToken = "e2e-admin"
)

// E2ETestServer represents an E2E test server
type E2ETestServer struct {
	Server      *grpc.Server
	Client      handlers.PageTypeServiceClient
	Conn        *grpc.ClientConn
	DB          *sql.DB
	Store       *postgres.PostgresStore
	Service     *pageattributes.PageAttributeService
	Collector   *metrics.Collector
	Listener    *bufconn.Listener
	Invalidator *cacheinvalidation.Invalidator
}

// SetupE2ETest sets up an E2E test environment backed by the test database.
// The test is skipped when the database is not reachable.
func SetupE2ETest(t *testing.T) *E2ETestServer {
	t.Helper()

	// Initialize config for test environment
	if err := config.InitConfig("test"); err != nil {
		t.Fatalf("failed to init config: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Skipf("Skipping: test database not configured: %v", err)
	}

	// Connect to test database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Skipf("Skipping: test database not reachable: %v", err)
	}

	projectRoot, err := config.ProjectRoot()
	if err != nil {
		t.Fatalf("failed to find project root: %v", err)
	}
	migrationsPath := filepath.Join(projectRoot, "internal/infrastructure/database/migrations/postgres")
	if err := pg.RunMigrations(migrationsPath); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Clean up existing data
	cleanupDatabase(t, pg.DB)

	store := postgres.NewPostgresStore(pg.DB)
	checker, err := permissions.NewChecker(config.DefaultAuthPolicy)
	if err != nil {
		t.Fatalf("failed to create checker: %v", err)
	}
	authenticator := permissions.NewTokenAuthenticator(map[string][]string{
		staffToken: {permissions.ManagePageTypesAndAttributes},
		adminToken: {permissions.SuperuserMarker},
	})

	collector := metrics.NewCollector()
	exporter := metrics.NewPrometheusExporter(collector, prometheus.NewRegistry())
	pageTypeCache := memorycache.New(&memorycache.Config[*entities.PageType]{
		MaxSizeBytes:  1 << 20,
		DefaultTTL:    time.Minute,
		EnableMetrics: true,
	})
	collector.SetCache(pageTypeCache)

	service := pageattributes.NewPageAttributeService(store, checker,
		pageattributes.WithCache(pageTypeCache),
		pageattributes.WithRecorder(exporter),
	)

	invalidator := cacheinvalidation.NewInvalidator(service, cfg.Database.ConnectionString(), nil)
	if err := invalidator.Start(context.Background()); err != nil {
		t.Fatalf("failed to start invalidator: %v", err)
	}

	// Create in-memory gRPC server with bufconn
	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		authenticator.UnaryServerInterceptor(),
		metrics.UnaryServerInterceptor(collector, exporter),
	))
	handlers.RegisterPageTypeServiceServer(server, handlers.NewPageTypeHandler(service))

	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
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

	return &E2ETestServer{
		Server:      server,
		Client:      handlers.NewPageTypeServiceClient(conn),
		Conn:        conn,
		DB:          pg.DB,
		Store:       store,
		Service:     service,
		Collector:   collector,
		Listener:    listener,
		Invalidator: invalidator,
	}
}

// Teardown cleans up the E2E test environment
func (e *E2ETestServer) Teardown(t *testing.T) {
	t.Helper()

	if e.Conn != nil {
		e.Conn.Close()
	}
	if e.Server != nil {
		e.Server.Stop()
	}
	if e.Listener != nil {
		e.Listener.Close()
	}
	if e.Invalidator != nil {
		e.Invalidator.Stop()
	}
	if e.DB != nil {
		cleanupDatabase(t, e.DB)
		e.DB.Close()
	}
}

// cleanupDatabase removes all data from test database
func cleanupDatabase(t *testing.T, db *sql.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Delete in correct order due to foreign key constraints
	tables := []string{"page_type_attributes", "page_types", "attributes"}
	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s", table)
		if _, err := db.ExecContext(ctx, query); err != nil {
			t.Logf("warning: failed to clean up table %s: %v", table, err)
		}
	}
}

// CreatePageType stores a page type and returns its global ID
func (e *E2ETestServer) CreatePageType(t *testing.T, name, slug string) string {
	t.Helper()
	pt := &entities.PageType{Name: name, Slug: slug}
	if err := e.Store.PageTypes().Create(context.Background(), pt); err != nil {
		t.Fatalf("failed to create page type: %v", err)
	}
	return globalid.ToGlobalID(pageattributes.PageTypeTypeName, pt.ID)
}

// CreateAttribute stores an attribute and returns its global ID
func (e *E2ETestServer) CreateAttribute(t *testing.T, name, slug string, attrType entities.AttributeType) string {
	t.Helper()
	attr := &entities.Attribute{Name: name, Slug: slug, Type: attrType}
	if err := e.Store.Attributes().Create(context.Background(), attr); err != nil {
		t.Fatalf("failed to create attribute: %v", err)
	}
	return globalid.ToGlobalID(pageattributes.AttributeTypeName, attr.ID)
}

// AuthContext returns a context carrying the bearer token
func AuthContext(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

// MutationRequest builds a PageAttributeAssign/Unassign request
func MutationRequest(t *testing.T, pageTypeID string, attributeIDs ...string) *structpb.Struct {
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

// AssignedIDs returns the attribute IDs of the page_type in a response,
// failing the test when page_type is null
func AssignedIDs(t *testing.T, resp *structpb.Struct) []string {
	t.Helper()
	pt := resp.GetFields()["page_type"].GetStructValue()
	if pt == nil {
		t.Fatalf("page_type is null; page_errors = %v", resp.GetFields()["page_errors"])
	}
	ids := []string{}
	for _, v := range pt.GetFields()["attributes"].GetListValue().GetValues() {
		ids = append(ids, v.GetStructValue().GetFields()["id"].GetStringValue())
	}
	return ids
}

// PageError is a decoded page_errors entry
type PageError struct {
	Field      string
	Code       string
	Message    string
	Attributes []string
}

// PageErrors decodes the page_errors of a mutation response
func PageErrors(resp *structpb.Struct) []PageError {
	var out []PageError
	for _, v := range resp.GetFields()["page_errors"].GetListValue().GetValues() {
		fields := v.GetStructValue().GetFields()
		e := PageError{
			Field:   fields["field"].GetStringValue(),
			Code:    fields["code"].GetStringValue(),
			Message: fields["message"].GetStringValue(),
		}
		for _, id := range fields["attributes"].GetListValue().GetValues() {
			e.Attributes = append(e.Attributes, id.GetStringValue())
		}
		out = append(out, e)
	}
	return out
}
