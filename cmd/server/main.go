package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asakaida/pagetypes/internal/entities"
	"github.com/asakaida/pagetypes/internal/handlers"
	cacheinvalidation "github.com/asakaida/pagetypes/internal/infrastructure/cache"
	"github.com/asakaida/pagetypes/internal/infrastructure/config"
	"github.com/asakaida/pagetypes/internal/infrastructure/database"
	"github.com/asakaida/pagetypes/internal/infrastructure/logger"
	"github.com/asakaida/pagetypes/internal/infrastructure/metrics"
	"github.com/asakaida/pagetypes/internal/repositories"
	"github.com/asakaida/pagetypes/internal/repositories/memory"
	"github.com/asakaida/pagetypes/internal/repositories/postgres"
	"github.com/asakaida/pagetypes/internal/services/pageattributes"
	"github.com/asakaida/pagetypes/internal/services/permissions"
	"github.com/asakaida/pagetypes/pkg/cache"
	"github.com/asakaida/pagetypes/pkg/cache/memorycache"
	"github.com/asakaida/pagetypes/pkg/cache/rediscache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

const defaultEnv = "dev"

func main() {
	// Get environment from ENV variable or use default
	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}

	// Initialize configuration
	if err := config.InitConfig(env); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var store repositories.Transactor
	var pg *database.Postgres
	switch cfg.Database.Driver {
	case config.StorageDriverMemory:
		store = memory.NewMemoryStore()
		log.Warn("Using in-memory storage; data is lost on restart")
	default:
		var err error
		pg, err = database.NewPostgres(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pg.Close()

		log.Info("Connected to database",
			"user", cfg.Database.User,
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Database,
		)
		store = postgres.NewPostgresStore(pg.DB)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector()
	exporter := metrics.NewPrometheusExporter(collector, registry)

	// Services
	checker, err := permissions.NewChecker(cfg.Auth.Policy)
	if err != nil {
		return fmt.Errorf("invalid AUTH_POLICY: %w", err)
	}
	authenticator := permissions.NewTokenAuthenticator(cfg.Auth.Tokens)

	opts := []pageattributes.Option{
		pageattributes.WithRecorder(exporter),
		pageattributes.WithLogger(log.With("component", "pageattributes")),
	}
	if cfg.Cache.Enabled {
		pageTypeCache, err := newPageTypeCache(ctx, &cfg.Cache)
		if err != nil {
			return fmt.Errorf("failed to create page type cache: %w", err)
		}
		defer pageTypeCache.Close()
		if stats, ok := pageTypeCache.(cache.Stats); ok {
			collector.SetCache(stats)
		}
		opts = append(opts, pageattributes.WithCache(pageTypeCache))
		log.Info("Page type cache enabled", "driver", cfg.Cache.Driver, "ttl", cfg.Cache.TTL())
	}
	service := pageattributes.NewPageAttributeService(store, checker, opts...)

	// Other instances writing to the same database evict through NOTIFY
	if pg != nil && cfg.Cache.Enabled {
		invalidator := cacheinvalidation.NewInvalidator(service, cfg.Database.ConnectionString(), log.With("component", "invalidator"))
		if err := invalidator.Start(ctx); err != nil {
			return fmt.Errorf("failed to start cache invalidator: %w", err)
		}
		defer invalidator.Stop()
	}

	// Create gRPC server
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		authenticator.UnaryServerInterceptor(),
		metrics.UnaryServerInterceptor(collector, exporter),
		handlers.LoggingUnaryServerInterceptor(log.With("component", "grpc")),
	))
	handlers.RegisterPageTypeServiceServer(grpcServer, handlers.NewPageTypeHandler(service))

	// Register reflection service (for grpcurl, etc.)
	reflection.Register(grpcServer)

	listener, err := net.Listen("tcp", cfg.Server.Address())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	log.Info("gRPC server listening", "address", cfg.Server.Address())

	serverErrors := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			serverErrors <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	var metricsServer *http.Server
	if cfg.Server.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if pg != nil {
				if err := pg.HealthCheck(r.Context()); err != nil {
					http.Error(w, err.Error(), http.StatusServiceUnavailable)
					return
				}
			}
			w.WriteHeader(http.StatusOK)
		})
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrors <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
		log.Info("Metrics server listening", "address", metricsServer.Addr)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case runErr = <-serverErrors:
		log.Error("Server error", "error", runErr)
	case sig := <-sigChan:
		log.Info("Received signal, initiating graceful shutdown", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("Server stopped gracefully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded, forcing stop")
		grpcServer.Stop()
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("Error stopping metrics server", "error", err)
		}
	}

	log.Info("Shutdown complete")
	return runErr
}

// newPageTypeCache builds the cache selected by CACHE_DRIVER
func newPageTypeCache(ctx context.Context, cfg *config.CacheConfig) (cache.Cache[*entities.PageType], error) {
	if cfg.Driver == config.CacheDriverRedis {
		return rediscache.New[*entities.PageType](ctx, &rediscache.Config{
			Addr:          cfg.Redis.Addr,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			KeyPrefix:     cfg.Redis.KeyPrefix,
			DefaultTTL:    cfg.TTL(),
			EnableMetrics: cfg.Metrics,
		})
	}

	return memorycache.New(&memorycache.Config[*entities.PageType]{
		MaxSizeBytes:  cfg.MaxMemoryBytes,
		DefaultTTL:    cfg.TTL(),
		EnableMetrics: cfg.Metrics,
		SizeOf:        pageTypeSize,
	}), nil
}

// pageTypeSize estimates the memory held by a cached page type
func pageTypeSize(key string, pt *entities.PageType) int64 {
	size := int64(100 + len(key) + len(pt.Name) + len(pt.Slug))
	for _, a := range pt.Attributes {
		size += int64(64 + len(a.Name) + len(a.Slug))
	}
	return size
}
