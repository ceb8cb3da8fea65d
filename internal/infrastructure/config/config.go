package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// StorageDriverPostgres stores page types in PostgreSQL
	StorageDriverPostgres = "postgres"
	// StorageDriverMemory keeps page types in process memory
	StorageDriverMemory = "memory"

	// CacheDriverMemory keeps cached page types in the server process
	CacheDriverMemory = "memory"
	// CacheDriverRedis shares cached page types between instances through Redis
	CacheDriverRedis = "redis"
)

// DefaultAuthPolicy grants an operation to superusers and to principals
// holding the required permission
const DefaultAuthPolicy = "principal.is_superuser || permission in principal.permissions"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Auth     AuthConfig
	Log      LogConfig
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string
	Port            int
	MetricsPort     int // Port for Prometheus metrics HTTP server
	ShutdownTimeout time.Duration
}

// Address returns the host:port the gRPC server listens on
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CacheConfig represents page type cache configuration
type CacheConfig struct {
	Enabled        bool
	Driver         string
	MaxMemoryBytes int64 // Maximum memory usage in bytes (e.g., 10485760 = 10MB)
	Metrics        bool
	TTLMinutes     int // Time-to-live for cache entries in minutes
	Redis          RedisConfig
}

// RedisConfig represents the Redis connection used by the redis cache driver
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// TTL returns the cache entry lifetime
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// AuthConfig represents static token authentication and the permission policy
type AuthConfig struct {
	// Tokens maps a bearer token to its permission list, "*" meaning superuser
	Tokens map[string][]string
	Policy string
}

// LogConfig represents logger configuration
type LogConfig struct {
	Mode string // dev or prod
}

// findProjectRoot finds the project root directory by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree until we find go.mod
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the root directory
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// ProjectRoot returns the directory holding go.mod
func ProjectRoot() (string, error) {
	return findProjectRoot()
}

// InitConfig initializes viper configuration
// env: environment name (dev, test, prod)
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}

	// Find project root
	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("failed to find project root: %w", err)
	}

	// Set config file name based on environment
	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")
	viper.AddConfigPath(projectRoot) // Project root

	// Read config file (optional, ignore error if not found)
	_ = viper.ReadInConfig()

	// Environment variables take precedence over config file
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 50051)
	viper.SetDefault("METRICS_PORT", 9090)
	viper.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 30)
	viper.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 15432)
	viper.SetDefault("DB_USER", "pagetypes")
	viper.SetDefault("DB_NAME", fmt.Sprintf("pagetypes_%s", env))
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)

	// Cache defaults
	viper.SetDefault("CACHE_ENABLED", true)
	viper.SetDefault("CACHE_MAX_MEMORY_BYTES", 10*1024*1024) // 10MB
	viper.SetDefault("CACHE_METRICS", true)
	viper.SetDefault("CACHE_TTL_MINUTES", 5)
	viper.SetDefault("CACHE_DRIVER", CacheDriverMemory)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_KEY_PREFIX", "pagetypes:page_type:")

	// Auth defaults
	viper.SetDefault("AUTH_TOKENS", "")
	viper.SetDefault("AUTH_POLICY", DefaultAuthPolicy)

	viper.SetDefault("LOG_MODE", env)

	return nil
}

// Load loads configuration from viper
func Load() (*Config, error) {
	driver := strings.ToLower(viper.GetString("STORAGE_DRIVER"))
	if driver == "" {
		driver = StorageDriverPostgres
	}
	if driver != StorageDriverPostgres && driver != StorageDriverMemory {
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", driver)
	}

	// DB_PASSWORD is required for security
	dbPassword := viper.GetString("DB_PASSWORD")
	if driver == StorageDriverPostgres && dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required (set via environment variable or .env file)")
	}

	cacheDriver := strings.ToLower(viper.GetString("CACHE_DRIVER"))
	if cacheDriver == "" {
		cacheDriver = CacheDriverMemory
	}
	if cacheDriver != CacheDriverMemory && cacheDriver != CacheDriverRedis {
		return nil, fmt.Errorf("unsupported CACHE_DRIVER %q", cacheDriver)
	}

	tokens, err := ParseTokens(viper.GetString("AUTH_TOKENS"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_TOKENS: %w", err)
	}

	policy := viper.GetString("AUTH_POLICY")
	if policy == "" {
		policy = DefaultAuthPolicy
	}

	config := &Config{
		Server: ServerConfig{
			Host:            viper.GetString("SERVER_HOST"),
			Port:            viper.GetInt("SERVER_PORT"),
			MetricsPort:     viper.GetInt("METRICS_PORT"),
			ShutdownTimeout: time.Duration(viper.GetInt("SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       driver,
			Host:         viper.GetString("DB_HOST"),
			Port:         viper.GetInt("DB_PORT"),
			User:         viper.GetString("DB_USER"),
			Password:     dbPassword,
			Database:     viper.GetString("DB_NAME"),
			SSLMode:      viper.GetString("DB_SSLMODE"),
			MaxOpenConns: viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: viper.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Cache: CacheConfig{
			Enabled:        viper.GetBool("CACHE_ENABLED"),
			Driver:         cacheDriver,
			MaxMemoryBytes: viper.GetInt64("CACHE_MAX_MEMORY_BYTES"),
			Metrics:        viper.GetBool("CACHE_METRICS"),
			TTLMinutes:     viper.GetInt("CACHE_TTL_MINUTES"),
			Redis: RedisConfig{
				Addr:      viper.GetString("REDIS_ADDR"),
				Password:  viper.GetString("REDIS_PASSWORD"),
				DB:        viper.GetInt("REDIS_DB"),
				KeyPrefix: viper.GetString("REDIS_KEY_PREFIX"),
			},
		},
		Auth: AuthConfig{
			Tokens: tokens,
			Policy: policy,
		},
		Log: LogConfig{
			Mode: viper.GetString("LOG_MODE"),
		},
	}

	return config, nil
}

// ParseTokens parses "token=PERM|PERM,token2=*" into a token map
func ParseTokens(raw string) (map[string][]string, error) {
	tokens := make(map[string][]string)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return tokens, nil
	}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		token, perms, ok := strings.Cut(entry, "=")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return nil, fmt.Errorf("entry %q must look like token=PERM|PERM", entry)
		}
		var list []string
		for _, p := range strings.Split(perms, "|") {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		tokens[token] = list
	}

	return tokens, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}
