package config

import (
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard configuration",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "testpass",
				Database: "testdb",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable",
		},
		{
			name: "production configuration",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				User:     "produser",
				Password: "securepass123",
				Database: "proddb",
				SSLMode:  "require",
			},
			want: "host=db.example.com port=5433 user=produser password=securepass123 dbname=proddb sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ConnectionString(); got != tt.want {
				t.Errorf("DatabaseConfig.ConnectionString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInitConfig(t *testing.T) {
	// Save original working directory
	originalWd, _ := os.Getwd()
	defer os.Chdir(originalWd)

	tests := []struct {
		name   string
		env    string
		wantDB string
	}{
		{name: "default dev environment", env: "", wantDB: "pagetypes_dev"},
		{name: "explicit dev environment", env: "dev", wantDB: "pagetypes_dev"},
		{name: "test environment", env: "test", wantDB: "pagetypes_test"},
		{name: "prod environment", env: "prod", wantDB: "pagetypes_prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset viper for each test
			viper.Reset()
			defer viper.Reset()

			if err := InitConfig(tt.env); err != nil {
				t.Fatalf("InitConfig() error = %v", err)
			}

			// Verify default values are set
			if viper.GetString("SERVER_HOST") != "0.0.0.0" {
				t.Errorf("InitConfig() SERVER_HOST = %v, want 0.0.0.0", viper.GetString("SERVER_HOST"))
			}
			if viper.GetInt("SERVER_PORT") != 50051 {
				t.Errorf("InitConfig() SERVER_PORT = %v, want 50051", viper.GetInt("SERVER_PORT"))
			}
			if viper.GetString("STORAGE_DRIVER") != StorageDriverPostgres {
				t.Errorf("InitConfig() STORAGE_DRIVER = %v, want postgres", viper.GetString("STORAGE_DRIVER"))
			}
			if viper.GetString("AUTH_POLICY") != DefaultAuthPolicy {
				t.Errorf("InitConfig() AUTH_POLICY = %v, want default policy", viper.GetString("AUTH_POLICY"))
			}
			if os.Getenv("DB_NAME") == "" && viper.GetString("DB_NAME") != tt.wantDB {
				t.Errorf("InitConfig() DB_NAME = %v, want %v", viper.GetString("DB_NAME"), tt.wantDB)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func()
		wantErr     bool
		wantErrMsg  string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "successful load with password",
			setupEnv: func() {
				viper.Set("DB_PASSWORD", "testpassword")
				viper.SetDefault("SERVER_HOST", "0.0.0.0")
				viper.SetDefault("SERVER_PORT", 50051)
				viper.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 30)
				viper.SetDefault("DB_HOST", "localhost")
				viper.SetDefault("DB_PORT", 15432)
				viper.SetDefault("DB_USER", "pagetypes")
				viper.SetDefault("DB_NAME", "pagetypes_dev")
				viper.SetDefault("DB_SSLMODE", "disable")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				if cfg.Server.Address() != "0.0.0.0:50051" {
					t.Errorf("Load() Server.Address() = %v, want 0.0.0.0:50051", cfg.Server.Address())
				}
				if cfg.Server.ShutdownTimeout != 30*time.Second {
					t.Errorf("Load() Server.ShutdownTimeout = %v, want 30s", cfg.Server.ShutdownTimeout)
				}
				if cfg.Database.Driver != StorageDriverPostgres {
					t.Errorf("Load() Database.Driver = %v, want postgres", cfg.Database.Driver)
				}
				if cfg.Database.Password != "testpassword" {
					t.Errorf("Load() Database.Password = %v, want testpassword", cfg.Database.Password)
				}
				if cfg.Database.Database != "pagetypes_dev" {
					t.Errorf("Load() Database.Database = %v, want pagetypes_dev", cfg.Database.Database)
				}
				if cfg.Auth.Policy != DefaultAuthPolicy {
					t.Errorf("Load() Auth.Policy = %v, want default", cfg.Auth.Policy)
				}
			},
		},
		{
			name: "missing password",
			setupEnv: func() {
				viper.SetDefault("SERVER_HOST", "0.0.0.0")
				viper.SetDefault("SERVER_PORT", 50051)
			},
			wantErr:    true,
			wantErrMsg: "DB_PASSWORD is required (set via environment variable or .env file)",
		},
		{
			name: "memory driver needs no password",
			setupEnv: func() {
				viper.Set("STORAGE_DRIVER", "memory")
				viper.Set("CACHE_ENABLED", true)
				viper.Set("CACHE_TTL_MINUTES", 2)
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				if cfg.Database.Driver != StorageDriverMemory {
					t.Errorf("Load() Database.Driver = %v, want memory", cfg.Database.Driver)
				}
				if !cfg.Cache.Enabled {
					t.Error("Load() Cache.Enabled = false, want true")
				}
				if cfg.Cache.TTL() != 2*time.Minute {
					t.Errorf("Load() Cache.TTL() = %v, want 2m", cfg.Cache.TTL())
				}
			},
		},
		{
			name: "unsupported driver",
			setupEnv: func() {
				viper.Set("STORAGE_DRIVER", "mysql")
			},
			wantErr:    true,
			wantErrMsg: `unsupported STORAGE_DRIVER "mysql"`,
		},
		{
			name: "redis cache driver",
			setupEnv: func() {
				viper.Set("STORAGE_DRIVER", "memory")
				viper.Set("CACHE_DRIVER", "Redis")
				viper.Set("REDIS_ADDR", "cache:6379")
				viper.Set("REDIS_DB", 2)
				viper.Set("REDIS_KEY_PREFIX", "pt:")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				if cfg.Cache.Driver != CacheDriverRedis {
					t.Errorf("Load() Cache.Driver = %v, want redis", cfg.Cache.Driver)
				}
				want := RedisConfig{Addr: "cache:6379", DB: 2, KeyPrefix: "pt:"}
				if cfg.Cache.Redis != want {
					t.Errorf("Load() Cache.Redis = %+v, want %+v", cfg.Cache.Redis, want)
				}
			},
		},
		{
			name: "unsupported cache driver",
			setupEnv: func() {
				viper.Set("STORAGE_DRIVER", "memory")
				viper.Set("CACHE_DRIVER", "memcached")
			},
			wantErr:    true,
			wantErrMsg: `unsupported CACHE_DRIVER "memcached"`,
		},
		{
			name: "auth tokens",
			setupEnv: func() {
				viper.Set("STORAGE_DRIVER", "memory")
				viper.Set("AUTH_TOKENS", "staff=MANAGE_PAGE_TYPES_AND_ATTRIBUTES|MANAGE_PAGES, admin=*")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				want := map[string][]string{
					"staff": {"MANAGE_PAGE_TYPES_AND_ATTRIBUTES", "MANAGE_PAGES"},
					"admin": {"*"},
				}
				if !reflect.DeepEqual(cfg.Auth.Tokens, want) {
					t.Errorf("Load() Auth.Tokens = %v, want %v", cfg.Auth.Tokens, want)
				}
			},
		},
		{
			name: "malformed auth tokens",
			setupEnv: func() {
				viper.Set("STORAGE_DRIVER", "memory")
				viper.Set("AUTH_TOKENS", "no-separator")
			},
			wantErr:    true,
			wantErrMsg: `invalid AUTH_TOKENS: entry "no-separator" must look like token=PERM|PERM`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()
			tt.setupEnv()

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if err.Error() != tt.wantErrMsg {
					t.Errorf("Load() error = %v, want %v", err.Error(), tt.wantErrMsg)
				}
				return
			}

			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestParseTokens(t *testing.T) {
	tokens, err := ParseTokens("")
	if err != nil {
		t.Fatalf("ParseTokens(\"\") error = %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("expected no tokens, got %v", tokens)
	}

	tokens, err = ParseTokens("reader=, writer=A|B|")
	if err != nil {
		t.Fatalf("ParseTokens() error = %v", err)
	}
	if got := tokens["reader"]; len(got) != 0 {
		t.Errorf("reader permissions = %v, want none", got)
	}
	if got, want := tokens["writer"], []string{"A", "B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("writer permissions = %v, want %v", got, want)
	}
}

func TestFindProjectRoot(t *testing.T) {
	// This test assumes we're running from within the project
	root, err := findProjectRoot()
	if err != nil {
		t.Errorf("findProjectRoot() error = %v, want nil", err)
		return
	}

	// Verify go.mod exists in the returned root
	goModPath := root + "/go.mod"
	if _, err := os.Stat(goModPath); os.IsNotExist(err) {
		t.Errorf("findProjectRoot() returned %v, but go.mod does not exist at %v", root, goModPath)
	}
}
