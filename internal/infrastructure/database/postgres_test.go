package database

import (
	"context"
	"testing"

	"github.com/asakaida/pagetypes/internal/infrastructure/config"
)

func TestPostgres_Close(t *testing.T) {
	tests := []struct {
		name    string
		pg      *Postgres
		wantErr bool
	}{
		{
			name:    "nil DB",
			pg:      &Postgres{DB: nil},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pg.Close()
			if (err != nil) != tt.wantErr {
				t.Errorf("Postgres.Close() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewPostgres_InvalidConfig(t *testing.T) {
	// Test with invalid configuration that should fail to connect
	cfg := &config.DatabaseConfig{
		Host:         "invalid-host-that-does-not-exist",
		Port:         99999,
		User:         "invalid",
		Password:     "invalid",
		Database:     "invalid",
		SSLMode:      "disable",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	pg, err := NewPostgres(cfg)
	if err == nil {
		if pg != nil && pg.DB != nil {
			pg.Close()
		}
		t.Error("NewPostgres() with invalid config should return error")
	}
}

func TestPostgres_Integration(t *testing.T) {
	if err := config.InitConfig("test"); err != nil {
		t.Fatalf("InitConfig() error = %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Skipf("Integration test - requires running database: %v", err)
	}

	pg, err := NewPostgres(&cfg.Database)
	if err != nil {
		t.Skipf("Integration test - database not reachable: %v", err)
	}
	defer pg.Close()

	// Test HealthCheck
	if err := pg.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	// Test Close
	if err := pg.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// Second close should also work
	if err := pg.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}
}
