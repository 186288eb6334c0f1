package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero max pages",
			mutate: func(cfg *Config) {
				cfg.MaxPages = 0
			},
			wantErr: "max pages",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "backoff exceeds max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = 3 * time.Second
				cfg.RetryBackoffMax = 1 * time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "negative cache ttl",
			mutate: func(cfg *Config) {
				cfg.CacheTTL = -time.Minute
			},
			wantErr: "cache TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func setMySQLEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "tracker")
	t.Setenv("DB_PASS", "secret")
	t.Setenv("DB_NAME", "books")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_SSL_CA", "")
	t.Setenv("DB_PATH", "")
}

func TestDatabaseFromEnvMySQL(t *testing.T) {
	setMySQLEnv(t)

	db, err := DatabaseFromEnv()
	if err != nil {
		t.Fatalf("DatabaseFromEnv: %v", err)
	}
	if db.Driver != DriverMySQL || db.Host != "db.internal" || db.Port != 3306 {
		t.Fatalf("unexpected database config: %+v", db)
	}
}

func TestDatabaseFromEnvMissingCredential(t *testing.T) {
	keys := []string{"DB_HOST", "DB_USER", "DB_PASS", "DB_NAME", "DB_PORT"}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			setMySQLEnv(t)
			t.Setenv(key, "")

			_, err := DatabaseFromEnv()
			var cfgErr ErrConfiguration
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
			if cfgErr.Key != key {
				t.Fatalf("error key = %q, want %q", cfgErr.Key, key)
			}
		})
	}
}

func TestDatabaseFromEnvBadPort(t *testing.T) {
	setMySQLEnv(t)
	t.Setenv("DB_PORT", "not-a-port")

	_, err := DatabaseFromEnv()
	var cfgErr ErrConfiguration
	if !errors.As(err, &cfgErr) || cfgErr.Key != "DB_PORT" {
		t.Fatalf("expected DB_PORT configuration error, got %v", err)
	}
}

func TestDatabaseFromEnvSQLite(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "books.db")

	db, err := DatabaseFromEnv()
	if err != nil {
		t.Fatalf("DatabaseFromEnv: %v", err)
	}
	if db.Driver != DriverSQLite || db.Path != "books.db" {
		t.Fatalf("unexpected database config: %+v", db)
	}

	t.Setenv("DB_PATH", "")
	if _, err := DatabaseFromEnv(); err == nil {
		t.Fatalf("missing DB_PATH must fail")
	}
}

func TestDatabaseFromEnvUnsupportedDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	_, err := DatabaseFromEnv()
	var cfgErr ErrConfiguration
	if !errors.As(err, &cfgErr) || cfgErr.Key != "DB_DRIVER" {
		t.Fatalf("expected DB_DRIVER configuration error, got %v", err)
	}
}

func TestDatabaseFromEnvUnreadableCACert(t *testing.T) {
	setMySQLEnv(t)
	t.Setenv("DB_SSL_CA", "/nonexistent/ca.pem")

	_, err := DatabaseFromEnv()
	var cfgErr ErrConfiguration
	if !errors.As(err, &cfgErr) || cfgErr.Key != "DB_SSL_CA" {
		t.Fatalf("expected DB_SSL_CA configuration error, got %v", err)
	}
}
