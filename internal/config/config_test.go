package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != DriverPostgres {
		t.Errorf("driver: got %q", cfg.Store.Driver)
	}
	if cfg.Context.RequestTimeout != 5*time.Second {
		t.Errorf("request timeout: got %v", cfg.Context.RequestTimeout)
	}
	if cfg.Address() != "0.0.0.0:8080" {
		t.Errorf("address: got %q", cfg.Address())
	}
	if cfg.Redis.Enabled {
		t.Error("redis should be disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "3")
	t.Setenv("MONITOR_INTERVAL", "250ms")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("driver: got %q", cfg.Store.Driver)
	}
	if cfg.Context.RequestTimeout != 3*time.Second {
		t.Errorf("seconds fallback: got %v", cfg.Context.RequestTimeout)
	}
	if cfg.Monitor.Interval != 250*time.Millisecond {
		t.Errorf("duration parse: got %v", cfg.Monitor.Interval)
	}
	if !cfg.Redis.Enabled {
		t.Error("expected redis enabled")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", Name: "n", SSLMode: "disable"}
	if got := d.DSN(); got != "postgres://u:p@h:5432/n?sslmode=disable" {
		t.Errorf("got %q", got)
	}
	d.URL = "postgres://override"
	if got := d.DSN(); got != "postgres://override" {
		t.Errorf("got %q", got)
	}
}
