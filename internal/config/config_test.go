package config

import (
	"os"
	"testing"
)

func TestConfigLoad_Defaults(t *testing.T) {
	_ = os.Unsetenv("PLANWHEEL_DB_DRIVER")
	_ = os.Unsetenv("PLANWHEEL_POSTGRES_DSN")
	_ = os.Unsetenv("PLANWHEEL_HTTP_PORT")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("unexpected default port: %d", cfg.HTTPPort)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("auto driver without DSN should be sqlite, got %s", cfg.DBDriver)
	}
	if cfg.BackfillDefaultTimeZone != "America/Los_Angeles" {
		t.Fatalf("unexpected backfill zone: %s", cfg.BackfillDefaultTimeZone)
	}
}

func TestConfigLoad_AutoDriverWithDSN(t *testing.T) {
	_ = os.Setenv("PLANWHEEL_POSTGRES_DSN", "postgres://localhost/planwheel")
	defer func() { _ = os.Unsetenv("PLANWHEEL_POSTGRES_DSN") }()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("auto driver with DSN should be postgres, got %s", cfg.DBDriver)
	}
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	_ = os.Setenv("PLANWHEEL_BACKFILL_DEFAULT_TIME_ZONE", "Europe/Berlin")
	defer func() { _ = os.Unsetenv("PLANWHEEL_BACKFILL_DEFAULT_TIME_ZONE") }()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.BackfillDefaultTimeZone != "Europe/Berlin" {
		t.Fatalf("env override failed, got %s", cfg.BackfillDefaultTimeZone)
	}
}

func TestResolveDefaults_RejectsUnknownDriver(t *testing.T) {
	cfg := &Config{DBDriver: "mongodb"}
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestResolveDefaults_PostgresRequiresDSN(t *testing.T) {
	cfg := &Config{DBDriver: "postgres"}
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatal("expected error for postgres without DSN")
	}
}
