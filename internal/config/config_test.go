package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.JWT.Secret != "test-secret" {
		t.Fatalf("jwt secret = %q", cfg.JWT.Secret)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 6543 {
		t.Fatalf("database = %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Business.Timezone != "Africa/Lagos" || cfg.Business.CreditWasherName != "Idowu" {
		t.Fatalf("business = %+v", cfg.Business)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.At != "00:15" {
		t.Fatalf("scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Archive.Enabled {
		t.Fatalf("archive enabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`
server:
  port: 9090
business:
  credit_washer_name: Bayo
scheduler:
  repair: false
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("server port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Business.CreditWasherName != "Bayo" {
		t.Fatalf("credit washer = %q", cfg.Business.CreditWasherName)
	}
	if cfg.Scheduler.Repair {
		t.Fatalf("scheduler.repair should be false")
	}
}

func TestLoadFromMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml")); err != errMissingSecret {
		t.Fatalf("err = %v, want errMissingSecret", err)
	}
}
