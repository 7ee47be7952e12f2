package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_WithDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}

	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}

	if cfg.Database.MaxConns != 10 {
		t.Errorf("Database.MaxConns = %d, want 10", cfg.Database.MaxConns)
	}

	if cfg.Database.AcquireTimeout != 5*time.Second {
		t.Errorf("Database.AcquireTimeout = %v, want 5s", cfg.Database.AcquireTimeout)
	}

	if cfg.Schema.Path != "./schema.conf.yaml" {
		t.Errorf("Schema.Path = %q, want %q", cfg.Schema.Path, "./schema.conf.yaml")
	}

	if cfg.Ingestion.MaxBodyBytes != 1048576 {
		t.Errorf("Ingestion.MaxBodyBytes = %d, want 1048576", cfg.Ingestion.MaxBodyBytes)
	}

	if cfg.Ingestion.RateLimitEnabled {
		t.Error("Ingestion.RateLimitEnabled should be false by default")
	}

	if cfg.Ingestion.RateLimitWindow != time.Minute {
		t.Errorf("Ingestion.RateLimitWindow = %v, want 1m", cfg.Ingestion.RateLimitWindow)
	}

	if cfg.Redis.Enabled {
		t.Error("Redis.Enabled should be false by default")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}

	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	// When a specific file path is given and doesn't exist, it should error
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() with non-existent file path should return error")
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: 9001\nschema:\n  path: /etc/attolytics/schema.conf.yaml\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Schema.Path != "/etc/attolytics/schema.conf.yaml" {
		t.Errorf("Schema.Path = %q, want overridden path", cfg.Schema.Path)
	}
	// Values absent from the file keep their defaults.
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want 30s", cfg.Server.WriteTimeout)
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("invalid: yaml: : :"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() with invalid YAML should return error")
	}
}
