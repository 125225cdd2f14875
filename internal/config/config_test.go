package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_defaults(t *testing.T) {
	v, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg, err := Decode(v)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Fingerbank.RequestsPerHour != 100 {
		t.Errorf("fingerbank.requests_per_hour = %d, want 100", cfg.Fingerbank.RequestsPerHour)
	}
	if cfg.Fingerbank.RequestsPerDay != 1000 {
		t.Errorf("fingerbank.requests_per_day = %d, want 1000", cfg.Fingerbank.RequestsPerDay)
	}
	if cfg.Fingerbank.Timeout != 30*time.Second {
		t.Errorf("fingerbank.timeout = %v, want 30s", cfg.Fingerbank.Timeout)
	}
	if cfg.Classify.Weights.ExternalHigh != 60 {
		t.Errorf("weights.external_high = %d, want 60", cfg.Classify.Weights.ExternalHigh)
	}
	if cfg.Fingerbank.APIKey != "" {
		t.Errorf("fingerbank.api_key should default to empty, got %q", cfg.Fingerbank.APIKey)
	}
}

func TestLoad_fileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dhcplens.yaml")
	content := "server:\n  port: 9999\nclassify:\n  workers: 16\n  weights:\n    vendor_found: 25\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	v, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg, err := Decode(v)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Classify.Workers != 16 {
		t.Errorf("classify.workers = %d, want 16", cfg.Classify.Workers)
	}
	if cfg.Classify.Weights.VendorFound != 25 {
		t.Errorf("weights.vendor_found = %d, want 25", cfg.Classify.Weights.VendorFound)
	}
	// Untouched keys keep their defaults.
	if cfg.Fingerbank.MaxRetries != 3 {
		t.Errorf("fingerbank.max_retries = %d, want 3", cfg.Fingerbank.MaxRetries)
	}
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv("DL_FINGERBANK_API_KEY", "env-secret")
	t.Setenv("DL_SERVER_PORT", "9191")

	v, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg, err := Decode(v)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if cfg.Fingerbank.APIKey != "env-secret" {
		t.Errorf("fingerbank.api_key = %q, want env value", cfg.Fingerbank.APIKey)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("server.port = %d, want 9191", cfg.Server.Port)
	}
}

func TestLoad_missingFileIsError(t *testing.T) {
	if _, err := Load("/nonexistent/dhcplens.yaml"); err == nil {
		t.Error("expected error for explicitly named missing config file")
	}
}

func TestNewLogger_invalidLevel(t *testing.T) {
	v, _ := Load("")
	v.Set("logging.level", "verbose")
	if _, err := NewLogger(v); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestNewLogger_formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		v, _ := Load("")
		v.Set("logging.format", format)
		logger, err := NewLogger(v)
		if err != nil {
			t.Errorf("NewLogger(format=%s): %v", format, err)
			continue
		}
		_ = logger.Sync()
	}

	v, _ := Load("")
	v.Set("logging.format", "xml")
	if _, err := NewLogger(v); err == nil {
		t.Error("expected error for invalid log format")
	}
}
