package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsToLocalBackend(t *testing.T) {
	t.Setenv("MONITOR_BACKEND_URL", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.BackendURL != "http://localhost:8080" {
		t.Fatalf("unexpected BackendURL: %q", cfg.BackendURL)
	}
	if cfg.EventsInterval != time.Second || cfg.StatusInterval != 3*time.Second {
		t.Fatalf("unexpected poll intervals: %+v", cfg)
	}
	if cfg.HoneypotInterval != 5*time.Second || cfg.HealthInterval != 10*time.Second {
		t.Fatalf("unexpected poll intervals: %+v", cfg)
	}
	if cfg.InitialTab != "control" || cfg.Theme != "light" {
		t.Fatalf("unexpected ui defaults: tab=%q theme=%q", cfg.InitialTab, cfg.Theme)
	}
	if cfg.DemoMode {
		t.Fatalf("expected DemoMode to be false by default")
	}
}

func TestLoadTrimsTrailingSlashFromBackendURL(t *testing.T) {
	t.Setenv("MONITOR_BACKEND_URL", "http://monitor.internal:9000/")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BackendURL != "http://monitor.internal:9000" {
		t.Fatalf("unexpected BackendURL: %q", cfg.BackendURL)
	}
}

func TestLoadRejectsRelativeBackendURL(t *testing.T) {
	t.Setenv("MONITOR_BACKEND_URL", "monitor.internal")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for relative backend url")
	}
}

func TestLoadSkipsBackendValidationInDemoMode(t *testing.T) {
	t.Setenv("MONITOR_DEMO_ENABLED", "true")
	t.Setenv("MONITOR_BACKEND_URL", "not a url")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error in demo mode: %v", err)
	}
	if !cfg.DemoMode {
		t.Fatalf("expected DemoMode to be true")
	}
	if cfg.BackendURL != "" {
		t.Fatalf("expected BackendURL to be empty in demo mode")
	}
}

func TestLoadAcceptsNumericPollIntervalInSeconds(t *testing.T) {
	t.Setenv("MONITOR_POLL_STATUS_INTERVAL", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.StatusInterval != 7*time.Second {
		t.Fatalf("expected 7s interval, got %s", cfg.StatusInterval)
	}
}

func TestLoadRejectsNonPositivePollInterval(t *testing.T) {
	t.Setenv("MONITOR_POLL_EVENTS_INTERVAL", "0s")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for zero poll interval")
	}
}

func TestLoadRejectsUnknownTab(t *testing.T) {
	t.Setenv("MONITOR_UI_INITIAL_TAB", "settings")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for unknown tab")
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	data := []byte("backend:\n  url: http://10.0.0.9:8080\npoll:\n  honeypot_interval: 15s\nui:\n  theme: dark\n  timezone: UTC\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BackendURL != "http://10.0.0.9:8080" {
		t.Fatalf("unexpected BackendURL: %q", cfg.BackendURL)
	}
	if cfg.HoneypotInterval != 15*time.Second {
		t.Fatalf("unexpected honeypot interval: %s", cfg.HoneypotInterval)
	}
	if cfg.Theme != "dark" {
		t.Fatalf("unexpected theme: %q", cfg.Theme)
	}
	if cfg.DisplayZone != time.UTC {
		t.Fatalf("expected UTC display zone, got %v", cfg.DisplayZone)
	}
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	if err := os.WriteFile(path, []byte("backend:\n  url: http://from-file:8080\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MONITOR_BACKEND_URL", "http://from-env:8080")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BackendURL != "http://from-env:8080" {
		t.Fatalf("expected env to win, got %q", cfg.BackendURL)
	}
}

func TestLoadReadsStorageAndDemoSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "storage:\n  audit_retention: 48h\ndemo:\n  directory: /srv/watched\n  suspicious_extensions: [exe, vbs]\nhttp:\n  static_dir: ./web\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.AuditRetention != 48*time.Hour {
		t.Fatalf("unexpected AuditRetention: %s", cfg.AuditRetention)
	}
	if cfg.DemoDirectory != "/srv/watched" || len(cfg.DemoExtensions) != 2 || cfg.DemoExtensions[1] != "vbs" {
		t.Fatalf("unexpected demo settings: %q %v", cfg.DemoDirectory, cfg.DemoExtensions)
	}
	if cfg.StaticDir != "./web" {
		t.Fatalf("unexpected StaticDir: %q", cfg.StaticDir)
	}
}
