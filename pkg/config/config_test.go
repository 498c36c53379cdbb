package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "webpilot.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
endpoint: ws://localhost:9222/session
connectTimeout: 5000
actionTimeout: 10000
pollInterval: 50
slowMo: 100
headers:
  x-api-key: secret
verbose: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Endpoint != "ws://localhost:9222/session" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if got := cfg.ConnectTimeoutOrDefault(); got != 5*time.Second {
		t.Errorf("ConnectTimeoutOrDefault() = %v, want 5s", got)
	}
	if got := cfg.ActionTimeoutOrDefault(); got != 10*time.Second {
		t.Errorf("ActionTimeoutOrDefault() = %v, want 10s", got)
	}
	if got := cfg.PollIntervalOrDefault(); got != 50*time.Millisecond {
		t.Errorf("PollIntervalOrDefault() = %v, want 50ms", got)
	}
	if cfg.Headers["x-api-key"] != "secret" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if !cfg.Verbose {
		t.Error("Verbose should be true")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "endpoint: [not: closed")
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail for invalid yaml")
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}

	if got := cfg.ConnectTimeoutOrDefault(); got != DefaultConnectTimeout {
		t.Errorf("ConnectTimeoutOrDefault() = %v", got)
	}
	if got := cfg.ActionTimeoutOrDefault(); got != DefaultActionTimeout {
		t.Errorf("ActionTimeoutOrDefault() = %v", got)
	}
	if got := cfg.PollIntervalOrDefault(); got != DefaultPollInterval {
		t.Errorf("PollIntervalOrDefault() = %v", got)
	}
	if got := cfg.SettleGraceOrDefault(); got != DefaultSettleGrace {
		t.Errorf("SettleGraceOrDefault() = %v", got)
	}
}

func TestActionTimeoutUnbounded(t *testing.T) {
	// -1 opts into the documented "no deadline" mode.
	cfg := &Config{ActionTimeout: -1}
	if got := cfg.ActionTimeoutOrDefault(); got != 0 {
		t.Errorf("ActionTimeoutOrDefault() = %v, want 0", got)
	}
}

func TestLoadDefaultEnvOverride(t *testing.T) {
	path := writeConfig(t, "endpoint: ws://env-host/session\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error: %v", err)
	}
	if cfg.Endpoint != "ws://env-host/session" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
}

func TestLoadDefaultMissing(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error: %v", err)
	}
	if cfg.Endpoint != "" {
		t.Errorf("expected zero config, got endpoint %q", cfg.Endpoint)
	}
}
