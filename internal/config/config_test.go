package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("data_dir: ${AQUASIM_TEST_DATA_DIR}\n"), 0600)
	os.Setenv("AQUASIM_TEST_DATA_DIR", "/tmp/aquasim-test")
	defer os.Unsetenv("AQUASIM_TEST_DATA_DIR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DataDir != "/tmp/aquasim-test" {
		t.Errorf("data_dir = %q, want %q", cfg.DataDir, "/tmp/aquasim-test")
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("log_level: debug\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("data_dir = %q, want default ./data", cfg.DataDir)
	}
	if cfg.History.FlushInterval != 100 {
		t.Errorf("history.flush_interval = %d, want default 100", cfg.History.FlushInterval)
	}
}

func TestLoad_RejectsInvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("log_level: noisy\n"), 0600)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for invalid log_level")
	}
}

func TestValidate_NonPositiveFlushIntervalRejected(t *testing.T) {
	cfg := Default()
	cfg.History.FlushInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive flush_interval")
	}
}

func TestValidate_NegativeRetainTicksRejected(t *testing.T) {
	cfg := Default()
	cfg.History.RetainTicks = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative retain_ticks")
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() should be valid, got: %v", err)
	}
}
