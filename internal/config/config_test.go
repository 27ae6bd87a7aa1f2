package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "gemini-2.0-flash-exp-image-generation" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.TimeoutSec != 120 {
		t.Errorf("TimeoutSec = %d, want 120", cfg.TimeoutSec)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GEMIMG_MODEL", "gemini-other-model")
	t.Setenv("GEMIMG_TIMEOUT_SEC", "30")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "gemini-other-model" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.TimeoutSec != 30 {
		t.Errorf("TimeoutSec = %d, want 30", cfg.TimeoutSec)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := "model: from-file\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "from-file" {
		t.Errorf("Model = %q, want from-file", cfg.Model)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model == "" {
		t.Error("defaults should apply when the file is missing")
	}
}
