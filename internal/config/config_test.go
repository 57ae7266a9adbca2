package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lucentsys/agentspace/internal/memory"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port() != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Port())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := "server:\n  port: 8080\nmemory:\n  softTrimThresholdChars: 1000\n"
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port() != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.Port())
	}
	if cfg.Memory.SoftTrimThresholdChars == nil || *cfg.Memory.SoftTrimThresholdChars != 1000 {
		t.Fatalf("expected softTrimThresholdChars override, got %+v", cfg.Memory.SoftTrimThresholdChars)
	}
}

func TestApplyOverridesMemoryThresholds(t *testing.T) {
	original := memory.SoftTrimThreshold
	defer func() { memory.SoftTrimThreshold = original }()

	cfg := Default()
	v := 42
	cfg.Memory.SoftTrimThresholdChars = &v
	cfg.Apply()

	if memory.SoftTrimThreshold != 42 {
		t.Fatalf("expected SoftTrimThreshold 42, got %d", memory.SoftTrimThreshold)
	}
}
