package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"annote/internal/config"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Playback.DriftToleranceMS != 200 {
		t.Fatalf("unexpected default drift tolerance: %d", cfg.Playback.DriftToleranceMS)
	}
}

func TestLoadAppliesFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_root = "` + filepath.Join(dir, "sessions") + `"

[playback]
drift_tolerance_ms = 150

[autosave]
interval_seconds = 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %s", resolved)
	}
	if cfg.Playback.DriftToleranceMS != 150 {
		t.Fatalf("expected drift tolerance 150, got %d", cfg.Playback.DriftToleranceMS)
	}
	if cfg.Autosave.IntervalSeconds != 5 {
		t.Fatalf("expected autosave interval 5, got %d", cfg.Autosave.IntervalSeconds)
	}
	// Defaults should survive partial files.
	if cfg.Probe.FFprobeBinary != "ffprobe" {
		t.Fatalf("expected default ffprobe binary, got %q", cfg.Probe.FFprobeBinary)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "absent.toml")

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Playback.TickIntervalMS != 200 {
		t.Fatalf("expected default tick interval, got %d", cfg.Playback.TickIntervalMS)
	}
}

func TestLoadRejectsBadLogging(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[playback]") {
		t.Fatal("sample config missing playback section")
	}

	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataRoot = filepath.Join(dir, "sessions")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Probe.CachePath = filepath.Join(dir, "cache", "probe.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, p := range []string{cfg.Paths.DataRoot, cfg.Paths.LogDir, filepath.Dir(cfg.Probe.CachePath)} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", p)
		}
	}
}
