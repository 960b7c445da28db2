package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"annote/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataRoot = filepath.Join(base, "sessions")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Probe.CacheEnabled = false
	cfgVal.Probe.CachePath = filepath.Join(base, "probe_cache.db")
	cfgVal.Autosave.IntervalSeconds = 3600

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	return builder.cfg
}

// WithAutosaveInterval overrides the autosave cadence on the test config.
func WithAutosaveInterval(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Autosave.IntervalSeconds = seconds
	}
}

// WithProbeCache enables the sqlite probe cache on the test config.
func WithProbeCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Probe.CacheEnabled = true
	}
}

// WithStubbedFFprobe writes a stub ffprobe that emits the given JSON payload
// and points the config at it.
func WithStubbedFFprobe(payload string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ffprobe")
		script := "#!/bin/sh\ncat <<'EOF'\n" + payload + "\nEOF\n"
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write stub ffprobe: %v", err)
		}
		b.cfg.Probe.FFprobeBinary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataRoot)
}
