package preflight

import (
	"context"
	"path/filepath"

	"annote/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minFreeBytes is the floor for the data root before session writes are
// considered at risk.
const minFreeBytes = 256 << 20

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data root", cfg.Paths.DataRoot))
	results = append(results, CheckFreeSpace("Data root free space", cfg.Paths.DataRoot, minFreeBytes))

	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Probe.CacheEnabled && cfg.Probe.CachePath != "" {
		results = append(results, CheckDirectoryAccess("Probe cache directory", filepath.Dir(cfg.Probe.CachePath)))
	}

	return results
}
