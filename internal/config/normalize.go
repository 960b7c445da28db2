package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeProbe(); err != nil {
		return err
	}
	c.normalizePlayback()
	c.normalizeAutosave()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataRoot) == "" {
		c.Paths.DataRoot = defaultDataRoot
	}
	if c.Paths.DataRoot, err = expandPath(c.Paths.DataRoot); err != nil {
		return fmt.Errorf("paths.data_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProbe() error {
	if strings.TrimSpace(c.Probe.FFprobeBinary) == "" {
		c.Probe.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Probe.TimeoutSeconds <= 0 {
		c.Probe.TimeoutSeconds = defaultProbeTimeout
	}
	if strings.TrimSpace(c.Probe.CachePath) == "" {
		c.Probe.CachePath = defaultProbeCachePath
	}
	var err error
	if c.Probe.CachePath, err = expandPath(c.Probe.CachePath); err != nil {
		return fmt.Errorf("probe.cache_path: %w", err)
	}
	return nil
}

func (c *Config) normalizePlayback() {
	if c.Playback.TickIntervalMS <= 0 {
		c.Playback.TickIntervalMS = defaultTickIntervalMS
	}
	if c.Playback.DriftToleranceMS <= 0 {
		c.Playback.DriftToleranceMS = defaultDriftToleranceMS
	}
	if c.Playback.SeekTimeoutSeconds <= 0 {
		c.Playback.SeekTimeoutSeconds = defaultSeekTimeoutSeconds
	}
}

func (c *Config) normalizeAutosave() {
	if c.Autosave.IntervalSeconds <= 0 {
		c.Autosave.IntervalSeconds = defaultAutosaveSeconds
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
