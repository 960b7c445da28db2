package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataRoot == "" {
		return errors.New("paths.data_root must be set")
	}
	return nil
}

func (c *Config) validatePlayback() error {
	if c.Playback.DriftToleranceMS < 50 {
		return fmt.Errorf("playback.drift_tolerance_ms must be at least 50, got %d", c.Playback.DriftToleranceMS)
	}
	if c.Playback.TickIntervalMS < 10 {
		return fmt.Errorf("playback.tick_interval_ms must be at least 10, got %d", c.Playback.TickIntervalMS)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
