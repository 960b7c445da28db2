package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"annote/internal/config"
	"annote/internal/logging"
	"annote/internal/manager"
	"annote/internal/probe"
	"annote/internal/session"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	log        *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.log = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.log = logging.NewNop()
			return
		}
		c.log = logger
	})
	return c.log
}

// newManager wires a session manager with the configured prober and, when
// enabled, the sqlite probe cache. The returned cleanup closes the cache.
func (c *commandContext) newManager() (*manager.Manager, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := c.logger()

	prober := probe.Prober(probe.NewFFprobe(cfg, logger))
	m := manager.NewManager(cfg, prober, logger)
	cleanup := func() {}

	if cfg.Probe.CacheEnabled {
		cache, cacheErr := probe.OpenCache(cfg, prober, logger)
		if cacheErr != nil {
			logger.Warn("probe cache unavailable", logging.Error(cacheErr))
		} else {
			m.AttachCache(cache)
			cleanup = func() { _ = cache.Close() }
		}
	}
	return m, cleanup, nil
}

// withSession imports slug, runs fn, and closes the session afterwards.
func (c *commandContext) withSession(cmd *cobra.Command, slug string, fn func(*manager.Manager, *session.Session) error) error {
	m, cleanup, err := c.newManager()
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := m.ImportSession(cmd.Context(), slug)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	return fn(m, sess)
}
