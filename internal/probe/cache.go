package probe

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"annote/internal/config"
	"annote/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current cache schema version. Bump this when the schema
// changes; a mismatched database is dropped and recreated.
const schemaVersion = 1

// Cache wraps a Prober with a SQLite-backed result cache. Entries are keyed by
// absolute path and validated against file size and modification time, so an
// edited source is re-probed automatically.
type Cache struct {
	db     *sql.DB
	inner  Prober
	logger *slog.Logger
}

// OpenCache connects to (or creates) the cache database configured in cfg.
func OpenCache(cfg *config.Config, inner Prober, logger *slog.Logger) (*Cache, error) {
	if inner == nil {
		return nil, errors.New("probe cache requires an inner prober")
	}
	if cfg == nil || !cfg.Probe.CacheEnabled || cfg.Probe.CachePath == "" {
		return nil, errors.New("probe cache disabled in configuration")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Probe.CachePath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Probe.CachePath)
	if err != nil {
		return nil, fmt.Errorf("open probe cache db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cache := &Cache{
		db:     db,
		inner:  inner,
		logger: logging.NewComponentLogger(logger, "probe-cache"),
	}
	if err := cache.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Probe returns a cached result when the file on disk still matches the
// recorded size and mtime, delegating to the inner prober otherwise. Remote
// URLs and unreadable paths bypass the cache entirely.
func (c *Cache) Probe(ctx context.Context, path string) (Result, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		return c.inner.Probe(ctx, path)
	}
	size := info.Size()
	mtime := info.ModTime().Unix()

	var cached Result
	var cachedSize, cachedMtime int64
	var decodable int
	err := c.db.QueryRowContext(ctx,
		`SELECT size_bytes, mtime_unix, duration_seconds, frame_rate, decodable
         FROM probe_results WHERE path = ?`, path,
	).Scan(&cachedSize, &cachedMtime, &cached.DurationSeconds, &cached.FrameRate, &decodable)
	switch {
	case err == nil:
		if cachedSize == size && cachedMtime == mtime {
			cached.Decodable = decodable != 0
			return cached, nil
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		c.logger.Warn("probe cache read failed", logging.Error(err), logging.String("path", path))
	}

	result, err := c.inner.Probe(ctx, path)
	if err != nil {
		return Result{}, err
	}

	if err := c.store(ctx, path, size, mtime, result); err != nil {
		c.logger.Warn("probe cache write failed", logging.Error(err), logging.String("path", path))
	}
	return result, nil
}

// Invalidate drops the cached entry for path, forcing the next probe to run.
func (c *Cache) Invalidate(ctx context.Context, path string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM probe_results WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("invalidate probe cache entry: %w", err)
	}
	return nil
}

func (c *Cache) store(ctx context.Context, path string, size, mtime int64, result Result) error {
	decodable := 0
	if result.Decodable {
		decodable = 1
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO probe_results (path, size_bytes, mtime_unix, duration_seconds, frame_rate, decodable, probed_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
             size_bytes = excluded.size_bytes,
             mtime_unix = excluded.mtime_unix,
             duration_seconds = excluded.duration_seconds,
             frame_rate = excluded.frame_rate,
             decodable = excluded.decodable,
             probed_at = excluded.probed_at`,
		path, size, mtime, result.DurationSeconds, result.FrameRate, decodable,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert probe result: %w", err)
	}
	return nil
}

func (c *Cache) initSchema(ctx context.Context) error {
	var tableExists int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return c.createSchema(ctx)
	}

	var version int
	err = c.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		// The cache is disposable; rebuild instead of migrating.
		if _, err := c.db.ExecContext(ctx, "DROP TABLE IF EXISTS probe_results"); err != nil {
			return fmt.Errorf("drop stale cache: %w", err)
		}
		if _, err := c.db.ExecContext(ctx, "DROP TABLE IF EXISTS schema_version"); err != nil {
			return fmt.Errorf("drop stale version table: %w", err)
		}
		return c.createSchema(ctx)
	}
	return nil
}

func (c *Cache) createSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
