// Package probe inspects media sources for duration, frame rate, and
// decodability.
//
// The Prober interface is consumed once at import time and on demand when
// cached metadata is missing. FFprobe is the production implementation; Cache
// wraps any Prober with a SQLite-backed result cache keyed by path, size, and
// modification time so repeated imports of the same files avoid re-running
// the external binary. Schema changes bump schemaVersion; stale databases are
// recreated rather than migrated.
package probe
