package manager

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"annote/internal/logging"
	"annote/internal/probe"
)

// sourceWatcher invalidates cached probe results when a session's video
// files change on disk, so a re-encoded source is re-inspected instead of
// served stale metadata.
type sourceWatcher struct {
	fsw    *fsnotify.Watcher
	cache  *probe.Cache
	logger *slog.Logger
	done   chan struct{}
}

func newSourceWatcher(cache *probe.Cache, logger *slog.Logger) (*sourceWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &sourceWatcher{
		fsw:    fsw,
		cache:  cache,
		logger: logging.NewComponentLogger(logger, "source-watch"),
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Watch registers one file path for change tracking.
func (w *sourceWatcher) Watch(path string) error {
	return w.fsw.Add(path)
}

func (w *sourceWatcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.cache.Invalidate(context.Background(), event.Name); err != nil {
				w.logger.Warn("probe cache invalidation failed",
					logging.String("path", event.Name),
					logging.Error(err))
				continue
			}
			w.logger.Debug("probe cache invalidated",
				logging.String("path", event.Name),
				logging.String("op", event.Op.String()))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("source watch error", logging.Error(err))
		}
	}
}

func (w *sourceWatcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
