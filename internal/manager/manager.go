package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"annote/internal/annotations"
	"annote/internal/config"
	"annote/internal/fileutil"
	"annote/internal/logging"
	"annote/internal/probe"
	"annote/internal/session"
)

// Manager owns the open session and is the only component with disk I/O.
// Every mutating call is serialized through its mutex; saves operate on a
// detached snapshot encoded under that lock, never on live state.
type Manager struct {
	cfg    *config.Config
	prober probe.Prober
	logger *slog.Logger

	cache   *probe.Cache
	watcher *sourceWatcher

	mu      sync.Mutex
	sess    *session.Session
	extra   map[string]json.RawMessage
	lock    *flock.Flock
	saveSeq uint64

	// writeMu serializes disk writes and guards lastWrittenSeq, so a slow
	// writer holding an old snapshot can never clobber a newer one.
	writeMu        sync.Mutex
	lastWrittenSeq uint64

	autosaveStop chan struct{}
	autosaveDone chan struct{}
}

// NewManager builds a manager with no open session.
func NewManager(cfg *config.Config, prober probe.Prober, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		prober: prober,
		logger: logging.NewComponentLogger(logger, "manager"),
	}
}

// AttachCache routes probes through the cache and starts invalidating its
// entries when watched session files change.
func (m *Manager) AttachCache(cache *probe.Cache) {
	m.cache = cache
	m.prober = cache
}

// Session returns the open session, or nil. Callers must route mutations
// back through the manager.
func (m *Manager) Session() *session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// CreateSession makes a fresh session directory under the data root and
// opens it. The slug doubles as the directory name.
func (m *Manager) CreateSession(ctx context.Context, slug string) (*session.Session, error) {
	if err := session.ValidateSlug(slug); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != nil {
		return nil, fmt.Errorf("close session %s before opening another", m.sess.Slug)
	}

	dir := filepath.Join(m.cfg.Paths.DataRoot, slug)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, slug)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat session directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	lock, err := m.acquireLock(dir)
	if err != nil {
		return nil, err
	}

	sess := session.New(m.cfg.Paths.DataRoot, slug, dir)
	m.sess = sess
	m.extra = nil
	m.lock = lock
	if err := m.saveLocked(); err != nil {
		m.releaseLocked()
		return nil, err
	}
	m.startAutosaveLocked()
	m.startWatcherLocked()
	m.logger.Info("session created", logging.String("session", slug))
	return sess, nil
}

// ImportSession opens an existing session from disk. Persisted state that
// fails schema or consistency checks blocks the import entirely; a video
// without cached duration is re-probed, and a probe failure is treated as
// corruption rather than loading a half-known session.
func (m *Manager) ImportSession(ctx context.Context, slug string) (*session.Session, error) {
	if err := session.ValidateSlug(slug); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != nil {
		return nil, fmt.Errorf("close session %s before opening another", m.sess.Slug)
	}

	dir := filepath.Join(m.cfg.Paths.DataRoot, slug)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, slug)
	}

	lock, err := m.acquireLock(dir)
	if err != nil {
		return nil, err
	}

	sess, extra, err := m.loadSession(ctx, slug, dir)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	m.sess = sess
	m.extra = extra
	m.lock = lock
	if err := m.saveLocked(); err != nil {
		m.releaseLocked()
		return nil, err
	}
	m.startAutosaveLocked()
	m.startWatcherLocked()
	m.logger.Info("session imported",
		logging.String("session", slug),
		logging.Int("videos", len(sess.Videos)),
		logging.Int("annotations", sess.Annotations.Count()))
	return sess, nil
}

func (m *Manager) loadSession(ctx context.Context, slug, dir string) (*session.Session, map[string]json.RawMessage, error) {
	data, err := os.ReadFile(sessionFilePath(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read %s: %v", ErrCorruptSession, SessionFileName, err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, nil, err
	}
	if snap.Slug != slug {
		return nil, nil, fmt.Errorf("%w: snapshot slug %q does not match directory %q", ErrCorruptSession, snap.Slug, slug)
	}
	sess, err := snap.buildSession(m.cfg.Paths.DataRoot, dir)
	if err != nil {
		return nil, nil, err
	}

	for _, ref := range sess.Videos {
		if ref.DurationSeconds > 0 {
			continue
		}
		result, err := m.probeRef(ctx, sess, ref)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: video %s has no cached duration and probing failed: %v",
				ErrCorruptSession, ref.ID, err)
		}
		sess.UpdateVideoMetadata(ref.ID, result.DurationSeconds, result.FrameRate, result.Decodable)
	}

	sess.EnsureDefaultSources()
	return sess, snap.extra, nil
}

func (m *Manager) probeRef(ctx context.Context, sess *session.Session, ref session.VideoRef) (probe.Result, error) {
	if m.prober == nil {
		return probe.Result{}, errors.New("no prober configured")
	}
	target := ref.Source
	if ref.Origin == session.OriginLocal {
		target = filepath.Join(sess.Dir, ref.Filename)
	}
	return m.prober.Probe(ctx, target)
}

// ImportVideo adds one source to the open session. Local files are validated
// by extension, copied into the session directory under the next logical id,
// and probed; URLs are stored by reference. The first import becomes the
// default Time and Audio Source.
func (m *Manager) ImportVideo(ctx context.Context, source string) (session.VideoRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return session.VideoRef{}, ErrNoSession
	}

	id := session.NextVideoID(len(m.sess.Videos))
	ref := session.VideoRef{ID: id, Source: source}

	if session.IsURL(source) {
		if err := session.ValidateURLSource(source); err != nil {
			return session.VideoRef{}, err
		}
		ref.Origin = session.OriginURL
	} else {
		if err := session.ValidateLocalSource(source); err != nil {
			return session.VideoRef{}, err
		}
		ref.Origin = session.OriginLocal
		ref.Filename = id + session.SourceExt(source)
		dst := filepath.Join(m.sess.Dir, ref.Filename)
		if err := fileutil.CopyFileVerified(source, dst); err != nil {
			return session.VideoRef{}, fmt.Errorf("copy source into session: %w", err)
		}
	}

	result, err := m.probeRef(ctx, m.sess, ref)
	if err != nil {
		if ref.Origin == session.OriginLocal {
			_ = os.Remove(filepath.Join(m.sess.Dir, ref.Filename))
		}
		return session.VideoRef{}, err
	}
	ref.DurationSeconds = result.DurationSeconds
	ref.FrameRate = result.FrameRate
	ref.Decodable = result.Decodable

	m.sess.Videos = append(m.sess.Videos, ref)
	m.sess.EnsureDefaultSources()
	if err := m.saveLocked(); err != nil {
		return session.VideoRef{}, err
	}
	if m.watcher != nil && ref.Origin == session.OriginLocal {
		if err := m.watcher.Watch(filepath.Join(m.sess.Dir, ref.Filename)); err != nil {
			m.logger.Warn("watch imported video failed", logging.Error(err))
		}
	}
	m.logger.Info("video imported",
		logging.String("video", ref.ID),
		logging.Float64("duration", ref.DurationSeconds),
		logging.Bool("decodable", ref.Decodable))
	return ref, nil
}

// RefreshMetadata re-probes every source and updates the cached duration,
// frame rate, and decodability.
func (m *Manager) RefreshMetadata(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return ErrNoSession
	}
	for _, ref := range m.sess.Videos {
		result, err := m.probeRef(ctx, m.sess, ref)
		if err != nil {
			return err
		}
		m.sess.UpdateVideoMetadata(ref.ID, result.DurationSeconds, result.FrameRate, result.Decodable)
	}
	return m.saveLocked()
}

// SetTimeSource persists a new Time-Source selection.
func (m *Manager) SetTimeSource(id string) error {
	return m.setSource(id, func(norm string) { m.sess.TimeSourceID = norm })
}

// SetAudioSource persists a new Audio-Source selection.
func (m *Manager) SetAudioSource(id string) error {
	return m.setSource(id, func(norm string) { m.sess.AudioSourceID = norm })
}

func (m *Manager) setSource(id string, assign func(string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return ErrNoSession
	}
	norm := session.NormalizeID(id)
	if _, ok := m.sess.Video(norm); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVideo, id)
	}
	assign(norm)
	return m.saveLocked()
}

// SetVisible persists a new visible set, dropping unknown ids.
func (m *Manager) SetVisible(ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return ErrNoSession
	}
	m.sess.SetVisible(ids)
	m.sess.EnsureDefaultSources()
	return m.saveLocked()
}

// AddLabel appends a label and persists.
func (m *Manager) AddLabel(number int, name string) (annotations.Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return annotations.Label{}, ErrNoSession
	}
	label, err := m.sess.Annotations.AddLabel(number, name)
	if err != nil {
		return annotations.Label{}, err
	}
	return label, m.saveLocked()
}

// RenameLabel updates a label name and persists.
func (m *Manager) RenameLabel(number int, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return ErrNoSession
	}
	if err := m.sess.Annotations.RenameLabel(number, name); err != nil {
		return err
	}
	return m.saveLocked()
}

// DeleteLabel removes an unreferenced label and persists.
func (m *Manager) DeleteLabel(number int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return ErrNoSession
	}
	if err := m.sess.Annotations.DeleteLabel(number); err != nil {
		return err
	}
	return m.saveLocked()
}

// AddAnnotation validates and appends an annotation, stamping it with the
// session's current view and source selections, then persists.
func (m *Manager) AddAnnotation(labelNumber int, start, end float64, confidence int, notes string) (annotations.Annotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return annotations.Annotation{}, ErrNoSession
	}
	prov := annotations.Provenance{
		Views:       session.EncodeViews(m.sess.VisibleIDs),
		TimeSource:  m.sess.TimeSourceID,
		AudioSource: m.sess.AudioSourceID,
	}
	annotation, err := m.sess.Annotations.AddAnnotationWithProvenance(labelNumber, start, end, confidence, notes, prov)
	if err != nil {
		return annotations.Annotation{}, err
	}
	return annotation, m.saveLocked()
}

// EditAnnotation applies a validated edit and persists.
func (m *Manager) EditAnnotation(id string, edit annotations.Edit) (annotations.Annotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return annotations.Annotation{}, ErrNoSession
	}
	annotation, err := m.sess.Annotations.EditAnnotation(id, edit)
	if err != nil {
		return annotations.Annotation{}, err
	}
	return annotation, m.saveLocked()
}

// DeleteAnnotation removes an annotation and persists.
func (m *Manager) DeleteAnnotation(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return ErrNoSession
	}
	if err := m.sess.Annotations.DeleteAnnotation(id); err != nil {
		return err
	}
	return m.saveLocked()
}

// Save writes the current session state to disk.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return ErrNoSession
	}
	return m.saveLocked()
}

// saveLocked encodes a detached snapshot under the session lock and writes
// it. Callers hold m.mu.
func (m *Manager) saveLocked() error {
	m.saveSeq++
	snap := encodeSnapshot(m.sess, m.extra)
	snap.seq = m.saveSeq
	return m.persist(snap, m.sess.Dir)
}

func (m *Manager) persist(snap snapshot, dir string) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	// A snapshot taken before the last written one is stale state that a
	// concurrent mutation already superseded on disk.
	if snap.seq <= m.lastWrittenSeq {
		return nil
	}

	data, err := marshalSnapshot(snap)
	if err != nil {
		return err
	}
	if err := fileutil.AtomicWriteFile(sessionFilePath(dir), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", SessionFileName, err)
	}
	if err := fileutil.AtomicWriteFile(tsvFilePath(dir), exportTSV(snap), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", TSVFileName, err)
	}
	m.lastWrittenSeq = snap.seq
	return nil
}

// Close performs a final save, stops the autosave loop, and releases the
// directory lock. The manager can open another session afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil
	}
	m.stopAutosaveLocked()
	err := m.saveLocked()
	slug := m.sess.Slug
	m.releaseLocked()
	m.logger.Info("session closed", logging.String("session", slug))
	return err
}

func (m *Manager) releaseLocked() {
	if m.watcher != nil {
		_ = m.watcher.Close()
		m.watcher = nil
	}
	if m.lock != nil {
		_ = m.lock.Unlock()
		m.lock = nil
	}
	m.sess = nil
	m.extra = nil
}

func (m *Manager) acquireLock(dir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrSessionLocked, dir)
	}
	return lock, nil
}

func (m *Manager) startAutosaveLocked() {
	interval := time.Duration(m.cfg.Autosave.IntervalSeconds) * time.Second
	if interval <= 0 {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	m.autosaveStop = stop
	m.autosaveDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.mu.Lock()
				if m.sess == nil {
					m.mu.Unlock()
					return
				}
				m.saveSeq++
				snap := encodeSnapshot(m.sess, m.extra)
				snap.seq = m.saveSeq
				dir := m.sess.Dir
				m.mu.Unlock()
				if err := m.persist(snap, dir); err != nil {
					m.logger.Error("autosave failed", logging.Error(err))
				}
			}
		}
	}()
}

func (m *Manager) stopAutosaveLocked() {
	if m.autosaveStop == nil {
		return
	}
	close(m.autosaveStop)
	m.autosaveStop = nil
	done := m.autosaveDone
	m.autosaveDone = nil

	// The autosave goroutine may be blocked on m.mu; drop the lock while it
	// drains.
	m.mu.Unlock()
	<-done
	m.mu.Lock()
}

func (m *Manager) startWatcherLocked() {
	if m.cache == nil || m.watcher != nil {
		return
	}
	watcher, err := newSourceWatcher(m.cache, m.logger)
	if err != nil {
		m.logger.Warn("source watcher unavailable", logging.Error(err))
		return
	}
	m.watcher = watcher
	for _, ref := range m.sess.Videos {
		if ref.Origin != session.OriginLocal || ref.Filename == "" {
			continue
		}
		if err := watcher.Watch(filepath.Join(m.sess.Dir, ref.Filename)); err != nil {
			m.logger.Warn("watch session video failed",
				logging.String("video", ref.ID),
				logging.Error(err))
		}
	}
}

// SessionInfo describes one discoverable session under the data root.
type SessionInfo struct {
	Slug       string
	Path       string
	ModifiedAt time.Time
}

// ListSessions scans the data root for session directories, identified by a
// session.json or label.tsv inside.
func (m *Manager) ListSessions() ([]SessionInfo, error) {
	entries, err := os.ReadDir(m.cfg.Paths.DataRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data root: %w", err)
	}

	var out []SessionInfo
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		dir := filepath.Join(m.cfg.Paths.DataRoot, entry.Name())
		marker, err := os.Stat(sessionFilePath(dir))
		if err != nil {
			if marker, err = os.Stat(tsvFilePath(dir)); err != nil {
				continue
			}
		}
		out = append(out, SessionInfo{
			Slug:       entry.Name(),
			Path:       dir,
			ModifiedAt: marker.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}
