package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"annote/internal/config"
	"annote/internal/logging"
	"annote/internal/session"
	"annote/internal/stream"
)

// State is the controller's playback state.
type State string

const (
	StateIdle    State = "idle"
	StateLoaded  State = "loaded"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateSeeking State = "seeking"
)

// TickStatus is the result of one synchronization tick.
type TickStatus struct {
	// Position is the Time-Source position in seconds.
	Position float64
	// EndReached reports that the Time Source hit its duration on this tick,
	// which pauses the session.
	EndReached bool
}

// streamState tracks one opened handle and its local health. A stream that
// fails decoding or seeking degrades to unavailable without touching the
// others; a stream shorter than the current position is out of range and
// rendered black, not errored.
type streamState struct {
	ref         session.VideoRef
	handle      stream.Handle
	unavailable bool
	outOfRange  bool
	correcting  bool
	cancelSeek  context.CancelFunc
}

// Controller keeps every visible stream within the drift tolerance of the
// Time Source while playing and performs exact seeks otherwise. All stream
// handles are owned exclusively by the controller; callers interact through
// commands only.
//
// Seeks run asynchronously and are tagged with a monotonically increasing
// epoch. Completions carrying a stale epoch are discarded so a slow seek can
// never clobber a newer one.
type Controller struct {
	logger *slog.Logger

	tickInterval   time.Duration
	driftTolerance time.Duration
	seekTimeout    time.Duration

	mu            sync.Mutex
	sess          *session.Session
	handles       map[string]*streamState
	timeSourceID  string
	audioSourceID string

	state       State
	resumeState State
	cursor      float64
	epoch       uint64
	pending     int

	seekWG sync.WaitGroup
}

// NewController builds an idle controller from playback configuration.
func NewController(cfg *config.Config, logger *slog.Logger) *Controller {
	return &Controller{
		logger:         logging.NewComponentLogger(logger, "playback"),
		tickInterval:   time.Duration(cfg.Playback.TickIntervalMS) * time.Millisecond,
		driftTolerance: time.Duration(cfg.Playback.DriftToleranceMS) * time.Millisecond,
		seekTimeout:    time.Duration(cfg.Playback.SeekTimeoutSeconds) * time.Second,
		handles:        map[string]*streamState{},
		state:          StateIdle,
		resumeState:    StatePaused,
	}
}

// Load opens a handle for every video in the session. Streams that fail to
// open degrade individually to unavailable and never block the rest; an
// unavailable Time Source surfaces later as ErrTimeSourceLost from Play.
func (c *Controller) Load(ctx context.Context, sess *session.Session, opener stream.Opener) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return fmt.Errorf("load: controller already holds a session (state %s)", c.state)
	}

	handles := make(map[string]*streamState, len(sess.Videos))
	for _, ref := range sess.Videos {
		st := &streamState{ref: ref}
		h, err := opener.Open(ctx, ref)
		if err != nil {
			st.unavailable = true
			c.logger.Warn("stream unavailable",
				logging.String("video", ref.ID),
				logging.Error(err))
		} else {
			st.handle = h
		}
		handles[session.NormalizeID(ref.ID)] = st
	}

	c.sess = sess
	c.handles = handles
	c.timeSourceID = session.NormalizeID(sess.TimeSourceID)
	c.audioSourceID = session.NormalizeID(sess.AudioSourceID)
	c.state = StateLoaded
	c.cursor = 0
	c.logger.Info("session loaded",
		logging.String("session", sess.Slug),
		logging.Int("streams", len(handles)))
	return nil
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Epoch returns the current seek epoch.
func (c *Controller) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Position returns the current Time-Source position in seconds. While playing
// it reads the Time-Source handle's clock; otherwise it reports the cursor,
// which a seek updates immediately regardless of in-flight handle seeks.
func (c *Controller) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *Controller) positionLocked() float64 {
	if c.state == StatePlaying {
		if ts := c.timeSourceLocked(); ts != nil {
			return ts.handle.Position()
		}
	}
	return c.cursor
}

// TimeSourceID returns the id of the authoritative clock stream.
func (c *Controller) TimeSourceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeSourceID
}

// AudioSourceID returns the id of the audible stream.
func (c *Controller) AudioSourceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audioSourceID
}

// StreamUnavailable reports whether the given stream has degraded.
func (c *Controller) StreamUnavailable(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.handles[session.NormalizeID(id)]
	return ok && st.unavailable
}

// StreamOutOfRange reports whether the given stream is shorter than the
// current position and therefore rendered black.
func (c *Controller) StreamOutOfRange(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.handles[session.NormalizeID(id)]
	return ok && st.outOfRange
}

func (c *Controller) timeSourceLocked() *streamState {
	st, ok := c.handles[c.timeSourceID]
	if !ok || st.unavailable || st.handle == nil {
		return nil
	}
	return st
}

// SelectTimeSource redesignates the authoritative clock. The id must be in
// the session's visible set. Stored annotation timestamps are untouched;
// switching sources only re-bases subsequent position reporting.
func (c *Controller) SelectTimeSource(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ErrNotLoaded
	}
	norm := session.NormalizeID(id)
	if !c.sess.IsVisible(norm) {
		return fmt.Errorf("%w: %s", ErrInvalidSource, id)
	}
	c.timeSourceID = norm
	c.sess.TimeSourceID = norm
	// Seeks issued against the old clock must never land on the new one.
	c.cancelSeeksLocked()
	c.logger.Info("time source selected", logging.String("video", norm))
	return nil
}

// cancelSeeksLocked supersedes every in-flight handle seek: the epoch moves
// on, the per-seek contexts are cancelled, and a seek that was still settling
// resolves to its resume state. Callers hold c.mu.
func (c *Controller) cancelSeeksLocked() {
	c.epoch++
	c.pending = 0
	for _, st := range c.handles {
		if st.cancelSeek != nil {
			st.cancelSeek()
			st.cancelSeek = nil
		}
	}
	if c.state == StateSeeking {
		c.settleLocked()
	}
}

// SelectAudioSource redesignates the audible stream. The id must be in the
// session's visible set.
func (c *Controller) SelectAudioSource(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ErrNotLoaded
	}
	norm := session.NormalizeID(id)
	if !c.sess.IsVisible(norm) {
		return fmt.Errorf("%w: %s", ErrInvalidSource, id)
	}
	c.audioSourceID = norm
	c.sess.AudioSourceID = norm
	c.logger.Info("audio source selected", logging.String("video", norm))
	return nil
}

// Play starts advancing all streams, driven by the Time-Source clock. It
// fails with ErrAtEnd when the cursor already sits at the Time-Source
// duration and with ErrTimeSourceLost when no authoritative clock exists.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateIdle:
		return ErrNotLoaded
	case StatePlaying:
		return nil
	}

	ts := c.timeSourceLocked()
	if ts == nil {
		return ErrTimeSourceLost
	}
	dur := ts.handle.Duration()
	if dur > 0 && c.positionLocked() >= dur {
		return fmt.Errorf("%w: position %.3fs", ErrAtEnd, c.positionLocked())
	}

	if c.state == StateSeeking {
		// Resume playing once the in-flight seeks settle.
		c.resumeState = StatePlaying
		return nil
	}
	c.playHandlesLocked()
	c.state = StatePlaying
	return nil
}

func (c *Controller) playHandlesLocked() {
	for _, st := range c.handles {
		if st.unavailable || st.handle == nil {
			continue
		}
		st.handle.Play()
	}
}

// Pause stops all streams without issuing any seeks.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateIdle:
		return ErrNotLoaded
	case StateSeeking:
		c.resumeState = StatePaused
		return nil
	case StatePlaying:
		c.cursor = c.positionLocked()
	}
	c.pauseHandlesLocked()
	c.state = StatePaused
	return nil
}

func (c *Controller) pauseHandlesLocked() {
	for _, st := range c.handles {
		if st.unavailable || st.handle == nil {
			continue
		}
		st.handle.Pause()
	}
}

// Seek moves every visible stream to the equivalent time, clamped to the
// Time-Source range. The cursor updates immediately; handle seeks run
// asynchronously under a fresh epoch, and completions from older epochs are
// dropped. Playback resumes in the state it held before the seek.
func (c *Controller) Seek(ctx context.Context, seconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		return ErrNotLoaded
	}
	resume := c.resumeState
	switch c.state {
	case StatePlaying:
		resume = StatePlaying
	case StateLoaded, StatePaused:
		resume = StatePaused
	}
	c.beginSeekLocked(seconds, resume)
	return nil
}

// Restart seeks every stream back to time zero and leaves the session
// paused.
func (c *Controller) Restart(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		return ErrNotLoaded
	}
	c.beginSeekLocked(0, StatePaused)
	return nil
}

func (c *Controller) beginSeekLocked(seconds float64, resume State) {
	if seconds < 0 {
		seconds = 0
	}
	if ts := c.timeSourceLocked(); ts != nil {
		if dur := ts.handle.Duration(); dur > 0 && seconds > dur {
			seconds = dur
		}
	}

	c.epoch++
	c.pending = 0
	c.cursor = seconds
	c.resumeState = resume
	c.state = StateSeeking
	c.pauseHandlesLocked()

	for id, st := range c.handles {
		if st.unavailable || st.handle == nil || !c.sess.IsVisible(id) {
			continue
		}
		target := seconds
		if dur := st.handle.Duration(); dur > 0 && seconds > dur {
			st.outOfRange = true
			target = dur
		} else {
			st.outOfRange = false
		}
		c.pending++
		c.issueSeek(st, target, c.epoch, false)
	}

	if c.pending == 0 {
		c.settleLocked()
	}
}

// issueSeek runs one handle seek on its own goroutine. The seek's context is
// cancelled when a newer seek for the same handle is issued, when the Time
// Source changes, or when the controller closes. Callers hold c.mu.
func (c *Controller) issueSeek(st *streamState, target float64, epoch uint64, corrective bool) {
	var ctx context.Context
	var cancel context.CancelFunc
	if c.seekTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), c.seekTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	if st.cancelSeek != nil {
		st.cancelSeek()
	}
	st.cancelSeek = cancel

	c.seekWG.Add(1)
	go func() {
		defer c.seekWG.Done()
		defer cancel()
		if c.seekSuperseded(epoch) {
			c.finishSeek(st, epoch, corrective, context.Canceled)
			return
		}
		err := st.handle.Seek(ctx, target)
		c.finishSeek(st, epoch, corrective, err)
	}()
}

func (c *Controller) seekSuperseded(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return epoch != c.epoch
}

func (c *Controller) finishSeek(st *streamState, epoch uint64, corrective bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if corrective {
		st.correcting = false
	}
	// A cancelled seek was superseded, not broken; only real decoder
	// failures (including timeouts) degrade the stream.
	if err != nil && !errors.Is(err, context.Canceled) {
		c.degradeLocked(st, err)
	}
	if epoch != c.epoch {
		// Stale completion from a superseded seek.
		return
	}
	if corrective {
		return
	}
	if c.pending > 0 {
		c.pending--
	}
	if c.pending == 0 && c.state == StateSeeking {
		c.settleLocked()
	}
}

func (c *Controller) settleLocked() {
	c.state = c.resumeState
	if c.state == StatePlaying {
		if c.timeSourceLocked() == nil {
			c.state = StatePaused
			return
		}
		c.playHandlesLocked()
	}
}

func (c *Controller) degradeLocked(st *streamState, err error) {
	if st.unavailable {
		return
	}
	st.unavailable = true
	if st.handle != nil {
		st.handle.Pause()
	}
	c.logger.Warn("stream degraded",
		logging.String("video", st.ref.ID),
		logging.Error(err))
}

// Tick reports the Time-Source position and corrects drifted streams. While
// playing, any visible stream whose clock differs from the Time Source by
// more than the drift tolerance gets one asynchronous corrective seek; a
// stream with a corrective seek already outstanding is left alone. Reaching
// the Time-Source duration pauses the session and reports EndReached.
func (c *Controller) Tick() (TickStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return TickStatus{Position: c.positionLocked()}, nil
	}

	ts := c.timeSourceLocked()
	if ts == nil {
		c.pauseHandlesLocked()
		c.state = StatePaused
		return TickStatus{Position: c.cursor}, ErrTimeSourceLost
	}

	pos := ts.handle.Position()
	dur := ts.handle.Duration()
	if dur > 0 && pos >= dur {
		c.cursor = dur
		c.pauseHandlesLocked()
		c.state = StatePaused
		c.logger.Info("end reached", logging.Float64("position", dur))
		return TickStatus{Position: dur, EndReached: true}, nil
	}

	tolerance := c.driftTolerance.Seconds()
	for id, st := range c.handles {
		if id == c.timeSourceID || st.unavailable || st.handle == nil {
			continue
		}
		if !c.sess.IsVisible(id) {
			continue
		}
		if dur := st.handle.Duration(); dur > 0 && pos > dur {
			st.outOfRange = true
			continue
		}
		st.outOfRange = false
		if st.correcting {
			continue
		}
		drift := st.handle.Position() - pos
		if drift < 0 {
			drift = -drift
		}
		if drift <= tolerance {
			continue
		}
		st.correcting = true
		c.logger.Debug("drift correction",
			logging.String("video", st.ref.ID),
			logging.Float64("drift_seconds", drift))
		c.issueSeek(st, pos, c.epoch, true)
	}

	return TickStatus{Position: pos}, nil
}

// Run drives Tick on the configured cadence until ctx is cancelled or the
// Time Source is lost.
func (c *Controller) Run(ctx context.Context) error {
	interval := c.tickInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.Tick(); err != nil {
				return err
			}
		}
	}
}

// WaitForSeeks blocks until every issued handle seek has completed. Stale
// completions are still discarded; this only drains the goroutines.
func (c *Controller) WaitForSeeks() {
	c.seekWG.Wait()
}

// Close cancels in-flight seeks, releases every handle, and returns the
// controller to Idle.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.epoch++
	c.pending = 0
	handles := c.handles
	for _, st := range handles {
		if st.cancelSeek != nil {
			st.cancelSeek()
			st.cancelSeek = nil
		}
	}
	c.handles = map[string]*streamState{}
	c.sess = nil
	c.state = StateIdle
	c.cursor = 0
	c.mu.Unlock()

	c.seekWG.Wait()
	var firstErr error
	for _, st := range handles {
		if st.handle == nil {
			continue
		}
		if err := st.handle.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
