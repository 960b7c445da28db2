package stream

import (
	"context"
	"sync"
	"time"
)

// Clock is a Handle whose position advances with wall time while playing.
// It stands in for a real decoder clock: positions clamp at the stream
// duration and seeks complete immediately.
type Clock struct {
	mu       sync.Mutex
	id       string
	duration float64
	base     float64
	playing  bool
	since    time.Time
	closed   bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewClock builds a paused clock handle at position zero.
func NewClock(id string, duration float64) *Clock {
	if duration < 0 {
		duration = 0
	}
	return &Clock{id: id, duration: duration, now: time.Now}
}

func (c *Clock) ID() string {
	return c.id
}

func (c *Clock) Duration() float64 {
	return c.duration
}

func (c *Clock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *Clock) positionLocked() float64 {
	pos := c.base
	if c.playing {
		pos += c.now().Sub(c.since).Seconds()
	}
	if c.duration > 0 && pos > c.duration {
		pos = c.duration
	}
	if pos < 0 {
		pos = 0
	}
	return pos
}

func (c *Clock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.playing {
		return
	}
	c.base = c.positionLocked()
	c.since = c.now()
	c.playing = true
}

func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return
	}
	c.base = c.positionLocked()
	c.playing = false
}

func (c *Clock) Seek(ctx context.Context, seconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if c.duration > 0 && seconds > c.duration {
		seconds = c.duration
	}
	c.base = seconds
	c.since = c.now()
	return nil
}

func (c *Clock) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
	c.closed = true
	return nil
}

// SetNow replaces the clock's time source. Test hook.
func (c *Clock) SetNow(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
