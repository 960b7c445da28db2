package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"annote/internal/session"
)

func manualClock(t *testing.T, duration float64) (*Clock, *time.Time) {
	t.Helper()
	now := time.Unix(1000, 0)
	c := NewClock("video-1", duration)
	c.SetNow(func() time.Time { return now })
	return c, &now
}

func TestClockAdvancesOnlyWhilePlaying(t *testing.T) {
	c, now := manualClock(t, 10)

	if got := c.Position(); got != 0 {
		t.Fatalf("expected start at 0, got %v", got)
	}

	*now = now.Add(2 * time.Second)
	if got := c.Position(); got != 0 {
		t.Fatalf("paused clock must not advance, got %v", got)
	}

	c.Play()
	*now = now.Add(3 * time.Second)
	if got := c.Position(); got != 3 {
		t.Fatalf("expected 3s after playing, got %v", got)
	}

	c.Pause()
	*now = now.Add(5 * time.Second)
	if got := c.Position(); got != 3 {
		t.Fatalf("pause must freeze position, got %v", got)
	}
}

func TestClockClampsAtDuration(t *testing.T) {
	c, now := manualClock(t, 4)
	c.Play()
	*now = now.Add(10 * time.Second)
	if got := c.Position(); got != 4 {
		t.Fatalf("expected clamp at duration, got %v", got)
	}
}

func TestClockSeekClamps(t *testing.T) {
	c, _ := manualClock(t, 10)
	ctx := context.Background()

	if err := c.Seek(ctx, -5); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if got := c.Position(); got != 0 {
		t.Fatalf("negative seek should clamp to 0, got %v", got)
	}

	if err := c.Seek(ctx, 15); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if got := c.Position(); got != 10 {
		t.Fatalf("overlong seek should clamp to duration, got %v", got)
	}
}

func TestClockSeekHonorsContext(t *testing.T) {
	c, _ := manualClock(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Seek(ctx, 5); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestClockOpenerRejectsUndecodable(t *testing.T) {
	opener := NewClockOpener()
	ctx := context.Background()

	_, err := opener.Open(ctx, session.VideoRef{ID: "video-1", Decodable: false})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	h, err := opener.Open(ctx, session.VideoRef{ID: "video-2", Decodable: true, DurationSeconds: 8})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if h.Duration() != 8 {
		t.Fatalf("expected duration from ref, got %v", h.Duration())
	}
}
