package stream

import (
	"context"
	"errors"
	"fmt"

	"annote/internal/session"
)

// ErrUnavailable marks a stream that cannot be decoded or has failed. The
// controller degrades such streams locally without affecting the session.
var ErrUnavailable = errors.New("stream unavailable")

// Handle is one playable stream. Seek may wait on the underlying decoder and
// honors context cancellation; every other method is immediate.
type Handle interface {
	ID() string
	// Duration returns the stream's own length in seconds, 0 when unknown.
	Duration() float64
	// Position returns the stream's current position on its internal clock.
	Position() float64
	Play()
	Pause()
	Seek(ctx context.Context, seconds float64) error
	Close() error
}

// Opener resolves a session VideoRef into a live Handle.
type Opener interface {
	Open(ctx context.Context, ref session.VideoRef) (Handle, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, ref session.VideoRef) (Handle, error)

func (f OpenerFunc) Open(ctx context.Context, ref session.VideoRef) (Handle, error) {
	return f(ctx, ref)
}

// NewClockOpener opens clock-backed handles from cached probe metadata. A ref
// flagged undecodable fails with ErrUnavailable so the controller can degrade
// that one stream.
func NewClockOpener() Opener {
	return OpenerFunc(func(_ context.Context, ref session.VideoRef) (Handle, error) {
		if !ref.Decodable {
			return nil, fmt.Errorf("%w: %s is not decodable", ErrUnavailable, ref.ID)
		}
		return NewClock(ref.ID, ref.DurationSeconds), nil
	})
}
