package playback

import "errors"

var (
	// ErrInvalidSource is returned when a time or audio source selection
	// names a video outside the session's visible set.
	ErrInvalidSource = errors.New("source not in visible set")

	// ErrAtEnd is returned by Play when the cursor already sits at the end
	// of the Time Source.
	ErrAtEnd = errors.New("playback at end of time source")

	// ErrTimeSourceLost is returned when the Time Source stream is
	// unavailable. There is no authoritative clock without it, so playback
	// stops and the failure is reported rather than retried.
	ErrTimeSourceLost = errors.New("time source unavailable")

	// ErrNotLoaded is returned for playback commands issued before Load.
	ErrNotLoaded = errors.New("no session loaded")
)
