package manager

import "errors"

var (
	// ErrAlreadyExists is returned when creating a session whose slug is
	// already taken under the data root.
	ErrAlreadyExists = errors.New("session already exists")

	// ErrSessionNotFound is returned when importing a slug with no session
	// directory under the data root.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCorruptSession is returned when persisted state fails schema or
	// consistency checks. Imports fail closed; a partially valid session is
	// never loaded.
	ErrCorruptSession = errors.New("corrupt session state")

	// ErrSessionLocked is returned when another process holds the session
	// directory lock.
	ErrSessionLocked = errors.New("session locked by another process")

	// ErrNoSession is returned for operations that need an open session.
	ErrNoSession = errors.New("no session open")

	// ErrUnknownVideo is returned when a source selection or visibility
	// change names a video the session does not contain.
	ErrUnknownVideo = errors.New("unknown video id")
)
