// Package session defines the data model for an annotation session: the
// session identity, its imported video sources, and the source-selection
// state (Time Source, Audio Source, visible views).
//
// Session and VideoRef are plain data owned by the manager package, which is
// the only component with disk I/O. Labels and annotations live in the
// annotations package; playback state is ephemeral and lives in playback.
package session
