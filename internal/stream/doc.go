// Package stream wraps individually decodable media sources behind a small
// playback interface: seek-to-time and play/pause against the stream's own
// internal clock.
//
// The production handle advances a monotonic clock while playing; actual
// frame rendering belongs to the UI layer and is out of scope here. The
// playback controller drives handles exclusively and never shares them.
package stream
