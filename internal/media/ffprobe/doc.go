// Package ffprobe shells out to ffprobe and parses the JSON payload it emits.
//
// Inspect runs the binary with format and stream sections enabled and decodes
// the result into typed structs. Helper accessors surface the values the
// import pipeline cares about: container duration, video stream count, and
// frame rate (with rational "num/den" parsing).
package ffprobe
