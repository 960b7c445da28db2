// Package timeutil converts between seconds, frames, and display strings for
// annotation timestamps.
package timeutil

import (
	"fmt"
	"math"
	"time"
)

// DefaultFPS is assumed when a stream's frame rate is unknown.
const DefaultFPS = 30.0

// FormatSeconds renders a position as mm:ss for display and TSV export.
func FormatSeconds(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	total := int(math.Round(sec))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// SecondsToFrames derives a frame index from a timestamp at the given rate.
func SecondsToFrames(seconds, fps float64) int {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if seconds < 0 {
		seconds = 0
	}
	return int(math.Round(seconds * fps))
}

// FramesToSeconds derives a timestamp from a frame index at the given rate.
func FramesToSeconds(frames int, fps float64) float64 {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if frames < 0 {
		frames = 0
	}
	return float64(frames) / fps
}

// SecondsToDuration converts a fractional-second position to a time.Duration.
func SecondsToDuration(sec float64) time.Duration {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	return time.Duration(sec * float64(time.Second))
}

// DurationToSeconds converts a time.Duration to fractional seconds.
func DurationToSeconds(d time.Duration) float64 {
	return d.Seconds()
}

// Clamp bounds value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
