// Package playback synchronizes multiple media streams against a single
// authoritative clock, the Time Source. While playing, a periodic tick
// corrects any visible stream that drifts beyond the configured tolerance;
// while paused, seeks are exact. Asynchronous seek completions are tagged
// with an epoch so a slow seek can never overwrite a newer one.
package playback
