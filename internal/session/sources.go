package session

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidSlug marks session identifiers that cannot name a directory.
var ErrInvalidSlug = errors.New("invalid session slug")

// ErrUnsupportedSource marks import candidates with disallowed extensions or
// malformed URLs.
var ErrUnsupportedSource = errors.New("unsupported source")

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// allowedVideoExts are the container extensions accepted for local imports.
var allowedVideoExts = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".mkv": {}, ".avi": {}, ".m4v": {}, ".webm": {},
}

// ValidateSlug checks that a session label is usable as a stable directory name.
func ValidateSlug(slug string) error {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSlug)
	}
	if !slugPattern.MatchString(trimmed) {
		return fmt.Errorf("%w: %q (use letters, digits, dot, dash, underscore)", ErrInvalidSlug, slug)
	}
	return nil
}

// SourceExt extracts the lowercase extension of a path or URL, ignoring query
// strings and fragments.
func SourceExt(ref string) string {
	base := strings.TrimSpace(ref)
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	return strings.ToLower(filepath.Ext(base))
}

// IsURL reports whether the reference looks like an http(s) URL.
func IsURL(ref string) bool {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// ValidateLocalSource checks that a local path exists and carries an accepted
// video extension.
func ValidateLocalSource(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: no file given", ErrUnsupportedSource)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsupportedSource, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrUnsupportedSource, path)
	}
	ext := SourceExt(path)
	if _, ok := allowedVideoExts[ext]; !ok {
		return fmt.Errorf("%w: extension %q not accepted", ErrUnsupportedSource, ext)
	}
	return nil
}

// ValidateURLSource checks URL shape and extension. CDN URLs without an
// extension are allowed; playlists (.m3u8) are accepted in addition to the
// local container set.
func ValidateURLSource(ref string) error {
	if !IsURL(ref) {
		return fmt.Errorf("%w: not an http(s) url: %q", ErrUnsupportedSource, ref)
	}
	ext := SourceExt(ref)
	if ext == "" || ext == ".m3u8" {
		return nil
	}
	if _, ok := allowedVideoExts[ext]; !ok {
		return fmt.Errorf("%w: url extension %q not accepted", ErrUnsupportedSource, ext)
	}
	return nil
}
