package session

import (
	"fmt"
	"strings"

	"annote/internal/annotations"
)

// Origin distinguishes how a video source was imported.
type Origin string

const (
	OriginLocal Origin = "local"
	OriginURL   Origin = "url"
)

// VideoRef describes one imported video source. Immutable after import except
// for cached probe metadata refresh.
type VideoRef struct {
	// ID is the logical id used throughout the session: "video-1", "video-2", ...
	ID string
	// Filename is the stored filename inside the session directory.
	Filename string
	Origin   Origin
	// Source is the original local path or URL, kept for provenance.
	Source string
	// Cached probe metadata; zero when unknown.
	DurationSeconds float64
	FrameRate       float64
	Decodable       bool
}

// Session is the in-memory state for one loaded or created session. The
// manager package owns it exclusively and serializes all mutation.
type Session struct {
	Slug    string
	RootDir string
	Dir     string

	Videos []VideoRef

	TimeSourceID  string
	AudioSourceID string
	VisibleIDs    []string

	Annotations *annotations.Store
}

// New builds an empty session rooted at dir.
func New(rootDir, slug, dir string) *Session {
	return &Session{
		Slug:        slug,
		RootDir:     rootDir,
		Dir:         dir,
		Annotations: annotations.NewStore(),
	}
}

// NormalizeID canonicalizes a video id for comparison.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// NextVideoID returns the logical id for the next imported video.
func NextVideoID(existing int) string {
	return fmt.Sprintf("video-%d", existing+1)
}

// VideoIDs lists the session's video ids in import order.
func (s *Session) VideoIDs() []string {
	ids := make([]string, 0, len(s.Videos))
	for _, v := range s.Videos {
		ids = append(ids, v.ID)
	}
	return ids
}

// Video returns the VideoRef with the given id.
func (s *Session) Video(id string) (VideoRef, bool) {
	want := NormalizeID(id)
	for _, v := range s.Videos {
		if NormalizeID(v.ID) == want {
			return v, true
		}
	}
	return VideoRef{}, false
}

// UpdateVideoMetadata refreshes the cached probe metadata for a video.
func (s *Session) UpdateVideoMetadata(id string, duration, fps float64, decodable bool) bool {
	want := NormalizeID(id)
	for i := range s.Videos {
		if NormalizeID(s.Videos[i].ID) == want {
			s.Videos[i].DurationSeconds = duration
			s.Videos[i].FrameRate = fps
			s.Videos[i].Decodable = decodable
			return true
		}
	}
	return false
}

// IsVisible reports whether the video id is in the visible set.
func (s *Session) IsVisible(id string) bool {
	want := NormalizeID(id)
	for _, v := range s.VisibleIDs {
		if NormalizeID(v) == want {
			return true
		}
	}
	return false
}

// SetVisible replaces the visible set, dropping unknown ids and keeping at
// least one view when any videos exist.
func (s *Session) SetVisible(ids []string) {
	kept := make([]string, 0, len(ids))
	seen := map[string]struct{}{}
	for _, id := range ids {
		norm := NormalizeID(id)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		if _, ok := s.Video(norm); !ok {
			continue
		}
		seen[norm] = struct{}{}
		kept = append(kept, norm)
	}
	if len(kept) == 0 && len(s.Videos) > 0 {
		kept = []string{NormalizeID(s.Videos[0].ID)}
	}
	s.VisibleIDs = kept
}

// EnsureDefaultSources points the Time Source, Audio Source, and visible set
// at valid videos, defaulting to the first import when unset or stale.
func (s *Session) EnsureDefaultSources() {
	ids := s.VideoIDs()
	if len(ids) == 0 {
		s.TimeSourceID = ""
		s.AudioSourceID = ""
		s.VisibleIDs = nil
		return
	}

	if len(s.VisibleIDs) == 0 {
		s.VisibleIDs = []string{NormalizeID(ids[0])}
	}
	if _, ok := s.Video(s.TimeSourceID); s.TimeSourceID == "" || !ok {
		s.TimeSourceID = NormalizeID(ids[0])
	}
	if _, ok := s.Video(s.AudioSourceID); s.AudioSourceID == "" || !ok {
		s.AudioSourceID = NormalizeID(ids[0])
	}
}

// TimeSource returns the VideoRef currently designated as the authoritative
// clock, if any.
func (s *Session) TimeSource() (VideoRef, bool) {
	if s.TimeSourceID == "" {
		return VideoRef{}, false
	}
	return s.Video(s.TimeSourceID)
}

// EncodeViews renders the visible set as the comma-joined form stored on
// annotations and in TSV exports, deduplicated and normalized.
func EncodeViews(ids []string) string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		norm := NormalizeID(id)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return strings.Join(out, ",")
}

// DecodeViews parses the comma-joined visible-set form.
func DecodeViews(encoded string) []string {
	if strings.TrimSpace(encoded) == "" {
		return nil
	}
	parts := strings.Split(encoded, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if norm := NormalizeID(p); norm != "" {
			out = append(out, norm)
		}
	}
	return out
}
