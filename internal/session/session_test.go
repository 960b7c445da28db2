package session_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"annote/internal/session"
)

func TestEnsureDefaultSources(t *testing.T) {
	s := session.New("/root", "s1", "/root/s1")
	s.EnsureDefaultSources()
	if s.TimeSourceID != "" || s.AudioSourceID != "" || len(s.VisibleIDs) != 0 {
		t.Fatalf("empty session should have no sources: %#v", s)
	}

	s.Videos = []session.VideoRef{
		{ID: "video-1", Filename: "video-1.mp4", Origin: session.OriginLocal},
		{ID: "video-2", Filename: "video-2.mp4", Origin: session.OriginLocal},
	}
	s.EnsureDefaultSources()
	if s.TimeSourceID != "video-1" || s.AudioSourceID != "video-1" {
		t.Fatalf("expected first video as default sources: %#v", s)
	}
	if len(s.VisibleIDs) != 1 || s.VisibleIDs[0] != "video-1" {
		t.Fatalf("expected first video visible: %v", s.VisibleIDs)
	}

	// Stale selections are replaced.
	s.TimeSourceID = "video-9"
	s.EnsureDefaultSources()
	if s.TimeSourceID != "video-1" {
		t.Fatalf("stale time source should reset, got %s", s.TimeSourceID)
	}
}

func TestSetVisibleDropsUnknownAndDuplicates(t *testing.T) {
	s := session.New("/root", "s1", "/root/s1")
	s.Videos = []session.VideoRef{{ID: "video-1"}, {ID: "video-2"}}

	s.SetVisible([]string{"Video-2", "video-2", "video-9", ""})
	if len(s.VisibleIDs) != 1 || s.VisibleIDs[0] != "video-2" {
		t.Fatalf("unexpected visible set: %v", s.VisibleIDs)
	}

	// Emptying the set keeps at least one view.
	s.SetVisible(nil)
	if len(s.VisibleIDs) != 1 || s.VisibleIDs[0] != "video-1" {
		t.Fatalf("expected fallback to first video: %v", s.VisibleIDs)
	}
}

func TestUpdateVideoMetadata(t *testing.T) {
	s := session.New("/root", "s1", "/root/s1")
	s.Videos = []session.VideoRef{{ID: "video-1"}}

	if !s.UpdateVideoMetadata("VIDEO-1", 12.5, 24, true) {
		t.Fatal("expected update to find the video")
	}
	v, _ := s.Video("video-1")
	if v.DurationSeconds != 12.5 || v.FrameRate != 24 || !v.Decodable {
		t.Fatalf("metadata not applied: %#v", v)
	}
	if s.UpdateVideoMetadata("video-9", 1, 1, true) {
		t.Fatal("unknown video should not update")
	}
}

func TestEncodeDecodeViews(t *testing.T) {
	encoded := session.EncodeViews([]string{"Video-1", "video-2", "video-1", " "})
	if encoded != "video-1,video-2" {
		t.Fatalf("unexpected encoding: %q", encoded)
	}
	decoded := session.DecodeViews(encoded)
	if len(decoded) != 2 || decoded[0] != "video-1" || decoded[1] != "video-2" {
		t.Fatalf("unexpected decoding: %v", decoded)
	}
	if session.DecodeViews("  ") != nil {
		t.Fatal("blank input should decode to nil")
	}
}

func TestValidateSlug(t *testing.T) {
	for _, ok := range []string{"s1", "subject-01", "Trial_2.b"} {
		if err := session.ValidateSlug(ok); err != nil {
			t.Errorf("ValidateSlug(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "  ", "../escape", "has space", ".hidden"} {
		if err := session.ValidateSlug(bad); !errors.Is(err, session.ErrInvalidSlug) {
			t.Errorf("ValidateSlug(%q): expected ErrInvalidSlug, got %v", bad, err)
		}
	}
}

func TestValidateLocalSource(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(good, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := session.ValidateLocalSource(good); err != nil {
		t.Fatalf("ValidateLocalSource: %v", err)
	}

	bad := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(bad, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := session.ValidateLocalSource(bad); !errors.Is(err, session.ErrUnsupportedSource) {
		t.Fatalf("expected ErrUnsupportedSource for .txt, got %v", err)
	}
	if err := session.ValidateLocalSource(filepath.Join(dir, "absent.mp4")); !errors.Is(err, session.ErrUnsupportedSource) {
		t.Fatalf("expected ErrUnsupportedSource for missing file, got %v", err)
	}
	if err := session.ValidateLocalSource(dir); !errors.Is(err, session.ErrUnsupportedSource) {
		t.Fatalf("expected ErrUnsupportedSource for directory, got %v", err)
	}
}

func TestValidateURLSource(t *testing.T) {
	for _, ok := range []string{
		"https://example.com/clip.mp4",
		"https://example.com/stream.m3u8",
		"https://cdn.example.com/asset?id=42",
	} {
		if err := session.ValidateURLSource(ok); err != nil {
			t.Errorf("ValidateURLSource(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{
		"ftp://example.com/clip.mp4",
		"/local/path.mp4",
		"https://example.com/page.html",
	} {
		if err := session.ValidateURLSource(bad); !errors.Is(err, session.ErrUnsupportedSource) {
			t.Errorf("ValidateURLSource(%q): expected ErrUnsupportedSource, got %v", bad, err)
		}
	}
}

func TestNextVideoID(t *testing.T) {
	if got := session.NextVideoID(0); got != "video-1" {
		t.Fatalf("expected video-1, got %s", got)
	}
	if got := session.NextVideoID(2); got != "video-3" {
		t.Fatalf("expected video-3, got %s", got)
	}
}
