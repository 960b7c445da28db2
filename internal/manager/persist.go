package manager

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"annote/internal/annotations"
	"annote/internal/session"
)

const (
	// SessionFileName is the authoritative per-session snapshot.
	SessionFileName = "session.json"
	// TSVFileName is the row-per-annotation export written alongside the
	// snapshot on every save.
	TSVFileName = "label.tsv"

	lockFileName = ".annote.lock"

	snapshotVersion = 1
)

func sessionFilePath(dir string) string { return filepath.Join(dir, SessionFileName) }

func tsvFilePath(dir string) string { return filepath.Join(dir, TSVFileName) }

type videoJSON struct {
	ID              string  `json:"id"`
	Filename        string  `json:"filename,omitempty"`
	Origin          string  `json:"origin"`
	Source          string  `json:"source,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	FrameRate       float64 `json:"frame_rate"`
	Decodable       bool    `json:"decodable"`
}

type labelJSON struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

type annotationJSON struct {
	ID          string  `json:"id"`
	Label       int     `json:"label"`
	Start       float64 `json:"start_seconds"`
	End         float64 `json:"end_seconds"`
	Confidence  int     `json:"confidence"`
	Notes       string  `json:"notes,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
	Views       string  `json:"views,omitempty"`
	TimeSource  string  `json:"time_source,omitempty"`
	AudioSource string  `json:"audio_source,omitempty"`
}

// snapshot is the versioned on-disk session schema. Fields this version does
// not know about are captured in extra on load and re-emitted on save, so a
// newer tool's additions survive a round-trip through this one.
type snapshot struct {
	Version     int              `json:"version"`
	Slug        string           `json:"slug"`
	Videos      []videoJSON      `json:"videos"`
	TimeSource  string           `json:"time_source,omitempty"`
	AudioSource string           `json:"audio_source,omitempty"`
	Views       []string         `json:"views,omitempty"`
	Labels      []labelJSON      `json:"labels"`
	Annotations []annotationJSON `json:"annotations"`

	extra map[string]json.RawMessage

	// seq orders snapshots of one manager so delayed writes can be dropped.
	// Never serialized.
	seq uint64
}

// snapshotAlias strips the custom JSON methods for nested encoding.
type snapshotAlias snapshot

var snapshotKnownKeys = []string{
	"version", "slug", "videos", "time_source", "audio_source",
	"views", "labels", "annotations",
}

func (s *snapshot) UnmarshalJSON(data []byte) error {
	var alias snapshotAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range snapshotKnownKeys {
		delete(raw, key)
	}
	if len(raw) == 0 {
		raw = nil
	}
	alias.extra = raw
	*s = snapshot(alias)
	return nil
}

func (s snapshot) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(snapshotAlias(s))
	if err != nil {
		return nil, err
	}
	if len(s.extra) == 0 {
		return base, nil
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range s.extra {
		if _, known := merged[key]; !known {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// encodeSnapshot copies the live session into a detached snapshot. The copy
// shares nothing with the session, so it can be written while mutations
// continue.
func encodeSnapshot(sess *session.Session, extra map[string]json.RawMessage) snapshot {
	snap := snapshot{
		Version:     snapshotVersion,
		Slug:        sess.Slug,
		Videos:      make([]videoJSON, 0, len(sess.Videos)),
		TimeSource:  sess.TimeSourceID,
		AudioSource: sess.AudioSourceID,
		Labels:      []labelJSON{},
		Annotations: []annotationJSON{},
		extra:       extra,
	}
	for _, v := range sess.Videos {
		snap.Videos = append(snap.Videos, videoJSON{
			ID:              v.ID,
			Filename:        v.Filename,
			Origin:          string(v.Origin),
			Source:          v.Source,
			DurationSeconds: v.DurationSeconds,
			FrameRate:       v.FrameRate,
			Decodable:       v.Decodable,
		})
	}
	snap.Views = append(snap.Views, sess.VisibleIDs...)
	for _, label := range sess.Annotations.Labels() {
		snap.Labels = append(snap.Labels, labelJSON{Number: label.Number, Name: label.Name})
	}
	for _, a := range sess.Annotations.All() {
		encoded := annotationJSON{
			ID:          a.ID,
			Label:       a.LabelNumber,
			Start:       a.Start,
			End:         a.End,
			Confidence:  a.Confidence,
			Notes:       a.Notes,
			Views:       a.Views,
			TimeSource:  a.TimeSource,
			AudioSource: a.AudioSource,
		}
		if !a.CreatedAt.IsZero() {
			encoded.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		snap.Annotations = append(snap.Annotations, encoded)
	}
	return snap
}

func decodeSnapshot(data []byte) (snapshot, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return snapshot{}, fmt.Errorf("%w: parse %s: %w", ErrCorruptSession, SessionFileName, err)
	}
	return snap, nil
}

// buildSession validates the snapshot's internal consistency and constructs
// the live session. Any inconsistency fails the whole load; a partially
// valid session is never returned.
func (s snapshot) buildSession(rootDir, dir string) (*session.Session, error) {
	if s.Version < 1 || s.Version > snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrCorruptSession, s.Version)
	}
	if s.Slug == "" {
		return nil, fmt.Errorf("%w: missing slug", ErrCorruptSession)
	}

	sess := session.New(rootDir, s.Slug, dir)
	seen := map[string]struct{}{}
	for _, v := range s.Videos {
		id := session.NormalizeID(v.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: video with empty id", ErrCorruptSession)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate video id %s", ErrCorruptSession, id)
		}
		seen[id] = struct{}{}
		origin := session.Origin(v.Origin)
		if origin != session.OriginLocal && origin != session.OriginURL {
			return nil, fmt.Errorf("%w: video %s has unknown origin %q", ErrCorruptSession, id, v.Origin)
		}
		sess.Videos = append(sess.Videos, session.VideoRef{
			ID:              id,
			Filename:        v.Filename,
			Origin:          origin,
			Source:          v.Source,
			DurationSeconds: v.DurationSeconds,
			FrameRate:       v.FrameRate,
			Decodable:       v.Decodable,
		})
	}

	for _, id := range append([]string{s.TimeSource, s.AudioSource}, s.Views...) {
		if id == "" {
			continue
		}
		if _, ok := sess.Video(id); !ok {
			return nil, fmt.Errorf("%w: reference to unknown video %s", ErrCorruptSession, id)
		}
	}
	sess.TimeSourceID = session.NormalizeID(s.TimeSource)
	sess.AudioSourceID = session.NormalizeID(s.AudioSource)
	for _, id := range s.Views {
		sess.VisibleIDs = append(sess.VisibleIDs, session.NormalizeID(id))
	}

	labels := make([]annotations.Label, 0, len(s.Labels))
	for _, l := range s.Labels {
		labels = append(labels, annotations.Label{Number: l.Number, Name: l.Name})
	}
	restored := make([]annotations.Annotation, 0, len(s.Annotations))
	for _, a := range s.Annotations {
		entry := annotations.Annotation{
			ID:          a.ID,
			LabelNumber: a.Label,
			Start:       a.Start,
			End:         a.End,
			Confidence:  a.Confidence,
			Notes:       a.Notes,
			Views:       a.Views,
			TimeSource:  a.TimeSource,
			AudioSource: a.AudioSource,
		}
		if a.CreatedAt != "" {
			parsed, err := time.Parse(time.RFC3339Nano, a.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("%w: annotation %s has bad created_at: %v", ErrCorruptSession, a.ID, err)
			}
			entry.CreatedAt = parsed
		}
		restored = append(restored, entry)
	}
	if err := sess.Annotations.Restore(labels, restored); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSession, err)
	}

	return sess, nil
}

func marshalSnapshot(snap snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode session snapshot: %w", err)
	}
	return append(data, '\n'), nil
}
