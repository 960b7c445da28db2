package manager_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"annote/internal/annotations"
	"annote/internal/config"
	"annote/internal/logging"
	"annote/internal/manager"
	"annote/internal/probe"
	"annote/internal/testsupport"
)

type stubProber struct {
	result probe.Result
	err    error
}

func (p stubProber) Probe(_ context.Context, _ string) (probe.Result, error) {
	return p.result, p.err
}

func decodableProber() stubProber {
	return stubProber{result: probe.Result{DurationSeconds: 12, FrameRate: 30, Decodable: true}}
}

func newManager(t *testing.T) (*manager.Manager, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	m := manager.NewManager(cfg, decodableProber(), logging.NewNop())
	t.Cleanup(func() { _ = m.Close() })
	return m, cfg
}

func sessionFile(cfg *config.Config, slug string) string {
	return filepath.Join(cfg.Paths.DataRoot, slug, manager.SessionFileName)
}

func TestCreateSessionRejectsDuplicateSlug(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "s1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.CreateSession(ctx, "s1"); !errors.Is(err, manager.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateSaveImportRoundTrip(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "s1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	source := filepath.Join(t.TempDir(), "cam.mp4")
	if err := os.WriteFile(source, []byte("fake video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	ref, err := m.ImportVideo(ctx, source)
	if err != nil {
		t.Fatalf("ImportVideo: %v", err)
	}
	if ref.ID != "video-1" || ref.Filename != "video-1.mp4" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if _, err := os.Stat(filepath.Join(sess.Dir, "video-1.mp4")); err != nil {
		t.Fatalf("imported file missing: %v", err)
	}
	if sess.TimeSourceID != "video-1" || sess.AudioSourceID != "video-1" {
		t.Fatalf("first import should become default sources: %+v", sess)
	}

	if _, err := m.AddLabel(1, "Blink"); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	added, err := m.AddAnnotation(1, 2.0, 3.5, 9, "test")
	if err != nil {
		t.Fatalf("AddAnnotation: %v", err)
	}
	if added.TimeSource != "video-1" || added.Views != "video-1" {
		t.Fatalf("annotation should capture provenance: %+v", added)
	}

	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := m.ImportSession(ctx, "s1")
	if err != nil {
		t.Fatalf("ImportSession: %v", err)
	}
	if reopened.Slug != "s1" {
		t.Fatalf("unexpected slug %s", reopened.Slug)
	}
	if len(reopened.Videos) != 1 || reopened.Videos[0].ID != "video-1" {
		t.Fatalf("videos did not round-trip: %+v", reopened.Videos)
	}
	if reopened.TimeSourceID != sess.TimeSourceID || reopened.AudioSourceID != sess.AudioSourceID {
		t.Fatalf("source selections did not round-trip")
	}
	labels := reopened.Annotations.Labels()
	if len(labels) != 1 || labels[0].Number != 1 || labels[0].Name != "Blink" {
		t.Fatalf("labels did not round-trip: %+v", labels)
	}
	got, ok := reopened.Annotations.Get(added.ID)
	if !ok {
		t.Fatalf("annotation %s missing after reopen", added.ID)
	}
	if got.LabelNumber != 1 || got.Start != 2.0 || got.End != 3.5 || got.Confidence != 9 || got.Notes != "test" {
		t.Fatalf("annotation did not round-trip: %+v", got)
	}
	if !got.CreatedAt.Equal(added.CreatedAt) {
		t.Fatalf("created_at did not round-trip: %v vs %v", got.CreatedAt, added.CreatedAt)
	}
}

func TestAutosaveIdempotence(t *testing.T) {
	m, cfg := newManager(t)
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "s1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := m.AddLabel(1, "Blink"); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	if _, err := m.AddAnnotation(1, 1, 2, 5, "note"); err != nil {
		t.Fatalf("AddAnnotation: %v", err)
	}

	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	first, err := os.ReadFile(sessionFile(cfg, "s1"))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, err := os.ReadFile(sessionFile(cfg, "s1"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("consecutive saves with no mutation should be byte-identical")
	}
}

func TestImportSessionFailsClosedOnCorruption(t *testing.T) {
	m, cfg := newManager(t)
	ctx := context.Background()

	cases := map[string]string{
		"not json":         `{"version": 1,`,
		"unknown label":    `{"version":1,"slug":"s1","videos":[],"labels":[],"annotations":[{"id":"a","label":7,"start_seconds":0,"end_seconds":1,"confidence":5}]}`,
		"duplicate labels": `{"version":1,"slug":"s1","videos":[],"labels":[{"number":1,"name":"A"},{"number":1,"name":"B"}],"annotations":[]}`,
		"bad version":      `{"version":99,"slug":"s1","videos":[],"labels":[],"annotations":[]}`,
		"unknown source":   `{"version":1,"slug":"s1","videos":[],"time_source":"video-9","labels":[],"annotations":[]}`,
		"slug mismatch":    `{"version":1,"slug":"other","videos":[],"labels":[],"annotations":[]}`,
	}

	dir := filepath.Join(cfg.Paths.DataRoot, "s1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, payload := range cases {
		if err := os.WriteFile(sessionFile(cfg, "s1"), []byte(payload), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := m.ImportSession(ctx, "s1"); !errors.Is(err, manager.ErrCorruptSession) {
			t.Errorf("%s: expected ErrCorruptSession, got %v", name, err)
		}
	}
}

func TestImportSessionProbesDurationlessVideos(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	dir := filepath.Join(cfg.Paths.DataRoot, "s1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "video-1.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	payload := `{"version":1,"slug":"s1","videos":[{"id":"video-1","filename":"video-1.mp4","origin":"local","duration_seconds":0,"frame_rate":0,"decodable":false}],"labels":[],"annotations":[]}`
	if err := os.WriteFile(filepath.Join(dir, manager.SessionFileName), []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	m := manager.NewManager(cfg, decodableProber(), logging.NewNop())
	sess, err := m.ImportSession(ctx, "s1")
	if err != nil {
		t.Fatalf("ImportSession: %v", err)
	}
	defer m.Close()
	v, _ := sess.Video("video-1")
	if v.DurationSeconds != 12 || !v.Decodable {
		t.Fatalf("expected refreshed metadata, got %+v", v)
	}

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, manager.SessionFileName), []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	failing := manager.NewManager(cfg, stubProber{err: probe.ErrProbe}, logging.NewNop())
	if _, err := failing.ImportSession(ctx, "s1"); !errors.Is(err, manager.ErrCorruptSession) {
		t.Fatalf("probe failure on duration-less video should be corrupt, got %v", err)
	}
}

func TestUnknownSnapshotFieldsSurviveRoundTrip(t *testing.T) {
	m, cfg := newManager(t)
	ctx := context.Background()

	dir := filepath.Join(cfg.Paths.DataRoot, "s1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	payload := `{"version":1,"slug":"s1","videos":[],"labels":[],"annotations":[],"reviewer_state":{"passes":2}}`
	if err := os.WriteFile(sessionFile(cfg, "s1"), []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := m.ImportSession(ctx, "s1"); err != nil {
		t.Fatalf("ImportSession: %v", err)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(sessionFile(cfg, "s1"))
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	raw, ok := decoded["reviewer_state"]
	if !ok {
		t.Fatal("unknown field dropped on round-trip")
	}
	if string(raw) != `{"passes":2}` {
		t.Fatalf("unknown field mangled: %s", raw)
	}
}

func TestTSVExportWrittenOnSave(t *testing.T) {
	m, cfg := newManager(t)
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "s1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	source := filepath.Join(t.TempDir(), "cam.mp4")
	if err := os.WriteFile(source, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ImportVideo(ctx, source); err != nil {
		t.Fatalf("ImportVideo: %v", err)
	}
	if _, err := m.AddLabel(2, "Reach"); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}
	if _, err := m.AddAnnotation(2, 1.0, 2.0, 7, "tab\there\nand newline"); err != nil {
		t.Fatalf("AddAnnotation: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Paths.DataRoot, "s1", manager.TSVFileName))
	if err != nil {
		t.Fatalf("label.tsv missing: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "label\tcamid\tstep_no\tstep_name\tstart_frame") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	fields := strings.Split(lines[1], "\t")
	if len(fields) != 14 {
		t.Fatalf("expected 14 columns, got %d: %q", len(fields), lines[1])
	}
	if fields[0] != "s1" || fields[2] != "2" || fields[3] != "Reach" {
		t.Fatalf("unexpected identity columns: %v", fields[:4])
	}
	// 30 fps from the stub prober.
	if fields[4] != "30" || fields[5] != "60" || fields[6] != "30" {
		t.Fatalf("unexpected frame columns: %v", fields[4:7])
	}
	if fields[7] != "1.000" || fields[8] != "2.000" || fields[9] != "1.000" {
		t.Fatalf("unexpected time columns: %v", fields[7:10])
	}
	if fields[13] != `tab here\nand newline` {
		t.Fatalf("notes not escaped: %q", fields[13])
	}
}

func TestDeleteLabelInUseSurfacesAndDoesNotPersist(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	sess, err := m.CreateSession(ctx, "s1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := m.AddLabel(1, "Blink"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddAnnotation(1, 0, 1, 5, ""); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteLabel(1); !errors.Is(err, annotations.ErrLabelInUse) {
		t.Fatalf("expected ErrLabelInUse, got %v", err)
	}
	if _, ok := sess.Annotations.Label(1); !ok {
		t.Fatal("rejected delete must leave the label in place")
	}
}

func TestSecondProcessCannotCoEdit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first := manager.NewManager(cfg, decodableProber(), logging.NewNop())
	if _, err := first.CreateSession(ctx, "s1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	defer first.Close()

	second := manager.NewManager(cfg, decodableProber(), logging.NewNop())
	if _, err := second.ImportSession(ctx, "s1"); !errors.Is(err, manager.ErrSessionLocked) {
		t.Fatalf("expected ErrSessionLocked, got %v", err)
	}
}

func TestListSessions(t *testing.T) {
	m, cfg := newManager(t)
	ctx := context.Background()

	for _, slug := range []string{"b-session", "a-session"} {
		if _, err := m.CreateSession(ctx, slug); err != nil {
			t.Fatalf("CreateSession(%s): %v", slug, err)
		}
		if err := m.Close(); err != nil {
			t.Fatal(err)
		}
	}
	// A bare directory without session files is not a session.
	if err := os.MkdirAll(filepath.Join(cfg.Paths.DataRoot, "scratch"), 0o755); err != nil {
		t.Fatal(err)
	}

	infos, err := m.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(infos) != 2 || infos[0].Slug != "a-session" || infos[1].Slug != "b-session" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}

func TestImportVideoRejectsUnsupportedSource(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "s1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	notes := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(notes, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ImportVideo(ctx, notes); err == nil {
		t.Fatal("expected rejection for .txt source")
	}
}
