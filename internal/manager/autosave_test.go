package manager

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"annote/internal/logging"
	"annote/internal/probe"
	"annote/internal/testsupport"
)

type fixedProber struct{ result probe.Result }

func (p fixedProber) Probe(context.Context, string) (probe.Result, error) {
	return p.result, nil
}

// A writer that snapshotted state, then lost the race to a mutation's save,
// must not put its older snapshot on disk afterwards.
func TestDelayedSnapshotNeverOverwritesNewerWrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	m := NewManager(cfg, fixedProber{}, logging.NewNop())
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "s1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	defer m.Close()

	// Take a snapshot exactly as the interval autosave does, but stall before
	// writing it.
	m.mu.Lock()
	m.saveSeq++
	stale := encodeSnapshot(m.sess, m.extra)
	stale.seq = m.saveSeq
	dir := m.sess.Dir
	m.mu.Unlock()

	// A mutation lands and its save reaches disk first.
	if _, err := m.AddLabel(1, "Blink"); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}

	// The stalled writer resumes with pre-mutation state.
	if err := m.persist(stale, dir); err != nil {
		t.Fatalf("persist: %v", err)
	}

	data, err := os.ReadFile(sessionFilePath(dir))
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Labels []labelJSON `json:"labels"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Labels) != 1 || decoded.Labels[0].Name != "Blink" {
		t.Fatalf("delayed snapshot overwrote the newer save: %+v", decoded.Labels)
	}
}

func TestSaveSequenceAdvancesPerWrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	m := NewManager(cfg, fixedProber{}, logging.NewNop())
	ctx := context.Background()

	if _, err := m.CreateSession(ctx, "s1"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	defer m.Close()

	m.mu.Lock()
	afterCreate := m.saveSeq
	m.mu.Unlock()
	if afterCreate == 0 {
		t.Fatal("creating a session should have written sequence 1")
	}

	if _, err := m.AddLabel(1, "Blink"); err != nil {
		t.Fatalf("AddLabel: %v", err)
	}

	m.mu.Lock()
	afterMutation := m.saveSeq
	m.mu.Unlock()
	m.writeMu.Lock()
	written := m.lastWrittenSeq
	m.writeMu.Unlock()

	if afterMutation <= afterCreate {
		t.Fatalf("mutation should advance the sequence: %d -> %d", afterCreate, afterMutation)
	}
	if written != afterMutation {
		t.Fatalf("last write should carry the newest sequence: wrote %d, newest %d", written, afterMutation)
	}
}
