package annotations

import "fmt"

// Phase tracks the label-marking workflow for one label. Each label advances
// independently of the others.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhaseStartConfirmed
	PhaseEnding
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseStartConfirmed:
		return "start-confirmed"
	case PhaseEnding:
		return "ending"
	default:
		return "unknown"
	}
}

type pendingMark struct {
	phase Phase
	start float64
	end   float64
	prov  Provenance
}

// Workflow drives the per-label marking state machine over a Store. Nothing
// touches the store until ConfirmEnd; aborting at any phase leaves no trace.
type Workflow struct {
	store   *Store
	pending map[int]*pendingMark
}

// NewWorkflow builds a workflow bound to the given store.
func NewWorkflow(store *Store) *Workflow {
	return &Workflow{store: store, pending: make(map[int]*pendingMark)}
}

// Start captures the current cursor position as a provisional start for the
// label, along with the capture context.
func (w *Workflow) Start(labelNumber int, position float64, prov Provenance) error {
	if _, ok := w.store.Label(labelNumber); !ok {
		return fmt.Errorf("%w: label %d", ErrNotFound, labelNumber)
	}
	if mark, active := w.pending[labelNumber]; active && mark.phase != PhaseIdle {
		return fmt.Errorf("%w: label %d already %s", ErrMarkingState, labelNumber, mark.phase)
	}
	if position < 0 {
		position = 0
	}
	w.pending[labelNumber] = &pendingMark{phase: PhaseStarting, start: position, prov: prov}
	return nil
}

// ConfirmStart commits the provisional start. Still nothing is stored.
func (w *Workflow) ConfirmStart(labelNumber int) error {
	mark, ok := w.pending[labelNumber]
	if !ok || mark.phase != PhaseStarting {
		return fmt.Errorf("%w: label %d has no provisional start", ErrMarkingState, labelNumber)
	}
	mark.phase = PhaseStartConfirmed
	return nil
}

// End captures the provisional end position.
func (w *Workflow) End(labelNumber int, position float64) error {
	mark, ok := w.pending[labelNumber]
	if !ok || mark.phase != PhaseStartConfirmed {
		return fmt.Errorf("%w: label %d start not confirmed", ErrMarkingState, labelNumber)
	}
	mark.end = position
	mark.phase = PhaseEnding
	return nil
}

// ConfirmEnd validates the interval, attaches confidence and notes, appends
// the annotation, and returns the workflow to idle for this label.
func (w *Workflow) ConfirmEnd(labelNumber int, confidence int, notes string) (Annotation, error) {
	mark, ok := w.pending[labelNumber]
	if !ok || mark.phase != PhaseEnding {
		return Annotation{}, fmt.Errorf("%w: label %d has no provisional end", ErrMarkingState, labelNumber)
	}
	annotation, err := w.store.AddAnnotationWithProvenance(labelNumber, mark.start, mark.end, confidence, notes, mark.prov)
	if err != nil {
		// Leave the pending mark so the user can re-capture the end.
		return Annotation{}, err
	}
	delete(w.pending, labelNumber)
	return annotation, nil
}

// Abort cancels the workflow for a label with no side effects.
func (w *Workflow) Abort(labelNumber int) {
	delete(w.pending, labelNumber)
}

// AbortAll cancels every in-flight mark, used when a session closes.
func (w *Workflow) AbortAll() {
	clear(w.pending)
}

// Phase reports the current phase for a label.
func (w *Workflow) Phase(labelNumber int) Phase {
	if mark, ok := w.pending[labelNumber]; ok {
		return mark.phase
	}
	return PhaseIdle
}

// Provisional returns the in-flight start/end for a label, when any.
func (w *Workflow) Provisional(labelNumber int) (start, end float64, ok bool) {
	mark, found := w.pending[labelNumber]
	if !found {
		return 0, 0, false
	}
	return mark.start, mark.end, true
}
