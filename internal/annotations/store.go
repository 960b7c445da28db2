package annotations

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"annote/internal/colors"
)

const (
	// DefaultConfidence is assigned when the caller passes zero.
	DefaultConfidence = 5
	minConfidence     = 1
	maxConfidence     = 10
)

// Label is an append-only (number, name) pair. The display color is derived
// from the number and never stored.
type Label struct {
	Number int
	Name   string
}

// Color returns the stable display color for this label.
func (l Label) Color() string {
	return colors.ForLabel(l.Number)
}

// Annotation is one labeled time interval. Times are seconds on the session's
// Time-Source clock, fixed at creation.
type Annotation struct {
	ID          string
	LabelNumber int
	Start       float64
	End         float64
	Confidence  int
	Notes       string
	CreatedAt   time.Time

	// Provenance captured at creation time.
	Views       string
	TimeSource  string
	AudioSource string
}

// Duration returns the interval length in seconds.
func (a Annotation) Duration() float64 {
	return a.End - a.Start
}

// Store is the in-memory collection of labels and annotations for one session.
type Store struct {
	labels      map[int]Label
	annotations []Annotation
	index       map[string]int
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{
		labels: make(map[int]Label),
		index:  make(map[string]int),
	}
}

// AddLabel appends a new label. The number must be positive and unused.
func (s *Store) AddLabel(number int, name string) (Label, error) {
	if number < 1 {
		return Label{}, fmt.Errorf("%w: label number must be positive, got %d", ErrDuplicateLabel, number)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Label{}, fmt.Errorf("%w: label %d needs a name", ErrDuplicateLabel, number)
	}
	if existing, ok := s.labels[number]; ok {
		return Label{}, fmt.Errorf("%w: number %d already used by %q", ErrDuplicateLabel, number, existing.Name)
	}
	label := Label{Number: number, Name: name}
	s.labels[number] = label
	return label, nil
}

// RenameLabel updates a label's display name. Annotations are unaffected
// because they reference labels by number only.
func (s *Store) RenameLabel(number int, name string) error {
	label, ok := s.labels[number]
	if !ok {
		return fmt.Errorf("%w: label %d", ErrNotFound, number)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: label %d needs a name", ErrNotFound, number)
	}
	label.Name = name
	s.labels[number] = label
	return nil
}

// DeleteLabel removes a label that no annotation references.
func (s *Store) DeleteLabel(number int) error {
	if _, ok := s.labels[number]; !ok {
		return fmt.Errorf("%w: label %d", ErrNotFound, number)
	}
	for _, a := range s.annotations {
		if a.LabelNumber == number {
			return fmt.Errorf("%w: label %d has annotations", ErrLabelInUse, number)
		}
	}
	delete(s.labels, number)
	return nil
}

// Label returns the label with the given number.
func (s *Store) Label(number int) (Label, bool) {
	label, ok := s.labels[number]
	return label, ok
}

// Labels lists all labels ordered by number.
func (s *Store) Labels() []Label {
	out := make([]Label, 0, len(s.labels))
	for _, label := range s.labels {
		out = append(out, label)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// AddAnnotation validates and appends a new annotation, returning it with a
// generated id.
func (s *Store) AddAnnotation(labelNumber int, start, end float64, confidence int, notes string) (Annotation, error) {
	return s.AddAnnotationWithProvenance(labelNumber, start, end, confidence, notes, Provenance{})
}

// Provenance records the source selections active when an annotation was made.
type Provenance struct {
	Views       string
	TimeSource  string
	AudioSource string
}

// AddAnnotationWithProvenance is AddAnnotation plus capture context.
func (s *Store) AddAnnotationWithProvenance(labelNumber int, start, end float64, confidence int, notes string, prov Provenance) (Annotation, error) {
	if err := s.validateInterval(labelNumber, start, end); err != nil {
		return Annotation{}, err
	}

	annotation := Annotation{
		ID:          uuid.NewString(),
		LabelNumber: labelNumber,
		Start:       start,
		End:         end,
		Confidence:  clampConfidence(confidence),
		Notes:       notes,
		CreatedAt:   time.Now().UTC(),
		Views:       prov.Views,
		TimeSource:  prov.TimeSource,
		AudioSource: prov.AudioSource,
	}
	s.index[annotation.ID] = len(s.annotations)
	s.annotations = append(s.annotations, annotation)
	return annotation, nil
}

// Edit names the mutable annotation fields; nil pointers leave a field alone.
type Edit struct {
	LabelNumber *int
	Start       *float64
	End         *float64
	Confidence  *int
	Notes       *string
}

// EditAnnotation applies an edit, re-validating the interval invariant before
// anything is stored. Either every field applies or none do.
func (s *Store) EditAnnotation(id string, edit Edit) (Annotation, error) {
	pos, ok := s.index[id]
	if !ok {
		return Annotation{}, fmt.Errorf("%w: annotation %s", ErrNotFound, id)
	}

	updated := s.annotations[pos]
	if edit.LabelNumber != nil {
		updated.LabelNumber = *edit.LabelNumber
	}
	if edit.Start != nil {
		updated.Start = *edit.Start
	}
	if edit.End != nil {
		updated.End = *edit.End
	}
	if edit.Confidence != nil {
		updated.Confidence = clampConfidence(*edit.Confidence)
	}
	if edit.Notes != nil {
		updated.Notes = *edit.Notes
	}

	if err := s.validateInterval(updated.LabelNumber, updated.Start, updated.End); err != nil {
		return Annotation{}, err
	}

	s.annotations[pos] = updated
	return updated, nil
}

// DeleteAnnotation removes an annotation. Labels are never cascaded.
func (s *Store) DeleteAnnotation(id string) error {
	pos, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: annotation %s", ErrNotFound, id)
	}
	s.annotations = append(s.annotations[:pos], s.annotations[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.annotations); i++ {
		s.index[s.annotations[i].ID] = i
	}
	return nil
}

// Get returns the annotation with the given id.
func (s *Store) Get(id string) (Annotation, bool) {
	pos, ok := s.index[id]
	if !ok {
		return Annotation{}, false
	}
	return s.annotations[pos], true
}

// All returns a copy of the annotations in creation order.
func (s *Store) All() []Annotation {
	out := make([]Annotation, len(s.annotations))
	copy(out, s.annotations)
	return out
}

// Count reports the number of stored annotations.
func (s *Store) Count() int {
	return len(s.annotations)
}

// Clone returns an independent deep copy, used for autosave snapshots.
func (s *Store) Clone() *Store {
	clone := NewStore()
	for number, label := range s.labels {
		clone.labels[number] = label
	}
	clone.annotations = make([]Annotation, len(s.annotations))
	copy(clone.annotations, s.annotations)
	for id, pos := range s.index {
		clone.index[id] = pos
	}
	return clone
}

// Restore replaces the store contents wholesale. Used by session import after
// consistency checks pass; each annotation must reference a known label and
// satisfy the interval invariant.
func (s *Store) Restore(labels []Label, annotations []Annotation) error {
	fresh := NewStore()
	for _, label := range labels {
		if _, err := fresh.AddLabel(label.Number, label.Name); err != nil {
			return err
		}
	}
	for _, a := range annotations {
		if err := fresh.validateInterval(a.LabelNumber, a.Start, a.End); err != nil {
			return err
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if _, dup := fresh.index[a.ID]; dup {
			return fmt.Errorf("%w: duplicate annotation id %s", ErrInvalidInterval, a.ID)
		}
		a.Confidence = clampConfidence(a.Confidence)
		fresh.index[a.ID] = len(fresh.annotations)
		fresh.annotations = append(fresh.annotations, a)
	}
	*s = *fresh
	return nil
}

func (s *Store) validateInterval(labelNumber int, start, end float64) error {
	if _, ok := s.labels[labelNumber]; !ok {
		return fmt.Errorf("%w: unknown label %d", ErrInvalidInterval, labelNumber)
	}
	if start < 0 {
		return fmt.Errorf("%w: start %.3f is negative", ErrInvalidInterval, start)
	}
	if start >= end {
		return fmt.Errorf("%w: start %.3f >= end %.3f", ErrInvalidInterval, start, end)
	}
	return nil
}

func clampConfidence(confidence int) int {
	if confidence == 0 {
		return DefaultConfidence
	}
	if confidence < minConfidence {
		return minConfidence
	}
	if confidence > maxConfidence {
		return maxConfidence
	}
	return confidence
}
