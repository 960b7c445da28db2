package annotations

import (
	"iter"
	"sort"
)

// QueryByLabel yields the annotations for one label ordered by start time.
// The sequence is finite and restartable: each range re-reads current state.
func (s *Store) QueryByLabel(number int) iter.Seq[Annotation] {
	return func(yield func(Annotation) bool) {
		for _, a := range s.sortedByStart() {
			if a.LabelNumber != number {
				continue
			}
			if !yield(a) {
				return
			}
		}
	}
}

// QueryInRange yields annotations overlapping [t0, t1] ordered by start time.
// Touching edges do not count as overlap, matching timeline rendering.
func (s *Store) QueryInRange(t0, t1 float64) iter.Seq[Annotation] {
	if t1 < t0 {
		t0, t1 = t1, t0
	}
	return func(yield func(Annotation) bool) {
		for _, a := range s.sortedByStart() {
			if a.End <= t0 || a.Start >= t1 {
				continue
			}
			if !yield(a) {
				return
			}
		}
	}
}

func (s *Store) sortedByStart() []Annotation {
	out := make([]Annotation, len(s.annotations))
	copy(out, s.annotations)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}
