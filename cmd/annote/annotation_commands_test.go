package main

import (
	"math"
	"testing"
)

func TestAnnotationRangeDefaultsOpenEnd(t *testing.T) {
	from, to := annotationRange(5, 0, false)
	if from != 5 || !math.IsInf(to, 1) {
		t.Fatalf("--from without --to should run to the end, got (%v, %v)", from, to)
	}

	from, to = annotationRange(1, 3, true)
	if from != 1 || to != 3 {
		t.Fatalf("explicit range should pass through, got (%v, %v)", from, to)
	}

	from, to = annotationRange(0, 3, true)
	if from != 0 || to != 3 {
		t.Fatalf("--to without --from should start at zero, got (%v, %v)", from, to)
	}
}
