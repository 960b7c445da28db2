package annotations

import "errors"

var (
	// ErrDuplicateLabel marks an attempt to reuse a label number.
	ErrDuplicateLabel = errors.New("duplicate label")
	// ErrLabelInUse marks a delete of a label still referenced by annotations.
	ErrLabelInUse = errors.New("label in use")
	// ErrInvalidInterval marks annotation intervals that violate
	// 0 <= start < end, or reference an unknown label.
	ErrInvalidInterval = errors.New("invalid interval")
	// ErrNotFound marks lookups of absent annotations or labels.
	ErrNotFound = errors.New("not found")
	// ErrMarkingState marks label-marking transitions issued out of order.
	ErrMarkingState = errors.New("marking transition out of order")
)
