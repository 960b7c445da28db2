// Package annotations holds the validated label and annotation collections
// for a session, plus the label-marking workflow state.
//
// The Store is a pure in-memory collection with no I/O: every mutation either
// applies fully or fails with one of the package sentinel errors, so callers
// never observe a half-applied edit. The manager package serializes access;
// the Store itself carries no locking.
//
// Labels are append-only within a session. Annotation display fields (label
// name, color) are always derived from the Label at read time and never
// cached on the Annotation, so a rename cannot drift.
package annotations
