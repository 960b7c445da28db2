// Package manager owns session lifecycle and persistence: create, import,
// video import, annotation commands, autosave, and close. It is the single
// writer for session state; all disk I/O in the application funnels through
// it.
//
// Persistence is a versioned session.json snapshot plus a label.tsv export,
// both written with an atomic temp-write-and-rename so a crash mid-save
// never corrupts the last good state. Unknown snapshot fields are preserved
// across load/save. A per-directory file lock keeps a second process from
// co-editing a session.
package manager
