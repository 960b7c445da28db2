// Package preflight validates the host environment before sessions are
// created or opened: directory access, free space, and the external binaries
// probing depends on.
package preflight
