// Command annote is the CLI for creating, inspecting, and editing
// multi-stream annotation sessions from scripts and review workflows.
package main
