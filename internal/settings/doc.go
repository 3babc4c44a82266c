// Package settings holds the run-settings state model: the selected model,
// the per-session tool switches, the per-model default table and the
// reconciler that merges those defaults on every model selection.
package settings
