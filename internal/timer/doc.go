// Package timer tracks which projects currently have a running time entry.
//
// The Registry holds at most one running entry per project behind a single
// mutex, persists every start and stop through an EntryWriter before changing
// its own state, and drives a Ticker that fires only while something runs.
// Restore rebuilds the registry from persisted projects after a restart and
// reports projects that carry more than one open entry instead of silently
// picking one.
//
// Subscribers receive started, stopped, restored, and tick events. A
// subscriber that falls behind loses events; it never stalls the registry.
package timer
