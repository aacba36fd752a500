// Package api defines the tracker operation surface shared by the CLI and the
// daemon's HTTP API.
//
// # Key Types
//
// Backend: every operation a front end can issue (timers, projects, reports).
//
// Local: Backend served in-process by a tracker.Service. The daemon's HTTP
// handlers are a thin shell over Local, and the CLI uses it directly when no
// daemon is running.
//
// Client: Backend served over HTTP by a running daemon. Error responses are
// rebuilt into errors carrying the services markers, so errors.Is behaves the
// same on both sides.
//
// # Design Notes
//
// Payloads use snake_case JSON tags. Durations travel as integer nanoseconds
// and timestamps as RFC3339 with nanoseconds, matching encoding/json defaults
// for time.Duration and time.Time.
package api
