// Package daemon coordinates the long-running ttm process.
//
// It wires configuration, the ledger store and the tracker service into a
// single lifecycle with flock-based locking, so only one process owns the
// timer registry at a time. On start the daemon restores running timers from
// storage, keeps the status publisher current from registry events, and
// serves the JSON API on the configured loopback bind. On stop it optionally
// closes every running timer (tracker.stop_on_exit) before releasing the lock.
//
// Keep orchestration here: tracking rules live in internal/tracker and
// internal/timer while the daemon focuses on startup, shutdown, and transport.
package daemon
