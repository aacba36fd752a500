// Package ledger holds the time tracking entity model and its SQLite store.
//
// Projects own time entries. A time entry with no end time is running; every
// duration is derived from start/end (or the supplied "now" while running)
// and is never stored. The Store persists both tables with the same pragmas,
// busy retries, and schema version guard used across the daemon, and wraps
// every database failure with ErrPersistence so callers can tell storage
// problems apart from validation or lookup errors.
package ledger
