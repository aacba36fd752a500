// Package services defines small shared utilities consumed by the tracker,
// the API surface, and the daemon.
//
// Key responsibilities:
//   - Context helpers that stamp project IDs, request origins, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and the mapping between
//     those markers and HTTP status codes used by the API server and client.
package services
