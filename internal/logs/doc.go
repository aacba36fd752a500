// Package logs reads the daemon's log files for `ttm daemon logs`.
//
// Last returns the final lines of a file plus the offset where reading
// stopped; Follow polls from an offset and hands each new line to a callback
// until the context ends. Both keep memory bounded to the requested lines.
package logs
