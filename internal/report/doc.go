// Package report derives totals, breakdowns, day-grouped history, and exports
// from ledger data. Every function is pure: it takes projects or entries plus
// the instant to evaluate at, and uses that instant's location as the local
// calendar. Running entries count up to now through the entity's own
// Duration, so no caller ever adds registry elapsed time on top.
package report
