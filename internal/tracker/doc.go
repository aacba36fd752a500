// Package tracker is the operation surface shared by the daemon API and the
// in-process CLI fallback.
//
// A Service ties the ledger store, the timer registry, the status publisher
// and the notifier together. Callers address projects by reference: an exact
// project ID first, then a case-folded name. Timer operations go through the
// registry so the one-running-entry-per-project rule holds no matter which
// front end issues them; project changes that affect a running timer stop it
// before touching storage.
package tracker
