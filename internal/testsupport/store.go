package testsupport

import (
	"context"
	"testing"
	"time"

	"ttm/internal/config"
	"ttm/internal/ledger"
)

// MustOpenStore opens a ledger.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewProject inserts a project created at createdAt.
func NewProject(t testing.TB, store *ledger.Store, name string, createdAt time.Time) ledger.Project {
	t.Helper()

	project, err := ledger.NewProject(name, "", 0, createdAt)
	if err != nil {
		t.Fatalf("ledger.NewProject: %v", err)
	}
	if err := store.InsertProject(context.Background(), project); err != nil {
		t.Fatalf("store.InsertProject: %v", err)
	}
	return project
}

// NewEntry inserts an entry for projectID. A zero end leaves it running.
func NewEntry(t testing.TB, store *ledger.Store, projectID string, start, end time.Time) ledger.TimeEntry {
	t.Helper()

	entry := ledger.NewEntry(projectID, start)
	if !end.IsZero() {
		entry = entry.Closed(end)
	}
	if err := store.InsertEntry(context.Background(), entry); err != nil {
		t.Fatalf("store.InsertEntry: %v", err)
	}
	return entry
}
