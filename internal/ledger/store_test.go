package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ttm/internal/ledger"
	"ttm/internal/testsupport"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if store.Path() != filepath.Join(cfg.Paths.DataDir, "ttm.db") {
		t.Fatalf("unexpected path %q", store.Path())
	}

	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	project := testsupport.NewProject(t, store, "Writing", base)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	got, err := reopened.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got == nil || got.Name != "Writing" || !got.CreatedAt.Equal(base) {
		t.Fatalf("unexpected project after reopen: %+v", got)
	}

	health, err := reopened.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck || health.SchemaVersion != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestProjectCRUD(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	older := testsupport.NewProject(t, store, "Older", base)
	newer := testsupport.NewProject(t, store, "Newer", base.Add(500*time.Millisecond))

	projects, err := store.ListProjects(ctx, true)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 2 || projects[0].ID != newer.ID || projects[1].ID != older.ID {
		t.Fatalf("expected newest first, got %+v", projects)
	}

	older.Archived = true
	older.Name = "Renamed"
	if err := store.UpdateProject(ctx, older); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	active, err := store.ListProjects(ctx, false)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(active) != 1 || active[0].ID != newer.ID {
		t.Fatalf("expected archived project hidden, got %+v", active)
	}

	found, err := store.FindProjectByName(ctx, "RENAMED")
	if err != nil || found == nil || found.ID != older.ID {
		t.Fatalf("FindProjectByName = %+v, %v", found, err)
	}

	if err := store.UpdateProject(ctx, ledger.Project{ID: "missing", Name: "x", ColorTag: "#000000"}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.InsertProject(ctx, ledger.Project{ID: "blank"}); !errors.Is(err, ledger.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if missing, err := store.GetProject(ctx, "missing"); err != nil || missing != nil {
		t.Fatalf("expected nil for missing project, got %+v %v", missing, err)
	}
}

func TestDeleteProjectCascadesEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	keep := testsupport.NewProject(t, store, "Keep", base)
	drop := testsupport.NewProject(t, store, "Drop", base.Add(time.Second))
	testsupport.NewEntry(t, store, keep.ID, base, base.Add(time.Minute))
	testsupport.NewEntry(t, store, drop.ID, base, base.Add(time.Minute))
	testsupport.NewEntry(t, store, drop.ID, base.Add(time.Hour), time.Time{})

	if err := store.DeleteProject(ctx, drop.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	entries, err := store.ListEntries(ctx, ledger.EntryFilter{})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].ProjectID != keep.ID {
		t.Fatalf("expected only kept project's entry, got %+v", entries)
	}
	if err := store.DeleteProject(ctx, drop.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestEntriesRoundTripAndFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 123456789, time.UTC)

	a := testsupport.NewProject(t, store, "A", base)
	b := testsupport.NewProject(t, store, "B", base)
	first := testsupport.NewEntry(t, store, a.ID, base, base.Add(30*time.Minute))
	open := testsupport.NewEntry(t, store, a.ID, base.Add(time.Hour), time.Time{})
	other := testsupport.NewEntry(t, store, b.ID, base.Add(2*time.Hour), base.Add(3*time.Hour))
	orphan := testsupport.NewEntry(t, store, "", base.Add(4*time.Hour), base.Add(5*time.Hour))

	got, err := store.GetEntry(ctx, first.ID)
	if err != nil || got == nil {
		t.Fatalf("GetEntry: %+v %v", got, err)
	}
	if !got.StartTime.Equal(first.StartTime) || got.EndTime == nil || !got.EndTime.Equal(*first.EndTime) {
		t.Fatalf("entry did not round trip: %+v vs %+v", got, first)
	}

	all, err := store.ListEntries(ctx, ledger.EntryFilter{})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	wantOrder := []string{orphan.ID, other.ID, open.ID, first.ID}
	if len(all) != len(wantOrder) {
		t.Fatalf("expected %d entries, got %d", len(wantOrder), len(all))
	}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Fatalf("entry %d = %s, want %s", i, all[i].ID, id)
		}
	}
	if all[0].ProjectID != "" {
		t.Fatalf("expected orphan entry to keep empty project, got %q", all[0].ProjectID)
	}

	completed, err := store.ListEntries(ctx, ledger.EntryFilter{ProjectID: a.ID, CompletedOnly: true})
	if err != nil || len(completed) != 1 || completed[0].ID != first.ID {
		t.Fatalf("completed filter = %+v, %v", completed, err)
	}

	openEntries, err := store.OpenEntries(ctx)
	if err != nil || len(openEntries) != 1 || openEntries[0].ID != open.ID {
		t.Fatalf("OpenEntries = %+v, %v", openEntries, err)
	}

	closed := open.Closed(base.Add(90 * time.Minute))
	if err := store.UpdateEntry(ctx, closed); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if openEntries, err := store.OpenEntries(ctx); err != nil || len(openEntries) != 0 {
		t.Fatalf("expected no open entries, got %+v %v", openEntries, err)
	}
	if err := store.UpdateEntry(ctx, ledger.TimeEntry{ID: "missing", StartTime: base}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProjectsWithEntriesAndReset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	a := testsupport.NewProject(t, store, "A", base)
	b := testsupport.NewProject(t, store, "B", base.Add(time.Second))
	testsupport.NewEntry(t, store, a.ID, base, base.Add(time.Minute))
	latest := testsupport.NewEntry(t, store, a.ID, base.Add(time.Hour), time.Time{})

	projects, err := store.ProjectsWithEntries(ctx, true)
	if err != nil {
		t.Fatalf("ProjectsWithEntries: %v", err)
	}
	if len(projects) != 2 || projects[0].ID != b.ID || len(projects[0].Entries) != 0 {
		t.Fatalf("unexpected first project: %+v", projects)
	}
	if len(projects[1].Entries) != 2 || projects[1].Entries[0].ID != latest.ID {
		t.Fatalf("expected entries newest first, got %+v", projects[1].Entries)
	}

	removed, err := store.DeleteProjectEntries(ctx, a.ID)
	if err != nil || removed != 2 {
		t.Fatalf("DeleteProjectEntries = %d, %v", removed, err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Projects != 2 || stats.Entries != 0 {
		t.Fatalf("unexpected stats after reset: %+v", stats)
	}

	testsupport.NewEntry(t, store, b.ID, base, time.Time{})
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats != (ledger.Stats{}) {
		t.Fatalf("expected empty ledger, got %+v", stats)
	}
}

func TestInsertEntryForMissingProjectIsPersistenceError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	entry := ledger.NewEntry("no-such-project", time.Now())
	err := store.InsertEntry(context.Background(), entry)
	if !errors.Is(err, ledger.ErrPersistence) {
		t.Fatalf("expected ErrPersistence from foreign key violation, got %v", err)
	}
}
