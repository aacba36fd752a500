package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// EntryFilter narrows ListEntries. Zero values match everything.
type EntryFilter struct {
	ProjectID     string
	Since         time.Time
	CompletedOnly bool
	Limit         int
}

// InsertEntry persists a new time entry.
func (s *Store) InsertEntry(ctx context.Context, entry TimeEntry) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO time_entries (id, project_id, start_time, end_time) VALUES (?, ?, ?, ?)`,
		entry.ID,
		nullableString(entry.ProjectID),
		formatTime(entry.StartTime),
		nullableTime(entry.EndTime),
	)
	if err != nil {
		return persistErr("insert entry", err)
	}
	return nil
}

// UpdateEntry persists an entry's project, start, and end.
func (s *Store) UpdateEntry(ctx context.Context, entry TimeEntry) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE time_entries SET project_id = ?, start_time = ?, end_time = ? WHERE id = ?`,
		nullableString(entry.ProjectID),
		formatTime(entry.StartTime),
		nullableTime(entry.EndTime),
		entry.ID,
	)
	if err != nil {
		return persistErr("update entry", err)
	}
	return requireAffected(res, "entry", entry.ID)
}

// GetEntry fetches one entry. It returns nil when the entry does not exist.
func (s *Store) GetEntry(ctx context.Context, id string) (*TimeEntry, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+entryColumns+` FROM time_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get entry", err)
	}
	return &entry, nil
}

// ListEntries returns entries ordered by start time descending.
func (s *Store) ListEntries(ctx context.Context, filter EntryFilter) ([]TimeEntry, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.ProjectID != "" {
		clauses = append(clauses, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "start_time >= ?")
		args = append(args, formatTime(filter.Since))
	}
	if filter.CompletedOnly {
		clauses = append(clauses, "end_time IS NOT NULL")
	}
	query := `SELECT ` + entryColumns + ` FROM time_entries`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY start_time DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	return s.queryEntries(ctx, "list entries", query, args...)
}

// OpenEntries returns every entry without an end time.
func (s *Store) OpenEntries(ctx context.Context) ([]TimeEntry, error) {
	return s.queryEntries(ctx, "open entries",
		`SELECT `+entryColumns+` FROM time_entries WHERE end_time IS NULL ORDER BY start_time DESC, id DESC`)
}

// DeleteProjectEntries removes every entry of a project and reports how many were deleted.
func (s *Store) DeleteProjectEntries(ctx context.Context, projectID string) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM time_entries WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, persistErr("delete project entries", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, persistErr("rows affected", err)
	}
	return removed, nil
}

func (s *Store) queryEntries(ctx context.Context, operation, query string, args ...any) ([]TimeEntry, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, persistErr(operation, err)
	}
	defer rows.Close()

	var entries []TimeEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, persistErr("scan entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(operation, err)
	}
	return entries, nil
}
