package ledger

import (
	"database/sql"
	"errors"
	"time"
)

const (
	projectColumns = "id, name, color_tag, archived, created_at"
	entryColumns   = "id, project_id, start_time, end_time"
	// timeLayout is fixed width so stored timestamps sort lexically in time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

type scanner interface{ Scan(dest ...any) error }

func scanProject(row scanner) (Project, error) {
	var (
		project    Project
		archived   sql.NullInt64
		createdRaw sql.NullString
	)
	if err := row.Scan(&project.ID, &project.Name, &project.ColorTag, &archived, &createdRaw); err != nil {
		return Project{}, err
	}
	project.Archived = archived.Valid && archived.Int64 != 0
	if created, err := parseTimeString(createdRaw.String); err == nil {
		project.CreatedAt = created
	}
	return project, nil
}

func scanEntry(row scanner) (TimeEntry, error) {
	var (
		entry     TimeEntry
		projectID sql.NullString
		startRaw  string
		endRaw    sql.NullString
	)
	if err := row.Scan(&entry.ID, &projectID, &startRaw, &endRaw); err != nil {
		return TimeEntry{}, err
	}
	entry.ProjectID = projectID.String
	start, err := parseTimeString(startRaw)
	if err != nil {
		return TimeEntry{}, err
	}
	entry.StartTime = start
	if endRaw.Valid {
		end, err := parseTimeString(endRaw.String)
		if err != nil {
			return TimeEntry{}, err
		}
		entry.EndTime = &end
	}
	return entry, nil
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
