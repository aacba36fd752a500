package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ttm/internal/ledger"
	"ttm/internal/services"
)

// Format selects an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json" in any case.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", services.Wrap(services.ErrValidation, "report", "export", fmt.Sprintf("unsupported format %q (want csv or json)", value), nil)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// ExportRow is one completed entry as exported.
type ExportRow struct {
	Date            string
	Project         string
	DurationMinutes int
	StartTime       string
	EndTime         string
}

var csvHeader = []string{"date", "project", "duration_minutes", "start_time", "end_time"}

// Rows converts completed entries to export rows in now's location. Running
// entries are skipped; entries whose project is missing are labelled Unknown.
func Rows(entries []ledger.TimeEntry, projects []ledger.Project, now time.Time) []ExportRow {
	names := make(map[string]string, len(projects))
	for _, project := range projects {
		names[project.ID] = project.Name
	}
	loc := now.Location()

	rows := make([]ExportRow, 0, len(entries))
	for _, entry := range entries {
		if entry.IsRunning() {
			continue
		}
		name, ok := names[entry.ProjectID]
		if !ok || entry.ProjectID == "" {
			name = ledger.UnknownProjectName
		}
		rows = append(rows, ExportRow{
			Date:            entry.DateKeyIn(loc),
			Project:         name,
			DurationMinutes: int(entry.Duration(now) / time.Minute),
			StartTime:       entry.StartTime.In(loc).Format("15:04"),
			EndTime:         entry.EndTime.In(loc).Format("15:04"),
		})
	}
	return rows
}

// Export writes completed entries to w in the requested format.
func Export(w io.Writer, entries []ledger.TimeEntry, projects []ledger.Project, format Format, now time.Time) error {
	rows := Rows(entries, projects, now)
	switch format {
	case FormatCSV:
		return writeCSV(w, rows)
	case FormatJSON:
		return writeJSON(w, rows, now)
	default:
		_, err := ParseFormat(string(format))
		return err
	}
}

func writeCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{row.Date, row.Project, strconv.Itoa(row.DurationMinutes), row.StartTime, row.EndTime}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// writeJSON encodes maps so keys come out sorted.
func writeJSON(w io.Writer, rows []ExportRow, now time.Time) error {
	entries := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, map[string]any{
			"date":            row.Date,
			"project":         row.Project,
			"durationMinutes": row.DurationMinutes,
			"startTime":       row.StartTime,
			"endTime":         row.EndTime,
		})
	}
	doc := map[string]any{
		"exported_at": now.UTC().Format(time.RFC3339),
		"entries":     entries,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}
