package api

import (
	"ttm/internal/ledger"
	"ttm/internal/status"
	"ttm/internal/tracker"
)

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool            `json:"running"`
	PID          int             `json:"pid"`
	DatabasePath string          `json:"database_path"`
	LockFilePath string          `json:"lock_file_path"`
	APIBind      string          `json:"api_bind,omitempty"`
	Status       status.Snapshot `json:"status"`
}

// ProjectRequest creates a project.
type ProjectRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// RenameRequest renames a project.
type RenameRequest struct {
	Name string `json:"name"`
}

// ColorRequest recolors a project.
type ColorRequest struct {
	Color string `json:"color"`
}

// ProjectResponse wraps a single project.
type ProjectResponse struct {
	Project ledger.Project `json:"project"`
}

// ProjectListResponse wraps project summaries.
type ProjectListResponse struct {
	Projects []tracker.ProjectSummary `json:"projects"`
}

// EntriesResponse wraps a collection of time entries.
type EntriesResponse struct {
	Entries []ledger.TimeEntry `json:"entries"`
}

// ResetResponse reports how many entries a project reset removed.
type ResetResponse struct {
	Removed int64 `json:"removed"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
