package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Stats counts rows in the ledger.
type Stats struct {
	Projects         int `json:"projects"`
	ArchivedProjects int `json:"archived_projects"`
	Entries          int `json:"entries"`
	OpenEntries      int `json:"open_entries"`
	OrphanEntries    int `json:"orphan_entries"`
}

// DatabaseHealth captures diagnostic information about the ledger database.
type DatabaseHealth struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	SchemaVersion    int    `json:"schema_version"`
	IntegrityCheck   bool   `json:"integrity_check"`
	Error            string `json:"error,omitempty"`
}

// Stats returns row counts for diagnostics.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1), COALESCE(SUM(archived), 0) FROM projects`)
	if err := row.Scan(&stats.Projects, &stats.ArchivedProjects); err != nil {
		return Stats{}, persistErr("project stats", err)
	}
	row = s.db.QueryRowContext(ctx, `SELECT
            COUNT(1),
            COALESCE(SUM(CASE WHEN end_time IS NULL THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN project_id IS NULL THEN 1 ELSE 0 END), 0)
        FROM time_entries`)
	if err := row.Scan(&stats.Entries, &stats.OpenEntries, &stats.OrphanEntries); err != nil {
		return Stats{}, persistErr("entry stats", err)
	}
	return stats, nil
}

// Clear removes every project and entry.
func (s *Store) Clear(ctx context.Context) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return persistErr("begin clear", err)
		}
		defer func() { _ = tx.Rollback() }()
		for _, stmt := range []string{`DELETE FROM time_entries`, `DELETE FROM projects`} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return persistErr("clear", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return persistErr("commit clear", err)
		}
		return nil
	})
}

// CheckHealth returns diagnostic information about the ledger database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("ledger database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat ledger database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("ledger database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping ledger database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")
	return health, nil
}
