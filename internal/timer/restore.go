package timer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ttm/internal/ledger"
	"ttm/internal/logging"
	"ttm/internal/services"
)

// ErrMultipleRunning reports a project with more than one open entry in storage.
var ErrMultipleRunning = fmt.Errorf("%w: multiple running entries for one project", services.ErrConflict)

// Conflict lists the open entries of one project that Restore did not register.
type Conflict struct {
	ProjectID string             `json:"project_id"`
	Kept      ledger.TimeEntry   `json:"kept"`
	Extra     []ledger.TimeEntry `json:"extra"`
}

// RestoreReport summarizes a Restore call.
type RestoreReport struct {
	Restored  []ledger.TimeEntry `json:"restored"`
	Conflicts []Conflict         `json:"conflicts,omitempty"`
}

// Err returns ErrMultipleRunning with details when conflicts were found. The
// registry remains usable either way.
func (r RestoreReport) Err() error {
	if len(r.Conflicts) == 0 {
		return nil
	}
	parts := make([]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		parts = append(parts, fmt.Sprintf("project %s kept %s, %d extra", c.ProjectID, c.Kept.ID, len(c.Extra)))
	}
	return fmt.Errorf("%w: %s", ErrMultipleRunning, strings.Join(parts, "; "))
}

// Restore replaces the registry contents with the open entries found in
// projects. For a project with several open entries the one with the latest
// start time is kept (ties go to the greatest ID) and the rest are reported.
// Restore itself never writes to storage.
func (r *Registry) Restore(projects []ledger.Project) RestoreReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.active)
	var report RestoreReport
	for _, project := range projects {
		running := project.RunningEntries()
		if len(running) == 0 {
			continue
		}
		kept := running[0]
		for _, candidate := range running[1:] {
			if laterEntry(candidate, kept) {
				kept = candidate
			}
		}
		kept.ProjectID = project.ID
		r.active[project.ID] = kept
		report.Restored = append(report.Restored, kept)

		if len(running) > 1 {
			conflict := Conflict{ProjectID: project.ID, Kept: kept}
			for _, candidate := range running {
				if candidate.ID != kept.ID {
					conflict.Extra = append(conflict.Extra, candidate)
				}
			}
			report.Conflicts = append(report.Conflicts, conflict)
		}
	}

	r.revision++
	for _, entry := range report.Restored {
		r.publishLocked(Event{Kind: EventRestored, ProjectID: entry.ProjectID, Entry: entry})
	}
	if len(r.active) > 0 && !r.closed {
		r.ticker.Start()
	} else {
		r.ticker.Stop()
	}

	r.logger.Info("timers restored",
		logging.Int("restored", len(report.Restored)),
		logging.Int("conflicts", len(report.Conflicts)),
	)
	for _, c := range report.Conflicts {
		logging.WarnWithContext(r.logger, "project has more than one open entry", "restore_conflict",
			logging.Alert("restore_conflict"),
			logging.String(logging.FieldProjectID, c.ProjectID),
			logging.String("kept_entry_id", c.Kept.ID),
			logging.Int("extra_entries", len(c.Extra)),
			logging.String(logging.FieldImpact, "extra entries stay open in storage and keep counting"),
			logging.String(logging.FieldErrorHint, "enable tracker.close_conflicting_entries or stop the project to close them"),
		)
	}
	return report
}

// CloseConflicts ends every extra entry reported by Restore at the kept
// entry's start time (never before the extra's own start). It returns the
// closed entries and a join of any persistence failures.
func (r *Registry) CloseConflicts(ctx context.Context, report RestoreReport) ([]ledger.TimeEntry, error) {
	var (
		closed []ledger.TimeEntry
		errs   []error
	)
	for _, conflict := range report.Conflicts {
		for _, extra := range conflict.Extra {
			fixed := extra.Closed(conflict.Kept.StartTime)
			if err := r.writer.UpdateEntry(ctx, fixed); err != nil {
				errs = append(errs, persistenceFailure("close conflicting", conflict.ProjectID, err))
				continue
			}
			closed = append(closed, fixed)
		}
	}
	if len(closed) > 0 {
		r.logger.Info("conflicting entries closed", logging.Int("closed", len(closed)))
	}
	return closed, errors.Join(errs...)
}

func laterEntry(a, b ledger.TimeEntry) bool {
	if a.StartTime.Equal(b.StartTime) {
		return a.ID > b.ID
	}
	return a.StartTime.After(b.StartTime)
}
