package tracker

import (
	"context"
	"fmt"
	"time"

	"ttm/internal/ledger"
	"ttm/internal/logging"
	"ttm/internal/notifications"
	"ttm/internal/report"
	"ttm/internal/services"
	"ttm/internal/timer"
)

// Start begins timing the referenced project. Starting a running project is a
// no-op; archived projects cannot be started.
func (s *Service) Start(ctx context.Context, ref string) (timer.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.resolve(ctx, ref)
	if err != nil {
		return timer.Transition{}, err
	}
	if project.Archived {
		return timer.Transition{ProjectID: project.ID}, archivedErr("start", project)
	}
	tr, err := s.registry.Start(ctx, project.ID)
	if err != nil {
		return tr, err
	}
	s.afterTransition(ctx, project, tr)
	return tr, nil
}

// Stop ends the referenced project's running entry, if any.
func (s *Service) Stop(ctx context.Context, ref string) (timer.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.resolve(ctx, ref)
	if err != nil {
		return timer.Transition{}, err
	}
	tr, err := s.registry.Stop(ctx, project.ID)
	if err != nil {
		return tr, err
	}
	s.afterTransition(ctx, project, tr)
	return tr, nil
}

// Toggle stops the referenced project when it runs and starts it otherwise.
func (s *Service) Toggle(ctx context.Context, ref string) (timer.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.resolve(ctx, ref)
	if err != nil {
		return timer.Transition{}, err
	}
	return s.toggleLocked(ctx, project)
}

// ToggleSlot toggles the project at index in the non-archived project list,
// newest first. Indices outside the list are ignored.
func (s *Service) ToggleSlot(ctx context.Context, index int) (timer.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.store.ListProjects(ctx, false)
	if err != nil {
		return timer.Transition{}, err
	}
	if index < 0 || index >= len(projects) {
		s.logger.Debug("slot out of range ignored",
			logging.Int("slot", index),
			logging.Int("projects", len(projects)),
		)
		return timer.Transition{}, nil
	}
	return s.toggleLocked(ctx, projects[index])
}

func (s *Service) toggleLocked(ctx context.Context, project ledger.Project) (timer.Transition, error) {
	if project.Archived && !s.registry.IsRunning(project.ID) {
		return timer.Transition{ProjectID: project.ID}, archivedErr("toggle", project)
	}
	tr, err := s.registry.Toggle(ctx, project.ID)
	if err != nil {
		return tr, err
	}
	s.afterTransition(ctx, project, tr)
	return tr, nil
}

// StopAll stops every running timer with a shared end time. Entries that fail
// to persist keep running and their errors are joined into the result.
func (s *Service) StopAll(ctx context.Context) ([]ledger.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopAllLocked(ctx)
}

func (s *Service) stopAllLocked(ctx context.Context) ([]ledger.TimeEntry, error) {
	stopped, err := s.registry.StopAll(ctx)
	if len(stopped) > 0 {
		s.refresh(ctx)
		s.notify(ctx, notifications.EventAllStopped, notifications.Payload{"count": len(stopped)})
	}
	return stopped, err
}

// Running returns the running entries ordered by start time.
func (s *Service) Running() []ledger.TimeEntry {
	return s.registry.Active()
}

// Elapsed reports how long projectID's running entry has been open, or zero.
func (s *Service) Elapsed(projectID string) time.Duration {
	return s.registry.Elapsed(projectID)
}

// stopIfRunning is used before project changes that must not leave a timer running.
func (s *Service) stopIfRunning(ctx context.Context, project ledger.Project) error {
	if !s.registry.IsRunning(project.ID) {
		return nil
	}
	tr, err := s.registry.Stop(ctx, project.ID)
	if err != nil {
		return err
	}
	s.afterTransition(ctx, project, tr)
	return nil
}

func (s *Service) afterTransition(ctx context.Context, project ledger.Project, tr timer.Transition) {
	if !tr.Changed {
		return
	}
	s.refresh(ctx)
	logging.WithContext(services.WithProjectID(ctx, project.ID), s.logger).Debug("timer transition",
		logging.String(logging.FieldProjectName, project.Name),
		logging.Bool("running", tr.Running),
	)
	if tr.Running {
		s.notify(ctx, notifications.EventTimerStarted, notifications.Payload{"project": project.Name})
		return
	}
	payload := notifications.Payload{"project": project.Name}
	if tr.Entry.EndTime != nil {
		payload["elapsed"] = report.FormatShort(tr.Entry.Duration(*tr.Entry.EndTime))
	}
	if today, err := s.projectToday(ctx, project.ID); err == nil {
		payload["today"] = report.FormatShort(today)
	}
	s.notify(ctx, notifications.EventTimerStopped, payload)
}

func (s *Service) projectToday(ctx context.Context, projectID string) (time.Duration, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	entries, err := s.store.ListEntries(ctx, ledger.EntryFilter{ProjectID: projectID, Since: start})
	if err != nil {
		return 0, err
	}
	return ledger.Project{ID: projectID, Entries: entries}.TodayDuration(now), nil
}

func archivedErr(operation string, project ledger.Project) error {
	return services.Wrap(services.ErrConflict, "tracker", operation,
		fmt.Sprintf("project %q is archived", project.Name), nil)
}
