package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ttm/internal/ledger"
	"ttm/internal/logging"
	"ttm/internal/services"
)

// ProjectSummary is a project with its live figures. Slot is the 1-based
// shortcut position among non-archived projects, or 0 for archived ones.
type ProjectSummary struct {
	ledger.Project
	Slot    int           `json:"slot"`
	Running bool          `json:"running"`
	Elapsed time.Duration `json:"elapsed"`
	Today   time.Duration `json:"today"`
	Total   time.Duration `json:"total"`
}

// Projects lists projects newest first with today's and lifetime totals.
func (s *Service) Projects(ctx context.Context, includeArchived bool) ([]ProjectSummary, error) {
	projects, err := s.store.ProjectsWithEntries(ctx, includeArchived)
	if err != nil {
		return nil, err
	}
	now := s.now()
	summaries := make([]ProjectSummary, 0, len(projects))
	slot := 0
	for _, project := range projects {
		summary := ProjectSummary{
			Running: s.registry.IsRunning(project.ID),
			Elapsed: s.registry.Elapsed(project.ID),
			Today:   project.TodayDuration(now),
			Total:   project.TotalDuration(now),
		}
		if !project.Archived {
			slot++
			summary.Slot = slot
		}
		project.Entries = nil
		summary.Project = project
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Project resolves a single project reference.
func (s *Service) Project(ctx context.Context, ref string) (ledger.Project, error) {
	return s.resolve(ctx, ref)
}

// AddProject creates a project. An empty color picks the next palette color.
// Names must be unique ignoring case.
func (s *Service) AddProject(ctx context.Context, name, color string) (ledger.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return ledger.Project{}, err
	}
	existing, err := s.store.ListProjects(ctx, true)
	if err != nil {
		return ledger.Project{}, err
	}
	project, err := ledger.NewProject(name, color, len(existing), s.now())
	if err != nil {
		return ledger.Project{}, err
	}
	if err := s.store.InsertProject(ctx, project); err != nil {
		return ledger.Project{}, err
	}
	s.logger.Info("project added",
		logging.String(logging.FieldProjectID, project.ID),
		logging.String(logging.FieldProjectName, project.Name),
	)
	s.refresh(ctx)
	return project, nil
}

// RenameProject changes a project's display name.
func (s *Service) RenameProject(ctx context.Context, ref, name string) (ledger.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.resolve(ctx, ref)
	if err != nil {
		return ledger.Project{}, err
	}
	normalized, err := ledger.NormalizeName(name)
	if err != nil {
		return ledger.Project{}, err
	}
	if err := s.ensureNameFree(ctx, normalized, project.ID); err != nil {
		return ledger.Project{}, err
	}
	project.Name = normalized
	if err := s.store.UpdateProject(ctx, project); err != nil {
		return ledger.Project{}, err
	}
	s.refresh(ctx)
	return project, nil
}

// SetColor changes a project's color tag. An empty tag is rejected.
func (s *Service) SetColor(ctx context.Context, ref, color string) (ledger.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.resolve(ctx, ref)
	if err != nil {
		return ledger.Project{}, err
	}
	if strings.TrimSpace(color) == "" {
		return ledger.Project{}, ledger.ErrInvalidColor
	}
	tag, err := ledger.NormalizeColor(color, 0)
	if err != nil {
		return ledger.Project{}, err
	}
	project.ColorTag = tag
	if err := s.store.UpdateProject(ctx, project); err != nil {
		return ledger.Project{}, err
	}
	s.refresh(ctx)
	return project, nil
}

// SetArchived archives or restores a project. Archiving stops a running timer first.
func (s *Service) SetArchived(ctx context.Context, ref string, archived bool) (ledger.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.resolve(ctx, ref)
	if err != nil {
		return ledger.Project{}, err
	}
	if archived {
		if err := s.stopIfRunning(ctx, project); err != nil {
			return ledger.Project{}, err
		}
	}
	if project.Archived == archived {
		return project, nil
	}
	project.Archived = archived
	if err := s.store.UpdateProject(ctx, project); err != nil {
		return ledger.Project{}, err
	}
	s.logger.Info("project archive state changed",
		logging.String(logging.FieldProjectID, project.ID),
		logging.Bool("archived", archived),
	)
	s.refresh(ctx)
	return project, nil
}

// DeleteProject stops the project's timer and removes it with all its entries.
func (s *Service) DeleteProject(ctx context.Context, ref string) (ledger.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.resolve(ctx, ref)
	if err != nil {
		return ledger.Project{}, err
	}
	if err := s.stopIfRunning(ctx, project); err != nil {
		return ledger.Project{}, err
	}
	if err := s.store.DeleteProject(ctx, project.ID); err != nil {
		return ledger.Project{}, err
	}
	s.logger.Info("project deleted",
		logging.String(logging.FieldProjectID, project.ID),
		logging.String(logging.FieldProjectName, project.Name),
	)
	s.refresh(ctx)
	return project, nil
}

// ResetProject stops the project's timer and deletes all of its entries,
// keeping the project. It returns the number of entries removed.
func (s *Service) ResetProject(ctx context.Context, ref string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.resolve(ctx, ref)
	if err != nil {
		return 0, err
	}
	if err := s.stopIfRunning(ctx, project); err != nil {
		return 0, err
	}
	removed, err := s.store.DeleteProjectEntries(ctx, project.ID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("project entries reset",
		logging.String(logging.FieldProjectID, project.ID),
		logging.Int64("removed", removed),
	)
	s.refresh(ctx)
	return removed, nil
}

// ResetAll stops every timer and deletes all projects and entries. Nothing is
// deleted when a running timer fails to stop.
func (s *Service) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.stopAllLocked(ctx); err != nil {
		return err
	}
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("all tracking data reset")
	s.refresh(ctx)
	return nil
}

func (s *Service) resolve(ctx context.Context, ref string) (ledger.Project, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ledger.Project{}, services.Wrap(services.ErrValidation, "tracker", "resolve project", "project reference is required", nil)
	}
	project, err := s.store.GetProject(ctx, ref)
	if err != nil {
		return ledger.Project{}, err
	}
	if project == nil {
		if project, err = s.store.FindProjectByName(ctx, ref); err != nil {
			return ledger.Project{}, err
		}
	}
	if project == nil {
		return ledger.Project{}, services.Wrap(services.ErrNotFound, "tracker", "resolve project",
			fmt.Sprintf("no project matches %q", ref), nil)
	}
	return *project, nil
}

func (s *Service) ensureNameFree(ctx context.Context, name, selfID string) error {
	normalized, err := ledger.NormalizeName(name)
	if err != nil {
		return err
	}
	existing, err := s.store.FindProjectByName(ctx, normalized)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return services.Wrap(services.ErrConflict, "tracker", "name project",
			fmt.Sprintf("a project named %q already exists", existing.Name), nil)
	}
	return nil
}
