package ledger

import (
	"context"
	"database/sql"
	"errors"
)

// InsertProject persists a new project. The name must already be normalized.
func (s *Store) InsertProject(ctx context.Context, project Project) error {
	if project.Name == "" {
		return ErrInvalidName
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO projects (id, name, name_key, color_tag, archived, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.Name,
		FoldName(project.Name),
		project.ColorTag,
		boolToInt(project.Archived),
		formatTime(project.CreatedAt),
	)
	if err != nil {
		return persistErr("insert project", err)
	}
	return nil
}

// UpdateProject persists name, color, and archived state.
func (s *Store) UpdateProject(ctx context.Context, project Project) error {
	if project.Name == "" {
		return ErrInvalidName
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE projects SET name = ?, name_key = ?, color_tag = ?, archived = ? WHERE id = ?`,
		project.Name,
		FoldName(project.Name),
		project.ColorTag,
		boolToInt(project.Archived),
		project.ID,
	)
	if err != nil {
		return persistErr("update project", err)
	}
	return requireAffected(res, "project", project.ID)
}

// DeleteProject removes a project and, through the foreign key cascade, its entries.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return persistErr("delete project", err)
	}
	return requireAffected(res, "project", id)
}

// GetProject fetches a project without entries. It returns nil when the project does not exist.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get project", err)
	}
	return &project, nil
}

// FindProjectByName looks a project up by case-folded name. It returns nil when nothing matches.
func (s *Store) FindProjectByName(ctx context.Context, name string) (*Project, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+projectColumns+` FROM projects WHERE name_key = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		FoldName(name),
	)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("find project", err)
	}
	return &project, nil
}

// ListProjects returns projects newest first, without entries.
func (s *Store) ListProjects(ctx context.Context, includeArchived bool) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query)
	if err != nil {
		return nil, persistErr("list projects", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, persistErr("scan project", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list projects", err)
	}
	return projects, nil
}

// ProjectsWithEntries returns projects newest first with their entries
// attached, each project's entries ordered by start time descending.
func (s *Store) ProjectsWithEntries(ctx context.Context, includeArchived bool) ([]Project, error) {
	projects, err := s.ListProjects(ctx, includeArchived)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return projects, nil
	}
	entries, err := s.ListEntries(ctx, EntryFilter{})
	if err != nil {
		return nil, err
	}
	byProject := make(map[string][]TimeEntry, len(projects))
	for _, entry := range entries {
		if entry.ProjectID == "" {
			continue
		}
		byProject[entry.ProjectID] = append(byProject[entry.ProjectID], entry)
	}
	for i := range projects {
		projects[i].Entries = byProject[projects[i].ID]
	}
	return projects, nil
}

func requireAffected(res sql.Result, kind, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return persistErr("rows affected", err)
	}
	if affected == 0 {
		return notFound(kind, id)
	}
	return nil
}
