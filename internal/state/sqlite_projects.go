package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/deckforge/pkg/core"
)

const projectColumns = `id, idea_prompt, outline_text, description_text, extra_requirements,
	creation_type, template_image_path, template_style, image_aspect_ratio, status,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*core.Project, error) {
	p := &core.Project{}
	err := row.Scan(
		&p.ID, &p.IdeaPrompt, &p.OutlineText, &p.DescriptionText, &p.ExtraRequirements,
		&p.CreationType, &p.TemplateImagePath, &p.TemplateStyle, &p.ImageAspectRatio, &p.Status,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateProject inserts a project, assigning ID, timestamps and defaults.
func (s *SQLiteStore) CreateProject(ctx context.Context, p *core.Project) error {
	if s.db == nil {
		return errNotOpened
	}

	if p.ID == "" {
		p.ID = generateID()
	}
	if p.CreationType == "" {
		p.CreationType = core.CreationTypeIdea
	}
	if p.ImageAspectRatio == "" {
		p.ImageAspectRatio = core.DefaultAspectRatio
	}
	if p.Status == "" {
		p.Status = core.ProjectStatusDraft
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.IdeaPrompt, p.OutlineText, p.DescriptionText, p.ExtraRequirements,
		p.CreationType, p.TemplateImagePath, p.TemplateStyle, p.ImageAspectRatio, p.Status,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID without its pages.
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*core.Project, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	p, err := scanProject(s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("project", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// GetProjectWithPages retrieves a project and its ordered pages.
func (s *SQLiteStore) GetProjectWithPages(ctx context.Context, id string) (*core.Project, error) {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	pages, err := s.ListPages(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Pages = pages
	return p, nil
}

// ListProjects returns projects ordered by most recent update, and the total count.
func (s *SQLiteStore) ListProjects(ctx context.Context, limit, offset int) ([]*core.Project, int, error) {
	if s.db == nil {
		return nil, 0, errNotOpened
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// UpdateProject applies a partial update and returns the stored project.
func (s *SQLiteStore) UpdateProject(ctx context.Context, id string, u core.ProjectUpdate) (*core.Project, error) {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Apply(p)
	p.UpdatedAt = now()

	_, err = s.db.ExecContext(ctx,
		`UPDATE projects SET idea_prompt = ?, outline_text = ?, description_text = ?,
			extra_requirements = ?, template_image_path = ?, template_style = ?,
			image_aspect_ratio = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		p.IdeaPrompt, p.OutlineText, p.DescriptionText,
		p.ExtraRequirements, p.TemplateImagePath, p.TemplateStyle,
		p.ImageAspectRatio, p.Status, p.UpdatedAt,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return p, nil
}

// SetProjectStatus updates only the status column.
func (s *SQLiteStore) SetProjectStatus(ctx context.Context, id string, status core.ProjectStatus) error {
	if s.db == nil {
		return errNotOpened
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`, status, now(), id)
	if err != nil {
		return fmt.Errorf("failed to set project status: %w", err)
	}
	return checkAffected(res, core.NotFound("project", id))
}

// DeleteProject removes a project; pages, versions, tasks, materials and
// reference files cascade.
func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	if s.db == nil {
		return errNotOpened
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return checkAffected(res, core.NotFound("project", id))
}

// touchProject bumps updated_at inside a transaction.
func touchProject(ctx context.Context, tx *sql.Tx, projectID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, now(), projectID)
	return err
}
