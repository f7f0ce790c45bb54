package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/deckforge/pkg/core"
)

const pageColumns = `id, project_id, order_index, part, outline_content, description_content,
	generated_image_path, status, created_at, updated_at`

func scanPage(row rowScanner) (*core.Page, error) {
	p := &core.Page{}
	var outline, description sql.NullString
	err := row.Scan(
		&p.ID, &p.ProjectID, &p.OrderIndex, &p.Part, &outline, &description,
		&p.GeneratedImagePath, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if outline.Valid {
		p.Outline = &core.OutlineContent{}
		if err := unmarshalJSON(outline, p.Outline); err != nil {
			return nil, fmt.Errorf("failed to decode outline of page %s: %w", p.ID, err)
		}
	}
	if description.Valid {
		p.Description = &core.DescriptionContent{}
		if err := unmarshalJSON(description, p.Description); err != nil {
			return nil, fmt.Errorf("failed to decode description of page %s: %w", p.ID, err)
		}
	}
	return p, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPage(ctx context.Context, db execer, p *core.Page) error {
	if p.ID == "" {
		p.ID = generateID()
	}
	if p.Status == "" {
		p.Status = core.PageStatusDraft
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	outline, err := marshalJSON(p.Outline)
	if err != nil {
		return fmt.Errorf("failed to encode outline: %w", err)
	}
	description, err := marshalJSON(p.Description)
	if err != nil {
		return fmt.Errorf("failed to encode description: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO pages (`+pageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ProjectID, p.OrderIndex, p.Part, outline, description,
		p.GeneratedImagePath, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// CreatePage inserts a page. A negative OrderIndex appends it after the last page.
func (s *SQLiteStore) CreatePage(ctx context.Context, p *core.Page) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if p.OrderIndex < 0 {
			var maxIndex sql.NullInt64
			if err := tx.QueryRowContext(ctx,
				`SELECT MAX(order_index) FROM pages WHERE project_id = ?`, p.ProjectID,
			).Scan(&maxIndex); err != nil {
				return fmt.Errorf("failed to read page order: %w", err)
			}
			p.OrderIndex = 0
			if maxIndex.Valid {
				p.OrderIndex = int(maxIndex.Int64) + 1
			}
		} else {
			// Make room at the requested position
			if _, err := tx.ExecContext(ctx,
				`UPDATE pages SET order_index = order_index + 1 WHERE project_id = ? AND order_index >= ?`,
				p.ProjectID, p.OrderIndex,
			); err != nil {
				return fmt.Errorf("failed to shift pages: %w", err)
			}
		}
		if err := insertPage(ctx, tx, p); err != nil {
			return fmt.Errorf("failed to create page: %w", err)
		}
		return touchProject(ctx, tx, p.ProjectID)
	})
}

// GetPage retrieves a page that belongs to the given project.
func (s *SQLiteStore) GetPage(ctx context.Context, projectID, pageID string) (*core.Page, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	p, err := scanPage(s.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = ? AND project_id = ?`, pageID, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("page", pageID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return p, nil
}

// ListPages returns a project's pages ordered by order_index.
func (s *SQLiteStore) ListPages(ctx context.Context, projectID string) ([]*core.Page, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE project_id = ? ORDER BY order_index, created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []*core.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// ReplacePages deletes every page of a project and inserts the given ones in order.
func (s *SQLiteStore) ReplacePages(ctx context.Context, projectID string, pages []*core.Page) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE project_id = ?`, projectID); err != nil {
			return fmt.Errorf("failed to clear pages: %w", err)
		}
		for i, p := range pages {
			p.ProjectID = projectID
			p.OrderIndex = i
			if err := insertPage(ctx, tx, p); err != nil {
				return fmt.Errorf("failed to insert page %d: %w", i, err)
			}
		}
		return touchProject(ctx, tx, projectID)
	})
}

// EditPage writes the fields set in edit and leaves every other column,
// including status and the generated image, as stored. A non-empty
// description moves a DRAFT page to DESCRIPTION_GENERATED.
func (s *SQLiteStore) EditPage(ctx context.Context, projectID, pageID string, edit core.PageEdit) error {
	if s.db == nil {
		return errNotOpened
	}
	sets := []string{"updated_at = ?"}
	args := []any{now()}
	if edit.Part != nil {
		sets = append(sets, "part = ?")
		args = append(args, *edit.Part)
	}
	if edit.Outline != nil {
		outline, err := marshalJSON(edit.Outline)
		if err != nil {
			return fmt.Errorf("failed to encode outline: %w", err)
		}
		sets = append(sets, "outline_content = ?")
		args = append(args, outline)
	}
	if edit.Description != nil {
		description, err := marshalJSON(edit.Description)
		if err != nil {
			return fmt.Errorf("failed to encode description: %w", err)
		}
		sets = append(sets, "description_content = ?")
		args = append(args, description)
		if edit.Description.Text != "" {
			sets = append(sets, "status = CASE WHEN status = ? THEN ? ELSE status END")
			args = append(args, core.PageStatusDraft, core.PageStatusDescriptionGenerated)
		}
	}
	args = append(args, pageID, projectID)

	res, err := s.db.ExecContext(ctx,
		`UPDATE pages SET `+strings.Join(sets, ", ")+` WHERE id = ? AND project_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	return checkAffected(res, core.NotFound("page", pageID))
}

// SetPageDescription writes a page's description and status without
// touching its outline, part or image.
func (s *SQLiteStore) SetPageDescription(ctx context.Context, pageID string, desc *core.DescriptionContent, status core.PageStatus) error {
	if s.db == nil {
		return errNotOpened
	}
	description, err := marshalJSON(desc)
	if err != nil {
		return fmt.Errorf("failed to encode description: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE pages SET description_content = ?, status = ?, updated_at = ? WHERE id = ?`,
		description, status, now(), pageID)
	if err != nil {
		return fmt.Errorf("failed to set page description: %w", err)
	}
	return checkAffected(res, core.NotFound("page", pageID))
}

// SetPageStatus updates only the status column.
func (s *SQLiteStore) SetPageStatus(ctx context.Context, pageID string, status core.PageStatus) error {
	if s.db == nil {
		return errNotOpened
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE pages SET status = ?, updated_at = ? WHERE id = ?`, status, now(), pageID)
	if err != nil {
		return fmt.Errorf("failed to set page status: %w", err)
	}
	return checkAffected(res, core.NotFound("page", pageID))
}

// ReorderPages rewrites order_index from the given id order. The list must
// name every page of the project exactly once.
func (s *SQLiteStore) ReorderPages(ctx context.Context, projectID string, pageIDs []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pages WHERE project_id = ?`, projectID,
		).Scan(&count); err != nil {
			return fmt.Errorf("failed to count pages: %w", err)
		}

		seen := make(map[string]bool, len(pageIDs))
		for _, id := range pageIDs {
			if seen[id] {
				return core.Invalidf("duplicate page id %s", id)
			}
			seen[id] = true
		}
		if len(pageIDs) != count {
			return core.Invalidf("expected %d page ids, got %d", count, len(pageIDs))
		}

		for i, id := range pageIDs {
			res, err := tx.ExecContext(ctx,
				`UPDATE pages SET order_index = ?, updated_at = ? WHERE id = ? AND project_id = ?`,
				i, now(), id, projectID)
			if err != nil {
				return fmt.Errorf("failed to reorder page %s: %w", id, err)
			}
			if err := checkAffected(res, core.NotFound("page", id)); err != nil {
				return err
			}
		}
		return touchProject(ctx, tx, projectID)
	})
}

// DeletePage removes a page and closes the gap in order_index.
func (s *SQLiteStore) DeletePage(ctx context.Context, projectID, pageID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var orderIndex int
		err := tx.QueryRowContext(ctx,
			`SELECT order_index FROM pages WHERE id = ? AND project_id = ?`, pageID, projectID,
		).Scan(&orderIndex)
		if errors.Is(err, sql.ErrNoRows) {
			return core.NotFound("page", pageID)
		}
		if err != nil {
			return fmt.Errorf("failed to get page: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, pageID); err != nil {
			return fmt.Errorf("failed to delete page: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE pages SET order_index = order_index - 1 WHERE project_id = ? AND order_index > ?`,
			projectID, orderIndex,
		); err != nil {
			return fmt.Errorf("failed to compact page order: %w", err)
		}
		return touchProject(ctx, tx, projectID)
	})
}
