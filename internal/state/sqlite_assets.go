package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/deckforge/pkg/core"
)

const materialColumns = `id, project_id, filename, relative_path, url, created_at`

func scanMaterial(row rowScanner) (*core.Material, error) {
	m := &core.Material{}
	var projectID sql.NullString
	if err := row.Scan(&m.ID, &projectID, &m.Filename, &m.RelativePath, &m.URL, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.ProjectID = projectID.String
	return m, nil
}

// CreateMaterial inserts a material record.
func (s *SQLiteStore) CreateMaterial(ctx context.Context, m *core.Material) error {
	if s.db == nil {
		return errNotOpened
	}
	if m.ID == "" {
		m.ID = generateID()
	}
	m.CreatedAt = now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO materials (`+materialColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, nullString(m.ProjectID), m.Filename, m.RelativePath, m.URL, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create material: %w", err)
	}
	return nil
}

// GetMaterial retrieves a material by ID.
func (s *SQLiteStore) GetMaterial(ctx context.Context, id string) (*core.Material, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	m, err := scanMaterial(s.db.QueryRowContext(ctx,
		`SELECT `+materialColumns+` FROM materials WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("material", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	return m, nil
}

// ListMaterials lists materials of a project, or every material when
// projectID is empty. Newest first.
func (s *SQLiteStore) ListMaterials(ctx context.Context, projectID string) ([]*core.Material, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	query := `SELECT ` + materialColumns + ` FROM materials`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMaterial removes a material record.
func (s *SQLiteStore) DeleteMaterial(ctx context.Context, id string) error {
	if s.db == nil {
		return errNotOpened
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM materials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}
	return checkAffected(res, core.NotFound("material", id))
}

const referenceColumns = `id, project_id, filename, file_path, file_size, file_type, parse_status,
	markdown_content, error_message, created_at, updated_at`

func scanReferenceFile(row rowScanner) (*core.ReferenceFile, error) {
	f := &core.ReferenceFile{}
	var projectID sql.NullString
	if err := row.Scan(
		&f.ID, &projectID, &f.Filename, &f.FilePath, &f.FileSize, &f.FileType, &f.ParseStatus,
		&f.MarkdownContent, &f.ErrorMessage, &f.CreatedAt, &f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	f.ProjectID = projectID.String
	return f, nil
}

// CreateReferenceFile inserts a reference file with status pending.
func (s *SQLiteStore) CreateReferenceFile(ctx context.Context, f *core.ReferenceFile) error {
	if s.db == nil {
		return errNotOpened
	}
	if f.ID == "" {
		f.ID = generateID()
	}
	if f.ParseStatus == "" {
		f.ParseStatus = core.ParseStatusPending
	}
	f.CreatedAt = now()
	f.UpdatedAt = f.CreatedAt
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reference_files (`+referenceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, nullString(f.ProjectID), f.Filename, f.FilePath, f.FileSize, f.FileType, f.ParseStatus,
		f.MarkdownContent, f.ErrorMessage, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reference file: %w", err)
	}
	return nil
}

// GetReferenceFile retrieves a reference file by ID.
func (s *SQLiteStore) GetReferenceFile(ctx context.Context, id string) (*core.ReferenceFile, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	f, err := scanReferenceFile(s.db.QueryRowContext(ctx,
		`SELECT `+referenceColumns+` FROM reference_files WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("reference file", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reference file: %w", err)
	}
	return f, nil
}

// ListReferenceFiles lists the reference files of a project, oldest first.
func (s *SQLiteStore) ListReferenceFiles(ctx context.Context, projectID string) ([]*core.ReferenceFile, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+referenceColumns+` FROM reference_files WHERE project_id = ? ORDER BY created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.ReferenceFile
	for rows.Next() {
		f, err := scanReferenceFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reference file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateReferenceParse records the outcome of a parse attempt.
func (s *SQLiteStore) UpdateReferenceParse(ctx context.Context, id string, status core.ParseStatus, markdown, errMsg string) error {
	if s.db == nil {
		return errNotOpened
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE reference_files SET parse_status = ?, markdown_content = ?, error_message = ?, updated_at = ?
		 WHERE id = ?`,
		status, markdown, errMsg, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update reference file: %w", err)
	}
	return checkAffected(res, core.NotFound("reference file", id))
}

// DeleteReferenceFile removes a reference file record.
func (s *SQLiteStore) DeleteReferenceFile(ctx context.Context, id string) error {
	if s.db == nil {
		return errNotOpened
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM reference_files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reference file: %w", err)
	}
	return checkAffected(res, core.NotFound("reference file", id))
}
