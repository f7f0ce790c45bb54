package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/deckforge/pkg/core"
)

const versionColumns = `id, page_id, image_path, version_number, is_current, created_at`

func scanVersion(row rowScanner) (*core.PageImageVersion, error) {
	v := &core.PageImageVersion{}
	if err := row.Scan(&v.ID, &v.PageID, &v.ImagePath, &v.VersionNumber, &v.IsCurrent, &v.CreatedAt); err != nil {
		return nil, err
	}
	return v, nil
}

// AddImageVersion records a new image for a page, makes it current and
// points the page at it.
func (s *SQLiteStore) AddImageVersion(ctx context.Context, pageID, imagePath string) (*core.PageImageVersion, error) {
	v := &core.PageImageVersion{
		ID:        generateID(),
		PageID:    pageID,
		ImagePath: imagePath,
		IsCurrent: true,
		CreatedAt: now(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var maxVersion sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(version_number) FROM page_image_versions WHERE page_id = ?`, pageID,
		).Scan(&maxVersion); err != nil {
			return fmt.Errorf("failed to read version number: %w", err)
		}
		v.VersionNumber = 1
		if maxVersion.Valid {
			v.VersionNumber = int(maxVersion.Int64) + 1
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE page_image_versions SET is_current = 0 WHERE page_id = ?`, pageID,
		); err != nil {
			return fmt.Errorf("failed to clear current version: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO page_image_versions (`+versionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			v.ID, v.PageID, v.ImagePath, v.VersionNumber, v.IsCurrent, v.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert image version: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE pages SET generated_image_path = ?, status = ?, updated_at = ? WHERE id = ?`,
			imagePath, core.PageStatusImageGenerated, v.CreatedAt, pageID)
		if err != nil {
			return fmt.Errorf("failed to update page image: %w", err)
		}
		return checkAffected(res, core.NotFound("page", pageID))
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListImageVersions returns a page's versions, newest first.
func (s *SQLiteStore) ListImageVersions(ctx context.Context, pageID string) ([]*core.PageImageVersion, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM page_image_versions WHERE page_id = ? ORDER BY version_number DESC`, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list image versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []*core.PageImageVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// SetCurrentImageVersion makes versionID the current image of pageID.
func (s *SQLiteStore) SetCurrentImageVersion(ctx context.Context, pageID, versionID string) (*core.PageImageVersion, error) {
	var v *core.PageImageVersion
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		v, err = scanVersion(tx.QueryRowContext(ctx,
			`SELECT `+versionColumns+` FROM page_image_versions WHERE id = ? AND page_id = ?`, versionID, pageID))
		if errors.Is(err, sql.ErrNoRows) {
			return core.NotFound("image version", versionID)
		}
		if err != nil {
			return fmt.Errorf("failed to get image version: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE page_image_versions SET is_current = (id = ?) WHERE page_id = ?`, versionID, pageID,
		); err != nil {
			return fmt.Errorf("failed to switch current version: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE pages SET generated_image_path = ?, status = ?, updated_at = ? WHERE id = ?`,
			v.ImagePath, core.PageStatusImageGenerated, now(), pageID,
		); err != nil {
			return fmt.Errorf("failed to update page image: %w", err)
		}
		v.IsCurrent = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}
