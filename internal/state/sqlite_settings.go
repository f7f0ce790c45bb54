package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/deckforge/pkg/core"
)

const settingsColumns = `ai_provider_format, text_provider_format, image_provider_format,
	api_base_url, api_key, vertex_project_id, vertex_location, text_model, image_model,
	image_resolution, image_aspect_ratio, max_description_workers, max_image_workers,
	output_language, updated_at`

func settingsArgs(st *core.Settings) []any {
	return []any{
		st.AIProviderFormat, st.TextProviderFormat, st.ImageProviderFormat,
		st.APIBaseURL, st.APIKey, st.VertexProjectID, st.VertexLocation, st.TextModel, st.ImageModel,
		st.ImageResolution, st.ImageAspectRatio, st.MaxDescriptionWorkers, st.MaxImageWorkers,
		st.OutputLanguage, st.UpdatedAt,
	}
}

// GetSettings returns the settings row, creating it with defaults on first use.
func (s *SQLiteStore) GetSettings(ctx context.Context) (*core.Settings, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	st := &core.Settings{}
	err := s.db.QueryRowContext(ctx, `SELECT `+settingsColumns+` FROM settings WHERE id = 1`).Scan(
		&st.AIProviderFormat, &st.TextProviderFormat, &st.ImageProviderFormat,
		&st.APIBaseURL, &st.APIKey, &st.VertexProjectID, &st.VertexLocation, &st.TextModel, &st.ImageModel,
		&st.ImageResolution, &st.ImageAspectRatio, &st.MaxDescriptionWorkers, &st.MaxImageWorkers,
		&st.OutputLanguage, &st.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		st = core.DefaultSettings()
		if err := s.SaveSettings(ctx, st); err != nil {
			return nil, err
		}
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return st, nil
}

// SaveSettings upserts the settings row.
func (s *SQLiteStore) SaveSettings(ctx context.Context, st *core.Settings) error {
	if s.db == nil {
		return errNotOpened
	}
	st.ApplyDefaults()
	st.UpdatedAt = now()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO settings (id, `+settingsColumns+`)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settingsArgs(st)...)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// ResetSettings restores the defaults and returns them.
func (s *SQLiteStore) ResetSettings(ctx context.Context) (*core.Settings, error) {
	st := core.DefaultSettings()
	if err := s.SaveSettings(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
