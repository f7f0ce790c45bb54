package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/deckforge/pkg/core"
)

const taskColumns = `id, project_id, task_type, status, progress, error_message, result,
	created_at, completed_at`

func scanTask(row rowScanner) (*core.Task, error) {
	t := &core.Task{}
	var projectID, progress, result sql.NullString
	var completedAt sql.NullTime
	if err := row.Scan(
		&t.ID, &projectID, &t.Type, &t.Status, &progress, &t.ErrorMessage, &result,
		&t.CreatedAt, &completedAt,
	); err != nil {
		return nil, err
	}
	t.ProjectID = projectID.String
	if err := unmarshalJSON(progress, &t.Progress); err != nil {
		return nil, fmt.Errorf("failed to decode progress of task %s: %w", t.ID, err)
	}
	if err := unmarshalJSON(result, &t.Result); err != nil {
		return nil, fmt.Errorf("failed to decode result of task %s: %w", t.ID, err)
	}
	if completedAt.Valid {
		ts := completedAt.Time
		t.CompletedAt = &ts
	}
	return t, nil
}

// CreateTask inserts a task. Status defaults to PENDING.
func (s *SQLiteStore) CreateTask(ctx context.Context, t *core.Task) error {
	if s.db == nil {
		return errNotOpened
	}
	if t.ID == "" {
		t.ID = generateID()
	}
	if t.Status == "" {
		t.Status = core.TaskStatusPending
	}
	t.CreatedAt = now()

	progress, err := marshalJSON(t.Progress)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	result, err := marshalJSON(t.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, nullString(t.ProjectID), t.Type, t.Status, progress, t.ErrorMessage, result,
		t.CreatedAt, nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*core.Task, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// UpdateTaskStatus sets status and error message. Terminal statuses also
// stamp completed_at.
func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, id string, status core.TaskStatus, errMsg string) error {
	if s.db == nil {
		return errNotOpened
	}
	var completedAt any
	if status.Terminal() {
		completedAt = now()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, error_message = ?, completed_at = ? WHERE id = ?`,
		status, errMsg, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return checkAffected(res, core.NotFound("task", id))
}

// UpdateTaskProgress replaces the progress counters of a task.
func (s *SQLiteStore) UpdateTaskProgress(ctx context.Context, id string, progress core.TaskProgress) error {
	if s.db == nil {
		return errNotOpened
	}
	encoded, err := marshalJSON(progress)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET progress = ? WHERE id = ?`, encoded, id)
	if err != nil {
		return fmt.Errorf("failed to update task progress: %w", err)
	}
	return checkAffected(res, core.NotFound("task", id))
}

// SetTaskResult stores the free-form result object of a task.
func (s *SQLiteStore) SetTaskResult(ctx context.Context, id string, result map[string]any) error {
	if s.db == nil {
		return errNotOpened
	}
	encoded, err := marshalJSON(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET result = ? WHERE id = ?`, encoded, id)
	if err != nil {
		return fmt.Errorf("failed to set task result: %w", err)
	}
	return checkAffected(res, core.NotFound("task", id))
}

// FailStaleTasks marks every PENDING or PROCESSING task as FAILED and
// returns how many were changed.
func (s *SQLiteStore) FailStaleTasks(ctx context.Context, reason string) (int, error) {
	if s.db == nil {
		return 0, errNotOpened
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, error_message = ?, completed_at = ?
		 WHERE status IN (?, ?)`,
		core.TaskStatusFailed, reason, now(), core.TaskStatusPending, core.TaskStatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Warn("marked stale tasks as failed", "count", n)
	}
	return int(n), nil
}

// ResetInterruptedWork releases rows left mid-flight by tasks that never
// finished: reference files stuck in parsing become failed, GENERATING pages
// fall back to IMAGE_GENERATED or FAILED, and GENERATING_IMAGES projects are
// settled from their pages. It returns the number of rows changed.
func (s *SQLiteStore) ResetInterruptedWork(ctx context.Context, reason string) (int, error) {
	var total int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ts := now()
		stmts := []struct {
			query string
			args  []any
		}{
			{
				`UPDATE reference_files SET parse_status = ?, error_message = ?, updated_at = ?
				 WHERE parse_status = ?`,
				[]any{core.ParseStatusFailed, reason, ts, core.ParseStatusParsing},
			},
			{
				`UPDATE pages SET status = CASE WHEN generated_image_path != '' THEN ? ELSE ? END, updated_at = ?
				 WHERE status = ?`,
				[]any{core.PageStatusImageGenerated, core.PageStatusFailed, ts, core.PageStatusGenerating},
			},
			{
				`UPDATE projects SET status = CASE
				   WHEN EXISTS (SELECT 1 FROM pages WHERE pages.project_id = projects.id AND pages.generated_image_path = '')
				   THEN ? ELSE ? END, updated_at = ?
				 WHERE status = ?`,
				[]any{core.ProjectStatusDescriptionsGenerated, core.ProjectStatusCompleted, ts, core.ProjectStatusGeneratingImages},
			},
		}
		for _, st := range stmts {
			res, err := tx.ExecContext(ctx, st.query, st.args...)
			if err != nil {
				return fmt.Errorf("failed to reset interrupted work: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if total > 0 {
		s.logger.Warn("reset work interrupted by restart", "count", total)
	}
	return int(total), nil
}
