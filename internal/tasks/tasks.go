// Package tasks runs long generation work off the request path on a
// bounded pool, persisting every state change of a task.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/leapstack-labs/deckforge/pkg/core"
)

// StaleReason is recorded on tasks that were running when the process stopped.
const StaleReason = "interrupted by restart"

// DefaultWorkers is the pool size used when Config.Workers is not positive.
const DefaultWorkers = 4

// ErrShuttingDown is returned by Submit after Shutdown has been called.
var ErrShuttingDown = errors.New("task manager is shutting down")

// Func is the body of a task. Progress is reported through r. Returning an
// error marks the task FAILED with the error text.
type Func func(ctx context.Context, r *Reporter) error

// Broadcaster is told whenever a task of a project changes.
type Broadcaster interface {
	Broadcast(projectID string)
}

// Config holds configuration for the Manager.
type Config struct {
	Store    core.Store
	Notifier Broadcaster
	Workers  int
	Logger   *slog.Logger
}

// Manager runs tasks with bounded concurrency.
type Manager struct {
	store  core.Store
	notify Broadcaster
	sem    *semaphore.Weighted
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Manager.
func New(cfg Config) *Manager {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:  cfg.Store,
		notify: cfg.Notifier,
		sem:    semaphore.NewWeighted(int64(workers)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// RecoverStale marks tasks left PENDING or PROCESSING by a previous run as
// FAILED and releases the reference files, pages and projects those tasks
// had claimed. It returns the number of tasks failed.
func (m *Manager) RecoverStale(ctx context.Context) (int, error) {
	n, err := m.store.FailStaleTasks(ctx, StaleReason)
	if err != nil {
		return 0, fmt.Errorf("failed to recover stale tasks: %w", err)
	}
	if _, err := m.store.ResetInterruptedWork(ctx, StaleReason); err != nil {
		return n, fmt.Errorf("failed to recover stale tasks: %w", err)
	}
	return n, nil
}

// Submit persists a PENDING task and runs fn in the background. total seeds
// progress.total. The returned task is the persisted PENDING record.
func (m *Manager) Submit(ctx context.Context, projectID string, typ core.TaskType, total int, fn Func) (*core.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrShuttingDown
	}

	task := &core.Task{
		ProjectID: projectID,
		Type:      typ,
		Status:    core.TaskStatusPending,
		Progress:  core.TaskProgress{Total: total},
	}
	if err := m.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	m.broadcast(projectID)

	snapshot := *task
	m.wg.Add(1)
	go m.run(snapshot, fn)
	return task, nil
}

// Shutdown stops accepting tasks and waits for running ones. When ctx ends
// first, running tasks are cancelled and ctx.Err() is returned.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancel()
		return nil
	case <-ctx.Done():
		m.cancel()
		<-done
		return ctx.Err()
	}
}

func (m *Manager) run(task core.Task, fn Func) {
	defer m.wg.Done()
	logger := m.logger.With("task_id", task.ID, "task_type", task.Type, "project_id", task.ProjectID)

	// Status writes must land even when the task context is cancelled.
	persistCtx := context.WithoutCancel(m.ctx)

	if err := m.sem.Acquire(m.ctx, 1); err != nil {
		m.finish(persistCtx, logger, task, fmt.Errorf("task cancelled before start: %w", err))
		return
	}
	defer m.sem.Release(1)

	if err := m.store.UpdateTaskStatus(persistCtx, task.ID, core.TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to mark task processing", "error", err)
	}
	m.broadcast(task.ProjectID)
	logger.Info("task started")

	r := &Reporter{
		manager:  m,
		ctx:      persistCtx,
		task:     task.ID,
		project:  task.ProjectID,
		progress: task.Progress,
		logger:   logger,
	}
	m.finish(persistCtx, logger, task, m.call(fn, r))
}

// call runs fn, converting a panic into an error.
func (m *Manager) call(fn Func, r *Reporter) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("task panicked", "panic", rec, "stack", string(debug.Stack()))
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()
	return fn(m.ctx, r)
}

func (m *Manager) finish(ctx context.Context, logger *slog.Logger, task core.Task, err error) {
	status, msg := core.TaskStatusCompleted, ""
	if err != nil {
		status, msg = core.TaskStatusFailed, err.Error()
		logger.Warn("task failed", "error", err)
	} else {
		logger.Info("task completed")
	}
	if uerr := m.store.UpdateTaskStatus(ctx, task.ID, status, msg); uerr != nil {
		logger.Error("failed to record task outcome", "status", status, "error", uerr)
	}
	m.broadcast(task.ProjectID)
}

func (m *Manager) broadcast(projectID string) {
	if m.notify != nil {
		m.notify.Broadcast(projectID)
	}
}

// Reporter lets a running task record progress and results. Safe for
// concurrent use by page workers.
type Reporter struct {
	manager *Manager
	ctx     context.Context
	task    string
	project string
	logger  *slog.Logger

	mu       sync.Mutex
	progress core.TaskProgress
}

// TaskID returns the ID of the task being reported on.
func (r *Reporter) TaskID() string { return r.task }

// Logger returns a logger annotated with the task.
func (r *Reporter) Logger() *slog.Logger { return r.logger }

// SetTotal replaces progress.total.
func (r *Reporter) SetTotal(total int) {
	r.update(func(p *core.TaskProgress) { p.Total = total })
}

// Succeeded counts one completed unit.
func (r *Reporter) Succeeded() {
	r.update(func(p *core.TaskProgress) { p.Completed++ })
}

// Failed counts one failed unit.
func (r *Reporter) Failed() {
	r.update(func(p *core.TaskProgress) { p.Failed++ })
}

// Progress returns a snapshot of the counters.
func (r *Reporter) Progress() core.TaskProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// SetResult stores the task's result object.
func (r *Reporter) SetResult(result map[string]any) {
	if err := r.manager.store.SetTaskResult(r.ctx, r.task, result); err != nil {
		r.logger.Error("failed to store task result", "error", err)
	}
	r.manager.broadcast(r.project)
}

func (r *Reporter) update(fn func(*core.TaskProgress)) {
	r.mu.Lock()
	fn(&r.progress)
	p := r.progress
	err := r.manager.store.UpdateTaskProgress(r.ctx, r.task, p)
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("failed to update task progress", "error", err)
	}
	r.manager.broadcast(r.project)
}
