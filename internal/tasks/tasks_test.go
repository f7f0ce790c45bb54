package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/leapstack-labs/deckforge/internal/state"
	"github.com/leapstack-labs/deckforge/internal/testutil"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingNotifier struct {
	mu    sync.Mutex
	count map[string]int
}

func (n *countingNotifier) Broadcast(projectID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.count == nil {
		n.count = make(map[string]int)
	}
	n.count[projectID]++
}

func (n *countingNotifier) get(projectID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count[projectID]
}

type fixture struct {
	store    *state.SQLiteStore
	manager  *Manager
	notifier *countingNotifier
	project  *core.Project
}

func setup(t *testing.T, workers int) *fixture {
	t.Helper()
	logger := testutil.NewTestLogger(t)

	store := state.NewSQLiteStore(logger)
	require.NoError(t, store.Open(filepath.Join(t.TempDir(), "state.db")))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })

	project := &core.Project{IdeaPrompt: "tasks"}
	require.NoError(t, store.CreateProject(context.Background(), project))

	n := &countingNotifier{}
	m := New(Config{Store: store, Notifier: n, Workers: workers, Logger: logger})
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	return &fixture{store: store, manager: m, notifier: n, project: project}
}

func waitForStatus(t *testing.T, store core.Store, id string, want core.TaskStatus) *core.Task {
	t.Helper()
	var task *core.Task
	require.Eventually(t, func() bool {
		var err error
		task, err = store.GetTask(context.Background(), id)
		return err == nil && task.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return task
}

func TestManager_CompletesWithProgressAndResult(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()

	task, err := f.manager.Submit(ctx, f.project.ID, core.TaskTypeGenerateImages, 3, func(_ context.Context, r *Reporter) error {
		r.Succeeded()
		r.Succeeded()
		r.Failed()
		r.SetResult(map[string]any{"pages": 2})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusPending, task.Status)
	assert.Equal(t, 3, task.Progress.Total)

	done := waitForStatus(t, f.store, task.ID, core.TaskStatusCompleted)
	assert.Equal(t, core.TaskProgress{Total: 3, Completed: 2, Failed: 1}, done.Progress)
	assert.EqualValues(t, 2, done.Result["pages"])
	assert.NotNil(t, done.CompletedAt)
	assert.GreaterOrEqual(t, f.notifier.get(f.project.ID), 6)
}

func TestManager_ErrorMarksFailed(t *testing.T) {
	f := setup(t, 1)

	task, err := f.manager.Submit(context.Background(), f.project.ID, core.TaskTypeGenerateDescriptions, 1, func(context.Context, *Reporter) error {
		return errors.New("provider exploded")
	})
	require.NoError(t, err)

	failed := waitForStatus(t, f.store, task.ID, core.TaskStatusFailed)
	assert.Equal(t, "provider exploded", failed.ErrorMessage)
}

func TestManager_PanicMarksFailed(t *testing.T) {
	f := setup(t, 1)

	task, err := f.manager.Submit(context.Background(), f.project.ID, core.TaskTypeEditPageImage, 1, func(context.Context, *Reporter) error {
		panic("nil image")
	})
	require.NoError(t, err)

	failed := waitForStatus(t, f.store, task.ID, core.TaskStatusFailed)
	assert.Contains(t, failed.ErrorMessage, "nil image")
}

func TestManager_BoundsConcurrency(t *testing.T) {
	f := setup(t, 2)

	var running, peak atomic.Int32
	release := make(chan struct{})
	ids := make([]string, 5)
	for i := range ids {
		task, err := f.manager.Submit(context.Background(), f.project.ID, core.TaskTypeGenerateMaterial, 1, func(context.Context, *Reporter) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return nil
		})
		require.NoError(t, err)
		ids[i] = task.ID
	}

	require.Eventually(t, func() bool { return running.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
	close(release)
	for _, id := range ids {
		waitForStatus(t, f.store, id, core.TaskStatusCompleted)
	}
	assert.Equal(t, int32(2), peak.Load())
}

func TestManager_ShutdownWaitsAndRejects(t *testing.T) {
	f := setup(t, 1)

	started := make(chan struct{})
	task, err := f.manager.Submit(context.Background(), f.project.ID, core.TaskTypeGenerateImages, 1, func(context.Context, *Reporter) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	<-started

	require.NoError(t, f.manager.Shutdown(context.Background()))
	got, err := f.store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusCompleted, got.Status)

	_, err = f.manager.Submit(context.Background(), f.project.ID, core.TaskTypeGenerateImages, 1, func(context.Context, *Reporter) error { return nil })
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestManager_ShutdownTimeoutCancelsTasks(t *testing.T) {
	f := setup(t, 1)

	started := make(chan struct{})
	task, err := f.manager.Submit(context.Background(), f.project.ID, core.TaskTypeGenerateImages, 1, func(ctx context.Context, _ *Reporter) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.manager.Shutdown(ctx), context.DeadlineExceeded)

	got, err := f.store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusFailed, got.Status)
}

func TestManager_RecoverStale(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	stale := &core.Task{ProjectID: f.project.ID, Type: core.TaskTypeGenerateImages, Status: core.TaskStatusProcessing}
	require.NoError(t, f.store.CreateTask(ctx, stale))

	n, err := f.manager.RecoverStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.store.GetTask(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StaleReason, got.ErrorMessage)
}
