package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deckforge/internal/server/features"
	internaltasks "github.com/leapstack-labs/deckforge/internal/tasks"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

func submit(t *testing.T, f *features.TestFixture, projectID string, release <-chan struct{}) *core.Task {
	t.Helper()
	task, err := f.Tasks.Submit(context.Background(), projectID, core.TaskTypeGenerateDescriptions, 1,
		func(ctx context.Context, r *internaltasks.Reporter) error {
			select {
			case <-release:
			case <-ctx.Done():
				return ctx.Err()
			}
			r.Succeeded()
			return nil
		})
	require.NoError(t, err)
	return task
}

func TestGetTask(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)
	p := f.Project()
	other := f.Project()

	release := make(chan struct{})
	close(release)
	task := submit(t, f, p.ID, release)
	f.WaitTask(task.ID)

	rec := features.Do(t, h, http.MethodGet, "/api/projects/"+p.ID+"/tasks/"+task.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got core.Task
	features.DecodeEnvelope(t, rec, &got)
	assert.Equal(t, core.TaskStatusCompleted, got.Status)
	assert.Equal(t, 1, got.Progress.Completed)

	rec = features.Do(t, h, http.MethodGet, "/api/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = features.Do(t, h, http.MethodGet, "/api/projects/"+other.ID+"/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = features.Do(t, h, http.MethodGet, "/api/tasks/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStream_FinishedTask(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)
	p := f.Project()

	release := make(chan struct{})
	close(release)
	task := submit(t, f, p.ID, release)
	f.WaitTask(task.ID)

	rec := features.Do(t, h, http.MethodGet, "/api/projects/"+p.ID+"/tasks/"+task.ID+"/stream", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, rec.Body.String(), string(core.TaskStatusCompleted))
	assert.Zero(t, f.Deps.Notifier.Listeners(p.ID))
}

func TestStream_FollowsTaskToCompletion(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)
	p := f.Project()

	release := make(chan struct{})
	task := submit(t, f, p.ID, release)

	req := httptest.NewRequest(http.MethodGet, "/api/projects/"+p.ID+"/tasks/"+task.ID+"/stream", nil)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return f.Deps.Notifier.Listeners(p.ID) == 1 }, 2*time.Second, 5*time.Millisecond)
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after the task completed")
	}
	assert.Contains(t, rec.Body.String(), string(core.TaskStatusCompleted))
	assert.Zero(t, f.Deps.Notifier.Listeners(p.ID))
}

func TestGlobalStream_FollowsProjectTask(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)
	p := f.Project()

	release := make(chan struct{})
	task := submit(t, f, p.ID, release)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+task.ID+"/stream", nil)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return f.Deps.Notifier.Listeners(p.ID) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, f.Deps.Notifier.Listeners(""))
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("global stream did not end after the task completed")
	}
	assert.Contains(t, rec.Body.String(), string(core.TaskStatusCompleted))
	assert.Zero(t, f.Deps.Notifier.Listeners(p.ID))
}

func TestGlobalStream_UnattachedTask(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)

	release := make(chan struct{})
	close(release)
	task := submit(t, f, "", release)
	f.WaitTask(task.ID)

	rec := features.Do(t, h, http.MethodGet, "/api/tasks/"+task.ID+"/stream", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(core.TaskStatusCompleted))

	rec = features.Do(t, h, http.MethodGet, "/api/tasks/missing/stream", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStream_ClientDisconnect(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)
	p := f.Project()

	release := make(chan struct{})
	defer close(release)
	task := submit(t, f, p.ID, release)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/projects/"+p.ID+"/tasks/"+task.ID+"/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return f.Deps.Notifier.Listeners(p.ID) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after the client went away")
	}
	assert.Zero(t, f.Deps.Notifier.Listeners(p.ID))
}
