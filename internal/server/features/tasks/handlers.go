package tasks

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/deckforge/internal/server/features"
	"github.com/leapstack-labs/deckforge/internal/server/respond"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// keepAlive re-sends the task state when nothing changed for this long,
// so proxies do not drop an idle stream.
const keepAlive = 15 * time.Second

// Handlers provides HTTP handlers for the tasks feature.
type Handlers struct {
	*features.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps *features.Deps) *Handlers {
	return &Handlers{Deps: deps}
}

// TaskSignals is the signal payload patched into the client on each change.
type TaskSignals struct {
	Task *core.Task `json:"task"`
}

// load returns the task if it belongs to the project in the URL. Routes
// without a project id match any task.
func (h *Handlers) load(ctx context.Context, projectID, taskID string) (*core.Task, error) {
	t, err := h.Store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if projectID != "" && t.ProjectID != projectID {
		return nil, core.NotFound("task", taskID)
	}
	return t, nil
}

// Get returns the current state of a task.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.load(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "task_id"))
	if err != nil {
		respond.Error(w, r, h.Log(), err)
		return
	}
	respond.OK(w, t, "")
}

// Stream pushes the task as datastar signals whenever the tasks of its
// project change, and ends once the task reaches a terminal status.
func (h *Handlers) Stream(w http.ResponseWriter, r *http.Request) {
	projectID, taskID := chi.URLParam(r, "id"), chi.URLParam(r, "task_id")
	ctx := r.Context()

	t, err := h.load(ctx, projectID, taskID)
	if err != nil {
		respond.Error(w, r, h.Log(), err)
		return
	}

	// Changes are broadcast on the task's own project topic, which the
	// global routes do not carry in the URL. Reload after subscribing so no
	// change is missed in between.
	topic := t.ProjectID
	updates := h.Notifier.Subscribe(topic)
	defer h.Notifier.Unsubscribe(topic, updates)
	if t, err = h.load(ctx, projectID, taskID); err != nil {
		respond.Error(w, r, h.Log(), err)
		return
	}

	sse := datastar.NewSSE(w, r)
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		if err := sse.MarshalAndPatchSignals(TaskSignals{Task: t}); err != nil {
			return
		}
		if t.Status.Terminal() {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-updates:
		case <-ticker.C:
		}

		if t, err = h.load(ctx, projectID, taskID); err != nil {
			_ = sse.ConsoleError(err)
			return
		}
	}
}
