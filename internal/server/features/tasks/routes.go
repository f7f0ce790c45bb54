// Package tasks provides task polling and the task progress SSE stream.
package tasks

import (
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/deckforge/internal/server/features"
)

// SetupRoutes registers the tasks feature routes.
func SetupRoutes(router chi.Router, deps *features.Deps) error {
	h := NewHandlers(deps)

	router.Get("/api/projects/{id}/tasks/{task_id}", h.Get)
	router.Get("/api/projects/{id}/tasks/{task_id}/stream", h.Stream)

	// Tasks of global items such as unattached reference files.
	router.Get("/api/tasks/{task_id}", h.Get)
	router.Get("/api/tasks/{task_id}/stream", h.Stream)

	return nil
}
