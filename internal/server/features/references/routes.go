// Package references provides reference-file upload and parsing.
package references

import (
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/deckforge/internal/server/features"
)

// SetupRoutes registers the reference files feature routes.
func SetupRoutes(router chi.Router, deps *features.Deps) error {
	h := NewHandlers(deps)

	router.Post("/api/reference-files/upload", h.Upload)
	router.Get("/api/reference-files/{id}", h.Get)
	router.Delete("/api/reference-files/{id}", h.Delete)
	router.Post("/api/reference-files/{id}/parse", h.Parse)
	router.Get("/api/projects/{id}/reference-files", h.ListForProject)

	return nil
}
