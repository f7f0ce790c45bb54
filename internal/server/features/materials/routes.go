// Package materials provides material upload, listing and generation.
package materials

import (
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/deckforge/internal/server/features"
)

// SetupRoutes registers the materials feature routes.
func SetupRoutes(router chi.Router, deps *features.Deps) error {
	h := NewHandlers(deps)

	router.Post("/api/projects/{id}/materials/generate", h.Generate)
	router.Post("/api/materials/upload", h.Upload)
	router.Get("/api/materials", h.List)
	router.Delete("/api/materials/{id}", h.Delete)

	return nil
}
