// Package projects provides the project, generation, template and export
// endpoints.
package projects

import (
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/deckforge/internal/server/features"
)

// SetupRoutes registers the projects feature routes.
// Routes are registered with full paths so that other features can add
// routes under /api/projects/{id} without a conflicting mount.
func SetupRoutes(router chi.Router, deps *features.Deps) error {
	h := NewHandlers(deps)

	router.Post("/api/projects", h.Create)
	router.Get("/api/projects", h.List)

	router.Get("/api/projects/{id}", h.Get)
	router.Put("/api/projects/{id}", h.Update)
	router.Delete("/api/projects/{id}", h.Delete)

	router.Post("/api/projects/{id}/generate/outline", h.GenerateOutline)
	router.Post("/api/projects/{id}/generate/from-description", h.GenerateFromDescription)
	router.Post("/api/projects/{id}/generate/descriptions", h.GenerateDescriptions)
	router.Post("/api/projects/{id}/generate/images", h.GenerateImages)
	router.Post("/api/projects/{id}/refine/outline", h.RefineOutline)
	router.Post("/api/projects/{id}/refine/descriptions", h.RefineDescriptions)

	router.Post("/api/projects/{id}/template", h.UploadTemplate)
	router.Delete("/api/projects/{id}/template", h.DeleteTemplate)

	router.Get("/api/projects/{id}/export/{format}", h.Export)

	return nil
}
