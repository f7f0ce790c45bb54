// Package pages provides the page editing and per-page generation endpoints.
package pages

import (
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/deckforge/internal/server/features"
)

// SetupRoutes registers the pages feature routes.
func SetupRoutes(router chi.Router, deps *features.Deps) error {
	h := NewHandlers(deps)

	router.Post("/api/projects/{id}/pages", h.Create)
	router.Put("/api/projects/{id}/pages/reorder", h.Reorder)
	router.Put("/api/projects/{id}/pages/{page_id}", h.Update)
	router.Delete("/api/projects/{id}/pages/{page_id}", h.Delete)
	router.Put("/api/projects/{id}/pages/{page_id}/outline", h.UpdateOutline)
	router.Put("/api/projects/{id}/pages/{page_id}/description", h.UpdateDescription)

	router.Post("/api/projects/{id}/pages/{page_id}/generate/description", h.GenerateDescription)
	router.Post("/api/projects/{id}/pages/{page_id}/generate/image", h.GenerateImage)
	router.Post("/api/projects/{id}/pages/{page_id}/edit/image", h.EditImage)

	router.Get("/api/projects/{id}/pages/{page_id}/image-versions", h.Versions)
	router.Post("/api/projects/{id}/pages/{page_id}/image-versions/{version_id}/set-current", h.SetCurrentVersion)

	return nil
}
