// Package settings provides the runtime settings endpoints.
package settings

import (
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/deckforge/internal/server/features"
)

// SetupRoutes registers the settings feature routes.
func SetupRoutes(router chi.Router, deps *features.Deps) error {
	h := NewHandlers(deps)

	router.Get("/api/settings", h.Get)
	router.Put("/api/settings", h.Update)
	router.Post("/api/settings/reset", h.Reset)

	return nil
}
