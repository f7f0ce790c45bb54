// Package system provides the health check and stored-file serving.
package system

import (
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/internal/server/features"
)

// SetupRoutes registers the system feature routes.
func SetupRoutes(router chi.Router, deps *features.Deps) error {
	h := NewHandlers(deps)

	router.Get("/health", h.Health)
	router.Get(files.URLPrefix+"*", h.ServeFile)
	router.Head(files.URLPrefix+"*", h.ServeFile)

	return nil
}
