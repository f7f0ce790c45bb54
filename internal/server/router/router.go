// Package router sets up HTTP routes for the API server.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/deckforge/internal/server/features"
	materialsFeature "github.com/leapstack-labs/deckforge/internal/server/features/materials"
	pagesFeature "github.com/leapstack-labs/deckforge/internal/server/features/pages"
	projectsFeature "github.com/leapstack-labs/deckforge/internal/server/features/projects"
	referencesFeature "github.com/leapstack-labs/deckforge/internal/server/features/references"
	settingsFeature "github.com/leapstack-labs/deckforge/internal/server/features/settings"
	systemFeature "github.com/leapstack-labs/deckforge/internal/server/features/system"
	tasksFeature "github.com/leapstack-labs/deckforge/internal/server/features/tasks"
	"github.com/leapstack-labs/deckforge/internal/server/respond"
)

// SetupRoutes configures all routes for the API server.
func SetupRoutes(router chi.Router, deps *features.Deps) error {
	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respond.Fail(w, http.StatusNotFound, respond.CodeNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respond.Fail(w, http.StatusMethodNotAllowed, respond.CodeInvalidRequest, "method not allowed")
	})

	setups := []func(chi.Router, *features.Deps) error{
		systemFeature.SetupRoutes,
		projectsFeature.SetupRoutes,
		pagesFeature.SetupRoutes,
		tasksFeature.SetupRoutes,
		materialsFeature.SetupRoutes,
		referencesFeature.SetupRoutes,
		settingsFeature.SetupRoutes,
	}
	for _, setup := range setups {
		if err := setup(router, deps); err != nil {
			return err
		}
	}
	return nil
}
