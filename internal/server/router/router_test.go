package router

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deckforge/internal/server/features"
	"github.com/leapstack-labs/deckforge/internal/server/respond"
)

func TestSetupRoutes(t *testing.T) {
	f := features.SetupTestFixture(t)
	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(r, f.Deps))
	p := f.Project("One")

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/projects", http.StatusOK},
		{http.MethodGet, "/api/projects/" + p.ID, http.StatusOK},
		{http.MethodGet, "/api/projects/" + p.ID + "/pages/" + p.Pages[0].ID + "/image-versions", http.StatusOK},
		{http.MethodGet, "/api/projects/" + p.ID + "/reference-files", http.StatusOK},
		{http.MethodGet, "/api/projects/" + p.ID + "/tasks/missing", http.StatusNotFound},
		{http.MethodGet, "/api/materials", http.StatusOK},
		{http.MethodGet, "/api/settings", http.StatusOK},
		{http.MethodGet, "/api/nothing", http.StatusNotFound},
		{http.MethodPatch, "/api/projects", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := features.Do(t, r, tt.method, tt.path, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			env := features.DecodeEnvelope(t, rec, nil)
			assert.Equal(t, tt.want < 300, env.Success)
			if tt.want == http.StatusNotFound {
				assert.Equal(t, respond.CodeNotFound, env.Error.Code)
			}
		})
	}
}
