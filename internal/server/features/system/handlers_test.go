package system

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deckforge/internal/server/features"
)

func TestHealth(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)

	rec := features.Do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got HealthResponse
	env := features.DecodeEnvelope(t, rec, &got)
	assert.True(t, env.Success)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "test", got.Version)
}

func TestServeFile(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)

	rel, err := f.Deps.Files.Write("p1/exports", "deck.md", []byte("# Deck"))
	require.NoError(t, err)

	rec := features.Do(t, h, http.MethodGet, "/files/"+rel, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# Deck", rec.Body.String())

	tests := []struct {
		path string
		want int
	}{
		{"/files/p1/exports/missing.md", http.StatusNotFound},
		{"/files/p1/exports", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := features.Do(t, h, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}
