package system

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/deckforge/internal/server/features"
	"github.com/leapstack-labs/deckforge/internal/server/respond"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Handlers provides HTTP handlers for the system feature.
type Handlers struct {
	*features.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps *features.Deps) *Handlers {
	return &Handlers{Deps: deps}
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	respond.OK(w, HealthResponse{Status: "ok", Version: h.Version}, "")
}

// ServeFile serves a stored file from the uploads root.
func (h *Handlers) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.Files.Resolve(chi.URLParam(r, "*"))
	if err != nil {
		respond.Error(w, r, h.Log(), err)
		return
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist), err == nil && info.IsDir():
		respond.Error(w, r, h.Log(), core.NotFound("file", chi.URLParam(r, "*")))
		return
	case err != nil:
		respond.Error(w, r, h.Log(), err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, abs)
}
