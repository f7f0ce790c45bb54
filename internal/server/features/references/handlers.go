package references

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/deckforge/internal/server/features"
	"github.com/leapstack-labs/deckforge/internal/server/respond"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// Handlers provides HTTP handlers for the reference files feature.
type Handlers struct {
	*features.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps *features.Deps) *Handlers {
	return &Handlers{Deps: deps}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	respond.Error(w, r, h.Log(), err)
}

// Upload stores a document. project_id (form field) attaches it to a
// project.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if err := h.ParseMultipart(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	f, hdr, err := features.FormFile(r, "file")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()

	ref, err := h.Generation.UploadReferenceFile(r.Context(), r.FormValue("project_id"), hdr.Filename, f, h.MaxUploadBytes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.Created(w, ref, "reference file uploaded")
}

// Get returns a reference file with its parsed content.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	ref, err := h.Store.GetReferenceFile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, ref, "")
}

// Delete removes a reference file.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Generation.DeleteReferenceFile(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, nil, "reference file deleted")
}

// Parse submits the parse task.
func (h *Handlers) Parse(w http.ResponseWriter, r *http.Request) {
	task, err := h.Generation.ParseReferenceFile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.Accepted(w, features.Accepted(task), "task submitted")
}

// ListForProject returns the reference files of a project.
func (h *Handlers) ListForProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if _, err := h.Store.GetProject(r.Context(), projectID); err != nil {
		h.fail(w, r, err)
		return
	}
	refs, err := h.Store.ListReferenceFiles(r.Context(), projectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if refs == nil {
		refs = []*core.ReferenceFile{}
	}
	respond.OK(w, map[string]any{"files": refs}, "")
}
