package materials

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/deckforge/internal/generation"
	"github.com/leapstack-labs/deckforge/internal/provider"
	"github.com/leapstack-labs/deckforge/internal/server/features"
	"github.com/leapstack-labs/deckforge/internal/server/respond"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// Special values of the project_id filter.
const (
	filterAll    = "all"
	filterGlobal = "none"
)

// Handlers provides HTTP handlers for the materials feature.
type Handlers struct {
	*features.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps *features.Deps) *Handlers {
	return &Handlers{Deps: deps}
}

// GenerateRequest is the JSON form of a material generation request.
type GenerateRequest struct {
	Prompt        string   `json:"prompt"`
	ReferenceURLs []string `json:"reference_urls"`
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	respond.Error(w, r, h.Log(), err)
}

// Generate submits a material generation task. Multipart bodies carry
// prompt, ref_image and extra_images; JSON bodies reference stored images.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	req, err := h.generateRequest(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	task, err := h.Generation.GenerateMaterial(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.Accepted(w, features.Accepted(task), "task submitted")
}

func (h *Handlers) generateRequest(w http.ResponseWriter, r *http.Request) (generation.MaterialRequest, error) {
	var req generation.MaterialRequest
	if !features.IsMultipart(r) {
		var body GenerateRequest
		if err := respond.Decode(r, &body); err != nil {
			return req, err
		}
		req.Prompt = body.Prompt
		for _, u := range body.ReferenceURLs {
			data, err := h.Files.Read(u)
			if err != nil {
				return req, core.Invalidf("reference %s: %v", u, err)
			}
			req.References = append(req.References, provider.ReferenceImage{Data: data, MIMEType: http.DetectContentType(data)})
		}
		return req, nil
	}

	if err := h.ParseMultipart(w, r); err != nil {
		return req, err
	}
	req.Prompt = r.FormValue("prompt")
	for _, field := range []string{"ref_image", "extra_images"} {
		for _, fh := range r.MultipartForm.File[field] {
			f, err := fh.Open()
			if err != nil {
				return req, core.Invalidf("failed to open %s: %v", fh.Filename, err)
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return req, core.Invalidf("failed to read %s: %v", fh.Filename, err)
			}
			req.References = append(req.References, provider.ReferenceImage{Data: data, MIMEType: http.DetectContentType(data)})
		}
	}
	return req, nil
}

// Upload stores an image as a material. project_id (form or query) scopes
// it to a project; otherwise it is global.
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

	projectID := r.FormValue("project_id")
	if projectID == filterGlobal {
		projectID = ""
	}
	m, err := h.Generation.UploadMaterial(r.Context(), projectID, hdr.Filename, f, h.MaxUploadBytes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.Created(w, m, "material uploaded")
}

// List returns materials. project_id=all (or empty) lists everything,
// project_id=none lists global materials only.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("project_id")
	projectID := filter
	if filter == filterAll || filter == filterGlobal {
		projectID = ""
	}

	materials, err := h.Store.ListMaterials(r.Context(), projectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if filter == filterGlobal {
		global := materials[:0]
		for _, m := range materials {
			if m.ProjectID == "" {
				global = append(global, m)
			}
		}
		materials = global
	}
	if materials == nil {
		materials = []*core.Material{}
	}
	respond.OK(w, map[string]any{"materials": materials, "count": len(materials)}, "")
}

// Delete removes a material and its file.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Generation.DeleteMaterial(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, nil, "material deleted")
}
