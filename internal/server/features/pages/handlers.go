package pages

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

// maxContextImages bounds the extra images an edit request may carry.
const maxContextImages = 8

// Handlers provides HTTP handlers for the pages feature.
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

// page loads the page named by the URL, scoped to its project.
func (h *Handlers) page(r *http.Request) (*core.Page, error) {
	return h.Store.GetPage(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "page_id"))
}

// Create adds a page to the project.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	var req CreateRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.Store.GetProject(r.Context(), projectID); err != nil {
		h.fail(w, r, err)
		return
	}

	p := &core.Page{
		ProjectID:   projectID,
		OrderIndex:  -1,
		Part:        req.Part,
		Outline:     req.Outline,
		Description: req.Description,
	}
	if req.OrderIndex != nil {
		if *req.OrderIndex < 0 {
			h.fail(w, r, core.Invalidf("order_index must not be negative"))
			return
		}
		p.OrderIndex = *req.OrderIndex
	}
	if p.Outline == nil {
		p.Outline = &core.OutlineContent{Points: []string{}}
	}
	if p.HasDescription() {
		p.Status = core.PageStatusDescriptionGenerated
	}
	if err := h.Store.CreatePage(r.Context(), p); err != nil {
		h.fail(w, r, err)
		return
	}
	respond.Created(w, features.NewPageView(p), "page created")
}

// Reorder sets the order of every page.
func (h *Handlers) Reorder(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	var req ReorderRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Store.ReorderPages(r.Context(), projectID, req.PageIDs); err != nil {
		h.fail(w, r, err)
		return
	}
	pages, err := h.Store.ListPages(r.Context(), projectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, features.NewPageViews(pages), "pages reordered")
}

// Update changes a page's part, outline or description.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.apply(w, r, core.PageEdit{Part: req.Part, Outline: req.Outline, Description: req.Description})
}

// UpdateOutline replaces the outline of a page.
func (h *Handlers) UpdateOutline(w http.ResponseWriter, r *http.Request) {
	var req OutlineRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Outline == nil {
		h.fail(w, r, core.Invalidf("outline_content is required"))
		return
	}
	h.apply(w, r, core.PageEdit{Outline: req.Outline})
}

// UpdateDescription replaces the description of a page.
func (h *Handlers) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	var req DescriptionRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Description == nil {
		h.fail(w, r, core.Invalidf("description_content is required"))
		return
	}
	h.apply(w, r, core.PageEdit{Description: req.Description})
}

// apply writes only the edited columns so a running generation task keeps
// its own status and image changes.
func (h *Handlers) apply(w http.ResponseWriter, r *http.Request, edit core.PageEdit) {
	if edit.Outline != nil && edit.Outline.Points == nil {
		edit.Outline.Points = []string{}
	}
	projectID, pageID := chi.URLParam(r, "id"), chi.URLParam(r, "page_id")
	if err := h.Store.EditPage(r.Context(), projectID, pageID, edit); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Store.GetPage(r.Context(), projectID, pageID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, features.NewPageView(p), "page updated")
}

// Delete removes a page.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeletePage(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "page_id")); err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, nil, "page deleted")
}

// GenerateDescription writes one page description synchronously.
func (h *Handlers) GenerateDescription(w http.ResponseWriter, r *http.Request) {
	p, err := h.Generation.GeneratePageDescription(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "page_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, features.NewPageView(p), "description generated")
}

// GenerateImage submits a single-page image task.
func (h *Handlers) GenerateImage(w http.ResponseWriter, r *http.Request) {
	task, err := h.Generation.GeneratePageImage(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "page_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.Accepted(w, features.Accepted(task), "task submitted")
}

// EditImage submits an image edit task. The body is JSON or multipart with
// edit_instruction, repeated material_urls and context_images files.
func (h *Handlers) EditImage(w http.ResponseWriter, r *http.Request) {
	req, err := h.editRequest(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	task, err := h.Generation.EditPageImage(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "page_id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.Accepted(w, features.Accepted(task), "task submitted")
}

func (h *Handlers) editRequest(w http.ResponseWriter, r *http.Request) (generation.EditRequest, error) {
	if !features.IsMultipart(r) {
		var body EditRequest
		if err := respond.Decode(r, &body); err != nil {
			return generation.EditRequest{}, err
		}
		return generation.EditRequest{Instruction: body.Instruction, MaterialPaths: body.MaterialURLs}, nil
	}

	if err := h.ParseMultipart(w, r); err != nil {
		return generation.EditRequest{}, err
	}
	req := generation.EditRequest{
		Instruction:   r.FormValue("edit_instruction"),
		MaterialPaths: r.MultipartForm.Value["material_urls"],
	}
	uploads := r.MultipartForm.File["context_images"]
	if len(uploads) > maxContextImages {
		return req, core.Invalidf("at most %d context_images allowed", maxContextImages)
	}
	for _, fh := range uploads {
		f, err := fh.Open()
		if err != nil {
			return req, core.Invalidf("failed to open %s: %v", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return req, core.Invalidf("failed to read %s: %v", fh.Filename, err)
		}
		req.Uploads = append(req.Uploads, provider.ReferenceImage{Data: data, MIMEType: http.DetectContentType(data)})
	}
	return req, nil
}

// Versions lists a page's image versions, newest first.
func (h *Handlers) Versions(w http.ResponseWriter, r *http.Request) {
	p, err := h.page(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	versions, err := h.Store.ListImageVersions(r.Context(), p.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, features.NewVersionViews(versions), "")
}

// SetCurrentVersion makes an older version the page's image.
func (h *Handlers) SetCurrentVersion(w http.ResponseWriter, r *http.Request) {
	p, err := h.page(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.Store.SetCurrentImageVersion(r.Context(), p.ID, chi.URLParam(r, "version_id")); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err = h.page(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, features.NewPageView(p), "image version selected")
}
