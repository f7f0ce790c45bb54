package projects

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/deckforge/internal/export"
	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/internal/generation"
	"github.com/leapstack-labs/deckforge/internal/server/features"
	"github.com/leapstack-labs/deckforge/internal/server/respond"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Handlers provides HTTP handlers for the projects feature.
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

// Create starts a new project.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req generation.CreateProjectRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Generation.CreateProject(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.Created(w, features.NewProjectView(p), "project created")
}

// List returns projects, newest first.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	limit, err := features.QueryInt(r, "limit", defaultLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	offset, err := features.QueryInt(r, "offset", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if limit == 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	projects, total, err := h.Store.ListProjects(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := make([]features.ProjectView, len(projects))
	for i, p := range projects {
		views[i] = features.NewProjectView(p)
	}
	respond.OK(w, ListResponse{Projects: views, Total: total, Limit: limit, Offset: offset}, "")
}

// Get returns a project with its pages.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProjectWithPages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, features.NewProjectView(p), "")
}

// Update applies a partial update. Unknown fields are rejected.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := respond.Decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := decodeUpdate(patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Store.UpdateProject(r.Context(), chi.URLParam(r, "id"), u)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, features.NewProjectView(p), "project updated")
}

func decodeUpdate(patch map[string]any) (core.ProjectUpdate, error) {
	var u core.ProjectUpdate
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &u,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return u, fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := dec.Decode(patch); err != nil {
		return u, core.Invalidf("%v", err)
	}
	if u.ImageAspectRatio != nil {
		if _, _, err := files.ParseAspect(*u.ImageAspectRatio); err != nil {
			return u, core.Invalidf("%v", err)
		}
	}
	if u.Status != nil {
		switch *u.Status {
		case core.ProjectStatusDraft, core.ProjectStatusOutlineGenerated, core.ProjectStatusDescriptionsGenerated,
			core.ProjectStatusGeneratingImages, core.ProjectStatusCompleted:
		default:
			return u, core.Invalidf("unknown status %q", *u.Status)
		}
	}
	return u, nil
}

// Delete removes a project and its files.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Generation.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, nil, "project deleted")
}

// GenerateOutline generates the outline synchronously.
func (h *Handlers) GenerateOutline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req OutlineRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.IdeaPrompt != nil || req.OutlineText != nil {
		u := core.ProjectUpdate{IdeaPrompt: req.IdeaPrompt, OutlineText: req.OutlineText}
		if _, err := h.Store.UpdateProject(r.Context(), id, u); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	pages, err := h.Generation.GenerateOutline(r.Context(), id)
	h.pages(w, r, pages, err, "outline generated")
}

// GenerateFromDescription splits pasted descriptions into pages.
func (h *Handlers) GenerateFromDescription(w http.ResponseWriter, r *http.Request) {
	var req DescriptionTextRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	pages, err := h.Generation.GenerateFromDescriptions(r.Context(), chi.URLParam(r, "id"), req.DescriptionText)
	h.pages(w, r, pages, err, "pages generated")
}

// GenerateDescriptions submits the description task.
func (h *Handlers) GenerateDescriptions(w http.ResponseWriter, r *http.Request) {
	task, err := h.Generation.GenerateDescriptions(r.Context(), chi.URLParam(r, "id"))
	h.task(w, r, task, err)
}

// GenerateImages submits the image task.
func (h *Handlers) GenerateImages(w http.ResponseWriter, r *http.Request) {
	var req ImagesRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	task, err := h.Generation.GenerateImages(r.Context(), chi.URLParam(r, "id"), req.PageIDs)
	h.task(w, r, task, err)
}

// RefineOutline rewrites the outline synchronously.
func (h *Handlers) RefineOutline(w http.ResponseWriter, r *http.Request) {
	var req RefineRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	pages, err := h.Generation.RefineOutline(r.Context(), chi.URLParam(r, "id"), req.UserRequirement)
	h.pages(w, r, pages, err, "outline refined")
}

// RefineDescriptions rewrites the descriptions synchronously.
func (h *Handlers) RefineDescriptions(w http.ResponseWriter, r *http.Request) {
	var req RefineRequest
	if err := respond.Decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	pages, err := h.Generation.RefineDescriptions(r.Context(), chi.URLParam(r, "id"), req.UserRequirement)
	h.pages(w, r, pages, err, "descriptions refined")
}

// UploadTemplate stores the multipart template_image field.
func (h *Handlers) UploadTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.ParseMultipart(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	f, _, err := features.FormFile(r, "template_image")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		h.fail(w, r, core.Invalidf("failed to read upload: %v", err))
		return
	}
	p, err := h.Generation.SetTemplateImage(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, features.NewProjectView(p), "template uploaded")
}

// DeleteTemplate removes the template image.
func (h *Handlers) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	p, err := h.Generation.ClearTemplateImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, features.NewProjectView(p), "template removed")
}

// Export writes the project in the requested format and returns its URL.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Store.GetProjectWithPages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rel, err := h.Exporter.Export(p, format, r.URL.Query().Get("filename"))
	if err != nil {
		if errors.Is(err, export.ErrNoImages) {
			err = core.Invalidf("%v", err)
		}
		h.fail(w, r, err)
		return
	}
	respond.OK(w, ExportResponse{DownloadURL: files.URL(rel), Path: rel, Format: string(format)}, "export ready")
}

func (h *Handlers) pages(w http.ResponseWriter, r *http.Request, pages []*core.Page, err error, msg string) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, PagesResponse{Pages: features.NewPageViews(pages)}, msg)
}

func (h *Handlers) task(w http.ResponseWriter, r *http.Request, task *core.Task, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.Accepted(w, features.Accepted(task), "task submitted")
}
