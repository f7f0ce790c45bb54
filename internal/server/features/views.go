package features

import (
	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// PageView is a page with its image URLs.
type PageView struct {
	*core.Page
	ImageURL     string `json:"generated_image_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// NewPageView wraps p.
func NewPageView(p *core.Page) PageView {
	v := PageView{Page: p}
	if p.HasImage() {
		v.ImageURL = files.URL(p.GeneratedImagePath)
		v.ThumbnailURL = files.URL(files.ThumbnailPath(p.GeneratedImagePath))
	}
	return v
}

// NewPageViews wraps every page.
func NewPageViews(pages []*core.Page) []PageView {
	out := make([]PageView, len(pages))
	for i, p := range pages {
		out[i] = NewPageView(p)
	}
	return out
}

// ProjectView is a project with URLs and, when loaded, its pages.
type ProjectView struct {
	*core.Project
	TemplateImageURL string     `json:"template_image_url,omitempty"`
	Pages            []PageView `json:"pages,omitempty"`
}

// NewProjectView wraps p.
func NewProjectView(p *core.Project) ProjectView {
	v := ProjectView{Project: p, TemplateImageURL: files.URL(p.TemplateImagePath)}
	if p.Pages != nil {
		v.Pages = NewPageViews(p.Pages)
	}
	return v
}

// VersionView is an image version with its URL.
type VersionView struct {
	*core.PageImageVersion
	ImageURL string `json:"image_url"`
}

// NewVersionViews wraps every version.
func NewVersionViews(vs []*core.PageImageVersion) []VersionView {
	out := make([]VersionView, len(vs))
	for i, v := range vs {
		out[i] = VersionView{PageImageVersion: v, ImageURL: files.URL(v.ImagePath)}
	}
	return out
}

// TaskAccepted is the body returned when a task is submitted.
type TaskAccepted struct {
	TaskID string          `json:"task_id"`
	Status core.TaskStatus `json:"status"`
	Total  int             `json:"total_pages,omitempty"`
}

// Accepted builds a TaskAccepted from t.
func Accepted(t *core.Task) TaskAccepted {
	return TaskAccepted{TaskID: t.ID, Status: t.Status, Total: t.Progress.Total}
}
