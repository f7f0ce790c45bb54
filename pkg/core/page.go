package core

import "time"

// PageStatus tracks generation progress of a single page.
type PageStatus string

// Page status constants.
const (
	PageStatusDraft                PageStatus = "DRAFT"
	PageStatusDescriptionGenerated PageStatus = "DESCRIPTION_GENERATED"
	PageStatusGenerating           PageStatus = "GENERATING"
	PageStatusImageGenerated       PageStatus = "IMAGE_GENERATED"
	PageStatusFailed               PageStatus = "FAILED"
)

// OutlineContent is the outline of one page: a title and its key points.
type OutlineContent struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

// DescriptionContent is the full text description of one page.
type DescriptionContent struct {
	Text string `json:"text"`
}

// Page is one slide of a project.
type Page struct {
	ID                 string              `json:"id"`
	ProjectID          string              `json:"project_id"`
	OrderIndex         int                 `json:"order_index"`
	Part               string              `json:"part,omitempty"`
	Outline            *OutlineContent     `json:"outline_content,omitempty"`
	Description        *DescriptionContent `json:"description_content,omitempty"`
	GeneratedImagePath string              `json:"generated_image_path,omitempty"`
	Status             PageStatus          `json:"status"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// PageEdit names the user-editable fields of a page. Nil fields are left
// unchanged.
type PageEdit struct {
	Part        *string
	Outline     *OutlineContent
	Description *DescriptionContent
}

// Title returns the outline title, or an empty string.
func (p *Page) Title() string {
	if p.Outline == nil {
		return ""
	}
	return p.Outline.Title
}

// HasDescription reports whether the page carries a non-empty description.
func (p *Page) HasDescription() bool {
	return p.Description != nil && p.Description.Text != ""
}

// HasImage reports whether the page has a current generated image.
func (p *Page) HasImage() bool {
	return p.GeneratedImagePath != ""
}

// PageImageVersion is one generated image of a page. Exactly one version
// per page is current.
type PageImageVersion struct {
	ID            string    `json:"id"`
	PageID        string    `json:"page_id"`
	ImagePath     string    `json:"image_path"`
	VersionNumber int       `json:"version_number"`
	IsCurrent     bool      `json:"is_current"`
	CreatedAt     time.Time `json:"created_at"`
}
