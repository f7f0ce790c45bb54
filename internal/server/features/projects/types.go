package projects

import "github.com/leapstack-labs/deckforge/internal/server/features"

// ListResponse is a page of projects.
type ListResponse struct {
	Projects []features.ProjectView `json:"projects"`
	Total    int                    `json:"total"`
	Limit    int                    `json:"limit"`
	Offset   int                    `json:"offset"`
}

// PagesResponse carries the pages produced by a synchronous workflow.
type PagesResponse struct {
	Pages []features.PageView `json:"pages"`
}

// OutlineRequest optionally replaces the idea or outline text before
// generating.
type OutlineRequest struct {
	IdeaPrompt  *string `json:"idea_prompt"`
	OutlineText *string `json:"outline_text"`
}

// DescriptionTextRequest carries pasted descriptions.
type DescriptionTextRequest struct {
	DescriptionText string `json:"description_text"`
}

// ImagesRequest selects pages; empty means all.
type ImagesRequest struct {
	PageIDs []string `json:"page_ids"`
}

// RefineRequest carries the user's change request.
type RefineRequest struct {
	UserRequirement string `json:"user_requirement"`
}

// ExportResponse points at the written export.
type ExportResponse struct {
	DownloadURL string `json:"download_url"`
	Path        string `json:"path"`
	Format      string `json:"format"`
}
