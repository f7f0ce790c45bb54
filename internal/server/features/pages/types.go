package pages

import "github.com/leapstack-labs/deckforge/pkg/core"

// CreateRequest adds a page. A nil OrderIndex appends.
type CreateRequest struct {
	OrderIndex  *int                     `json:"order_index"`
	Part        string                   `json:"part"`
	Outline     *core.OutlineContent     `json:"outline_content"`
	Description *core.DescriptionContent `json:"description_content"`
}

// UpdateRequest changes any of a page's text fields.
type UpdateRequest struct {
	Part        *string                  `json:"part"`
	Outline     *core.OutlineContent     `json:"outline_content"`
	Description *core.DescriptionContent `json:"description_content"`
}

// ReorderRequest lists every page id in the new order.
type ReorderRequest struct {
	PageIDs []string `json:"page_ids"`
}

// OutlineRequest replaces the outline of one page.
type OutlineRequest struct {
	Outline *core.OutlineContent `json:"outline_content"`
}

// DescriptionRequest replaces the description of one page.
type DescriptionRequest struct {
	Description *core.DescriptionContent `json:"description_content"`
}

// EditRequest is the JSON form of an image edit.
type EditRequest struct {
	Instruction  string   `json:"edit_instruction"`
	MaterialURLs []string `json:"material_urls"`
}
