package core

import "time"

// Material is a generated or uploaded image usable as a page reference.
// ProjectID is empty for global materials.
type Material struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id,omitempty"`
	Filename     string    `json:"filename"`
	RelativePath string    `json:"relative_path"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
}

// ParseStatus is the state of reference-file parsing.
type ParseStatus string

// Parse status constants.
const (
	ParseStatusPending   ParseStatus = "pending"
	ParseStatusParsing   ParseStatus = "parsing"
	ParseStatusCompleted ParseStatus = "completed"
	ParseStatusFailed    ParseStatus = "failed"
)

// ReferenceFile is an uploaded document whose Markdown content feeds prompts.
type ReferenceFile struct {
	ID              string      `json:"id"`
	ProjectID       string      `json:"project_id,omitempty"`
	Filename        string      `json:"filename"`
	FilePath        string      `json:"file_path"`
	FileSize        int64       `json:"file_size"`
	FileType        string      `json:"file_type"`
	ParseStatus     ParseStatus `json:"parse_status"`
	MarkdownContent string      `json:"markdown_content,omitempty"`
	ErrorMessage    string      `json:"error_message,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
