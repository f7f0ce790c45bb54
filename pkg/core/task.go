package core

import "time"

// TaskType names the kind of background work a task performs.
type TaskType string

// Task type constants.
const (
	TaskTypeGenerateDescriptions TaskType = "GENERATE_DESCRIPTIONS"
	TaskTypeGenerateImages       TaskType = "GENERATE_IMAGES"
	TaskTypeEditPageImage        TaskType = "EDIT_PAGE_IMAGE"
	TaskTypeGenerateMaterial     TaskType = "GENERATE_MATERIAL"
	TaskTypeParseReferenceFile   TaskType = "PARSE_REFERENCE_FILE"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Task status constants.
const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
)

// Terminal reports whether no further transitions are expected.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskProgress counts units of work inside a task.
type TaskProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Done reports whether every unit has either completed or failed.
func (p TaskProgress) Done() bool {
	return p.Completed+p.Failed >= p.Total
}

// Task is a unit of background work tracked by id and status.
type Task struct {
	ID           string         `json:"task_id"`
	ProjectID    string         `json:"project_id,omitempty"`
	Type         TaskType       `json:"task_type"`
	Status       TaskStatus     `json:"status"`
	Progress     TaskProgress   `json:"progress"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Result       map[string]any `json:"result,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}
