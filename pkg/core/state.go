package core

import "context"

// Store defines the interface for persistence operations.
// Lookups of missing rows return an error wrapping ErrNotFound.
type Store interface {
	Close() error

	// Project operations
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	GetProjectWithPages(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context, limit, offset int) ([]*Project, int, error)
	UpdateProject(ctx context.Context, id string, u ProjectUpdate) (*Project, error)
	SetProjectStatus(ctx context.Context, id string, status ProjectStatus) error
	DeleteProject(ctx context.Context, id string) error

	// Page operations
	CreatePage(ctx context.Context, p *Page) error
	GetPage(ctx context.Context, projectID, pageID string) (*Page, error)
	ListPages(ctx context.Context, projectID string) ([]*Page, error)
	ReplacePages(ctx context.Context, projectID string, pages []*Page) error
	EditPage(ctx context.Context, projectID, pageID string, edit PageEdit) error
	SetPageDescription(ctx context.Context, pageID string, desc *DescriptionContent, status PageStatus) error
	SetPageStatus(ctx context.Context, pageID string, status PageStatus) error
	ReorderPages(ctx context.Context, projectID string, pageIDs []string) error
	DeletePage(ctx context.Context, projectID, pageID string) error

	// Image version operations
	AddImageVersion(ctx context.Context, pageID, imagePath string) (*PageImageVersion, error)
	ListImageVersions(ctx context.Context, pageID string) ([]*PageImageVersion, error)
	SetCurrentImageVersion(ctx context.Context, pageID, versionID string) (*PageImageVersion, error)

	// Task operations
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status TaskStatus, errMsg string) error
	UpdateTaskProgress(ctx context.Context, id string, progress TaskProgress) error
	SetTaskResult(ctx context.Context, id string, result map[string]any) error
	FailStaleTasks(ctx context.Context, reason string) (int, error)
	ResetInterruptedWork(ctx context.Context, reason string) (int, error)

	// Material operations
	CreateMaterial(ctx context.Context, m *Material) error
	GetMaterial(ctx context.Context, id string) (*Material, error)
	ListMaterials(ctx context.Context, projectID string) ([]*Material, error)
	DeleteMaterial(ctx context.Context, id string) error

	// Reference file operations
	CreateReferenceFile(ctx context.Context, f *ReferenceFile) error
	GetReferenceFile(ctx context.Context, id string) (*ReferenceFile, error)
	ListReferenceFiles(ctx context.Context, projectID string) ([]*ReferenceFile, error)
	UpdateReferenceParse(ctx context.Context, id string, status ParseStatus, markdown, errMsg string) error
	DeleteReferenceFile(ctx context.Context, id string) error

	// Settings operations
	GetSettings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, s *Settings) error
	ResetSettings(ctx context.Context) (*Settings, error)
}
