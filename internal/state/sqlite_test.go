package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deckforge/pkg/core"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(filepath.Join(t.TempDir(), "state.db")))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createProject(t *testing.T, store *SQLiteStore) *core.Project {
	t.Helper()
	p := &core.Project{IdeaPrompt: "a deck about tides"}
	require.NoError(t, store.CreateProject(context.Background(), p))
	return p
}

func outlinePages(titles ...string) []*core.Page {
	pages := make([]*core.Page, len(titles))
	for i, title := range titles {
		pages[i] = &core.Page{Outline: &core.OutlineContent{Title: title, Points: []string{"point"}}}
	}
	return pages
}

func pageTitles(pages []*core.Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Title()
	}
	return out
}

func TestSQLiteStore_OpenMemoryAndMigrate(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Migrate())
	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	migrations, err := store.Migrations()
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.Equal(t, "00001_init.sql", migrations[0].Source)
	assert.True(t, migrations[0].Applied)

	tables := []string{"projects", "pages", "page_image_versions", "tasks", "materials", "reference_files", "settings"}
	for _, table := range tables {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		if assert.NoError(t, err, "table %s", table) {
			_ = rows.Close()
		}
	}
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, err := store.GetProject(ctx, "x")
	assert.ErrorIs(t, err, errNotOpened)
	assert.ErrorIs(t, store.Migrate(), errNotOpened)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_ProjectLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	p := createProject(t, store)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, core.CreationTypeIdea, p.CreationType)
	assert.Equal(t, core.ProjectStatusDraft, p.Status)
	assert.Equal(t, core.DefaultAspectRatio, p.ImageAspectRatio)

	got, err := store.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "a deck about tides", got.IdeaPrompt)

	style := "watercolour, soft blues"
	status := core.ProjectStatusOutlineGenerated
	updated, err := store.UpdateProject(ctx, p.ID, core.ProjectUpdate{TemplateStyle: &style, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, style, updated.TemplateStyle)
	assert.Equal(t, "a deck about tides", updated.IdeaPrompt)

	got, err = store.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ProjectStatusOutlineGenerated, got.Status)
	assert.True(t, got.HasTemplate())

	require.NoError(t, store.SetProjectStatus(ctx, p.ID, core.ProjectStatusCompleted))
	got, err = store.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ProjectStatusCompleted, got.Status)

	require.NoError(t, store.DeleteProject(ctx, p.ID))
	_, err = store.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, store.DeleteProject(ctx, p.ID), core.ErrNotFound)
}

func TestSQLiteStore_ListProjects(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		createProject(t, store)
	}

	tests := []struct {
		name          string
		limit, offset int
		wantLen       int
	}{
		{name: "default limit", limit: 0, wantLen: 3},
		{name: "first page", limit: 2, wantLen: 2},
		{name: "second page", limit: 2, offset: 2, wantLen: 1},
		{name: "past the end", limit: 2, offset: 10, wantLen: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			projects, total, err := store.ListProjects(ctx, tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			assert.Len(t, projects, tt.wantLen)
		})
	}
}

func TestSQLiteStore_PageOrdering(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createProject(t, store)

	require.NoError(t, store.ReplacePages(ctx, p.ID, outlinePages("Intro", "Body", "End")))
	pages, err := store.ListPages(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Intro", "Body", "End"}, pageTitles(pages))

	t.Run("append", func(t *testing.T) {
		extra := &core.Page{ProjectID: p.ID, OrderIndex: -1, Outline: &core.OutlineContent{Title: "Appendix"}}
		require.NoError(t, store.CreatePage(ctx, extra))
		assert.Equal(t, 3, extra.OrderIndex)
	})

	t.Run("insert shifts later pages", func(t *testing.T) {
		inserted := &core.Page{ProjectID: p.ID, OrderIndex: 1, Outline: &core.OutlineContent{Title: "Agenda"}}
		require.NoError(t, store.CreatePage(ctx, inserted))
		pages, err := store.ListPages(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Intro", "Agenda", "Body", "End", "Appendix"}, pageTitles(pages))
	})

	t.Run("reorder", func(t *testing.T) {
		pages, err := store.ListPages(ctx, p.ID)
		require.NoError(t, err)
		ids := []string{pages[4].ID, pages[3].ID, pages[2].ID, pages[1].ID, pages[0].ID}
		require.NoError(t, store.ReorderPages(ctx, p.ID, ids))

		pages, err = store.ListPages(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Appendix", "End", "Body", "Agenda", "Intro"}, pageTitles(pages))
	})

	t.Run("reorder rejects partial list", func(t *testing.T) {
		pages, err := store.ListPages(ctx, p.ID)
		require.NoError(t, err)
		err = store.ReorderPages(ctx, p.ID, []string{pages[0].ID})
		assert.ErrorIs(t, err, core.ErrInvalid)
	})

	t.Run("reorder rejects duplicates", func(t *testing.T) {
		pages, err := store.ListPages(ctx, p.ID)
		require.NoError(t, err)
		ids := []string{pages[0].ID, pages[0].ID, pages[1].ID, pages[2].ID, pages[3].ID}
		assert.ErrorIs(t, store.ReorderPages(ctx, p.ID, ids), core.ErrInvalid)
	})

	t.Run("delete compacts order", func(t *testing.T) {
		pages, err := store.ListPages(ctx, p.ID)
		require.NoError(t, err)
		require.NoError(t, store.DeletePage(ctx, p.ID, pages[1].ID))

		pages, err = store.ListPages(ctx, p.ID)
		require.NoError(t, err)
		for i, page := range pages {
			assert.Equal(t, i, page.OrderIndex)
		}
		assert.ErrorIs(t, store.DeletePage(ctx, p.ID, "missing"), core.ErrNotFound)
	})
}

func TestSQLiteStore_EditPage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createProject(t, store)
	require.NoError(t, store.ReplacePages(ctx, p.ID, outlinePages("Intro")))

	pages, err := store.ListPages(ctx, p.ID)
	require.NoError(t, err)
	page := pages[0]
	part := "Opening"
	require.NoError(t, store.EditPage(ctx, p.ID, page.ID, core.PageEdit{
		Part:        &part,
		Description: &core.DescriptionContent{Text: "A calm opening slide"},
	}))

	got, err := store.GetPage(ctx, p.ID, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Opening", got.Part)
	assert.True(t, got.HasDescription())
	assert.Equal(t, []string{"point"}, got.Outline.Points)
	assert.Equal(t, core.PageStatusDescriptionGenerated, got.Status)

	assert.ErrorIs(t, store.EditPage(ctx, "other-project", page.ID, core.PageEdit{Part: &part}), core.ErrNotFound)
	_, err = store.GetPage(ctx, "other-project", page.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, store.SetPageStatus(ctx, page.ID, core.PageStatusFailed))
	assert.ErrorIs(t, store.SetPageStatus(ctx, "missing", core.PageStatusFailed), core.ErrNotFound)
}

func TestSQLiteStore_EditPageKeepsTaskColumns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createProject(t, store)
	require.NoError(t, store.ReplacePages(ctx, p.ID, outlinePages("Intro")))
	pages, err := store.ListPages(ctx, p.ID)
	require.NoError(t, err)
	pageID := pages[0].ID

	_, err = store.AddImageVersion(ctx, pageID, "p/pages/one.png")
	require.NoError(t, err)
	require.NoError(t, store.SetPageStatus(ctx, pageID, core.PageStatusGenerating))

	require.NoError(t, store.EditPage(ctx, p.ID, pageID, core.PageEdit{
		Outline:     &core.OutlineContent{Title: "Renamed", Points: []string{}},
		Description: &core.DescriptionContent{Text: "edited"},
	}))
	got, err := store.GetPage(ctx, p.ID, pageID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title())
	assert.Equal(t, "p/pages/one.png", got.GeneratedImagePath)
	assert.Equal(t, core.PageStatusGenerating, got.Status)
}

func TestSQLiteStore_SetPageDescription(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createProject(t, store)
	require.NoError(t, store.ReplacePages(ctx, p.ID, outlinePages("Intro")))
	pages, err := store.ListPages(ctx, p.ID)
	require.NoError(t, err)
	pageID := pages[0].ID

	part := "Opening"
	require.NoError(t, store.EditPage(ctx, p.ID, pageID, core.PageEdit{
		Part:    &part,
		Outline: &core.OutlineContent{Title: "Edited", Points: []string{"x"}},
	}))
	require.NoError(t, store.SetPageDescription(ctx, pageID, &core.DescriptionContent{Text: "generated"}, core.PageStatusDescriptionGenerated))

	got, err := store.GetPage(ctx, p.ID, pageID)
	require.NoError(t, err)
	assert.Equal(t, "Edited", got.Title())
	assert.Equal(t, "Opening", got.Part)
	assert.Equal(t, "generated", got.Description.Text)
	assert.Equal(t, core.PageStatusDescriptionGenerated, got.Status)

	assert.ErrorIs(t, store.SetPageDescription(ctx, "missing", nil, core.PageStatusFailed), core.ErrNotFound)
}

func TestSQLiteStore_ImageVersions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createProject(t, store)
	require.NoError(t, store.ReplacePages(ctx, p.ID, outlinePages("Intro")))
	pages, err := store.ListPages(ctx, p.ID)
	require.NoError(t, err)
	pageID := pages[0].ID

	v1, err := store.AddImageVersion(ctx, pageID, "p/pages/one.png")
	require.NoError(t, err)
	v2, err := store.AddImageVersion(ctx, pageID, "p/pages/two.png")
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNumber)
	assert.Equal(t, 2, v2.VersionNumber)

	versions, err := store.ListImageVersions(ctx, pageID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, v2.ID, versions[0].ID)
	assert.True(t, versions[0].IsCurrent)
	assert.False(t, versions[1].IsCurrent)

	page, err := store.GetPage(ctx, p.ID, pageID)
	require.NoError(t, err)
	assert.Equal(t, "p/pages/two.png", page.GeneratedImagePath)
	assert.Equal(t, core.PageStatusImageGenerated, page.Status)

	current, err := store.SetCurrentImageVersion(ctx, pageID, v1.ID)
	require.NoError(t, err)
	assert.True(t, current.IsCurrent)

	versions, err = store.ListImageVersions(ctx, pageID)
	require.NoError(t, err)
	currentCount := 0
	for _, v := range versions {
		if v.IsCurrent {
			currentCount++
			assert.Equal(t, v1.ID, v.ID)
		}
	}
	assert.Equal(t, 1, currentCount)

	page, err = store.GetPage(ctx, p.ID, pageID)
	require.NoError(t, err)
	assert.Equal(t, "p/pages/one.png", page.GeneratedImagePath)

	_, err = store.SetCurrentImageVersion(ctx, pageID, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = store.AddImageVersion(ctx, "missing", "x.png")
	assert.Error(t, err)
}

func TestSQLiteStore_TaskLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createProject(t, store)

	task := &core.Task{ProjectID: p.ID, Type: core.TaskTypeGenerateImages, Progress: core.TaskProgress{Total: 3}}
	require.NoError(t, store.CreateTask(ctx, task))
	assert.Equal(t, core.TaskStatusPending, task.Status)

	require.NoError(t, store.UpdateTaskStatus(ctx, task.ID, core.TaskStatusProcessing, ""))
	require.NoError(t, store.UpdateTaskProgress(ctx, task.ID, core.TaskProgress{Total: 3, Completed: 2, Failed: 1}))
	require.NoError(t, store.SetTaskResult(ctx, task.ID, map[string]any{"image_url": "/files/x.png"}))

	got, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusProcessing, got.Status)
	assert.Equal(t, core.TaskProgress{Total: 3, Completed: 2, Failed: 1}, got.Progress)
	assert.Equal(t, "/files/x.png", got.Result["image_url"])
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, store.UpdateTaskStatus(ctx, task.ID, core.TaskStatusFailed, "boom"))
	got, err = store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "boom", got.ErrorMessage)
	assert.NotNil(t, got.CompletedAt)

	_, err = store.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLiteStore_FailStaleTasks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	statuses := []core.TaskStatus{core.TaskStatusPending, core.TaskStatusProcessing, core.TaskStatusCompleted}
	ids := make([]string, len(statuses))
	for i, st := range statuses {
		task := &core.Task{Type: core.TaskTypeGenerateMaterial, Status: st}
		require.NoError(t, store.CreateTask(ctx, task))
		ids[i] = task.ID
	}

	n, err := store.FailStaleTasks(ctx, "interrupted by restart")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for i, id := range ids {
		task, err := store.GetTask(ctx, id)
		require.NoError(t, err)
		if i < 2 {
			assert.Equal(t, core.TaskStatusFailed, task.Status)
			assert.Equal(t, "interrupted by restart", task.ErrorMessage)
		} else {
			assert.Equal(t, core.TaskStatusCompleted, task.Status)
		}
	}
}

func TestSQLiteStore_ResetInterruptedWork(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createProject(t, store)

	require.NoError(t, store.ReplacePages(ctx, p.ID, outlinePages("Drawn", "Blank")))
	pages, err := store.ListPages(ctx, p.ID)
	require.NoError(t, err)
	_, err = store.AddImageVersion(ctx, pages[0].ID, "p/pages/drawn.png")
	require.NoError(t, err)
	for _, pg := range pages {
		require.NoError(t, store.SetPageStatus(ctx, pg.ID, core.PageStatusGenerating))
	}
	require.NoError(t, store.SetProjectStatus(ctx, p.ID, core.ProjectStatusGeneratingImages))

	parsing := &core.ReferenceFile{ProjectID: p.ID, Filename: "a.md", FilePath: "reference_files/a.md"}
	done := &core.ReferenceFile{ProjectID: p.ID, Filename: "b.md", FilePath: "reference_files/b.md"}
	require.NoError(t, store.CreateReferenceFile(ctx, parsing))
	require.NoError(t, store.CreateReferenceFile(ctx, done))
	require.NoError(t, store.UpdateReferenceParse(ctx, parsing.ID, core.ParseStatusParsing, "", ""))
	require.NoError(t, store.UpdateReferenceParse(ctx, done.ID, core.ParseStatusCompleted, "# B", ""))

	n, err := store.ResetInterruptedWork(ctx, "interrupted by restart")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := store.GetReferenceFile(ctx, parsing.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ParseStatusFailed, got.ParseStatus)
	assert.Equal(t, "interrupted by restart", got.ErrorMessage)
	got, err = store.GetReferenceFile(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ParseStatusCompleted, got.ParseStatus)

	pages, err = store.ListPages(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PageStatusImageGenerated, pages[0].Status)
	assert.Equal(t, core.PageStatusFailed, pages[1].Status)

	project, err := store.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ProjectStatusDescriptionsGenerated, project.Status)

	n, err = store.ResetInterruptedWork(ctx, "interrupted by restart")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_Materials(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createProject(t, store)

	scoped := &core.Material{ProjectID: p.ID, Filename: "a.png", RelativePath: p.ID + "/materials/a.png", URL: "/files/" + p.ID + "/materials/a.png"}
	global := &core.Material{Filename: "b.png", RelativePath: "materials/b.png", URL: "/files/materials/b.png"}
	require.NoError(t, store.CreateMaterial(ctx, scoped))
	require.NoError(t, store.CreateMaterial(ctx, global))

	all, err := store.ListMaterials(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := store.ListMaterials(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, scoped.ID, own[0].ID)

	got, err := store.GetMaterial(ctx, global.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ProjectID)

	require.NoError(t, store.DeleteMaterial(ctx, global.ID))
	assert.ErrorIs(t, store.DeleteMaterial(ctx, global.ID), core.ErrNotFound)
}

func TestSQLiteStore_ReferenceFiles(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createProject(t, store)

	f := &core.ReferenceFile{ProjectID: p.ID, Filename: "notes.md", FilePath: "reference_files/notes.md", FileSize: 12, FileType: "md"}
	require.NoError(t, store.CreateReferenceFile(ctx, f))
	assert.Equal(t, core.ParseStatusPending, f.ParseStatus)

	require.NoError(t, store.UpdateReferenceParse(ctx, f.ID, core.ParseStatusCompleted, "# Notes", ""))
	got, err := store.GetReferenceFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ParseStatusCompleted, got.ParseStatus)
	assert.Equal(t, "# Notes", got.MarkdownContent)

	files, err := store.ListReferenceFiles(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	require.NoError(t, store.DeleteReferenceFile(ctx, f.ID))
	_, err = store.GetReferenceFile(ctx, f.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLiteStore_DeleteProjectCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	p := createProject(t, store)

	require.NoError(t, store.ReplacePages(ctx, p.ID, outlinePages("Intro")))
	pages, err := store.ListPages(ctx, p.ID)
	require.NoError(t, err)
	_, err = store.AddImageVersion(ctx, pages[0].ID, "x.png")
	require.NoError(t, err)
	task := &core.Task{ProjectID: p.ID, Type: core.TaskTypeGenerateImages}
	require.NoError(t, store.CreateTask(ctx, task))
	mat := &core.Material{ProjectID: p.ID, Filename: "m.png", RelativePath: "m.png", URL: "/files/m.png"}
	require.NoError(t, store.CreateMaterial(ctx, mat))

	require.NoError(t, store.DeleteProject(ctx, p.ID))

	pages, err = store.ListPages(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, pages)
	_, err = store.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = store.GetMaterial(ctx, mat.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	var versions int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM page_image_versions`).Scan(&versions))
	assert.Zero(t, versions)
}

func TestSQLiteStore_Settings(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	st, err := store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultImageResolution, st.ImageResolution)
	assert.Equal(t, core.DefaultMaxImageWorkers, st.MaxImageWorkers)

	st.AIProviderFormat = "openai"
	st.APIKey = "sk-test"
	st.MaxImageWorkers = 0
	require.NoError(t, store.SaveSettings(ctx, st))

	got, err := store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "openai", got.AIProviderFormat)
	assert.Equal(t, "sk-test", got.APIKey)
	assert.Equal(t, core.DefaultMaxImageWorkers, got.MaxImageWorkers)

	reset, err := store.ResetSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, reset.AIProviderFormat)

	got, err = store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.APIKey)
}
