package references

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deckforge/internal/server/features"
	"github.com/leapstack-labs/deckforge/internal/server/respond"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

func upload(t *testing.T, h http.Handler, name, content string, fields map[string]string) core.ReferenceFile {
	t.Helper()
	rec := features.Upload(t, h, "/api/reference-files/upload", "file", name, []byte(content), fields)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ref core.ReferenceFile
	features.DecodeEnvelope(t, rec, &ref)
	return ref
}

func parse(t *testing.T, f *features.TestFixture, h http.Handler, id string) *core.Task {
	t.Helper()
	rec := features.Do(t, h, http.MethodPost, "/api/reference-files/"+id+"/parse", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var accepted features.TaskAccepted
	features.DecodeEnvelope(t, rec, &accepted)
	return f.WaitTask(accepted.TaskID)
}

func TestUploadAndParse(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)
	p := f.Project()

	ref := upload(t, h, "market.csv", "region,revenue\nEU,10\nUS,12\n", map[string]string{"project_id": p.ID})
	assert.Equal(t, "csv", ref.FileType)
	assert.Equal(t, core.ParseStatusPending, ref.ParseStatus)
	assert.Equal(t, p.ID, ref.ProjectID)

	task := parse(t, f, h, ref.ID)
	require.Equal(t, core.TaskStatusCompleted, task.Status, task.ErrorMessage)

	rec := features.Do(t, h, http.MethodGet, "/api/reference-files/"+ref.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got core.ReferenceFile
	features.DecodeEnvelope(t, rec, &got)
	assert.Equal(t, core.ParseStatusCompleted, got.ParseStatus)
	assert.Contains(t, got.MarkdownContent, "region")
	assert.Contains(t, got.MarkdownContent, "EU")

	rec = features.Do(t, h, http.MethodGet, "/api/projects/"+p.ID+"/reference-files", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Files []core.ReferenceFile `json:"files"`
	}
	features.DecodeEnvelope(t, rec, &list)
	require.Len(t, list.Files, 1)
	assert.Equal(t, ref.ID, list.Files[0].ID)
}

func TestParseUnsupported(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)

	ref := upload(t, h, "slides.key", "binary", nil)
	task := parse(t, f, h, ref.ID)
	assert.Equal(t, core.TaskStatusFailed, task.Status)

	got, err := f.Store.GetReferenceFile(context.Background(), ref.ID)
	require.NoError(t, err)
	assert.Equal(t, core.ParseStatusFailed, got.ParseStatus)
	assert.NotEmpty(t, got.ErrorMessage)
}

func TestParseConflict(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)
	ref := upload(t, h, "notes.md", "# Notes", nil)
	require.NoError(t, f.Store.UpdateReferenceParse(context.Background(), ref.ID, core.ParseStatusParsing, "", ""))

	rec := features.Do(t, h, http.MethodPost, "/api/reference-files/"+ref.ID+"/parse", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	env := features.DecodeEnvelope(t, rec, nil)
	assert.Equal(t, respond.CodeConflict, env.Error.Code)
}

func TestDeleteReferenceFile(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)
	ref := upload(t, h, "notes.md", "# Notes", nil)

	rec := features.Do(t, h, http.MethodDelete, "/api/reference-files/"+ref.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = features.Do(t, h, http.MethodGet, "/api/reference-files/"+ref.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = features.Do(t, h, http.MethodGet, "/api/projects/missing/reference-files", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = features.Upload(t, h, "/api/reference-files/upload", "file", "a.md", []byte("x"), map[string]string{"project_id": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
