package materials

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deckforge/internal/provider/providertest"
	"github.com/leapstack-labs/deckforge/internal/server/features"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

type listResponse struct {
	Materials []core.Material `json:"materials"`
	Count     int             `json:"count"`
}

func upload(t *testing.T, h http.Handler, projectID string) core.Material {
	t.Helper()
	fields := map[string]string{}
	if projectID != "" {
		fields["project_id"] = projectID
	}
	rec := features.Upload(t, h, "/api/materials/upload", "file", "Logo Ünïcode.png", providertest.PNG(16, 16), fields)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m core.Material
	features.DecodeEnvelope(t, rec, &m)
	return m
}

func TestUploadAndList(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)
	p := f.Project()

	global := upload(t, h, "")
	scoped := upload(t, h, p.ID)
	assert.Empty(t, global.ProjectID)
	assert.Equal(t, p.ID, scoped.ProjectID)
	assert.Equal(t, "Logo_Unicode.png", scoped.Filename)
	assert.Contains(t, scoped.URL, "/files/"+p.ID+"/materials/")

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{global.ID, scoped.ID}},
		{"?project_id=all", []string{global.ID, scoped.ID}},
		{"?project_id=none", []string{global.ID}},
		{"?project_id=" + p.ID, []string{scoped.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := features.Do(t, h, http.MethodGet, "/api/materials"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var resp listResponse
			features.DecodeEnvelope(t, rec, &resp)
			ids := make([]string, len(resp.Materials))
			for i, m := range resp.Materials {
				ids[i] = m.ID
			}
			assert.ElementsMatch(t, tt.want, ids)
			assert.Equal(t, len(tt.want), resp.Count)
		})
	}
}

func TestUploadRejects(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)

	rec := features.Upload(t, h, "/api/materials/upload", "file", "notes.txt", []byte("hello"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = features.Upload(t, h, "/api/materials/upload", "", "", nil, map[string]string{"project_id": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = features.Upload(t, h, "/api/materials/upload", "file", "a.png", providertest.PNG(4, 4), map[string]string{"project_id": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.Deps.MaxUploadBytes = 64
	rec = features.Upload(t, h, "/api/materials/upload", "file", "big.png", providertest.PNG(64, 64), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteMaterial(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)
	m := upload(t, h, "")

	rec := features.Do(t, h, http.MethodDelete, "/api/materials/"+m.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := f.Store.GetMaterial(context.Background(), m.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	rec = features.Do(t, h, http.MethodDelete, "/api/materials/"+m.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateMaterial(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)
	p := f.Project()
	ref := upload(t, h, p.ID)

	rec := features.Do(t, h, http.MethodPost, "/api/projects/"+p.ID+"/materials/generate",
		GenerateRequest{Prompt: "a rocket", ReferenceURLs: []string{ref.URL}})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var accepted features.TaskAccepted
	features.DecodeEnvelope(t, rec, &accepted)

	task := f.WaitTask(accepted.TaskID)
	require.Equal(t, core.TaskStatusCompleted, task.Status, task.ErrorMessage)
	assert.NotEmpty(t, task.Result["material_id"])
	reqs := f.Image.Requests()
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].References, 1)

	rec = features.Upload(t, h, "/api/projects/"+p.ID+"/materials/generate", "ref_image", "r.png", providertest.PNG(8, 8),
		map[string]string{"prompt": "a tree"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	features.DecodeEnvelope(t, rec, &accepted)
	assert.Equal(t, core.TaskStatusCompleted, f.WaitTask(accepted.TaskID).Status)

	materials, err := f.Store.ListMaterials(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, materials, 3)
}

func TestGenerateMaterial_Invalid(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := f.Router(SetupRoutes)
	p := f.Project()

	rec := features.Do(t, h, http.MethodPost, "/api/projects/"+p.ID+"/materials/generate", GenerateRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = features.Do(t, h, http.MethodPost, "/api/projects/"+p.ID+"/materials/generate",
		GenerateRequest{Prompt: "x", ReferenceURLs: []string{"/files/../../etc/passwd"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = features.Do(t, h, http.MethodPost, "/api/projects/missing/materials/generate", GenerateRequest{Prompt: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
