package features

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deckforge/internal/export"
	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/internal/generation"
	"github.com/leapstack-labs/deckforge/internal/provider"
	"github.com/leapstack-labs/deckforge/internal/provider/providertest"
	"github.com/leapstack-labs/deckforge/internal/server/notifier"
	"github.com/leapstack-labs/deckforge/internal/state"
	"github.com/leapstack-labs/deckforge/internal/tasks"
	"github.com/leapstack-labs/deckforge/internal/testutil"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// TestFixture holds everything a handler test needs: real SQLite state,
// a temp uploads root, a task pool and fake providers.
type TestFixture struct {
	Deps  *Deps
	Store *state.SQLiteStore
	Tasks *tasks.Manager
	Text  *providertest.Text
	Image *providertest.Image

	t *testing.T
}

// SetupTestFixture builds a fixture whose resources are released on test
// cleanup.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	dir := t.TempDir()

	store := state.NewSQLiteStore(logger)
	require.NoError(t, store.Open(filepath.Join(dir, "test.db")))
	require.NoError(t, store.Migrate())

	storage, err := files.New(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	n := notifier.New()
	mgr := tasks.New(tasks.Config{Store: store, Notifier: n, Workers: 2, Logger: logger})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Shutdown(ctx)
		_ = store.Close()
	})

	f := &TestFixture{
		Store: store,
		Tasks: mgr,
		Text:  &providertest.Text{},
		Image: &providertest.Image{Width: 320, Height: 180},
		t:     t,
	}
	gen := generation.New(generation.Config{
		Store:  store,
		Files:  storage,
		Tasks:  mgr,
		Logger: logger,
		Text: func(context.Context, *core.Settings) (provider.TextProvider, error) {
			return f.Text, nil
		},
		Image: func(context.Context, *core.Settings) (provider.ImageProvider, error) {
			return f.Image, nil
		},
	})
	f.Deps = &Deps{
		Store:          store,
		Generation:     gen,
		Files:          storage,
		Exporter:       export.New(storage, logger),
		Notifier:       n,
		Logger:         logger,
		MaxUploadBytes: 10 << 20,
		Version:        "test",
	}
	return f
}

// Router mounts the given feature setups on a fresh chi router.
func (f *TestFixture) Router(setups ...func(chi.Router, *Deps) error) http.Handler {
	f.t.Helper()
	r := chi.NewRouter()
	for _, setup := range setups {
		require.NoError(f.t, setup(r, f.Deps))
	}
	return r
}

// Project creates a project with the given pages.
func (f *TestFixture) Project(titles ...string) *core.Project {
	f.t.Helper()
	ctx := context.Background()
	p := &core.Project{CreationType: core.CreationTypeIdea, IdeaPrompt: "Launch plan", Status: core.ProjectStatusDraft}
	require.NoError(f.t, f.Store.CreateProject(ctx, p))
	for _, title := range titles {
		page := &core.Page{ProjectID: p.ID, OrderIndex: -1, Outline: &core.OutlineContent{Title: title, Points: []string{"point"}}, Status: core.PageStatusDraft}
		require.NoError(f.t, f.Store.CreatePage(ctx, page))
	}
	p, err := f.Store.GetProjectWithPages(ctx, p.ID)
	require.NoError(f.t, err)
	return p
}

// WaitTask polls until the task reaches a terminal status.
func (f *TestFixture) WaitTask(id string) *core.Task {
	f.t.Helper()
	var task *core.Task
	require.Eventually(f.t, func() bool {
		var err error
		task, err = f.Store.GetTask(context.Background(), id)
		return err == nil && task.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return task
}

// Envelope is the decoded response wrapper.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Do sends a request through h. A non-nil body is encoded as JSON unless
// it is already an io.Reader.
func Do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		r = b
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// Upload sends a multipart request with one file and extra form fields.
func Upload(t *testing.T, h http.Handler, target, field, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// DecodeEnvelope decodes the response and, when v is non-nil, its data.
func DecodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, v any) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if v != nil {
		require.NoError(t, json.Unmarshal(env.Data, v), string(env.Data))
	}
	return env
}
