// Package features holds what the HTTP feature packages share: their
// dependencies, response views and request helpers.
package features

import (
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/leapstack-labs/deckforge/internal/export"
	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/internal/generation"
	"github.com/leapstack-labs/deckforge/internal/server/notifier"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// Deps are the services a feature's handlers may use.
type Deps struct {
	Store          core.Store
	Generation     *generation.Service
	Files          *files.Storage
	Exporter       *export.Exporter
	Notifier       *notifier.Notifier
	Logger         *slog.Logger
	MaxUploadBytes int64
	Version        string
}

// Log returns the logger or a discard logger.
func (d *Deps) Log() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// ParseMultipart limits the body to the upload limit and parses the form.
func (d *Deps) ParseMultipart(w http.ResponseWriter, r *http.Request) error {
	if d.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, d.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return core.Invalidf("invalid multipart form: %v", err)
	}
	return nil
}

// FormFile returns an uploaded file by field name.
func FormFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, nil, core.Invalidf("missing file field %q", field)
	}
	return f, hdr, nil
}

// IsMultipart reports whether the request carries a multipart body.
func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// QueryInt reads a non-negative integer query parameter.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, core.Invalidf("%s must be a non-negative integer", key)
	}
	return v, nil
}
