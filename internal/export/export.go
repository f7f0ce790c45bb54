// Package export renders a project's pages as PPTX, PDF or Markdown.
package export

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// Format is an export output format.
type Format string

// Supported formats.
const (
	FormatPPTX     Format = "pptx"
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
)

// ErrNoImages is returned when an image export finds no page with an image.
var ErrNoImages = errors.New("no page has a generated image")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPPTX, FormatPDF, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	}
	return "", core.Invalidf("unsupported export format %q", s)
}

// Ext returns the file extension of the format.
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// ImageReader loads stored images by relative path.
type ImageReader interface {
	Read(rel string) ([]byte, error)
}

// Exporter renders projects and stores the result under the project's
// exports folder.
type Exporter struct {
	Files  *files.Storage
	Logger *slog.Logger
}

// New creates an Exporter.
func New(storage *files.Storage, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{Files: storage, Logger: logger}
}

// Render produces the export bytes for a project loaded with its pages.
func (e *Exporter) Render(p *core.Project, f Format) ([]byte, error) {
	switch f {
	case FormatPPTX:
		return PPTX(p, e.Files)
	case FormatPDF:
		return PDF(p, e.Files)
	case FormatMarkdown:
		return Markdown(p)
	}
	return nil, core.Invalidf("unsupported export format %q", f)
}

// Export renders p and writes it to <project>/exports/<filename>.<ext>.
// An empty filename uses "presentation". It returns the relative path.
func (e *Exporter) Export(p *core.Project, f Format, filename string) (string, error) {
	data, err := e.Render(p, f)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filename, "."+f.Ext())
	if strings.TrimSpace(base) == "" {
		base = "presentation"
	}
	name := files.SanitizeFilename(base) + "." + f.Ext()

	rel, err := e.Files.Write(files.ProjectDir(p.ID, files.DirExports), name, data)
	if err != nil {
		return "", err
	}
	e.Logger.Info("project exported", "project_id", p.ID, "format", f, "path", rel, "bytes", len(data))
	return rel, nil
}

// Title derives a document title from the project.
func Title(p *core.Project) string {
	if idea := strings.TrimSpace(p.IdeaPrompt); idea != "" {
		r := []rune(idea)
		if len(r) > 60 {
			return string(r[:57]) + "..."
		}
		return idea
	}
	for _, pg := range p.Pages {
		if t := pg.Title(); t != "" {
			return t
		}
	}
	return "Presentation"
}

type pageImage struct {
	page *core.Page
	data []byte
}

// images loads the current image of every page that has one, in order.
func images(p *core.Project, r ImageReader) ([]pageImage, error) {
	var out []pageImage
	for _, pg := range p.Pages {
		if !pg.HasImage() {
			continue
		}
		data, err := r.Read(pg.GeneratedImagePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read image of page %d: %w", pg.OrderIndex+1, err)
		}
		out = append(out, pageImage{page: pg, data: data})
	}
	if len(out) == 0 {
		return nil, ErrNoImages
	}
	return out, nil
}
