package export

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/internal/testutil"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

func writePNG(t *testing.T, s *files.Storage, rel string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	dir, name, _ := strings.Cut(rel, "/pages/")
	_, err := s.Write(dir+"/pages", name, buf.Bytes())
	require.NoError(t, err)
}

func fixture(t *testing.T) (*files.Storage, *core.Project) {
	t.Helper()
	s, err := files.New(t.TempDir())
	require.NoError(t, err)

	writePNG(t, s, "p1/pages/a.png", 160, 90)
	writePNG(t, s, "p1/pages/c.png", 90, 160)

	p := &core.Project{
		ID:         "p1",
		IdeaPrompt: "Quarterly review",
		Pages: []*core.Page{
			{ID: "a", Part: "Intro", Outline: &core.OutlineContent{Title: "Welcome", Points: []string{"agenda", "team"}}, Description: &core.DescriptionContent{Text: "Opening slide"}, GeneratedImagePath: "p1/pages/a.png"},
			{ID: "b", OrderIndex: 1, Part: "Intro", Outline: &core.OutlineContent{Title: "No image"}},
			{ID: "c", OrderIndex: 2, Part: "Results", Outline: &core.OutlineContent{Title: "Numbers"}, GeneratedImagePath: "p1/pages/c.png"},
		},
	}
	return s, p
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"pptx": FormatPPTX, "PDF": FormatPDF, "markdown": FormatMarkdown, "md": FormatMarkdown}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("docx")
	assert.ErrorIs(t, err, core.ErrInvalid)
	assert.Equal(t, "md", FormatMarkdown.Ext())
}

func TestPPTX(t *testing.T) {
	s, p := fixture(t)

	data, err := PPTX(p, s)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	slides := 0
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides++
		}
	}
	assert.Equal(t, 2, slides, "page without image is skipped")
}

func TestPDF(t *testing.T) {
	s, p := fixture(t)

	data, err := PDF(p, s)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	// One page per image, each shaped like its image.
	boxes := pageMediaBox.FindAllStringSubmatch(string(data), -1)
	require.Len(t, boxes, 2)
	assert.Equal(t, []string{"792.00", "445.50"}, boxes[0][1:], "16:9 image gives a landscape page")
	assert.Equal(t, []string{"445.50", "792.00"}, boxes[1][1:], "9:16 image gives a portrait page")
}

var pageMediaBox = regexp.MustCompile(`/Type /Page\n/Parent 1 0 R\n/MediaBox \[0 0 ([0-9.]+) ([0-9.]+)\]`)

func TestPDFPageSize(t *testing.T) {
	tests := []struct {
		w, h   int
		pw, ph float64
		orient string
	}{
		{1600, 900, 792, 445.5, "L"},
		{900, 1600, 445.5, 792, "P"},
		{1000, 1000, 792, 792, "P"},
	}
	for _, tt := range tests {
		pw, ph := pdfPageSize(tt.w, tt.h)
		assert.InDelta(t, tt.pw, pw, 0.001)
		assert.InDelta(t, tt.ph, ph, 0.001)
		assert.Equal(t, tt.orient, pdfOrientation(pw, ph))
	}
}

func TestImageExportsRequireImages(t *testing.T) {
	s, p := fixture(t)
	for _, pg := range p.Pages {
		pg.GeneratedImagePath = ""
	}

	_, err := PPTX(p, s)
	assert.ErrorIs(t, err, ErrNoImages)
	_, err = PDF(p, s)
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestMarkdown(t *testing.T) {
	_, p := fixture(t)

	data, err := Markdown(p)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "# Quarterly review")
	assert.Contains(t, out, "## Intro")
	assert.Contains(t, out, "### 1. Welcome")
	assert.Contains(t, out, "- agenda")
	assert.Contains(t, out, "Opening slide")
	assert.Contains(t, out, "## Results")
	assert.Contains(t, out, "/files/p1/pages/a.png")
	assert.Equal(t, 1, strings.Count(out, "## Intro\n"), "part heading emitted once")
}

func TestExportWritesFile(t *testing.T) {
	s, p := fixture(t)
	e := New(s, testutil.NewTestLogger(t))

	rel, err := e.Export(p, FormatMarkdown, "")
	require.NoError(t, err)
	assert.Equal(t, "p1/exports/presentation.md", rel)

	rel, err = e.Export(p, FormatPDF, "Q3 deck.pdf")
	require.NoError(t, err)
	assert.Equal(t, "p1/exports/Q3_deck.pdf", rel)

	data, err := s.Read(rel)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}
