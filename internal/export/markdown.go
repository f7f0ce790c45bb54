package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// Markdown renders the outline and descriptions as a document. Parts
// become second-level headings, pages third-level headings under them.
func Markdown(p *core.Project) ([]byte, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	md.H1(Title(p))
	md.PlainText("")

	level := md.H2
	for _, pg := range p.Pages {
		if pg.Part != "" {
			level = md.H3
			break
		}
	}

	part := ""
	for i, pg := range p.Pages {
		if pg.Part != "" && pg.Part != part {
			part = pg.Part
			md.H2(part)
			md.PlainText("")
		}

		title := pg.Title()
		if title == "" {
			title = "Untitled"
		}
		level(fmt.Sprintf("%d. %s", i+1, title))
		md.PlainText("")

		if pg.Outline != nil && len(pg.Outline.Points) > 0 {
			md.BulletList(pg.Outline.Points...)
			md.PlainText("")
		}
		if pg.HasDescription() {
			md.PlainText(strings.TrimSpace(pg.Description.Text))
			md.PlainText("")
		}
		if pg.HasImage() {
			md.PlainText(markdown.Image(title, files.URL(pg.GeneratedImagePath)))
			md.PlainText("")
		}
	}

	if err := md.Build(); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.Bytes(), nil
}
