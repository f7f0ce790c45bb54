// Package prompts builds the instructions sent to text and image providers
// and parses what comes back.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/*.tmpl"))

// Context carries the project-wide inputs every prompt includes.
type Context struct {
	Language          string
	ExtraRequirements string
	References        []Reference
}

// Reference is a parsed reference file included as background material.
type Reference struct {
	Filename string
	Markdown string
}

// LanguageName maps an output-language code to the name used in prompts.
func LanguageName(code string) string {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "", "zh":
		return "Chinese (中文)"
	case "en":
		return "English"
	case "ja":
		return "Japanese (日本語)"
	case "ko":
		return "Korean (한국어)"
	case "auto":
		return "the same language as the user's input"
	default:
		return code
	}
}

func (c Context) data(extra map[string]any) map[string]any {
	d := map[string]any{
		"Language":          LanguageName(c.Language),
		"ExtraRequirements": strings.TrimSpace(c.ExtraRequirements),
		"References":        c.References,
	}
	for k, v := range extra {
		d[k] = v
	}
	return d
}

func render(name string, data map[string]any) string {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		// Templates are embedded and fixed; a failure here is a programming error.
		panic(fmt.Sprintf("prompts: render %s: %v", name, err))
	}
	return strings.TrimSpace(buf.String())
}

// OutlineFromIdea asks for a structured outline for a one-line idea.
func OutlineFromIdea(c Context, idea string) string {
	return render("outline_idea.tmpl", c.data(map[string]any{"Idea": idea}))
}

// OutlineFromText asks for an outline that restructures pasted outline text.
func OutlineFromText(c Context, text string) string {
	return render("outline_text.tmpl", c.data(map[string]any{"Text": text}))
}

// PagesFromDescriptions asks to split pasted page descriptions into pages
// carrying both outline and description.
func PagesFromDescriptions(c Context, text string) string {
	return render("pages_from_descriptions.tmpl", c.data(map[string]any{"Text": text}))
}

// RefineOutline asks to rewrite the current outline according to a requirement.
func RefineOutline(c Context, current []OutlineItem, requirement string) string {
	return render("refine_outline.tmpl", c.data(map[string]any{
		"Outline":     FormatOutline(current),
		"Requirement": requirement,
	}))
}

// PageDescription asks for the description of one page given the whole outline.
func PageDescription(c Context, idea string, outline []OutlineItem, index int) string {
	return render("page_description.tmpl", c.data(map[string]any{
		"Idea":    idea,
		"Outline": FormatOutline(outline),
		"Index":   index,
		"Total":   len(outline),
		"Page":    outline[index],
	}))
}

// RefineDescriptions asks to rewrite every page description according to a
// requirement. The answer is a JSON array with one string per page.
func RefineDescriptions(c Context, pages []PageText, requirement string) string {
	return render("refine_descriptions.tmpl", c.data(map[string]any{
		"Pages":       pages,
		"Requirement": requirement,
	}))
}

// ImageOptions controls the slide image prompt.
type ImageOptions struct {
	HasTemplateImage bool
	TemplateStyle    string
	AspectRatio      string
	Index            int
	Total            int
}

// PageImage asks for a finished slide image for one page.
func PageImage(c Context, page PageText, opts ImageOptions) string {
	return render("page_image.tmpl", c.data(map[string]any{
		"Page": page,
		"Opts": opts,
	}))
}

// ImageEdit asks to modify an existing slide image.
func ImageEdit(c Context, instruction string, page PageText, extraReferences int) string {
	return render("image_edit.tmpl", c.data(map[string]any{
		"Instruction":     instruction,
		"Page":            page,
		"ExtraReferences": extraReferences,
	}))
}

// MaterialImage asks for a standalone illustration.
func MaterialImage(c Context, prompt string, references int) string {
	return render("material_image.tmpl", c.data(map[string]any{
		"Prompt":         prompt,
		"ReferenceCount": references,
	}))
}

// PageText is the textual content of a page as fed into prompts.
type PageText struct {
	Title       string
	Points      []string
	Description string
}

// FormatOutline renders an outline as an indented plain-text list.
func FormatOutline(items []OutlineItem) string {
	var b strings.Builder
	part := ""
	for i, it := range items {
		if it.Part != "" && it.Part != part {
			part = it.Part
			fmt.Fprintf(&b, "## %s\n", part)
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, it.Title)
		for _, p := range it.Points {
			fmt.Fprintf(&b, "   - %s\n", p)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
