package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrNoJSON is returned when a response contains no JSON value.
var ErrNoJSON = errors.New("no JSON found in response")

// SchemaError lists the validation failures of an LLM response.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "response does not match expected shape: " + strings.Join(e.Problems, "; ")
}

// OutlineItem is one page of a parsed outline, flattened out of its part.
type OutlineItem struct {
	Part        string   `json:"part,omitempty"`
	Title       string   `json:"title"`
	Points      []string `json:"points"`
	Description string   `json:"description,omitempty"`
}

const pageSchema = `{
	"type": "object",
	"required": ["title"],
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"points": {"type": "array", "items": {"type": "string"}},
		"description": {"type": "string"},
		"part": {"type": "string"}
	}
}`

var (
	outlineSchema = gojsonschema.NewStringLoader(`{
	"type": "array",
	"minItems": 1,
	"items": {
		"oneOf": [
			{
				"type": "object",
				"required": ["part", "pages"],
				"properties": {
					"part": {"type": "string"},
					"pages": {"type": "array", "minItems": 1, "items": ` + pageSchema + `}
				}
			},
			{
				"allOf": [` + pageSchema + `, {"not": {"required": ["pages"]}}]
			}
		]
	}
}`)

	describedPagesSchema = gojsonschema.NewStringLoader(`{
	"type": "array",
	"minItems": 1,
	"items": {
		"allOf": [` + pageSchema + `, {"required": ["description"]}]
	}
}`)

	stringListSchema = gojsonschema.NewStringLoader(`{
	"type": "array",
	"items": {"type": "string"}
}`)
)

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*\\n?(.*?)```")

// StripFences returns the content of the first fenced code block, or the
// trimmed input when there is none.
func StripFences(s string) string {
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// ExtractJSON returns the first complete JSON object or array in s.
func ExtractJSON(s string) (string, error) {
	s = StripFences(s)
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unterminated value", ErrNoJSON)
}

func validate(schema gojsonschema.JSONLoader, doc string) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return &SchemaError{Problems: problems}
}

type outlineEntry struct {
	OutlineItem
	Pages []OutlineItem `json:"pages"`
}

// ParseOutline parses an outline response. Parts are flattened into pages
// that remember their part name.
func ParseOutline(resp string) ([]OutlineItem, error) {
	doc, err := ExtractJSON(resp)
	if err != nil {
		return nil, err
	}
	if err := validate(outlineSchema, doc); err != nil {
		return nil, err
	}

	var entries []outlineEntry
	if err := json.Unmarshal([]byte(doc), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode outline: %w", err)
	}

	var items []OutlineItem
	for _, e := range entries {
		if len(e.Pages) == 0 {
			items = append(items, normalise(e.OutlineItem))
			continue
		}
		for _, p := range e.Pages {
			p.Part = e.Part
			items = append(items, normalise(p))
		}
	}
	return items, nil
}

// ParseDescribedPages parses pages that carry a description each.
func ParseDescribedPages(resp string) ([]OutlineItem, error) {
	doc, err := ExtractJSON(resp)
	if err != nil {
		return nil, err
	}
	if err := validate(describedPagesSchema, doc); err != nil {
		return nil, err
	}
	var items []OutlineItem
	if err := json.Unmarshal([]byte(doc), &items); err != nil {
		return nil, fmt.Errorf("failed to decode pages: %w", err)
	}
	for i := range items {
		items[i] = normalise(items[i])
	}
	return items, nil
}

// ParseStringList parses a JSON array of strings and checks its length
// when want is positive.
func ParseStringList(resp string, want int) ([]string, error) {
	doc, err := ExtractJSON(resp)
	if err != nil {
		return nil, err
	}
	if err := validate(stringListSchema, doc); err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	if want > 0 && len(out) != want {
		return nil, &SchemaError{Problems: []string{fmt.Sprintf("expected %d entries, got %d", want, len(out))}}
	}
	return out, nil
}

// CleanText strips fences and surrounding whitespace from a plain-text answer.
func CleanText(resp string) string {
	return StripFences(resp)
}

func normalise(it OutlineItem) OutlineItem {
	it.Title = strings.TrimSpace(it.Title)
	it.Part = strings.TrimSpace(it.Part)
	it.Description = strings.TrimSpace(it.Description)
	points := it.Points[:0]
	for _, p := range it.Points {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	it.Points = points
	if it.Points == nil {
		it.Points = []string{}
	}
	return it
}
