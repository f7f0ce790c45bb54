package prompts

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare array", in: `[1,2]`, want: `[1,2]`},
		{name: "fenced", in: "Sure!\n```json\n[{\"a\": 1}]\n```\nDone.", want: `[{"a": 1}]`},
		{name: "leading prose", in: `Here you go: {"a": [1, {"b": 2}]} trailing`, want: `{"a": [1, {"b": 2}]}`},
		{name: "brackets in strings", in: `["a ] tricky \" one", "b"]`, want: `["a ] tricky \" one", "b"]`},
		{name: "no json", in: "just words", wantErr: true},
		{name: "unterminated", in: `[{"a": 1}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOutline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []OutlineItem
	}{
		{
			name: "flat pages",
			in:   `[{"title": "Intro", "points": ["why", " "]}, {"title": "End"}]`,
			want: []OutlineItem{
				{Title: "Intro", Points: []string{"why"}},
				{Title: "End", Points: []string{}},
			},
		},
		{
			name: "sections flatten with part",
			in: "```json\n" + `[
				{"part": "Background", "pages": [{"title": "History", "points": ["a"]}, {"title": "Today", "points": ["b"]}]},
				{"title": "Wrap up", "points": ["c"]}
			]` + "\n```",
			want: []OutlineItem{
				{Part: "Background", Title: "History", Points: []string{"a"}},
				{Part: "Background", Title: "Today", Points: []string{"b"}},
				{Title: "Wrap up", Points: []string{"c"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutline(tt.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseOutline() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseOutline_SchemaFailures(t *testing.T) {
	bad := []string{
		`[]`,
		`[{"points": ["no title"]}]`,
		`[{"title": 3}]`,
		`[{"part": "Empty", "pages": []}]`,
		`{"title": "not a list"}`,
	}
	for _, in := range bad {
		_, err := ParseOutline(in)
		var schemaErr *SchemaError
		assert.ErrorAs(t, err, &schemaErr, in)
	}
}

func TestParseDescribedPages(t *testing.T) {
	pages, err := ParseDescribedPages(`[{"title": "Intro", "points": ["a"], "description": " Opening slide "}]`)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Opening slide", pages[0].Description)

	_, err = ParseDescribedPages(`[{"title": "Intro"}]`)
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestParseStringList(t *testing.T) {
	got, err := ParseStringList(`["one", "two"]`, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)

	_, err = ParseStringList(`["one"]`, 2)
	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)

	_, err = ParseStringList(`[1, 2]`, 0)
	assert.ErrorAs(t, err, &schemaErr)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Slide text", CleanText("```\nSlide text\n```"))
	assert.Equal(t, "plain", CleanText("  plain \n"))
}
