package output

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type item struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAuto, "JSON": ModeJSON, " yaml ": ModeYAML, "text": ModeText} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("markdown")
	assert.Error(t, err)
}

func TestEffectiveMode(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, ModeText, NewRendererWithTTY(&out, &out, true, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRendererWithTTY(&out, &out, false, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeYAML, NewRendererWithTTY(&out, &out, true, ModeYAML).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRenderer(&out, &out, "").EffectiveMode(), "a buffer is not a terminal")
}

func TestData(t *testing.T) {
	v := []item{{ID: "a", Title: "First"}, {ID: "b"}}
	text := func(w io.Writer) error {
		_, err := io.WriteString(w, "text view\n")
		return err
	}

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, NewRendererWithTTY(&out, io.Discard, false, ModeJSON).Data(v, text))
		var got []item
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, v, got)
	})

	t.Run("yaml uses json names", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, NewRendererWithTTY(&out, io.Discard, false, ModeYAML).Data(v, text))
		var got []map[string]string
		require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, []map[string]string{{"id": "a", "title": "First"}, {"id": "b"}}, got)
	})

	t.Run("text", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, NewRendererWithTTY(&out, io.Discard, true, ModeAuto).Data(v, text))
		assert.Equal(t, "text view\n", out.String())
	})
}

func TestTable(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, io.Discard, true, ModeText)
	r.Table([]string{"ID", "Status"}, [][]any{{"p1", "DRAFT"}, {"p2", "COMPLETED"}})
	assert.Contains(t, out.String(), "p1")
	assert.Contains(t, out.String(), "COMPLETED")

	out.Reset()
	r.Success("deleted %s", "p1")
	assert.Equal(t, "deleted p1\n", out.String())

	out.Reset()
	NewRendererWithTTY(&out, io.Discard, false, ModeJSON).Success("deleted")
	assert.Empty(t, out.String())
}
