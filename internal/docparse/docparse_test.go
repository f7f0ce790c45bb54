package docparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileType(t *testing.T) {
	assert.Equal(t, "md", FileType("Notes.MD"))
	assert.Equal(t, "csv", FileType("dir/data.csv"))
	assert.Equal(t, "", FileType("README"))
	assert.True(t, Supported("htm"))
	assert.False(t, Supported("pdf"))
}

func TestConvertVerbatim(t *testing.T) {
	for _, typ := range []string{"md", "markdown", "txt"} {
		got, err := Convert(typ, []byte("\xef\xbb\xbf# Title\n\nbody\n"))
		require.NoError(t, err)
		assert.Equal(t, "# Title\n\nbody", got)
	}
}

func TestConvertHTML(t *testing.T) {
	got, err := Convert("html", []byte(`<html><body><h1>Roadmap</h1><p>Ship <strong>v2</strong></p><ul><li>alpha</li><li>beta</li></ul></body></html>`))
	require.NoError(t, err)
	assert.Contains(t, got, "# Roadmap")
	assert.Contains(t, got, "**v2**")
	assert.Contains(t, got, "alpha")
}

func TestConvertCSV(t *testing.T) {
	got, err := Convert("CSV", []byte("name,score\nada,10\nbob\n"))
	require.NoError(t, err)

	lines := strings.Split(got, "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], "name")
	assert.Contains(t, lines[0], "score")
	assert.Contains(t, lines[1], "-")
	assert.Contains(t, got, "ada")
	assert.Contains(t, got, "bob")

	empty, err := Convert("csv", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = Convert("csv", []byte("a,\"b\nc"))
	assert.Error(t, err)
}

func TestConvertUnsupported(t *testing.T) {
	_, err := Convert("pdf", []byte("%PDF"))
	assert.ErrorIs(t, err, ErrUnsupported)
}
