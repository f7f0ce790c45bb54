package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "info", Format: "json", Writer: &buf})

	l.Debug("hidden")
	l.Info("visible", "project_id", "p1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "visible", rec["msg"])
	assert.Equal(t, "p1", rec["project_id"])
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", Writer: &buf})

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.SetLevel("debug")
	assert.Equal(t, slog.LevelDebug, l.Level())
	l.Debug("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNew_FileFanout(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "deckforge.log")
	l := New(Options{Level: "info", Writer: &buf, File: path})

	l.With("task_id", "t1").Info("task finished")
	require.NoError(t, l.Close())

	assert.Contains(t, buf.String(), "task finished")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"task_id":"t1"`)
}
