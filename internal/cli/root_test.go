package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/deckforge/internal/cli/config"
	"github.com/leapstack-labs/deckforge/internal/cli/output"
	"github.com/leapstack-labs/deckforge/internal/cli/testutil"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	verbose = false

	root := NewRootCmd()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"serve", "migrate", "projects", "export", "settings", "version", "completion"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	for _, flag := range []string{"config", "data-dir", "database", "uploads-dir", "log-level", "log-format", "log-file", "verbose", "output"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRoot_FlagsReachConfig(t *testing.T) {
	dataDir := testutil.SetupTestDataDir(t)
	other := filepath.Join(t.TempDir(), "elsewhere")

	out, _, err := run(t, "migrate", "up", "--data-dir", other, "-o", "json")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, filepath.Join(other, "deckforge.db"), res["database"])
	assert.NotContains(t, res["database"], dataDir)
}

func TestRoot_ConfigFile(t *testing.T) {
	testutil.SetupTestDataDir(t)
	path := testutil.WriteConfig(t, t.TempDir(), "output: yaml\nlog:\n  level: error\n")

	out, _, err := run(t, "--config", path, "version")
	require.NoError(t, err)
	testutil.AssertContains(t, out, "version: 0.1.0")
	assert.Equal(t, path, config.GetConfigFileUsed())
}

func TestRoot_Verbose(t *testing.T) {
	testutil.SetupTestDataDir(t)
	path := testutil.WriteConfig(t, t.TempDir(), "output: json\n")

	_, stderr, err := run(t, "--config", path, "-v", "settings", "show")
	require.NoError(t, err)
	testutil.AssertContains(t, stderr, "using config file")
	testutil.AssertNoANSI(t, stderr)
}

func TestRoot_InvalidConfig(t *testing.T) {
	testutil.SetupTestDataDir(t)

	_, _, err := run(t, "--output", "xml", "version")
	assert.ErrorContains(t, err, "unknown output mode")

	_, _, err = run(t, "--log-level", "loud", "version")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, _, err := run(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "deckforge")
		})
	}

	_, _, err := run(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestRendererModes(t *testing.T) {
	tests := []struct {
		mode  output.Mode
		isTTY bool
		want  string
	}{
		{output.ModeAuto, false, `"name": "deck"`},
		{output.ModeAuto, true, "deck"},
		{output.ModeYAML, false, "name: deck"},
	}
	for _, tt := range tests {
		tr := testutil.NewTestRenderer(tt.mode, tt.isTTY)
		err := tr.Data(map[string]string{"name": "deck"}, func(w io.Writer) error {
			_, err := io.WriteString(w, "deck\n")
			return err
		})
		require.NoError(t, err)
		testutil.AssertContains(t, tr.Output(), tt.want)
		testutil.AssertNoANSI(t, tr.Output())
		assert.Empty(t, tr.ErrorOutput())
	}
}
