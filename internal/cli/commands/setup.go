package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/deckforge/internal/cli/config"
	"github.com/leapstack-labs/deckforge/internal/cli/output"
	intconfig "github.com/leapstack-labs/deckforge/internal/config"
	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *intconfig.Config
	Logger   *slog.Logger
	Store    *state.SQLiteStore
	Files    *files.Storage
	Renderer *output.Renderer
}

// NewCommandContext opens the database, applies pending migrations and
// prepares the uploads folder.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	return newCommandContext(cmd, true)
}

func newCommandContext(cmd *cobra.Command, migrate bool) (*CommandContext, func(), error) {
	cc, err := NewCommandContextWithoutStore(cmd)
	if err != nil {
		return nil, nil, err
	}

	if err := config.EnsureDirs(cc.Cfg); err != nil {
		return nil, nil, err
	}

	store := state.NewSQLiteStore(cc.Logger)
	if err := store.Open(cc.Cfg.Database); err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if migrate {
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	storage, err := files.New(cc.Cfg.UploadsDir)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	cc.Store = store
	cc.Files = storage
	cleanup := func() {
		_ = store.Close()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without opening
// the database.
func NewCommandContextWithoutStore(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetCurrentConfig()
	mode, err := output.ParseMode(cfg.Output)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}
