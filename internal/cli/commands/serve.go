package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/deckforge/internal/cli/config"
	intconfig "github.com/leapstack-labs/deckforge/internal/config"
	"github.com/leapstack-labs/deckforge/internal/export"
	"github.com/leapstack-labs/deckforge/internal/generation"
	"github.com/leapstack-labs/deckforge/internal/server"
	"github.com/leapstack-labs/deckforge/internal/server/features"
	"github.com/leapstack-labs/deckforge/internal/server/notifier"
	"github.com/leapstack-labs/deckforge/internal/tasks"
)

// NewServeCommand creates the serve command.
func NewServeCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API that creates projects, generates outlines, page
descriptions and page images, and exports finished decks.

Tasks left running by a previous process are marked failed on startup.
While serving, changes to the config file re-apply the log level and the
provider section without a restart.`,
		Example: `  # Serve on the default address (127.0.0.1:5000)
  deckforge serve

  # Listen on all interfaces with more background workers
  deckforge serve --host 0.0.0.0 --port 8080 --workers 8`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, version)
		},
	}

	cmd.Flags().String("host", "", "Address to bind (default 127.0.0.1)")
	cmd.Flags().IntP("port", "p", 0, "Port to listen on (default 5000)")
	cmd.Flags().Int("workers", 0, "Background tasks run at once")
	cmd.Flags().Int("max-upload-mb", 0, "Upload size limit in megabytes")
	cmd.Flags().Bool("watch-config", true, "Reload the config file when it changes")

	return cmd
}

func runServe(cmd *cobra.Command, version string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cc.Cfg
	logger := cc.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n := notifier.New()
	mgr := tasks.New(tasks.Config{
		Store:    cc.Store,
		Notifier: n,
		Workers:  cfg.Tasks.Workers,
		Logger:   logger,
	})
	recovered, err := mgr.RecoverStale(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover interrupted tasks: %w", err)
	}
	if recovered > 0 {
		logger.Warn("marked interrupted tasks as failed", "count", recovered)
	}

	env := intconfig.NewProviderEnv(cfg)
	deps := &features.Deps{
		Store: cc.Store,
		Generation: generation.New(generation.Config{
			Store:  cc.Store,
			Files:  cc.Files,
			Tasks:  mgr,
			Logger: logger,
			Env:    env.Lookup,
		}),
		Files:          cc.Files,
		Exporter:       export.New(cc.Files, logger),
		Notifier:       n,
		Logger:         logger,
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		Version:        version,
	}

	srv := server.New(server.Config{
		Addr:        cfg.Server.Addr(),
		Deps:        deps,
		Tasks:       mgr,
		ConfigFile:  config.GetConfigFileUsed(),
		Watch:       cfg.Server.WatchConfig,
		Log:         config.GetLogging(cmd.Context()),
		ProviderEnv: env,
	})
	logger.Info("serving", "data_dir", cfg.DataDir, "database", cfg.Database, "workers", cfg.Tasks.Workers)
	return srv.Serve(ctx)
}
