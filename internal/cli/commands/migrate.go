package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command with its subcommands.
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or inspect the embedded schema migrations.

Every command that opens the database applies pending migrations, so
running this is only needed to prepare a database ahead of time.`,
		RunE: runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE:  runMigrateStatus,
	})

	return cmd
}

type migrateResult struct {
	Database string `json:"database"`
	From     int64  `json:"from_version"`
	To       int64  `json:"to_version"`
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := newCommandContext(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()

	from, err := cc.Store.MigrationVersion()
	if err != nil {
		return err
	}
	if err := cc.Store.Migrate(); err != nil {
		return err
	}
	to, err := cc.Store.MigrationVersion()
	if err != nil {
		return err
	}

	res := migrateResult{Database: cc.Cfg.Database, From: from, To: to}
	return cc.Renderer.Data(res, func(w io.Writer) error {
		if from == to {
			_, err := fmt.Fprintf(w, "%s is up to date at version %d\n", res.Database, to)
			return err
		}
		_, err := fmt.Fprintf(w, "migrated %s from version %d to %d\n", res.Database, from, to)
		return err
	})
}

type migrationView struct {
	Version int64  `json:"version"`
	Source  string `json:"source"`
	Applied bool   `json:"applied"`
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := newCommandContext(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()

	all, err := cc.Store.Migrations()
	if err != nil {
		return err
	}
	views := make([]migrationView, len(all))
	rows := make([][]any, len(all))
	for i, m := range all {
		views[i] = migrationView{Version: m.Version, Source: m.Source, Applied: m.Applied}
		state := "pending"
		if m.Applied {
			state = "applied"
		}
		rows[i] = []any{m.Version, m.Source, state}
	}

	return cc.Renderer.Data(views, func(io.Writer) error {
		cc.Renderer.Table([]string{"Version", "Migration", "State"}, rows)
		return nil
	})
}
