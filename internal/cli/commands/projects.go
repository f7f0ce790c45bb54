package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/deckforge/internal/export"
	"github.com/leapstack-labs/deckforge/internal/generation"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// NewProjectsCommand creates the projects command with its subcommands.
func NewProjectsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Inspect and delete projects",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects, most recently updated first",
		Example: `  deckforge projects list
  deckforge projects list --limit 10 --offset 20 -o json`,
		Args: cobra.NoArgs,
		RunE: runProjectsList,
	}
	list.Flags().Int("limit", 50, "Maximum number of projects")
	list.Flags().Int("offset", 0, "Number of projects to skip")

	cmd.AddCommand(list)
	cmd.AddCommand(&cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project and its pages",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectsShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project with its pages, tasks and files",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectsDelete,
	})

	return cmd
}

type projectList struct {
	Projects []*core.Project `json:"projects"`
	Total    int             `json:"total"`
}

func runProjectsList(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	if limit <= 0 || offset < 0 {
		return fmt.Errorf("limit must be positive and offset non-negative")
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	projects, total, err := cc.Store.ListProjects(cmd.Context(), limit, offset)
	if err != nil {
		return err
	}

	return cc.Renderer.Data(projectList{Projects: projects, Total: total}, func(w io.Writer) error {
		if len(projects) == 0 {
			_, err := fmt.Fprintln(w, "No projects.")
			return err
		}
		rows := make([][]any, len(projects))
		for i, p := range projects {
			rows[i] = []any{p.ID, export.Title(p), p.Status, p.UpdatedAt.Local().Format(time.DateTime)}
		}
		cc.Renderer.Table([]string{"ID", "Title", "Status", "Updated"}, rows)
		_, err := fmt.Fprintf(w, "%d of %d projects\n", len(projects), total)
		return err
	})
}

func runProjectsShow(cmd *cobra.Command, args []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := cc.Store.GetProjectWithPages(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	return cc.Renderer.Data(p, func(w io.Writer) error {
		cc.Renderer.KeyValues([][2]string{
			{"ID", p.ID},
			{"Title", export.Title(p)},
			{"Creation", string(p.CreationType)},
			{"Status", string(p.Status)},
			{"Aspect", p.ImageAspectRatio},
			{"Template", templateLabel(p)},
			{"Created", p.CreatedAt.Local().Format(time.DateTime)},
			{"Updated", p.UpdatedAt.Local().Format(time.DateTime)},
		})
		if len(p.Pages) == 0 {
			_, err := fmt.Fprintln(w, "\nNo pages.")
			return err
		}
		_, _ = fmt.Fprintln(w)
		rows := make([][]any, len(p.Pages))
		for i, pg := range p.Pages {
			image := ""
			if pg.GeneratedImagePath != "" {
				image = "yes"
			}
			rows[i] = []any{i + 1, pg.Title(), pg.Part, pg.Status, image}
		}
		cc.Renderer.Table([]string{"#", "Title", "Part", "Status", "Image"}, rows)
		return nil
	})
}

func templateLabel(p *core.Project) string {
	switch {
	case p.TemplateImagePath != "":
		return "image"
	case p.TemplateStyle != "":
		return "style text"
	default:
		return "none"
	}
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	gen := generation.New(generation.Config{Store: cc.Store, Files: cc.Files, Logger: cc.Logger})
	if err := gen.DeleteProject(cmd.Context(), args[0]); err != nil {
		return err
	}
	cc.Renderer.Success("Deleted project %s", args[0])
	return nil
}
