package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/deckforge/internal/export"
	"github.com/leapstack-labs/deckforge/internal/files"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Export a project as PPTX, PDF or Markdown",
		Long: `Render a project and write it under the project's exports folder.

pptx and pdf place one generated page image per slide and need at least
one page with an image. markdown writes the outline and descriptions.`,
		Example: `  deckforge export 3f2a... --format pptx
  deckforge export 3f2a... --format markdown --filename notes`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().StringP("format", "f", string(export.FormatPPTX), "Export format (pptx|pdf|markdown)")
	cmd.Flags().String("filename", "", "File name without extension (default presentation)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(export.FormatPPTX), string(export.FormatPDF), string(export.FormatMarkdown)}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

type exportResult struct {
	ProjectID string `json:"project_id"`
	Format    string `json:"format"`
	Path      string `json:"path"`
	URL       string `json:"url"`
}

func runExport(cmd *cobra.Command, args []string) error {
	rawFormat, _ := cmd.Flags().GetString("format")
	filename, _ := cmd.Flags().GetString("filename")
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return err
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := cc.Store.GetProjectWithPages(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	rel, err := export.New(cc.Files, cc.Logger).Export(p, format, filename)
	if err != nil {
		if errors.Is(err, export.ErrNoImages) {
			return fmt.Errorf("cannot export %s: %w", format, err)
		}
		return err
	}
	path, err := cc.Files.Resolve(rel)
	if err != nil {
		return err
	}

	res := exportResult{ProjectID: p.ID, Format: string(format), Path: path, URL: files.URL(rel)}
	return cc.Renderer.Data(res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Exported %s to %s\n", format, path)
		return err
	})
}
