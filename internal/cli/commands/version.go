package commands

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// VersionInfo is the build metadata printed by the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info VersionInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display deckforge version and build information.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContextWithoutStore(cmd)
			if err != nil {
				return err
			}
			info.GoVersion = runtime.Version()
			return cc.Renderer.Data(info, func(w io.Writer) error {
				_, _ = fmt.Fprintf(w, "deckforge v%s\n", info.Version)
				_, err := fmt.Fprintf(w, "commit %s, built %s with %s\n", info.GitCommit, info.BuildDate, info.GoVersion)
				return err
			})
		},
	}
}
