package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/deckforge/internal/server/features/settings"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// NewSettingsCommand creates the settings command with its subcommands.
func NewSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the stored generation settings",
		Long: `The settings row selects providers, models, image resolution, worker
counts and the output language. The API key is never printed, only its
length.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		Args:  cobra.NoArgs,
		RunE:  runSettingsShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key=value>...",
		Short: "Change one or more settings",
		Example: `  deckforge settings set image_resolution=4K max_image_workers=4
  deckforge settings set ai_provider_format=openai api_base_url=https://api.example.com/v1`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSettingsSet,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE:  runSettingsReset,
	})

	return cmd
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := cc.Store.GetSettings(cmd.Context())
	if err != nil {
		return err
	}
	return renderSettings(cc, s)
}

// parseAssignments turns key=value arguments into a settings patch.
func parseAssignments(args []string) (map[string]any, error) {
	patch := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		patch[key] = value
	}
	return patch, nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	patch, err := parseAssignments(args)
	if err != nil {
		return err
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := cc.Store.GetSettings(cmd.Context())
	if err != nil {
		return err
	}
	if err := settings.Apply(s, patch); err != nil {
		return err
	}
	if err := cc.Store.SaveSettings(cmd.Context(), s); err != nil {
		return err
	}
	cc.Logger.Info("settings updated", "keys", len(patch))
	return renderSettings(cc, s)
}

func runSettingsReset(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := cc.Store.ResetSettings(cmd.Context())
	if err != nil {
		return err
	}
	cc.Renderer.Success("Settings reset to defaults")
	return renderSettings(cc, s)
}

func renderSettings(cc *CommandContext, s *core.Settings) error {
	return cc.Renderer.Data(settings.NewView(s), func(io.Writer) error {
		cc.Renderer.KeyValues([][2]string{
			{"ai_provider_format", s.AIProviderFormat},
			{"text_provider_format", s.TextProviderFormat},
			{"image_provider_format", s.ImageProviderFormat},
			{"api_base_url", s.APIBaseURL},
			{"api_key_length", strconv.Itoa(len(s.APIKey))},
			{"vertex_project_id", s.VertexProjectID},
			{"vertex_location", s.VertexLocation},
			{"text_model", s.TextModel},
			{"image_model", s.ImageModel},
			{"image_resolution", s.ImageResolution},
			{"image_aspect_ratio", s.ImageAspectRatio},
			{"max_description_workers", strconv.Itoa(s.MaxDescriptionWorkers)},
			{"max_image_workers", strconv.Itoa(s.MaxImageWorkers)},
			{"output_language", s.OutputLanguage},
			{"updated_at", s.UpdatedAt.Local().Format(time.DateTime)},
		})
		return nil
	})
}
