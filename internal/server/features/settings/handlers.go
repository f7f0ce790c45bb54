package settings

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/internal/provider"
	"github.com/leapstack-labs/deckforge/internal/server/features"
	"github.com/leapstack-labs/deckforge/internal/server/respond"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// Resolutions accepted for image_resolution.
var Resolutions = []string{"1K", "2K", "4K"}

// readOnly keys are echoed back by clients but never written.
var readOnly = []string{"updated_at", "api_key_length"}

// View is the settings as returned to clients. The key itself is never
// exposed, only its length.
type View struct {
	*core.Settings
	APIKeyLength int `json:"api_key_length"`
}

// NewView wraps settings for output.
func NewView(s *core.Settings) View {
	return View{Settings: s, APIKeyLength: len(s.APIKey)}
}

// Handlers provides HTTP handlers for the settings feature.
type Handlers struct {
	*features.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps *features.Deps) *Handlers {
	return &Handlers{Deps: deps}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	respond.Error(w, r, h.Log(), err)
}

// Get returns the current settings.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Store.GetSettings(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, NewView(s), "")
}

// Update applies a partial update. Only keys present in the body change.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := respond.Decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := h.Store.GetSettings(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := Apply(s, patch); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.Store.SaveSettings(r.Context(), s); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Log().Info("settings updated", "keys", len(patch))
	respond.OK(w, NewView(s), "settings updated")
}

// Reset restores the defaults.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	s, err := h.Store.ResetSettings(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, NewView(s), "settings reset")
}

// Apply decodes patch over s and validates the result.
func Apply(s *core.Settings, patch map[string]any) error {
	for _, k := range readOnly {
		delete(patch, k)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           s,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := dec.Decode(patch); err != nil {
		return core.Invalidf("%v", err)
	}
	normalizeFormats(s)
	return Validate(s)
}

// normalizeFormats stores provider formats the way they are resolved:
// trimmed and lower-cased.
func normalizeFormats(s *core.Settings) {
	for _, f := range []*string{&s.AIProviderFormat, &s.TextProviderFormat, &s.ImageProviderFormat} {
		*f = strings.ToLower(strings.TrimSpace(*f))
	}
}

// Validate checks settings values. Empty provider formats are allowed and
// fall through to the environment.
func Validate(s *core.Settings) error {
	if !slices.Contains(Resolutions, s.ImageResolution) {
		return core.Invalidf("image_resolution must be one of %v", Resolutions)
	}
	if _, _, err := files.ParseAspect(s.ImageAspectRatio); err != nil {
		return core.Invalidf("image_aspect_ratio: %v", err)
	}
	if s.MaxDescriptionWorkers < 1 || s.MaxDescriptionWorkers > 20 {
		return core.Invalidf("max_description_workers must be between 1 and 20")
	}
	if s.MaxImageWorkers < 1 || s.MaxImageWorkers > 20 {
		return core.Invalidf("max_image_workers must be between 1 and 20")
	}
	formats := provider.Formats()
	for key, v := range map[string]string{
		"ai_provider_format":    s.AIProviderFormat,
		"text_provider_format":  s.TextProviderFormat,
		"image_provider_format": s.ImageProviderFormat,
	} {
		if v != "" && !slices.Contains(formats, v) {
			return core.Invalidf("%s must be one of %v", key, formats)
		}
	}
	return nil
}
