package core

import "time"

// Settings defaults.
const (
	DefaultImageResolution       = "2K"
	DefaultMaxDescriptionWorkers = 5
	DefaultMaxImageWorkers       = 8
	DefaultOutputLanguage        = "zh"
)

// Settings is the single row of user-editable runtime configuration.
// Non-empty provider fields override the process environment.
type Settings struct {
	AIProviderFormat      string    `json:"ai_provider_format" mapstructure:"ai_provider_format"`
	TextProviderFormat    string    `json:"text_provider_format" mapstructure:"text_provider_format"`
	ImageProviderFormat   string    `json:"image_provider_format" mapstructure:"image_provider_format"`
	APIBaseURL            string    `json:"api_base_url" mapstructure:"api_base_url"`
	APIKey                string    `json:"-" mapstructure:"api_key"`
	VertexProjectID       string    `json:"vertex_project_id" mapstructure:"vertex_project_id"`
	VertexLocation        string    `json:"vertex_location" mapstructure:"vertex_location"`
	TextModel             string    `json:"text_model" mapstructure:"text_model"`
	ImageModel            string    `json:"image_model" mapstructure:"image_model"`
	ImageResolution       string    `json:"image_resolution" mapstructure:"image_resolution"`
	ImageAspectRatio      string    `json:"image_aspect_ratio" mapstructure:"image_aspect_ratio"`
	MaxDescriptionWorkers int       `json:"max_description_workers" mapstructure:"max_description_workers"`
	MaxImageWorkers       int       `json:"max_image_workers" mapstructure:"max_image_workers"`
	OutputLanguage        string    `json:"output_language" mapstructure:"output_language"`
	UpdatedAt             time.Time `json:"updated_at" mapstructure:"-"`
}

// DefaultSettings returns the settings a fresh database starts with.
func DefaultSettings() *Settings {
	return &Settings{
		ImageResolution:       DefaultImageResolution,
		ImageAspectRatio:      DefaultAspectRatio,
		MaxDescriptionWorkers: DefaultMaxDescriptionWorkers,
		MaxImageWorkers:       DefaultMaxImageWorkers,
		OutputLanguage:        DefaultOutputLanguage,
	}
}

// ApplyDefaults fills zero values with defaults.
func (s *Settings) ApplyDefaults() {
	if s.ImageResolution == "" {
		s.ImageResolution = DefaultImageResolution
	}
	if s.ImageAspectRatio == "" {
		s.ImageAspectRatio = DefaultAspectRatio
	}
	if s.MaxDescriptionWorkers <= 0 {
		s.MaxDescriptionWorkers = DefaultMaxDescriptionWorkers
	}
	if s.MaxImageWorkers <= 0 {
		s.MaxImageWorkers = DefaultMaxImageWorkers
	}
	if s.OutputLanguage == "" {
		s.OutputLanguage = DefaultOutputLanguage
	}
}

// ProviderConfig projects the settings onto provider configuration keys.
// Only non-empty values are included so unset fields fall through to the
// environment. The shared API key and base URL apply to every format.
func (s *Settings) ProviderConfig() map[string]string {
	out := make(map[string]string)
	set := func(key, val string) {
		if val != "" {
			out[key] = val
		}
	}
	set("AI_PROVIDER_FORMAT", s.AIProviderFormat)
	set("AI_TEXT_PROVIDER_FORMAT", s.TextProviderFormat)
	set("AI_IMAGE_PROVIDER_FORMAT", s.ImageProviderFormat)
	set("GOOGLE_API_KEY", s.APIKey)
	set("OPENAI_API_KEY", s.APIKey)
	set("GOOGLE_API_BASE", s.APIBaseURL)
	set("OPENAI_API_BASE", s.APIBaseURL)
	set("VERTEX_PROJECT_ID", s.VertexProjectID)
	set("VERTEX_LOCATION", s.VertexLocation)
	set("TEXT_MODEL", s.TextModel)
	set("IMAGE_MODEL", s.ImageModel)
	return out
}
