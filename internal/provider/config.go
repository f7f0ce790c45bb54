package provider

import (
	"os"
	"strings"
)

// Configuration keys shared by settings and the process environment.
const (
	KeyProviderFormat      = "AI_PROVIDER_FORMAT"
	KeyTextProviderFormat  = "AI_TEXT_PROVIDER_FORMAT"
	KeyImageProviderFormat = "AI_IMAGE_PROVIDER_FORMAT"
	KeyGoogleAPIKey        = "GOOGLE_API_KEY"
	KeyGoogleAPIBase       = "GOOGLE_API_BASE"
	KeyOpenAIAPIKey        = "OPENAI_API_KEY"
	KeyOpenAIAPIBase       = "OPENAI_API_BASE"
	KeyVertexProjectID     = "VERTEX_PROJECT_ID"
	KeyVertexLocation      = "VERTEX_LOCATION"
	KeyTextModel           = "TEXT_MODEL"
	KeyImageModel          = "IMAGE_MODEL"
)

// Defaults applied when neither settings nor environment provide a value.
const (
	DefaultFormat         = FormatGemini
	DefaultVertexLocation = "us-central1"
	DefaultOpenAIBase     = "https://aihubmix.com/v1"
	DefaultTextModel      = "gemini-3-flash-preview"
	DefaultImageModel     = "gemini-3-pro-image-preview"
)

// LookupFunc reads a value from the environment. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Sources holds the two places configuration comes from. Settings wins over
// Env for every key except the kind-specific format override.
type Sources struct {
	Settings map[string]string
	Env      LookupFunc
}

// NewSources builds Sources backed by the real process environment.
func NewSources(settings map[string]string) Sources {
	return Sources{Settings: settings, Env: os.LookupEnv}
}

func (s Sources) env(key string) string {
	if s.Env == nil {
		return ""
	}
	v, _ := s.Env(key)
	return v
}

// Value returns a configuration value: settings first, then the
// environment, then def. A key present in either source wins even when
// its value is empty.
func (s Sources) Value(key, def string) string {
	if v, ok := s.Settings[key]; ok {
		return v
	}
	if s.Env != nil {
		if v, ok := s.Env(key); ok {
			return v
		}
	}
	return def
}

// Format resolves the provider format for a kind. Highest priority first:
// the kind-specific env var, the kind-specific setting, the general
// setting, the general env var, then gemini. The result is lower-cased.
func (s Sources) Format(kind Kind) string {
	specific := KeyTextProviderFormat
	if kind == KindImage {
		specific = KeyImageProviderFormat
	}

	candidates := []string{
		s.env(specific),
		s.Settings[specific],
		s.Settings[KeyProviderFormat],
		s.env(KeyProviderFormat),
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return strings.ToLower(c)
		}
	}
	return DefaultFormat
}

// Config is the resolved configuration for one provider instance.
type Config struct {
	Format    string
	APIKey    string
	BaseURL   string
	ProjectID string
	Location  string
	Model     string
}

// Resolve builds the provider configuration for a kind. Unknown formats
// are configured as gemini.
func (s Sources) Resolve(kind Kind) (*Config, error) {
	cfg := &Config{Format: s.Format(kind)}

	if kind == KindImage {
		cfg.Model = s.Value(KeyImageModel, DefaultImageModel)
	} else {
		cfg.Model = s.Value(KeyTextModel, DefaultTextModel)
	}

	switch cfg.Format {
	case FormatVertex:
		cfg.ProjectID = s.Value(KeyVertexProjectID, "")
		cfg.Location = s.Value(KeyVertexLocation, DefaultVertexLocation)
		if cfg.ProjectID == "" {
			return nil, &ConfigError{Format: cfg.Format, Key: KeyVertexProjectID}
		}
	case FormatOpenAI:
		cfg.APIKey = s.Value(KeyOpenAIAPIKey, "")
		cfg.BaseURL = s.Value(KeyOpenAIAPIBase, DefaultOpenAIBase)
		if cfg.APIKey == "" {
			return nil, &ConfigError{Format: cfg.Format, Key: KeyOpenAIAPIKey}
		}
	default:
		cfg.APIKey = s.Value(KeyGoogleAPIKey, "")
		cfg.BaseURL = s.Value(KeyGoogleAPIBase, "")
		if cfg.APIKey == "" {
			return nil, &ConfigError{Format: cfg.Format, Key: KeyGoogleAPIKey}
		}
	}
	return cfg, nil
}
