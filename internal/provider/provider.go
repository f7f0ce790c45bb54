// Package provider abstracts the AI services that write slide text and
// draw slide images. Implementations are selected by a format string
// ("gemini", "vertex", "openai") through a registry of factories.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Kind distinguishes text providers from image providers during
// format resolution.
type Kind string

// Provider kinds.
const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Supported formats.
const (
	FormatGemini = "gemini"
	FormatVertex = "vertex"
	FormatOpenAI = "openai"
)

// TextProvider generates text from a prompt.
type TextProvider interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImageProvider generates an image from a prompt and optional references.
type ImageProvider interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*Image, error)
}

// ReferenceImage is an input image passed alongside a prompt.
type ReferenceImage struct {
	Data     []byte
	MIMEType string
}

// ImageRequest describes one image generation call.
type ImageRequest struct {
	Prompt      string
	References  []ReferenceImage
	AspectRatio string // e.g. "16:9"
	Resolution  string // "1K", "2K" or "4K"
}

// Image is a generated image in its encoded form.
type Image struct {
	Data     []byte
	MIMEType string
}

// ErrConfig is wrapped by every configuration error.
var ErrConfig = errors.New("provider configuration error")

// ErrUpstream is wrapped by errors returned from the remote AI service.
var ErrUpstream = errors.New("provider request failed")

// ErrNoImage is returned when a response carries no image data.
var ErrNoImage = errors.New("no image in provider response")

// ConfigError reports a missing required configuration key.
type ConfigError struct {
	Format string
	Key    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s provider requires %s to be set", e.Format, e.Key)
}

// Unwrap lets errors.Is(err, ErrConfig) match.
func (e *ConfigError) Unwrap() error { return ErrConfig }

// UnknownFormatError is returned when no factory is registered for a format.
type UnknownFormatError struct {
	Format    string
	Available []string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown provider format %q\nAvailable formats: %v\nHint: Check AI_PROVIDER_FORMAT or the settings page", e.Format, e.Available)
}

// Unwrap lets errors.Is(err, ErrConfig) match.
func (e *UnknownFormatError) Unwrap() error { return ErrConfig }

func upstream(format string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, format, err)
}
