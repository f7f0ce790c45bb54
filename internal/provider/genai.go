package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

func init() {
	f := Factory{
		Text: func(ctx context.Context, cfg *Config, logger *slog.Logger) (TextProvider, error) {
			return NewGenAI(ctx, cfg, logger)
		},
		Image: func(ctx context.Context, cfg *Config, logger *slog.Logger) (ImageProvider, error) {
			return NewGenAI(ctx, cfg, logger)
		},
	}
	Register(FormatGemini, f)
	Register(FormatVertex, f)
}

// GenAI talks to Gemini, either through the Gemini API or Vertex AI.
type GenAI struct {
	client *genai.Client
	format string
	model  string
	logger *slog.Logger
}

// NewGenAI creates a client for the gemini or vertex format.
func NewGenAI(ctx context.Context, cfg *Config, logger *slog.Logger) (*GenAI, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cc := &genai.ClientConfig{}
	if cfg.Format == FormatVertex {
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.ProjectID
		cc.Location = cfg.Location
	} else {
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
		if cfg.BaseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	format := cfg.Format
	if format != FormatVertex {
		format = FormatGemini
	}
	return &GenAI{client: client, format: format, model: cfg.Model, logger: logger}, nil
}

// GenerateText implements TextProvider.
func (g *GenAI) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", upstream(g.format, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", upstream(g.format, fmt.Errorf("empty text response from %s", g.model))
	}
	return text, nil
}

// GenerateImage implements ImageProvider. Reference images are sent before
// the prompt so the instruction can refer to them.
func (g *GenAI) GenerateImage(ctx context.Context, req ImageRequest) (*Image, error) {
	parts := make([]*genai.Part, 0, len(req.References)+1)
	for _, ref := range req.References {
		parts = append(parts, genai.NewPartFromBytes(ref.Data, ref.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: req.AspectRatio,
			ImageSize:   req.Resolution,
		},
	}

	g.logger.Debug("generating image", "model", g.model, "references", len(req.References),
		"aspect_ratio", req.AspectRatio, "resolution", req.Resolution)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, upstream(g.format, err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return &Image{Data: part.InlineData.Data, MIMEType: mime}, nil
			}
		}
	}
	return nil, upstream(g.format, ErrNoImage)
}
