package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

func init() {
	Register(FormatOpenAI, Factory{
		Text: func(ctx context.Context, cfg *Config, logger *slog.Logger) (TextProvider, error) {
			return NewOpenAIText(ctx, cfg, logger)
		},
		Image: func(_ context.Context, cfg *Config, logger *slog.Logger) (ImageProvider, error) {
			return NewOpenAIImage(cfg, nil, logger), nil
		},
	})
}

// OpenAIText generates text through an OpenAI-compatible chat model.
type OpenAIText struct {
	chat   model.BaseChatModel
	logger *slog.Logger
}

// NewOpenAIText creates an eino chat model for the configured endpoint.
func NewOpenAIText(ctx context.Context, cfg *Config, logger *slog.Logger) (*OpenAIText, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	chat, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create openai chat model: %w", err)
	}
	return &OpenAIText{chat: chat, logger: logger}, nil
}

// GenerateText implements TextProvider.
func (o *OpenAIText) GenerateText(ctx context.Context, prompt string) (string, error) {
	msg, err := o.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", upstream(FormatOpenAI, err)
	}
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return "", upstream(FormatOpenAI, fmt.Errorf("empty text response"))
	}
	return text, nil
}

// OpenAIImage generates images through the chat-completions endpoint of an
// OpenAI-compatible gateway that returns image parts.
type OpenAIImage struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	logger  *slog.Logger
}

// openAIPublicBase is used when the base URL is configured but empty.
const openAIPublicBase = "https://api.openai.com/v1"

// NewOpenAIImage creates an image client. A nil client uses a default with a
// generous timeout.
func NewOpenAIImage(cfg *Config, client *http.Client, logger *slog.Logger) *OpenAIImage {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = openAIPublicBase
	}
	return &OpenAIImage{
		client:  client,
		baseURL: base,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		logger:  logger,
	}
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Modalities []string      `json:"modalities,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
			Images  []struct {
				ImageURL chatImageURL `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

var dataURLPattern = regexp.MustCompile(`data:(image/[a-zA-Z0-9.+-]+);base64,([A-Za-z0-9+/=]+)`)

// GenerateImage implements ImageProvider. Only 1K output is available
// through this endpoint.
func (o *OpenAIImage) GenerateImage(ctx context.Context, req ImageRequest) (*Image, error) {
	if req.Resolution != "" && req.Resolution != "1K" {
		o.logger.Warn("openai image format only supports 1K resolution, ignoring requested resolution",
			"resolution", req.Resolution)
	}

	parts := make([]chatContentPart, 0, len(req.References)+1)
	for _, ref := range req.References {
		parts = append(parts, chatContentPart{
			Type: "image_url",
			ImageURL: &chatImageURL{
				URL: "data:" + ref.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(ref.Data),
			},
		})
	}
	prompt := req.Prompt
	if req.AspectRatio != "" {
		prompt += "\n\nAspect ratio: " + req.AspectRatio
	}
	parts = append(parts, chatContentPart{Type: "text", Text: prompt})

	body := chatRequest{
		Model:      o.model,
		Messages:   []chatMessage{{Role: "user", Content: parts}},
		Modalities: []string{"text", "image"},
	}

	resp, err := o.do(ctx, body)
	if err != nil {
		return nil, upstream(FormatOpenAI, err)
	}
	img, err := extractImage(resp)
	if err != nil {
		return nil, upstream(FormatOpenAI, err)
	}
	return img, nil
}

// do performs the request, retrying transport errors and 429s with
// exponential backoff.
func (o *OpenAIImage) do(ctx context.Context, body chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	const maxRetries = 3
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+o.apiKey)

		resp, err := o.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}
		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429): %s", strings.TrimSpace(string(data)))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}

		var out chatResponse
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if out.Error != nil {
			return nil, fmt.Errorf("API error: %s", out.Error.Message)
		}
		return &out, nil
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// extractImage finds the first inline image in a chat response. Gateways
// return it either in message.images or as a data URL inside the content,
// which may be a string or a list of parts.
func extractImage(resp *chatResponse) (*Image, error) {
	for _, choice := range resp.Choices {
		for _, img := range choice.Message.Images {
			if out := decodeDataURL(img.ImageURL.URL); out != nil {
				return out, nil
			}
		}

		var text string
		if err := json.Unmarshal(choice.Message.Content, &text); err == nil {
			if out := decodeDataURL(text); out != nil {
				return out, nil
			}
			continue
		}

		var parts []chatContentPart
		if err := json.Unmarshal(choice.Message.Content, &parts); err == nil {
			for _, p := range parts {
				if p.ImageURL != nil {
					if out := decodeDataURL(p.ImageURL.URL); out != nil {
						return out, nil
					}
				}
				if out := decodeDataURL(p.Text); out != nil {
					return out, nil
				}
			}
		}
	}
	return nil, ErrNoImage
}

func decodeDataURL(s string) *Image {
	m := dataURLPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil || len(data) == 0 {
		return nil
	}
	return &Image{Data: data, MIMEType: m[1]}
}
