// Package providertest provides in-memory text and image providers for
// tests of code that drives the AI providers.
package providertest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"

	"github.com/leapstack-labs/deckforge/internal/provider"
)

// Text answers prompts with a user-supplied function and records them.
type Text struct {
	Respond func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

// GenerateText implements provider.TextProvider.
func (t *Text) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	t.prompts = append(t.prompts, prompt)
	t.mu.Unlock()
	if t.Respond == nil {
		return "", nil
	}
	return t.Respond(prompt)
}

// Prompts returns every prompt received so far.
func (t *Text) Prompts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.prompts...)
}

// Image returns a solid PNG for every request unless Fail says otherwise.
type Image struct {
	Width, Height int
	// Fail, when set, decides whether a request should error.
	Fail func(req provider.ImageRequest) error

	mu       sync.Mutex
	requests []provider.ImageRequest
}

// GenerateImage implements provider.ImageProvider.
func (f *Image) GenerateImage(ctx context.Context, req provider.ImageRequest) (*provider.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.Fail != nil {
		if err := f.Fail(req); err != nil {
			return nil, err
		}
	}
	w, h := f.Width, f.Height
	if w == 0 || h == 0 {
		w, h = 64, 36
	}
	return &provider.Image{Data: PNG(w, h), MIMEType: "image/png"}, nil
}

// Requests returns every request received so far.
func (f *Image) Requests() []provider.ImageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.ImageRequest(nil), f.requests...)
}

// PromptContains returns a Fail func erroring on prompts containing s.
func PromptContains(s string, err error) func(provider.ImageRequest) error {
	return func(req provider.ImageRequest) error {
		if strings.Contains(req.Prompt, s) {
			return err
		}
		return nil
	}
}

// PNG encodes a w×h image filled with one colour.
func PNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: 40, G: 90, B: 200, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
