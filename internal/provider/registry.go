package provider

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// TextFactory builds a text provider from resolved configuration.
type TextFactory func(ctx context.Context, cfg *Config, logger *slog.Logger) (TextProvider, error)

// ImageFactory builds an image provider from resolved configuration.
type ImageFactory func(ctx context.Context, cfg *Config, logger *slog.Logger) (ImageProvider, error)

// Factory pairs the constructors registered for one format.
type Factory struct {
	Text  TextFactory
	Image ImageFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a factory for a format. Implementations call it from init().
func Register(format string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[format] = f
}

// Lookup retrieves the factory registered for a format.
func Lookup(format string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[format]
	return f, ok
}

// Formats returns all registered format names (sorted).
func Formats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// factoryFor finds the factory for cfg.Format, falling back to gemini for
// unknown formats.
func factoryFor(cfg *Config, logger *slog.Logger) (Factory, error) {
	if f, ok := Lookup(cfg.Format); ok {
		return f, nil
	}
	if f, ok := Lookup(DefaultFormat); ok {
		logger.Warn("unknown provider format, using gemini", "format", cfg.Format)
		return f, nil
	}
	return Factory{}, &UnknownFormatError{Format: cfg.Format, Available: Formats()}
}

// NewText resolves the text configuration from src and builds a provider.
func NewText(ctx context.Context, src Sources, logger *slog.Logger) (TextProvider, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg, err := src.Resolve(KindText)
	if err != nil {
		return nil, err
	}
	f, err := factoryFor(cfg, logger)
	if err != nil {
		return nil, err
	}
	if f.Text == nil {
		return nil, &UnknownFormatError{Format: cfg.Format, Available: Formats()}
	}
	logger.Debug("creating text provider", "format", cfg.Format, "model", cfg.Model)
	return f.Text(ctx, cfg, logger)
}

// NewImage resolves the image configuration from src and builds a provider.
func NewImage(ctx context.Context, src Sources, logger *slog.Logger) (ImageProvider, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg, err := src.Resolve(KindImage)
	if err != nil {
		return nil, err
	}
	f, err := factoryFor(cfg, logger)
	if err != nil {
		return nil, err
	}
	if f.Image == nil {
		return nil, &UnknownFormatError{Format: cfg.Format, Available: Formats()}
	}
	logger.Debug("creating image provider", "format", cfg.Format, "model", cfg.Model)
	return f.Image(ctx, cfg, logger)
}
