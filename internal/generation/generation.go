// Package generation implements the authoring workflows: outlines,
// page descriptions, slide images, materials and reference parsing.
// Long-running work is submitted to the task manager; short calls run
// synchronously on the request path.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/internal/prompts"
	"github.com/leapstack-labs/deckforge/internal/provider"
	"github.com/leapstack-labs/deckforge/internal/tasks"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// ErrBadResponse wraps model output that could not be parsed.
var ErrBadResponse = errors.New("unusable model response")

// TextFactory builds the text provider for the current settings.
type TextFactory func(ctx context.Context, s *core.Settings) (provider.TextProvider, error)

// ImageFactory builds the image provider for the current settings.
type ImageFactory func(ctx context.Context, s *core.Settings) (provider.ImageProvider, error)

// Config holds configuration for the Service.
type Config struct {
	Store  core.Store
	Files  *files.Storage
	Tasks  *tasks.Manager
	Logger *slog.Logger

	// Text and Image default to the provider registry driven by settings.
	Text  TextFactory
	Image ImageFactory
	// Env backs provider keys the settings leave unset. Defaults to
	// os.LookupEnv.
	Env provider.LookupFunc
}

// Service runs generation workflows.
type Service struct {
	store  core.Store
	files  *files.Storage
	tasks  *tasks.Manager
	logger *slog.Logger
	text   TextFactory
	image  ImageFactory
}

// New creates a Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		store:  cfg.Store,
		files:  cfg.Files,
		tasks:  cfg.Tasks,
		logger: logger,
		text:   cfg.Text,
		image:  cfg.Image,
	}
	sources := func(st *core.Settings) provider.Sources {
		src := provider.NewSources(st.ProviderConfig())
		if cfg.Env != nil {
			src.Env = cfg.Env
		}
		return src
	}
	if s.text == nil {
		s.text = func(ctx context.Context, st *core.Settings) (provider.TextProvider, error) {
			return provider.NewText(ctx, sources(st), logger)
		}
	}
	if s.image == nil {
		s.image = func(ctx context.Context, st *core.Settings) (provider.ImageProvider, error) {
			return provider.NewImage(ctx, sources(st), logger)
		}
	}
	return s
}

// session bundles what one workflow run needs about its project.
type session struct {
	settings *core.Settings
	project  *core.Project
	prompt   prompts.Context
}

func (s *Service) load(ctx context.Context, projectID string) (*session, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProjectWithPages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	pc, err := s.promptContext(ctx, settings, project)
	if err != nil {
		return nil, err
	}
	return &session{settings: settings, project: project, prompt: pc}, nil
}

// promptContext collects the language, extra requirements and parsed
// reference files of a project.
func (s *Service) promptContext(ctx context.Context, settings *core.Settings, p *core.Project) (prompts.Context, error) {
	pc := prompts.Context{Language: settings.OutputLanguage}
	if p == nil {
		return pc, nil
	}
	pc.ExtraRequirements = p.ExtraRequirements

	refs, err := s.store.ListReferenceFiles(ctx, p.ID)
	if err != nil {
		return pc, err
	}
	for _, r := range refs {
		if r.ParseStatus == core.ParseStatusCompleted && r.MarkdownContent != "" {
			pc.References = append(pc.References, prompts.Reference{Filename: r.Filename, Markdown: r.MarkdownContent})
		}
	}
	return pc, nil
}

func (s *Service) generateText(ctx context.Context, settings *core.Settings, prompt string) (string, error) {
	tp, err := s.text(ctx, settings)
	if err != nil {
		return "", err
	}
	return tp.GenerateText(ctx, prompt)
}

func badResponse(err error) error {
	return fmt.Errorf("%w: %w", ErrBadResponse, err)
}

func outlineOf(pages []*core.Page) []prompts.OutlineItem {
	out := make([]prompts.OutlineItem, len(pages))
	for i, p := range pages {
		it := prompts.OutlineItem{Part: p.Part, Points: []string{}}
		if p.Outline != nil {
			it.Title = p.Outline.Title
			it.Points = p.Outline.Points
		}
		if p.Description != nil {
			it.Description = p.Description.Text
		}
		out[i] = it
	}
	return out
}

func pageText(p *core.Page) prompts.PageText {
	t := prompts.PageText{Title: p.Title()}
	if p.Outline != nil {
		t.Points = p.Outline.Points
	}
	if p.Description != nil {
		t.Description = p.Description.Text
	}
	return t
}

func pagesFrom(items []prompts.OutlineItem) []*core.Page {
	pages := make([]*core.Page, len(items))
	for i, it := range items {
		pages[i] = &core.Page{
			Part:    it.Part,
			Outline: &core.OutlineContent{Title: it.Title, Points: it.Points},
			Status:  core.PageStatusDraft,
		}
		if it.Description != "" {
			pages[i].Description = &core.DescriptionContent{Text: it.Description}
			pages[i].Status = core.PageStatusDescriptionGenerated
		}
	}
	return pages
}

func (s *Service) reference(rel string) (provider.ReferenceImage, error) {
	data, err := s.files.Read(rel)
	if err != nil {
		return provider.ReferenceImage{}, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return provider.ReferenceImage{Data: data, MIMEType: http.DetectContentType(data)}, nil
}
