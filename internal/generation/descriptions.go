package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/deckforge/internal/prompts"
	"github.com/leapstack-labs/deckforge/internal/provider"
	"github.com/leapstack-labs/deckforge/internal/tasks"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// GenerateDescriptions submits a task writing the description of every
// page, up to max_description_workers at a time.
func (s *Service) GenerateDescriptions(ctx context.Context, projectID string) (*core.Task, error) {
	sess, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(sess.project.Pages) == 0 {
		return nil, core.Invalidf("project %s has no pages; generate an outline first", projectID)
	}
	tp, err := s.text(ctx, sess.settings)
	if err != nil {
		return nil, err
	}

	pages := sess.project.Pages
	return s.tasks.Submit(ctx, projectID, core.TaskTypeGenerateDescriptions, len(pages), func(ctx context.Context, r *tasks.Reporter) error {
		outline := outlineOf(pages)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(sess.settings.MaxDescriptionWorkers)
		for i, page := range pages {
			g.Go(func() error {
				if err := s.describePage(gctx, tp, sess, outline, i, page); err != nil {
					if errors.Is(err, context.Canceled) {
						return err
					}
					r.Logger().Warn("page description failed", "page_id", page.ID, "error", err)
					_ = s.store.SetPageStatus(context.WithoutCancel(gctx), page.ID, core.PageStatusFailed)
					r.Failed()
					return nil
				}
				r.Succeeded()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		progress := r.Progress()
		if progress.Completed == 0 {
			return fmt.Errorf("all %d page descriptions failed", progress.Failed)
		}
		return s.store.SetProjectStatus(ctx, projectID, core.ProjectStatusDescriptionsGenerated)
	})
}

func (s *Service) describePage(ctx context.Context, tp provider.TextProvider, sess *session, outline []prompts.OutlineItem, index int, page *core.Page) error {
	prompt := prompts.PageDescription(sess.prompt, sess.project.IdeaPrompt, outline, index)
	resp, err := tp.GenerateText(ctx, prompt)
	if err != nil {
		return err
	}
	text := prompts.CleanText(resp)
	if text == "" {
		return badResponse(errors.New("empty description"))
	}

	return s.store.SetPageDescription(ctx, page.ID, &core.DescriptionContent{Text: text}, core.PageStatusDescriptionGenerated)
}

// GeneratePageDescription writes the description of one page synchronously.
func (s *Service) GeneratePageDescription(ctx context.Context, projectID, pageID string) (*core.Page, error) {
	sess, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	index := -1
	for i, p := range sess.project.Pages {
		if p.ID == pageID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, core.NotFound("page", pageID)
	}
	tp, err := s.text(ctx, sess.settings)
	if err != nil {
		return nil, err
	}
	if err := s.describePage(ctx, tp, sess, outlineOf(sess.project.Pages), index, sess.project.Pages[index]); err != nil {
		return nil, err
	}
	return s.store.GetPage(ctx, projectID, pageID)
}

// RefineDescriptions rewrites every page description according to
// requirement. The model must answer with one description per page.
func (s *Service) RefineDescriptions(ctx context.Context, projectID, requirement string) ([]*core.Page, error) {
	if strings.TrimSpace(requirement) == "" {
		return nil, core.Invalidf("user_requirement is required")
	}
	sess, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	pages := sess.project.Pages
	if len(pages) == 0 {
		return nil, core.Invalidf("project %s has no pages", projectID)
	}

	texts := make([]prompts.PageText, len(pages))
	for i, p := range pages {
		texts[i] = pageText(p)
	}
	resp, err := s.generateText(ctx, sess.settings, prompts.RefineDescriptions(sess.prompt, texts, requirement))
	if err != nil {
		return nil, err
	}
	descriptions, err := prompts.ParseStringList(resp, len(pages))
	if err != nil {
		return nil, badResponse(err)
	}

	for i, p := range pages {
		desc := &core.DescriptionContent{Text: strings.TrimSpace(descriptions[i])}
		if err := s.store.SetPageDescription(ctx, p.ID, desc, core.PageStatusDescriptionGenerated); err != nil {
			return nil, err
		}
	}
	if err := s.store.SetProjectStatus(ctx, projectID, core.ProjectStatusDescriptionsGenerated); err != nil {
		return nil, err
	}
	return s.store.ListPages(ctx, projectID)
}
