package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/internal/prompts"
	"github.com/leapstack-labs/deckforge/internal/provider"
	"github.com/leapstack-labs/deckforge/internal/tasks"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// imageJob is everything needed to draw the slides of one project.
type imageJob struct {
	sess     *session
	ip       provider.ImageProvider
	template []provider.ReferenceImage
	aspect   string
}

func (s *Service) prepareImages(ctx context.Context, projectID string) (*imageJob, error) {
	sess, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ip, err := s.image(ctx, sess.settings)
	if err != nil {
		return nil, err
	}
	job := &imageJob{sess: sess, ip: ip, aspect: sess.project.ImageAspectRatio}
	if job.aspect == "" {
		job.aspect = sess.settings.ImageAspectRatio
	}
	if rel := sess.project.TemplateImagePath; rel != "" {
		ref, err := s.reference(rel)
		if err != nil {
			return nil, err
		}
		job.template = []provider.ReferenceImage{ref}
	}
	return job, nil
}

// GenerateImages submits a task drawing the selected pages, or every page
// when pageIDs is empty, up to max_image_workers at a time.
func (s *Service) GenerateImages(ctx context.Context, projectID string, pageIDs []string) (*core.Task, error) {
	job, err := s.prepareImages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	pages, err := selectPages(job.sess.project.Pages, pageIDs)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetProjectStatus(ctx, projectID, core.ProjectStatusGeneratingImages); err != nil {
		return nil, err
	}

	task, err := s.tasks.Submit(ctx, projectID, core.TaskTypeGenerateImages, len(pages), func(ctx context.Context, r *tasks.Reporter) error {
		return s.drawPages(ctx, r, job, pages)
	})
	if err != nil {
		_ = s.settleProjectStatus(ctx, projectID)
		return nil, err
	}
	return task, nil
}

// GeneratePageImage submits a task drawing a single page.
func (s *Service) GeneratePageImage(ctx context.Context, projectID, pageID string) (*core.Task, error) {
	job, err := s.prepareImages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	pages, err := selectPages(job.sess.project.Pages, []string{pageID})
	if err != nil {
		return nil, err
	}
	return s.tasks.Submit(ctx, projectID, core.TaskTypeGenerateImages, 1, func(ctx context.Context, r *tasks.Reporter) error {
		return s.drawPages(ctx, r, job, pages)
	})
}

func selectPages(all []*core.Page, ids []string) ([]*core.Page, error) {
	if len(all) == 0 {
		return nil, core.Invalidf("project has no pages")
	}
	if len(ids) == 0 {
		return all, nil
	}
	byID := make(map[string]*core.Page, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}
	out := make([]*core.Page, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, core.NotFound("page", id)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) drawPages(ctx context.Context, r *tasks.Reporter, job *imageJob, pages []*core.Page) error {
	total := len(job.sess.project.Pages)
	index := make(map[string]int, total)
	for i, p := range job.sess.project.Pages {
		index[p.ID] = i
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(job.sess.settings.MaxImageWorkers)
	for _, page := range pages {
		g.Go(func() error {
			err := s.drawPage(gctx, job, page, index[page.ID], total)
			switch {
			case err == nil:
				r.Succeeded()
			case errors.Is(err, context.Canceled):
				_ = s.store.SetPageStatus(context.WithoutCancel(gctx), page.ID, interruptedStatus(page))
				return err
			default:
				r.Logger().Warn("page image failed", "page_id", page.ID, "error", err)
				_ = s.store.SetPageStatus(context.WithoutCancel(gctx), page.ID, core.PageStatusFailed)
				r.Failed()
			}
			return nil
		})
	}
	werr := g.Wait()

	if err := s.settleProjectStatus(context.WithoutCancel(ctx), job.sess.project.ID); err != nil {
		r.Logger().Warn("failed to update project status", "error", err)
	}
	if werr != nil {
		return werr
	}
	if p := r.Progress(); p.Completed == 0 {
		return fmt.Errorf("all %d page images failed", p.Failed)
	}
	return nil
}

// interruptedStatus is the status a page returns to when its drawing is
// cancelled. page is the snapshot taken before drawing started.
func interruptedStatus(page *core.Page) core.PageStatus {
	switch {
	case page.HasImage():
		return core.PageStatusImageGenerated
	case page.Status != "" && page.Status != core.PageStatusGenerating:
		return page.Status
	default:
		return core.PageStatusFailed
	}
}

func (s *Service) drawPage(ctx context.Context, job *imageJob, page *core.Page, index, total int) error {
	if err := s.store.SetPageStatus(ctx, page.ID, core.PageStatusGenerating); err != nil {
		return err
	}

	prompt := prompts.PageImage(job.sess.prompt, pageText(page), prompts.ImageOptions{
		HasTemplateImage: len(job.template) > 0,
		TemplateStyle:    job.sess.project.TemplateStyle,
		AspectRatio:      job.aspect,
		Index:            index,
		Total:            total,
	})
	img, err := job.ip.GenerateImage(ctx, provider.ImageRequest{
		Prompt:      prompt,
		References:  job.template,
		AspectRatio: job.aspect,
		Resolution:  job.sess.settings.ImageResolution,
	})
	if err != nil {
		return err
	}
	_, err = s.storePageImage(ctx, job.sess.project.ID, page.ID, img, job.aspect)
	return err
}

// storePageImage normalises img to the aspect ratio and records it as the
// page's new current version.
func (s *Service) storePageImage(ctx context.Context, projectID, pageID string, img *provider.Image, aspect string) (*core.PageImageVersion, error) {
	name := fmt.Sprintf("%s_%d", pageID, time.Now().UnixNano())
	saved, err := s.files.SaveImage(files.ProjectDir(projectID, files.DirPages), name, img.Data, aspect)
	if err != nil {
		return nil, badResponse(err)
	}
	return s.store.AddImageVersion(ctx, pageID, saved.Path)
}

// settleProjectStatus marks the project COMPLETED when every page has an
// image and falls back to DESCRIPTIONS_GENERATED otherwise.
func (s *Service) settleProjectStatus(ctx context.Context, projectID string) error {
	pages, err := s.store.ListPages(ctx, projectID)
	if err != nil {
		return err
	}
	status := core.ProjectStatusCompleted
	for _, p := range pages {
		if !p.HasImage() {
			status = core.ProjectStatusDescriptionsGenerated
			break
		}
	}
	return s.store.SetProjectStatus(ctx, projectID, status)
}

// EditRequest describes an instruction-driven change to a page image.
type EditRequest struct {
	Instruction string
	// MaterialPaths are stored images (relative paths or /files/ URLs)
	// passed as extra references.
	MaterialPaths []string
	// Uploads are extra reference images sent with the request.
	Uploads []provider.ReferenceImage
}

// EditPageImage submits a task that edits the page's current image.
func (s *Service) EditPageImage(ctx context.Context, projectID, pageID string, req EditRequest) (*core.Task, error) {
	if strings.TrimSpace(req.Instruction) == "" {
		return nil, core.Invalidf("edit_instruction is required")
	}
	job, err := s.prepareImages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	pages, err := selectPages(job.sess.project.Pages, []string{pageID})
	if err != nil {
		return nil, err
	}
	page := pages[0]
	if !page.HasImage() {
		return nil, core.Invalidf("page %s has no image to edit", pageID)
	}

	current, err := s.reference(page.GeneratedImagePath)
	if err != nil {
		return nil, err
	}
	refs := []provider.ReferenceImage{current}
	for _, rel := range req.MaterialPaths {
		ref, err := s.reference(rel)
		if err != nil {
			return nil, core.Invalidf("material %s: %v", rel, err)
		}
		refs = append(refs, ref)
	}
	refs = append(refs, req.Uploads...)

	prompt := prompts.ImageEdit(job.sess.prompt, req.Instruction, pageText(page), len(refs)-1)
	return s.tasks.Submit(ctx, projectID, core.TaskTypeEditPageImage, 1, func(ctx context.Context, r *tasks.Reporter) error {
		if err := s.store.SetPageStatus(ctx, page.ID, core.PageStatusGenerating); err != nil {
			return err
		}
		img, err := job.ip.GenerateImage(ctx, provider.ImageRequest{
			Prompt:      prompt,
			References:  refs,
			AspectRatio: job.aspect,
			Resolution:  job.sess.settings.ImageResolution,
		})
		if err == nil {
			var v *core.PageImageVersion
			if v, err = s.storePageImage(ctx, projectID, page.ID, img, job.aspect); err == nil {
				r.SetResult(map[string]any{"version_id": v.ID, "image_url": files.URL(v.ImagePath)})
				r.Succeeded()
				return nil
			}
		}
		// The previous image stays current.
		_ = s.store.SetPageStatus(context.WithoutCancel(ctx), page.ID, core.PageStatusImageGenerated)
		r.Failed()
		return err
	})
}
