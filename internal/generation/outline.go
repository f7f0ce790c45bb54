package generation

import (
	"context"
	"errors"
	"strings"

	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/internal/prompts"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

var errNoPages = errors.New("model returned no pages")

// CreateProjectRequest starts a project in one of the three wizard modes.
type CreateProjectRequest struct {
	CreationType      core.CreationType `json:"creation_type"`
	IdeaPrompt        string            `json:"idea_prompt"`
	OutlineText       string            `json:"outline_text"`
	DescriptionText   string            `json:"description_text"`
	ExtraRequirements string            `json:"extra_requirements"`
	TemplateStyle     string            `json:"template_style"`
	ImageAspectRatio  string            `json:"image_aspect_ratio"`
}

// Validate checks that the text required by the creation type is present.
func (r *CreateProjectRequest) Validate() error {
	if r.CreationType == "" {
		r.CreationType = core.CreationTypeIdea
	}
	if !r.CreationType.Valid() {
		return core.Invalidf("unknown creation_type %q", r.CreationType)
	}
	var field, value string
	switch r.CreationType {
	case core.CreationTypeIdea:
		field, value = "idea_prompt", r.IdeaPrompt
	case core.CreationTypeOutline:
		field, value = "outline_text", r.OutlineText
	case core.CreationTypeDescriptions:
		field, value = "description_text", r.DescriptionText
	}
	if strings.TrimSpace(value) == "" {
		return core.Invalidf("%s is required for creation_type %s", field, r.CreationType)
	}
	if r.ImageAspectRatio != "" {
		if _, _, err := files.ParseAspect(r.ImageAspectRatio); err != nil {
			return core.Invalidf("%v", err)
		}
	}
	return nil
}

// CreateProject stores a new DRAFT project.
func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest) (*core.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := &core.Project{
		CreationType:      req.CreationType,
		IdeaPrompt:        strings.TrimSpace(req.IdeaPrompt),
		OutlineText:       req.OutlineText,
		DescriptionText:   req.DescriptionText,
		ExtraRequirements: req.ExtraRequirements,
		TemplateStyle:     req.TemplateStyle,
		ImageAspectRatio:  req.ImageAspectRatio,
		Status:            core.ProjectStatusDraft,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", p.ID, "creation_type", p.CreationType)
	return p, nil
}

// GenerateOutline asks the text model for an outline from the project's
// idea or pasted outline text and replaces the project's pages with it.
func (s *Service) GenerateOutline(ctx context.Context, projectID string) ([]*core.Page, error) {
	sess, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}

	p := sess.project
	var prompt string
	switch {
	case p.CreationType == core.CreationTypeOutline && strings.TrimSpace(p.OutlineText) != "":
		prompt = prompts.OutlineFromText(sess.prompt, p.OutlineText)
	case strings.TrimSpace(p.IdeaPrompt) != "":
		prompt = prompts.OutlineFromIdea(sess.prompt, p.IdeaPrompt)
	case strings.TrimSpace(p.OutlineText) != "":
		prompt = prompts.OutlineFromText(sess.prompt, p.OutlineText)
	default:
		return nil, core.Invalidf("project %s has no idea or outline text", projectID)
	}

	resp, err := s.generateText(ctx, sess.settings, prompt)
	if err != nil {
		return nil, err
	}
	items, err := prompts.ParseOutline(resp)
	if err != nil {
		return nil, badResponse(err)
	}
	return s.replacePages(ctx, projectID, items, core.ProjectStatusOutlineGenerated)
}

// GenerateFromDescriptions splits the project's pasted description text
// into pages that carry both an outline and a description.
func (s *Service) GenerateFromDescriptions(ctx context.Context, projectID, text string) ([]*core.Page, error) {
	sess, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		text = sess.project.DescriptionText
	} else if _, err := s.store.UpdateProject(ctx, projectID, core.ProjectUpdate{DescriptionText: &text}); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, core.Invalidf("description_text is required")
	}

	resp, err := s.generateText(ctx, sess.settings, prompts.PagesFromDescriptions(sess.prompt, text))
	if err != nil {
		return nil, err
	}
	items, err := prompts.ParseDescribedPages(resp)
	if err != nil {
		return nil, badResponse(err)
	}
	return s.replacePages(ctx, projectID, items, core.ProjectStatusDescriptionsGenerated)
}

// RefineOutline rewrites the current outline according to requirement.
// Descriptions of pages whose title survives are kept.
func (s *Service) RefineOutline(ctx context.Context, projectID, requirement string) ([]*core.Page, error) {
	if strings.TrimSpace(requirement) == "" {
		return nil, core.Invalidf("user_requirement is required")
	}
	sess, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}

	current := outlineOf(sess.project.Pages)
	resp, err := s.generateText(ctx, sess.settings, prompts.RefineOutline(sess.prompt, current, requirement))
	if err != nil {
		return nil, err
	}
	items, err := prompts.ParseOutline(resp)
	if err != nil {
		return nil, badResponse(err)
	}

	kept := make(map[string]string, len(current))
	for _, it := range current {
		if it.Description != "" {
			kept[it.Title] = it.Description
		}
	}
	for i := range items {
		if d, ok := kept[items[i].Title]; ok && items[i].Description == "" {
			items[i].Description = d
		}
	}
	return s.replacePages(ctx, projectID, items, core.ProjectStatusOutlineGenerated)
}

func (s *Service) replacePages(ctx context.Context, projectID string, items []prompts.OutlineItem, status core.ProjectStatus) ([]*core.Page, error) {
	if len(items) == 0 {
		return nil, badResponse(errNoPages)
	}
	pages := pagesFrom(items)
	if err := s.store.ReplacePages(ctx, projectID, pages); err != nil {
		return nil, err
	}
	if err := s.store.SetProjectStatus(ctx, projectID, status); err != nil {
		return nil, err
	}
	s.logger.Info("pages replaced", "project_id", projectID, "pages", len(pages), "status", status)
	return pages, nil
}
