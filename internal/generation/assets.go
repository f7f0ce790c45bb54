package generation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/deckforge/internal/docparse"
	"github.com/leapstack-labs/deckforge/internal/files"
	"github.com/leapstack-labs/deckforge/internal/prompts"
	"github.com/leapstack-labs/deckforge/internal/provider"
	"github.com/leapstack-labs/deckforge/internal/tasks"
	"github.com/leapstack-labs/deckforge/pkg/core"
)

// SetTemplateImage stores data as the project's style template, replacing
// any previous template image.
func (s *Service) SetTemplateImage(ctx context.Context, projectID string, data []byte) (*core.Project, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	name := "template_" + uuid.NewString()[:8]
	saved, err := s.files.SaveImage(files.ProjectDir(projectID, files.DirTemplate), name, data, "")
	if err != nil {
		return nil, core.Invalidf("template_image: %v", err)
	}
	updated, err := s.store.UpdateProject(ctx, projectID, core.ProjectUpdate{TemplateImagePath: &saved.Path})
	if err != nil {
		return nil, err
	}
	s.removeImage(p.TemplateImagePath)
	return updated, nil
}

// ClearTemplateImage removes the project's template image.
func (s *Service) ClearTemplateImage(ctx context.Context, projectID string) (*core.Project, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	empty := ""
	updated, err := s.store.UpdateProject(ctx, projectID, core.ProjectUpdate{TemplateImagePath: &empty})
	if err != nil {
		return nil, err
	}
	s.removeImage(p.TemplateImagePath)
	return updated, nil
}

func (s *Service) removeImage(rel string) {
	if rel == "" {
		return
	}
	for _, path := range []string{rel, files.ThumbnailPath(rel)} {
		if err := s.files.Remove(path); err != nil {
			s.logger.Warn("failed to remove file", "path", path, "error", err)
		}
	}
}

// DeleteProject deletes a project, its folder of uploads and its reference
// files, which live in the shared reference folder.
func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	refs, err := s.store.ListReferenceFiles(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.files.RemoveProject(projectID); err != nil {
		s.logger.Warn("failed to remove project files", "project_id", projectID, "error", err)
	}
	for _, f := range refs {
		if err := s.files.Remove(f.FilePath); err != nil {
			s.logger.Warn("failed to remove reference file", "id", f.ID, "error", err)
		}
	}
	return nil
}

// UploadMaterial stores an uploaded image as a material. An empty
// projectID makes it global.
func (s *Service) UploadMaterial(ctx context.Context, projectID, filename string, r io.Reader, maxBytes int64) (*core.Material, error) {
	if projectID != "" {
		if _, err := s.store.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
	}
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, core.Invalidf("%v", files.ErrTooLarge)
	}
	if _, _, err := files.DecodeImage(data); err != nil {
		return nil, core.Invalidf("material is not a supported image: %v", err)
	}

	rel, _, err := s.files.Save(files.ProjectDir(projectID, files.DirMaterials), filename, bytes.NewReader(data), 0)
	if err != nil {
		return nil, err
	}
	m := &core.Material{ProjectID: projectID, Filename: files.SanitizeFilename(filename), RelativePath: rel, URL: files.URL(rel)}
	if err := s.store.CreateMaterial(ctx, m); err != nil {
		_ = s.files.Remove(rel)
		return nil, err
	}
	return m, nil
}

// DeleteMaterial removes a material and its file.
func (s *Service) DeleteMaterial(ctx context.Context, id string) error {
	m, err := s.store.GetMaterial(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteMaterial(ctx, id); err != nil {
		return err
	}
	s.removeImage(m.RelativePath)
	return nil
}

// MaterialRequest asks for a standalone illustration.
type MaterialRequest struct {
	Prompt     string
	References []provider.ReferenceImage
}

// GenerateMaterial submits a task drawing a material image. The task result
// carries material_id and url.
func (s *Service) GenerateMaterial(ctx context.Context, projectID string, req MaterialRequest) (*core.Task, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, core.Invalidf("prompt is required")
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	var project *core.Project
	if projectID != "" {
		if project, err = s.store.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
	}
	pc, err := s.promptContext(ctx, settings, project)
	if err != nil {
		return nil, err
	}
	ip, err := s.image(ctx, settings)
	if err != nil {
		return nil, err
	}

	prompt := prompts.MaterialImage(pc, req.Prompt, len(req.References))
	return s.tasks.Submit(ctx, projectID, core.TaskTypeGenerateMaterial, 1, func(ctx context.Context, r *tasks.Reporter) error {
		img, err := ip.GenerateImage(ctx, provider.ImageRequest{
			Prompt:     prompt,
			References: req.References,
			Resolution: settings.ImageResolution,
		})
		if err != nil {
			r.Failed()
			return err
		}

		name := "material_" + uuid.NewString()[:8]
		saved, err := s.files.SaveImage(files.ProjectDir(projectID, files.DirMaterials), name, img.Data, "")
		if err != nil {
			r.Failed()
			return badResponse(err)
		}
		m := &core.Material{ProjectID: projectID, Filename: name + ".png", RelativePath: saved.Path, URL: files.URL(saved.Path)}
		if err := s.store.CreateMaterial(ctx, m); err != nil {
			r.Failed()
			return err
		}
		r.SetResult(map[string]any{"material_id": m.ID, "image_url": m.URL, "url": m.URL})
		r.Succeeded()
		return nil
	})
}

// UploadReferenceFile stores a document for later parsing. Unsupported
// types are accepted and fail at parse time.
func (s *Service) UploadReferenceFile(ctx context.Context, projectID, filename string, r io.Reader, maxBytes int64) (*core.ReferenceFile, error) {
	if projectID != "" {
		if _, err := s.store.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
	}
	rel, size, err := s.files.Save(files.ProjectDir("", files.DirReference), filename, r, maxBytes)
	if err != nil {
		return nil, core.Invalidf("%v", err)
	}
	f := &core.ReferenceFile{
		ProjectID:   projectID,
		Filename:    files.SanitizeFilename(filename),
		FilePath:    rel,
		FileSize:    size,
		FileType:    docparse.FileType(filename),
		ParseStatus: core.ParseStatusPending,
	}
	if err := s.store.CreateReferenceFile(ctx, f); err != nil {
		_ = s.files.Remove(rel)
		return nil, err
	}
	return f, nil
}

// DeleteReferenceFile removes a reference file and its stored content.
func (s *Service) DeleteReferenceFile(ctx context.Context, id string) error {
	f, err := s.store.GetReferenceFile(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteReferenceFile(ctx, id); err != nil {
		return err
	}
	if err := s.files.Remove(f.FilePath); err != nil {
		s.logger.Warn("failed to remove reference file", "id", id, "error", err)
	}
	return nil
}

// ParseReferenceFile submits a task converting a reference file to Markdown.
// Failures are recorded on the file as well as on the task.
func (s *Service) ParseReferenceFile(ctx context.Context, id string) (*core.Task, error) {
	f, err := s.store.GetReferenceFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.ParseStatus == core.ParseStatusParsing {
		return nil, core.Conflictf("reference file %s is already being parsed", id)
	}
	if err := s.store.UpdateReferenceParse(ctx, id, core.ParseStatusParsing, "", ""); err != nil {
		return nil, err
	}

	task, err := s.tasks.Submit(ctx, f.ProjectID, core.TaskTypeParseReferenceFile, 1, func(ctx context.Context, r *tasks.Reporter) error {
		markdown, err := s.convert(f)
		if err != nil {
			r.Failed()
			_ = s.store.UpdateReferenceParse(context.WithoutCancel(ctx), id, core.ParseStatusFailed, "", err.Error())
			return err
		}
		if err := s.store.UpdateReferenceParse(context.WithoutCancel(ctx), id, core.ParseStatusCompleted, markdown, ""); err != nil {
			r.Failed()
			return err
		}
		r.SetResult(map[string]any{"reference_file_id": id, "length": len(markdown)})
		r.Succeeded()
		return nil
	})
	if err != nil {
		_ = s.store.UpdateReferenceParse(ctx, id, core.ParseStatusPending, "", "")
		return nil, err
	}
	return task, nil
}

func (s *Service) convert(f *core.ReferenceFile) (string, error) {
	if !docparse.Supported(f.FileType) {
		return "", fmt.Errorf("%w: %q", docparse.ErrUnsupported, f.FileType)
	}
	data, err := s.files.Read(f.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", f.Filename, err)
	}
	return docparse.Convert(f.FileType, data)
}
