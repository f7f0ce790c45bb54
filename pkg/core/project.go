package core

import "time"

// CreationType records how a project was started in the wizard.
type CreationType string

// Creation type constants.
const (
	CreationTypeIdea         CreationType = "idea"
	CreationTypeOutline      CreationType = "outline"
	CreationTypeDescriptions CreationType = "descriptions"
)

// Valid reports whether c is a known creation type.
func (c CreationType) Valid() bool {
	switch c {
	case CreationTypeIdea, CreationTypeOutline, CreationTypeDescriptions:
		return true
	}
	return false
}

// ProjectStatus tracks a project's progress through the wizard.
type ProjectStatus string

// Project status constants.
const (
	ProjectStatusDraft                 ProjectStatus = "DRAFT"
	ProjectStatusOutlineGenerated      ProjectStatus = "OUTLINE_GENERATED"
	ProjectStatusDescriptionsGenerated ProjectStatus = "DESCRIPTIONS_GENERATED"
	ProjectStatusGeneratingImages      ProjectStatus = "GENERATING_IMAGES"
	ProjectStatusCompleted             ProjectStatus = "COMPLETED"
)

// DefaultAspectRatio is used when a project does not set one.
const DefaultAspectRatio = "16:9"

// Project is a single slide deck.
type Project struct {
	ID                string        `json:"id"`
	IdeaPrompt        string        `json:"idea_prompt"`
	OutlineText       string        `json:"outline_text"`
	DescriptionText   string        `json:"description_text"`
	ExtraRequirements string        `json:"extra_requirements"`
	CreationType      CreationType  `json:"creation_type"`
	TemplateImagePath string        `json:"template_image_path"`
	TemplateStyle     string        `json:"template_style"`
	ImageAspectRatio  string        `json:"image_aspect_ratio"`
	Status            ProjectStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`

	// Pages is populated by GetProjectWithPages only.
	Pages []*Page `json:"pages,omitempty"`
}

// HasTemplate reports whether a template image or style text is set.
func (p *Project) HasTemplate() bool {
	return p.TemplateImagePath != "" || p.TemplateStyle != ""
}

// ProjectUpdate carries a partial project update. Nil fields are left untouched.
type ProjectUpdate struct {
	IdeaPrompt        *string        `json:"idea_prompt,omitempty" mapstructure:"idea_prompt"`
	OutlineText       *string        `json:"outline_text,omitempty" mapstructure:"outline_text"`
	DescriptionText   *string        `json:"description_text,omitempty" mapstructure:"description_text"`
	ExtraRequirements *string        `json:"extra_requirements,omitempty" mapstructure:"extra_requirements"`
	TemplateStyle     *string        `json:"template_style,omitempty" mapstructure:"template_style"`
	TemplateImagePath *string        `json:"-" mapstructure:"-"`
	ImageAspectRatio  *string        `json:"image_aspect_ratio,omitempty" mapstructure:"image_aspect_ratio"`
	Status            *ProjectStatus `json:"status,omitempty" mapstructure:"status"`
}

// Apply copies the set fields of u onto p.
func (u ProjectUpdate) Apply(p *Project) {
	if u.IdeaPrompt != nil {
		p.IdeaPrompt = *u.IdeaPrompt
	}
	if u.OutlineText != nil {
		p.OutlineText = *u.OutlineText
	}
	if u.DescriptionText != nil {
		p.DescriptionText = *u.DescriptionText
	}
	if u.ExtraRequirements != nil {
		p.ExtraRequirements = *u.ExtraRequirements
	}
	if u.TemplateStyle != nil {
		p.TemplateStyle = *u.TemplateStyle
	}
	if u.TemplateImagePath != nil {
		p.TemplateImagePath = *u.TemplateImagePath
	}
	if u.ImageAspectRatio != nil {
		p.ImageAspectRatio = *u.ImageAspectRatio
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
}
