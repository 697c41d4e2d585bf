package domain

// NewPrompt is the payload for creating a prompt.
type NewPrompt struct {
	Title         *string `json:"title,omitempty"`
	InitialPrompt string  `json:"initial_prompt"`
	RefinedPrompt *string `json:"refined_prompt,omitempty"`
	TargetModel   *string `json:"target_model,omitempty"`
	Tone          *string `json:"tone,omitempty"`
	Persona       *string `json:"persona,omitempty"`
	OutputFormat  *string `json:"output_format,omitempty"`
	IsSaved       bool    `json:"is_saved"`
	IsFavorited   bool    `json:"is_favorited"`
}

// PromptPatch is a partial prompt update; nil fields are left unchanged.
type PromptPatch struct {
	Title         *string `json:"title,omitempty"`
	InitialPrompt *string `json:"initial_prompt,omitempty"`
	RefinedPrompt *string `json:"refined_prompt,omitempty"`
	TargetModel   *string `json:"target_model,omitempty"`
	Tone          *string `json:"tone,omitempty"`
	Persona       *string `json:"persona,omitempty"`
	OutputFormat  *string `json:"output_format,omitempty"`
	IsSaved       *bool   `json:"is_saved,omitempty"`
	IsFavorited   *bool   `json:"is_favorited,omitempty"`
}

// Columns maps the set fields to prompt column names.
func (p PromptPatch) Columns() map[string]any {
	m := map[string]any{}
	putStr(m, "title", p.Title)
	putStr(m, "initial_prompt", p.InitialPrompt)
	putStr(m, "refined_prompt", p.RefinedPrompt)
	putStr(m, "target_model", p.TargetModel)
	putStr(m, "tone", p.Tone)
	putStr(m, "persona", p.Persona)
	putStr(m, "output_format", p.OutputFormat)
	putBool(m, "is_saved", p.IsSaved)
	putBool(m, "is_favorited", p.IsFavorited)
	return m
}

// Apply copies the set fields onto pr. Used for optimistic local updates.
func (p PromptPatch) Apply(pr *Prompt) {
	setStr(&pr.Title, p.Title)
	if p.InitialPrompt != nil {
		pr.InitialPrompt = *p.InitialPrompt
	}
	setStr(&pr.RefinedPrompt, p.RefinedPrompt)
	setStr(&pr.TargetModel, p.TargetModel)
	setStr(&pr.Tone, p.Tone)
	setStr(&pr.Persona, p.Persona)
	setStr(&pr.OutputFormat, p.OutputFormat)
	if p.IsSaved != nil {
		pr.IsSaved = *p.IsSaved
	}
	if p.IsFavorited != nil {
		pr.IsFavorited = *p.IsFavorited
	}
}

// NewTemplate is the payload for creating a template.
type NewTemplate struct {
	Title          string   `json:"title"`
	Description    *string  `json:"description,omitempty"`
	Category       string   `json:"category"`
	TemplatePrompt string   `json:"template_prompt"`
	Tags           []string `json:"tags,omitempty"`
	IsPublic       bool     `json:"is_public"`
}

// ProfilePatch is a partial profile update; nil fields are left unchanged.
type ProfilePatch struct {
	DisplayName       *string `json:"display_name,omitempty"`
	Profession        *string `json:"profession,omitempty"`
	AvatarURL         *string `json:"avatar_url,omitempty"`
	Theme             *string `json:"theme,omitempty"`
	FontSize          *string `json:"font_size,omitempty"`
	AnimationsEnabled *bool   `json:"animations_enabled,omitempty"`
	CompactMode       *bool   `json:"compact_mode,omitempty"`
	DefaultModel      *string `json:"default_model,omitempty"`
	DefaultTone       *string `json:"default_tone,omitempty"`
	DefaultPersona    *string `json:"default_persona,omitempty"`
	DefaultFormat     *string `json:"default_format,omitempty"`
}

// Columns maps the set fields to profile column names.
func (p ProfilePatch) Columns() map[string]any {
	m := map[string]any{}
	putStr(m, "display_name", p.DisplayName)
	putStr(m, "profession", p.Profession)
	putStr(m, "avatar_url", p.AvatarURL)
	putStr(m, "theme", p.Theme)
	putStr(m, "font_size", p.FontSize)
	putBool(m, "animations_enabled", p.AnimationsEnabled)
	putBool(m, "compact_mode", p.CompactMode)
	putStr(m, "default_model", p.DefaultModel)
	putStr(m, "default_tone", p.DefaultTone)
	putStr(m, "default_persona", p.DefaultPersona)
	putStr(m, "default_format", p.DefaultFormat)
	return m
}

// Apply copies the set fields onto pr.
func (p ProfilePatch) Apply(pr *Profile) {
	setStr(&pr.DisplayName, p.DisplayName)
	setStr(&pr.Profession, p.Profession)
	setStr(&pr.AvatarURL, p.AvatarURL)
	setStr(&pr.Theme, p.Theme)
	setStr(&pr.FontSize, p.FontSize)
	setBool(&pr.AnimationsEnabled, p.AnimationsEnabled)
	setBool(&pr.CompactMode, p.CompactMode)
	setStr(&pr.DefaultModel, p.DefaultModel)
	setStr(&pr.DefaultTone, p.DefaultTone)
	setStr(&pr.DefaultPersona, p.DefaultPersona)
	setStr(&pr.DefaultFormat, p.DefaultFormat)
}

// NewFeedback is the payload for rating a prompt.
type NewFeedback struct {
	Rating       *int    `json:"rating,omitempty"`
	FeedbackText *string `json:"feedback_text,omitempty"`
	IsHelpful    *bool   `json:"is_helpful,omitempty"`
}

func putStr(m map[string]any, k string, v *string) {
	if v != nil {
		m[k] = *v
	}
}

func putBool(m map[string]any, k string, v *bool) {
	if v != nil {
		m[k] = *v
	}
}

func setStr(dst **string, v *string) {
	if v != nil {
		s := *v
		*dst = &s
	}
}

func setBool(dst **bool, v *bool) {
	if v != nil {
		b := *v
		*dst = &b
	}
}
