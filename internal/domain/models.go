// Package domain defines the persistence models for prompts, templates,
// attachments, chat sessions, feedback, analytics events, and account data.
// These types are mapped with GORM on the server and double as the wire
// representation (JSON column names) shared with the client data layer.
package domain

import (
	"time"
)

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Prompt is a user-authored AI instruction, optionally paired with a refined
// version and the configuration labels it was refined for.
//
// IsSaved and IsFavorited are independent flags; both default to false.
type Prompt struct {
	ID            string    `json:"id"                      gorm:"type:char(36);primaryKey"`
	UserID        string    `json:"user_id"                 gorm:"type:varchar(64);not null;index:idx_user_prompts,priority:1"`
	Title         *string   `json:"title,omitempty"         gorm:"type:varchar(255)"`
	InitialPrompt string    `json:"initial_prompt"          gorm:"type:text;not null"`
	RefinedPrompt *string   `json:"refined_prompt,omitempty" gorm:"type:text"`
	TargetModel   *string   `json:"target_model,omitempty"  gorm:"type:varchar(64)"`
	Tone          *string   `json:"tone,omitempty"          gorm:"type:varchar(64)"`
	Persona       *string   `json:"persona,omitempty"       gorm:"type:varchar(255)"`
	OutputFormat  *string   `json:"output_format,omitempty" gorm:"type:varchar(64)"`
	IsSaved       bool      `json:"is_saved"                gorm:"not null;default:false;index"`
	IsFavorited   bool      `json:"is_favorited"            gorm:"not null;default:false;index"`
	CreatedAt     time.Time `json:"created_at"              gorm:"index:idx_user_prompts,priority:2"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for Prompt.
func (Prompt) TableName() string { return "prompts" }

// Template is a reusable prompt pattern. System/public templates have no
// owner (UserID == nil). UsageCount only grows.
type Template struct {
	ID             string    `json:"id"                    gorm:"type:char(36);primaryKey"`
	UserID         *string   `json:"user_id,omitempty"     gorm:"type:varchar(64);index"`
	Title          string    `json:"title"                 gorm:"type:varchar(255);not null"`
	Description    *string   `json:"description,omitempty" gorm:"type:text"`
	Category       string    `json:"category"              gorm:"type:varchar(64);not null;index"`
	TemplatePrompt string    `json:"template_prompt"       gorm:"type:text;not null"`
	Tags           []string  `json:"tags"                  gorm:"serializer:json;type:text"`
	IsPublic       bool      `json:"is_public"             gorm:"not null;default:false;index"`
	UsageCount     int64     `json:"usage_count"           gorm:"not null;default:0;index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for Template.
func (Template) TableName() string { return "prompt_templates" }

// Attachment is a file stored in object storage and linked to a Prompt.
// Attachment rows are removed with their prompt.
type Attachment struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	PromptID  string    `json:"prompt_id" gorm:"type:char(36);not null;index"`
	FileName  string    `json:"file_name" gorm:"type:varchar(255);not null"`
	FileType  string    `json:"file_type" gorm:"type:varchar(128);not null"`
	FileSize  int64     `json:"file_size" gorm:"not null"`
	FileURL   string    `json:"file_url"  gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`

	Prompt Prompt `json:"-" gorm:"foreignKey:PromptID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Attachment.
func (Attachment) TableName() string { return "attachments" }

// ChatSession groups the conversational-refinement messages of one prompt.
type ChatSession struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	PromptID  string    `json:"prompt_id" gorm:"type:char(36);not null;index"`
	UserID    string    `json:"user_id"   gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time `json:"created_at"`

	Prompt Prompt `json:"-" gorm:"foreignKey:PromptID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatSession.
func (ChatSession) TableName() string { return "chat_sessions" }

// ChatMessage is a single append-only utterance in a ChatSession.
type ChatMessage struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string    `json:"session_id" gorm:"type:char(36);not null;index:idx_session_msgs,priority:1"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_session_msgs,priority:2"`

	Session ChatSession `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// Feedback is a user's rating of a prompt. One row per (prompt, user).
type Feedback struct {
	ID           string    `json:"id"                      gorm:"type:char(36);primaryKey"`
	PromptID     string    `json:"prompt_id"               gorm:"type:char(36);not null;uniqueIndex:ux_feedback_prompt_user"`
	UserID       string    `json:"user_id"                 gorm:"type:varchar(64);not null;uniqueIndex:ux_feedback_prompt_user"`
	Rating       *int      `json:"rating,omitempty"        gorm:"check:rating IS NULL OR (rating BETWEEN 1 AND 5)"`
	FeedbackText *string   `json:"feedback_text,omitempty" gorm:"type:text"`
	IsHelpful    *bool     `json:"is_helpful,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Prompt Prompt `json:"-" gorm:"foreignKey:PromptID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "prompt_feedback" }

// AnalyticsEvent is a write-only usage record.
type AnalyticsEvent struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string         `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_events,priority:1"`
	ActionType string         `json:"action_type" gorm:"type:varchar(64);not null;index"`
	Metadata   map[string]any `json:"metadata"    gorm:"serializer:json;type:text"`
	CreatedAt  time.Time      `json:"created_at"  gorm:"index:idx_user_events,priority:2"`
}

// TableName returns the database table name for AnalyticsEvent.
func (AnalyticsEvent) TableName() string { return "usage_analytics" }

// Profile holds optional identity enrichment and UI preferences.
// All preference fields are nullable: nil means "not chosen".
type Profile struct {
	ID                string    `json:"id"                           gorm:"type:char(36);primaryKey"`
	UserID            string    `json:"user_id"                      gorm:"type:varchar(64);not null;uniqueIndex"`
	DisplayName       *string   `json:"display_name,omitempty"       gorm:"type:varchar(255)"`
	Profession        *string   `json:"profession,omitempty"         gorm:"type:varchar(255)"`
	AvatarURL         *string   `json:"avatar_url,omitempty"         gorm:"type:text"`
	Theme             *string   `json:"theme,omitempty"              gorm:"type:varchar(16)"`
	FontSize          *string   `json:"font_size,omitempty"          gorm:"type:varchar(16)"`
	AnimationsEnabled *bool     `json:"animations_enabled,omitempty"`
	CompactMode       *bool     `json:"compact_mode,omitempty"`
	DefaultModel      *string   `json:"default_model,omitempty"      gorm:"type:varchar(64)"`
	DefaultTone       *string   `json:"default_tone,omitempty"       gorm:"type:varchar(64)"`
	DefaultPersona    *string   `json:"default_persona,omitempty"    gorm:"type:varchar(255)"`
	DefaultFormat     *string   `json:"default_format,omitempty"     gorm:"type:varchar(64)"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// NotificationSettings stores per-user email and push toggles.
type NotificationSettings struct {
	UserID         string    `json:"user_id"         gorm:"type:varchar(64);primaryKey"`
	EmailGeneral   bool      `json:"email_general"`
	EmailSecurity  bool      `json:"email_security"`
	EmailMarketing bool      `json:"email_marketing"`
	PushPrompts    bool      `json:"push_prompts"`
	PushUsage      bool      `json:"push_usage"`
	PushFeatures   bool      `json:"push_features"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for NotificationSettings.
func (NotificationSettings) TableName() string { return "notification_settings" }

// DefaultNotificationSettings mirrors the toggles a new account starts with.
func DefaultNotificationSettings(userID string) NotificationSettings {
	return NotificationSettings{
		UserID:        userID,
		EmailGeneral:  true,
		EmailSecurity: true,
		PushPrompts:   true,
		PushUsage:     true,
	}
}

// UserStats is the aggregate returned by the stats endpoint.
// Lists are never nil.
type UserStats struct {
	Prompts         []Prompt         `json:"prompts"`
	Templates       []Template       `json:"templates"`
	RecentAnalytics []AnalyticsEvent `json:"recent_analytics"`
}
