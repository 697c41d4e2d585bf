// Package handlers wires the studio's REST endpoints to the service layer.
//
// Handlers are transport-thin: they bind and validate input, call
// application services through the interfaces below, and translate results
// into HTTP responses (including conditional and idempotent replays).
package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/http/middleware"
	"github.com/tbourn/go-prompt-studio/internal/repo"
	"github.com/tbourn/go-prompt-studio/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService manages accounts and credential leases.
type AuthService interface {
	SignUp(ctx context.Context, email, password, displayName, redirectTo string) (*services.SignUpResult, error)
	Verify(ctx context.Context, token string) (*services.Session, error)
	SignIn(ctx context.Context, email, password string) (*services.Session, error)
	OAuthURL(provider, redirectTo string) (string, error)
	OAuthCallback(ctx context.Context, provider, code, state string) (*services.Session, string, error)
	SignOut(ctx context.Context, p services.Principal) error
	Me(ctx context.Context, userID string) (*domain.User, error)
}

// PromptService is prompt CRUD scoped to the caller.
type PromptService interface {
	Create(ctx context.Context, userID string, in domain.NewPrompt) (*domain.Prompt, error)
	List(ctx context.Context, userID string, f repo.PromptFilter) ([]domain.Prompt, error)
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
	Get(ctx context.Context, userID, id string) (*domain.Prompt, error)
	Update(ctx context.Context, userID, id string, patch domain.PromptPatch) (*domain.Prompt, error)
	Delete(ctx context.Context, userID, id string) error
}

// TemplateService lists, creates and counts uses of templates.
type TemplateService interface {
	List(ctx context.Context, userID string, f repo.TemplateFilter) ([]domain.Template, error)
	Create(ctx context.Context, userID string, in domain.NewTemplate) (*domain.Template, error)
	Use(ctx context.Context, userID, id string) (int64, error)
}

// AttachmentService stores objects and links them to prompts.
type AttachmentService interface {
	Upload(ctx context.Context, userID, key, fileName, declared string, r io.Reader) (*services.StoredObject, error)
	DeleteObject(ctx context.Context, userID, key string) error
	Attach(ctx context.Context, userID, promptID, fileName, declared string, r io.Reader) (*domain.Attachment, error)
	Record(ctx context.Context, userID, promptID string, in services.NewAttachment) (*domain.Attachment, error)
	List(ctx context.Context, userID, promptID string) ([]domain.Attachment, error)
	Delete(ctx context.Context, userID, id string) error
}

// ChatService manages conversational-refinement sessions.
type ChatService interface {
	CreateSession(ctx context.Context, userID, promptID string) (*domain.ChatSession, error)
	AddMessage(ctx context.Context, userID, sessionID, role, content string) (*domain.ChatMessage, error)
	Messages(ctx context.Context, userID, sessionID string) ([]domain.ChatMessage, error)
}

// FeedbackService records prompt ratings.
type FeedbackService interface {
	Submit(ctx context.Context, userID, promptID string, in domain.NewFeedback) (*domain.Feedback, error)
}

// AnalyticsService records usage events and builds dashboard stats.
type AnalyticsService interface {
	Log(ctx context.Context, userID string, ev domain.Event) (*domain.AnalyticsEvent, error)
	Stats(ctx context.Context, userID string) (domain.UserStats, error)
}

// ProfileService reads and patches profile and notification settings.
type ProfileService interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.Profile, error)
	Settings(ctx context.Context, userID string) (domain.NotificationSettings, error)
	SaveSettings(ctx context.Context, userID string, in domain.NotificationSettings) (domain.NotificationSettings, error)
}

//
// Handler wiring
//

// Services bundles the application services the handlers call.
type Services struct {
	Auth        AuthService
	Prompts     PromptService
	Templates   TemplateService
	Attachments AttachmentService
	Chat        ChatService
	Feedback    FeedbackService
	Analytics   AnalyticsService
	Profile     ProfileService
}

// Options tunes transport-level behavior.
type Options struct {
	// DB stores idempotency records. Nil disables create replays.
	DB *gorm.DB
	// IdempotencyTTL is how long a create can be replayed (default 24h).
	IdempotencyTTL time.Duration
	// MaxUpload caps multipart request bodies (default domain.MaxFileSize).
	MaxUpload int64
}

// Handlers groups every REST endpoint of the API.
type Handlers struct {
	svc  Services
	opts Options
}

// New constructs Handlers bound to svc.
func New(svc Services, opts Options) *Handlers {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = domain.MaxFileSize
	}
	return &Handlers{svc: svc, opts: opts}
}

// userID returns the authenticated caller set by middleware.RequireAuth.
func userID(c *gin.Context) string { return middleware.UserID(c) }

// replayed looks up the resource a previous request with the same
// Idempotency-Key produced. load fetches it; a failed load falls through to
// normal processing.
func (h *Handlers) replayed(c *gin.Context, load func(id string) (any, error)) bool {
	id, ok := middleware.ReplayOf(c)
	if !ok || h.opts.DB == nil {
		return false
	}
	v, err := load(id)
	if err != nil {
		return false
	}
	c.Header(middleware.HeaderIdempotencyReplayed, "true")
	c.JSON(http.StatusCreated, v)
	return true
}

// remember stores resourceID under the request's Idempotency-Key, if any.
// Failures are logged and otherwise ignored.
func (h *Handlers) remember(c *gin.Context, resourceID string, status int) {
	key, scope, ok := middleware.IdempotencyKey(c)
	if !ok || h.opts.DB == nil {
		return
	}
	if _, err := repo.CreateIdempotency(c.Request.Context(), h.opts.DB, userID(c), scope, key, resourceID, status, h.opts.IdempotencyTTL); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency record not stored")
	}
}
