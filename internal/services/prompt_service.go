package services

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/repo"
	"github.com/tbourn/go-prompt-studio/internal/storage"
)

// PromptService owns prompt CRUD and enforces that callers only touch their
// own prompts.
type PromptService struct {
	DB     *gorm.DB
	Bucket storage.Bucket
	Log    zerolog.Logger

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewPromptService wires a PromptService with default limits.
func NewPromptService(db *gorm.DB, bucket storage.Bucket, log zerolog.Logger) *PromptService {
	return &PromptService{DB: db, Bucket: bucket, Log: log, TitleMaxLen: 255}
}

func (s *PromptService) Create(ctx context.Context, userID string, in domain.NewPrompt) (*domain.Prompt, error) {
	tr := otel.Tracer("services/PromptService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if blank(in.InitialPrompt) {
		return nil, invalid("initial_prompt", "is required")
	}
	p := &domain.Prompt{
		UserID:        userID,
		Title:         s.title(in.Title),
		InitialPrompt: in.InitialPrompt,
		RefinedPrompt: in.RefinedPrompt,
		TargetModel:   in.TargetModel,
		Tone:          in.Tone,
		Persona:       in.Persona,
		OutputFormat:  in.OutputFormat,
		IsSaved:       in.IsSaved,
		IsFavorited:   in.IsFavorited,
	}
	if err := repo.CreatePrompt(ctx, s.DB, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns the caller's prompts newest first.
func (s *PromptService) List(ctx context.Context, userID string, f repo.PromptFilter) ([]domain.Prompt, error) {
	tr := otel.Tracer("services/PromptService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.Int("limit", f.Limit),
		attribute.Int("offset", f.Offset),
	))
	defer span.End()

	if f.Limit < 0 || f.Offset < 0 {
		return nil, invalid("range", "limit and offset must be >= 0")
	}
	return repo.ListPrompts(ctx, s.DB, userID, f)
}

// Stats returns the caller's prompt count and latest update time, used for
// list ETags.
func (s *PromptService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return repo.PromptsStats(ctx, s.DB, userID)
}

func (s *PromptService) Get(ctx context.Context, userID, id string) (*domain.Prompt, error) {
	tr := otel.Tracer("services/PromptService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("prompt.id", id)))
	defer span.End()
	return ownedPrompt(ctx, s.DB, userID, id)
}

// Update applies patch and returns the stored prompt.
func (s *PromptService) Update(ctx context.Context, userID, id string, patch domain.PromptPatch) (*domain.Prompt, error) {
	tr := otel.Tracer("services/PromptService")
	ctx, span := tr.Start(ctx, "Update", trace.WithAttributes(attribute.String("prompt.id", id)))
	defer span.End()

	if patch.InitialPrompt != nil && blank(*patch.InitialPrompt) {
		return nil, invalid("initial_prompt", "must not be empty")
	}
	if patch.Title != nil {
		patch.Title = s.title(patch.Title)
		if patch.Title == nil {
			empty := ""
			patch.Title = &empty
		}
	}
	if _, err := ownedPrompt(ctx, s.DB, userID, id); err != nil {
		return nil, err
	}
	if err := repo.UpdatePrompt(ctx, s.DB, id, patch.Columns()); err != nil {
		return nil, notFoundOr(err)
	}
	return ownedPrompt(ctx, s.DB, userID, id)
}

// Delete removes a prompt. Attachment, chat and feedback rows cascade; the
// stored attachment objects are then removed best-effort.
func (s *PromptService) Delete(ctx context.Context, userID, id string) error {
	tr := otel.Tracer("services/PromptService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("prompt.id", id)))
	defer span.End()

	if _, err := ownedPrompt(ctx, s.DB, userID, id); err != nil {
		return err
	}
	atts, err := repo.ListAttachments(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if err := repo.DeletePrompt(ctx, s.DB, id); err != nil {
		return notFoundOr(err)
	}
	if s.Bucket == nil {
		return nil
	}
	for _, a := range atts {
		key, ok := s.Bucket.KeyFromURL(a.FileURL)
		if !ok {
			continue
		}
		if err := s.Bucket.Delete(ctx, key); err != nil {
			s.Log.Warn().Err(err).Str("key", key).Msg("orphaned attachment object")
		}
	}
	return nil
}

// title normalizes a user supplied title: NFC, collapsed whitespace, clipped
// to TitleMaxLen runes. Blank titles become nil.
func (s *PromptService) title(t *string) *string {
	if t == nil {
		return nil
	}
	v := whitespaceRE.ReplaceAllString(strings.TrimSpace(norm.NFC.String(*t)), " ")
	if v == "" {
		return nil
	}
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(v) > s.TitleMaxLen {
		v = strings.TrimSpace(string([]rune(v)[:s.TitleMaxLen]))
	}
	return &v
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// ownedPrompt loads a prompt and checks the caller owns it.
func ownedPrompt(ctx context.Context, db *gorm.DB, userID, id string) (*domain.Prompt, error) {
	p, err := repo.GetPrompt(ctx, db, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if p.UserID != userID {
		return nil, ErrForbidden
	}
	return p, nil
}
