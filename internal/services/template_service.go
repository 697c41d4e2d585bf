package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/repo"
)

// TemplateService lists, creates and counts uses of prompt templates.
type TemplateService struct {
	DB *gorm.DB
}

// List returns templates visible to userID ordered by usage.
func (s *TemplateService) List(ctx context.Context, userID string, f repo.TemplateFilter) ([]domain.Template, error) {
	tr := otel.Tracer("services/TemplateService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(
		attribute.String("category", f.Category),
		attribute.Bool("public_only", f.PublicOnly),
	))
	defer span.End()

	f.ViewerID = userID
	f.Category = strings.ToLower(strings.TrimSpace(f.Category))
	return repo.ListTemplates(ctx, s.DB, f)
}

// Create stores a template owned by userID.
func (s *TemplateService) Create(ctx context.Context, userID string, in domain.NewTemplate) (*domain.Template, error) {
	tr := otel.Tracer("services/TemplateService")
	ctx, span := tr.Start(ctx, "Create")
	defer span.End()

	switch {
	case blank(in.Title):
		return nil, invalid("title", "is required")
	case blank(in.Category):
		return nil, invalid("category", "is required")
	case blank(in.TemplatePrompt):
		return nil, invalid("template_prompt", "is required")
	}
	owner := userID
	t := &domain.Template{
		UserID:         &owner,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Category:       strings.ToLower(strings.TrimSpace(in.Category)),
		TemplatePrompt: in.TemplatePrompt,
		Tags:           uniqueTags(in.Tags),
		IsPublic:       in.IsPublic,
	}
	if err := repo.CreateTemplate(ctx, s.DB, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Use records one use of a visible template and returns the new count.
func (s *TemplateService) Use(ctx context.Context, userID, id string) (int64, error) {
	tr := otel.Tracer("services/TemplateService")
	ctx, span := tr.Start(ctx, "Use", trace.WithAttributes(attribute.String("template.id", id)))
	defer span.End()

	t, err := repo.GetTemplate(ctx, s.DB, id)
	if err != nil {
		return 0, notFoundOr(err)
	}
	if !t.IsPublic && (t.UserID == nil || *t.UserID != userID) {
		return 0, ErrForbidden
	}
	n, err := repo.IncrementTemplateUsage(ctx, s.DB, id)
	if err != nil {
		return 0, notFoundOr(err)
	}
	span.SetAttributes(attribute.Int64("template.usage_count", n))
	return n, nil
}

// uniqueTags trims, lower-cases and de-duplicates tags, keeping first-seen
// order.
func uniqueTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
