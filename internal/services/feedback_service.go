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

// FeedbackService records ratings users leave on their prompts.
type FeedbackService struct {
	DB *gorm.DB
}

// Submit stores userID's feedback on promptID. A second submission from the
// same user replaces the first.
//
// Errors:
//   - ErrValidation when rating is outside 1..5 or every field is empty.
//   - ErrNotFound / ErrForbidden for missing or foreign prompts.
func (s *FeedbackService) Submit(ctx context.Context, userID, promptID string, in domain.NewFeedback) (*domain.Feedback, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Submit", trace.WithAttributes(attribute.String("prompt.id", promptID)))
	defer span.End()

	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return nil, invalid("rating", "must be between 1 and 5")
	}
	if in.FeedbackText != nil {
		t := strings.TrimSpace(*in.FeedbackText)
		in.FeedbackText = &t
	}
	if in.Rating == nil && in.IsHelpful == nil && (in.FeedbackText == nil || *in.FeedbackText == "") {
		return nil, invalid("feedback", "is empty")
	}

	var out *domain.Feedback
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedPrompt(ctx, tx, userID, promptID); err != nil {
			return err
		}
		fb := &domain.Feedback{
			PromptID:     promptID,
			UserID:       userID,
			Rating:       in.Rating,
			FeedbackText: in.FeedbackText,
			IsHelpful:    in.IsHelpful,
		}
		if err := repo.UpsertFeedback(ctx, tx, fb); err != nil {
			return notFoundOr(err)
		}
		var err error
		out, err = repo.GetFeedback(ctx, tx, promptID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
