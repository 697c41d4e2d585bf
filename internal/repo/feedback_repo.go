package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// UpsertFeedback stores a user's feedback on a prompt, replacing any earlier
// rating from the same user.
func UpsertFeedback(ctx context.Context, db *gorm.DB, fb *domain.Feedback) error {
	now := time.Now().UTC()
	fb.ID = uuid.NewString()
	fb.CreatedAt = now
	fb.UpdatedAt = now
	err := db.WithContext(ctx).
		Omit("Prompt").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "prompt_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "feedback_text", "is_helpful", "updated_at"}),
		}).
		Create(fb).Error
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// GetFeedback returns userID's feedback on promptID.
func GetFeedback(ctx context.Context, db *gorm.DB, promptID, userID string) (*domain.Feedback, error) {
	var fb domain.Feedback
	err := db.WithContext(ctx).
		Where("prompt_id = ? AND user_id = ?", promptID, userID).
		First(&fb).Error
	if err != nil {
		return nil, err
	}
	return &fb, nil
}
