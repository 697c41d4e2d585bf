package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// CreateAttachment records an uploaded object against a prompt. A missing
// prompt surfaces as ErrNotFound.
func CreateAttachment(ctx context.Context, db *gorm.DB, a *domain.Attachment) error {
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	err := db.WithContext(ctx).Omit("Prompt").Create(a).Error
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// ListAttachments returns a prompt's attachments oldest first.
func ListAttachments(ctx context.Context, db *gorm.DB, promptID string) ([]domain.Attachment, error) {
	out := []domain.Attachment{}
	err := db.WithContext(ctx).
		Where("prompt_id = ?", promptID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// GetAttachment fetches an attachment by id.
func GetAttachment(ctx context.Context, db *gorm.DB, id string) (*domain.Attachment, error) {
	var a domain.Attachment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAttachment removes an attachment row.
func DeleteAttachment(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Attachment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
