// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Prompt
// model.
//
// Functions are thin: no ownership checks or business rules, only query
// composition. Missing rows surface as ErrNotFound.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// DefaultPageSize is applied when an offset is given without a limit.
const DefaultPageSize = 10

// PromptFilter narrows ListPrompts. Nil flag pointers mean "any".
type PromptFilter struct {
	Limit     int
	Offset    int
	Saved     *bool
	Favorited *bool
}

// CreatePrompt inserts p, assigning a UUID and UTC timestamps.
func CreatePrompt(ctx context.Context, db *gorm.DB, p *domain.Prompt) error {
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	return db.WithContext(ctx).Create(p).Error
}

// ListPrompts returns userID's prompts newest first. Flag filters are exact
// matches; an offset without a limit reads one DefaultPageSize page.
func ListPrompts(ctx context.Context, db *gorm.DB, userID string, f PromptFilter) ([]domain.Prompt, error) {
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if f.Saved != nil {
		q = q.Where("is_saved = ?", *f.Saved)
	}
	if f.Favorited != nil {
		q = q.Where("is_favorited = ?", *f.Favorited)
	}
	limit := f.Limit
	if f.Offset > 0 && limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	out := []domain.Prompt{}
	err := q.Find(&out).Error
	return out, err
}

// GetPrompt fetches a prompt by id regardless of owner.
func GetPrompt(ctx context.Context, db *gorm.DB, id string) (*domain.Prompt, error) {
	var p domain.Prompt
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePrompt applies column updates to a prompt and bumps updated_at.
// Returns ErrNotFound when no row matched.
func UpdatePrompt(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Prompt{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePrompt removes a prompt. Dependent rows go with it through FK
// cascades; stored objects are the caller's concern.
func DeletePrompt(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Prompt{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
