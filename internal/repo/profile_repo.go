package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// GetProfile fetches the profile owned by userID.
func GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProfile inserts an empty-preference profile, typically at sign-up.
func CreateProfile(ctx context.Context, db *gorm.DB, p *domain.Profile) error {
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	err := db.WithContext(ctx).Create(p).Error
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// UpdateProfile applies column updates to userID's profile, creating the row
// first when the account has none, and returns the stored result.
func UpdateProfile(ctx context.Context, db *gorm.DB, userID string, fields map[string]any) (*domain.Profile, error) {
	var out *domain.Profile
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := GetProfile(ctx, tx, userID)
		if errors.Is(err, ErrNotFound) {
			p = &domain.Profile{UserID: userID}
			if err := CreateProfile(ctx, tx, p); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if len(fields) > 0 {
			fields["updated_at"] = time.Now().UTC()
			if err := tx.Model(&domain.Profile{}).Where("id = ?", p.ID).Updates(fields).Error; err != nil {
				return err
			}
		}
		out, err = GetProfile(ctx, tx, userID)
		return err
	})
	return out, err
}

// GetNotificationSettings returns userID's toggles, or the defaults when the
// account never saved any.
func GetNotificationSettings(ctx context.Context, db *gorm.DB, userID string) (domain.NotificationSettings, error) {
	var s domain.NotificationSettings
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, ErrNotFound) {
		return domain.DefaultNotificationSettings(userID), nil
	}
	return s, err
}

// SaveNotificationSettings replaces userID's toggles.
func SaveNotificationSettings(ctx context.Context, db *gorm.DB, s *domain.NotificationSettings) error {
	s.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(s).Error
}
