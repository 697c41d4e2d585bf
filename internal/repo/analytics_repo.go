package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// CreateAnalyticsEvent appends a usage record.
func CreateAnalyticsEvent(ctx context.Context, db *gorm.DB, ev *domain.AnalyticsEvent) error {
	ev.ID = uuid.NewString()
	ev.CreatedAt = time.Now().UTC()
	if ev.Metadata == nil {
		ev.Metadata = map[string]any{}
	}
	return db.WithContext(ctx).Create(ev).Error
}

// ListAnalyticsSince returns userID's events created at or after since,
// newest first.
func ListAnalyticsSince(ctx context.Context, db *gorm.DB, userID string, since time.Time) ([]domain.AnalyticsEvent, error) {
	out := []domain.AnalyticsEvent{}
	err := db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since.UTC()).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
