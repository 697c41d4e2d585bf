package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/repo"
)

var (
	themes    = map[string]bool{"light": true, "dark": true, "system": true}
	fontSizes = map[string]bool{"small": true, "medium": true, "large": true}
)

// ProfileService reads and updates the caller's profile and notification
// toggles. There is no way to touch another user's rows through it.
type ProfileService struct {
	DB *gorm.DB
}

// Get returns the caller's profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Get")
	defer span.End()

	p, err := repo.GetProfile(ctx, s.DB, userID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return p, nil
}

// Update applies patch to the caller's profile, creating it if needed.
func (s *ProfileService) Update(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Update")
	defer span.End()

	if patch.Theme != nil {
		v := strings.ToLower(strings.TrimSpace(*patch.Theme))
		if !themes[v] {
			return nil, invalid("theme", "must be light, dark or system")
		}
		patch.Theme = &v
	}
	if patch.FontSize != nil {
		v := strings.ToLower(strings.TrimSpace(*patch.FontSize))
		if !fontSizes[v] {
			return nil, invalid("font_size", "must be small, medium or large")
		}
		patch.FontSize = &v
	}
	return repo.UpdateProfile(ctx, s.DB, userID, patch.Columns())
}

// Settings returns the caller's notification toggles.
func (s *ProfileService) Settings(ctx context.Context, userID string) (domain.NotificationSettings, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Settings")
	defer span.End()
	return repo.GetNotificationSettings(ctx, s.DB, userID)
}

// SaveSettings replaces the caller's notification toggles.
func (s *ProfileService) SaveSettings(ctx context.Context, userID string, in domain.NotificationSettings) (domain.NotificationSettings, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "SaveSettings")
	defer span.End()

	in.UserID = userID
	if err := repo.SaveNotificationSettings(ctx, s.DB, &in); err != nil {
		return domain.NotificationSettings{}, err
	}
	return in, nil
}
