package client

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

type eventBody struct {
	ActionType string         `json:"action_type"`
	Metadata   map[string]any `json:"metadata"`
}

// LogUserAction records one usage event for the owner.
func (c *Client) LogUserAction(ctx context.Context, ownerID string, ev domain.Event) error {
	const op = "log action"
	if strings.TrimSpace(ownerID) == "" {
		return invalidArg(op, "owner")
	}
	rec, err := domain.NewAnalyticsEvent(ownerID, ev)
	if err != nil {
		return &APIError{Op: op, Kind: ErrValidationFailed, Message: err.Error(), Cause: err}
	}
	return sendNoContent(ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(eventBody{ActionType: rec.ActionType, Metadata: rec.Metadata}).Post("/analytics/events")
	})
}

// GetUserStats returns the owner's prompts, own templates and the last 30
// days of analytics. The server gathers the three concurrently; a part that
// failed there comes back empty. Lists are never nil.
func (c *Client) GetUserStats(ctx context.Context, ownerID string) (domain.UserStats, error) {
	const op = "get stats"
	if strings.TrimSpace(ownerID) == "" {
		return domain.UserStats{}, invalidArg(op, "owner")
	}
	st, err := send[domain.UserStats](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/stats")
	})
	if err != nil {
		return domain.UserStats{}, err
	}
	if st.Prompts == nil {
		st.Prompts = []domain.Prompt{}
	}
	if st.Templates == nil {
		st.Templates = []domain.Template{}
	}
	if st.RecentAnalytics == nil {
		st.RecentAnalytics = []domain.AnalyticsEvent{}
	}
	return st, nil
}

// GetProfile returns the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*domain.Profile, error) {
	return send[*domain.Profile](ctx, c, "get profile", func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/profile")
	})
}

// UpdateProfile applies a partial profile update and returns the result.
func (c *Client) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.Profile, error) {
	return send[*domain.Profile](ctx, c, "update profile", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(patch).Patch("/profile")
	})
}

// GetNotificationSettings returns the signed-in user's notification toggles.
func (c *Client) GetNotificationSettings(ctx context.Context) (domain.NotificationSettings, error) {
	return send[domain.NotificationSettings](ctx, c, "get notification settings", func(r *resty.Request) (*resty.Response, error) {
		return r.Get("/settings/notifications")
	})
}

// UpdateNotificationSettings replaces the notification toggles.
func (c *Client) UpdateNotificationSettings(ctx context.Context, s domain.NotificationSettings) (domain.NotificationSettings, error) {
	return send[domain.NotificationSettings](ctx, c, "save notification settings", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(s).Put("/settings/notifications")
	})
}
