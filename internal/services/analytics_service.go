package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/repo"
)

// StatsWindow bounds the analytics returned with user stats.
const StatsWindow = 30 * 24 * time.Hour

// AnalyticsService records usage events and builds the dashboard aggregate.
type AnalyticsService struct {
	DB     *gorm.DB
	Logger zerolog.Logger

	now func() time.Time
}

// Log appends one usage event for userID.
func (s *AnalyticsService) Log(ctx context.Context, userID string, ev domain.Event) (*domain.AnalyticsEvent, error) {
	tr := otel.Tracer("services/AnalyticsService")
	ctx, span := tr.Start(ctx, "Log")
	defer span.End()

	rec, err := domain.NewAnalyticsEvent(userID, ev)
	if err != nil {
		return nil, invalid("action_type", "is required")
	}
	span.SetAttributes(attribute.String("analytics.action", rec.ActionType))
	if err := repo.CreateAnalyticsEvent(ctx, s.DB, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Stats gathers the caller's prompts, own templates and last 30 days of
// events concurrently. A failing sub-query leaves its list empty and is
// logged; Stats itself only fails when ctx is done.
func (s *AnalyticsService) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	tr := otel.Tracer("services/AnalyticsService")
	ctx, span := tr.Start(ctx, "Stats", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	out := domain.UserStats{
		Prompts:         []domain.Prompt{},
		Templates:       []domain.Template{},
		RecentAnalytics: []domain.AnalyticsEvent{},
	}
	since := s.clock().Add(-StatsWindow)

	var g errgroup.Group
	g.Go(func() error {
		ps, err := repo.ListPrompts(ctx, s.DB, userID, repo.PromptFilter{})
		if err != nil {
			s.Logger.Warn().Err(err).Str("part", "prompts").Msg("stats sub-query failed")
			return nil
		}
		out.Prompts = ps
		return nil
	})
	g.Go(func() error {
		ts, err := repo.ListTemplatesByOwner(ctx, s.DB, userID)
		if err != nil {
			s.Logger.Warn().Err(err).Str("part", "templates").Msg("stats sub-query failed")
			return nil
		}
		out.Templates = ts
		return nil
	})
	g.Go(func() error {
		evs, err := repo.ListAnalyticsSince(ctx, s.DB, userID, since)
		if err != nil {
			s.Logger.Warn().Err(err).Str("part", "analytics").Msg("stats sub-query failed")
			return nil
		}
		out.RecentAnalytics = evs
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return domain.UserStats{}, err
	}
	return out, nil
}

func (s *AnalyticsService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
