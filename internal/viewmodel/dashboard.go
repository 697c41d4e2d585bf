package viewmodel

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-prompt-studio/internal/client"
	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// dashboardTop caps the recent and popular lists.
const dashboardTop = 5

// DashboardAPI is the data access the dashboard needs.
type DashboardAPI interface {
	GetUserStats(ctx context.Context, ownerID string) (domain.UserStats, error)
	GetPromptTemplates(ctx context.Context, q client.TemplateQuery) ([]domain.Template, error)
}

// Summary is the dashboard's computed view.
type Summary struct {
	TotalPrompts    int
	SavedPrompts    int
	FavoritePrompts int
	RefinedPrompts  int
	OwnTemplates    int
	TemplateUses    int64
	// ActionsByKind counts the last 30 days of analytics by action type.
	ActionsByKind map[string]int
	RecentPrompts []domain.Prompt
	// Popular holds the most used public templates; empty when they could
	// not be loaded.
	Popular []domain.Template
}

// Dashboard backs the overview screen.
type Dashboard struct {
	api    DashboardAPI
	notify Notifier

	mu      sync.Mutex
	summary Summary
	loading bool
	err     error
}

// NewDashboard returns an empty dashboard.
func NewDashboard(api DashboardAPI, notify Notifier) *Dashboard {
	return &Dashboard{api: api, notify: notify}
}

// Summary returns the last loaded summary and load state.
func (d *Dashboard) Summary() (Summary, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.summary, d.loading, d.err
}

// Load fetches the owner's stats and the popular templates concurrently.
// Stats are required; popular templates degrade to an empty list.
func (d *Dashboard) Load(ctx context.Context, ownerID string) (Summary, error) {
	d.mu.Lock()
	d.loading = true
	d.mu.Unlock()

	var (
		stats   domain.UserStats
		popular []domain.Template
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = d.api.GetUserStats(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		ts, err := d.api.GetPromptTemplates(gctx, client.TemplateQuery{PublicOnly: true})
		if err == nil {
			popular = ts
		}
		return nil
	})
	err := g.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false
	d.err = err
	if err != nil {
		notifyError(d.notify, "Failed to load dashboard", err)
		return d.summary, err
	}
	d.summary = summarize(stats, popular)
	return d.summary, nil
}

func summarize(st domain.UserStats, popular []domain.Template) Summary {
	s := Summary{
		TotalPrompts:  len(st.Prompts),
		OwnTemplates:  len(st.Templates),
		ActionsByKind: map[string]int{},
		Popular:       []domain.Template{},
	}
	for _, p := range st.Prompts {
		if p.IsSaved {
			s.SavedPrompts++
		}
		if p.IsFavorited {
			s.FavoritePrompts++
		}
		if deref(p.RefinedPrompt) != "" {
			s.RefinedPrompts++
		}
	}
	for _, t := range st.Templates {
		s.TemplateUses += t.UsageCount
	}
	for _, e := range st.RecentAnalytics {
		s.ActionsByKind[e.ActionType]++
	}
	// Prompts and templates arrive newest-first and most-used-first.
	s.RecentPrompts = append([]domain.Prompt{}, st.Prompts[:min(dashboardTop, len(st.Prompts))]...)
	s.Popular = append(s.Popular, popular[:min(dashboardTop, len(popular))]...)
	return s
}
