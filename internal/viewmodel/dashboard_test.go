package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tbourn/go-prompt-studio/internal/client"
	"github.com/tbourn/go-prompt-studio/internal/domain"
)

func dashboardStats() domain.UserStats {
	var prompts []domain.Prompt
	for i := range 7 {
		p := domain.Prompt{ID: fmt.Sprintf("p%d", i), InitialPrompt: "x"}
		p.IsSaved = i%2 == 0
		p.IsFavorited = i == 1
		if i < 3 {
			p.RefinedPrompt = strp("refined")
		}
		prompts = append(prompts, p)
	}
	return domain.UserStats{
		Prompts:   prompts,
		Templates: []domain.Template{{ID: "own1", UsageCount: 3}, {ID: "own2", UsageCount: 4}},
		RecentAnalytics: []domain.AnalyticsEvent{
			{ActionType: string(domain.KindPromptRefined)},
			{ActionType: string(domain.KindPromptRefined)},
			{ActionType: string(domain.KindTemplateUsed)},
		},
	}
}

func TestDashboard_Summarizes(t *testing.T) {
	api := &fakeAPI{stats: dashboardStats(), templates: sampleTemplates()}
	d := NewDashboard(api, nil)

	s, err := d.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.TotalPrompts != 7 || s.SavedPrompts != 4 || s.FavoritePrompts != 1 || s.RefinedPrompts != 3 {
		t.Fatalf("counts = %+v", s)
	}
	if s.OwnTemplates != 2 || s.TemplateUses != 7 {
		t.Fatalf("templates = %d uses = %d", s.OwnTemplates, s.TemplateUses)
	}
	if s.ActionsByKind[string(domain.KindPromptRefined)] != 2 || s.ActionsByKind[string(domain.KindTemplateUsed)] != 1 {
		t.Fatalf("actions = %v", s.ActionsByKind)
	}
	if len(s.RecentPrompts) != dashboardTop || s.RecentPrompts[0].ID != "p0" {
		t.Fatalf("recent = %+v", s.RecentPrompts)
	}
	if len(s.Popular) != 3 || !api.lastTplQ.PublicOnly {
		t.Fatalf("popular = %+v query = %+v", s.Popular, api.lastTplQ)
	}
	if got, loading, err := d.Summary(); loading || err != nil || got.TotalPrompts != 7 {
		t.Fatalf("Summary() = %+v %v %v", got, loading, err)
	}
}

func TestDashboard_PopularTemplatesDegrade(t *testing.T) {
	api := &fakeAPI{stats: dashboardStats(), failTemplates: errRemote}
	rec := &Recorder{}
	s, err := NewDashboard(api, rec).Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Popular == nil || len(s.Popular) != 0 || s.TotalPrompts != 7 {
		t.Fatalf("summary = %+v", s)
	}
	if len(rec.Notices()) != 0 {
		t.Fatalf("degraded templates should not notify")
	}
}

func TestDashboard_StatsFailure(t *testing.T) {
	api := &fakeAPI{failStats: &client.APIError{Op: "stats", Status: 401, Kind: client.ErrPermissionDenied}}
	rec := &Recorder{}
	d := NewDashboard(api, rec)

	if _, err := d.Load(context.Background(), "u1"); !errors.Is(err, client.ErrPermissionDenied) {
		t.Fatalf("err = %v", err)
	}
	if _, _, err := d.Summary(); err == nil {
		t.Fatalf("error not kept")
	}
	if n := rec.Notices(); len(n) != 1 || n[0].Title != "Failed to load dashboard" {
		t.Fatalf("notices = %+v", n)
	}
}

func TestSummarize_EmptyStats(t *testing.T) {
	s := summarize(domain.UserStats{}, nil)
	if s.RecentPrompts == nil || s.Popular == nil || s.ActionsByKind == nil || s.TotalPrompts != 0 {
		t.Fatalf("summary = %+v", s)
	}
}
