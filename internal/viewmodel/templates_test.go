package viewmodel

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/tbourn/go-prompt-studio/internal/client"
	"github.com/tbourn/go-prompt-studio/internal/domain"
)

func sampleTemplates() []domain.Template {
	return []domain.Template{
		{ID: "t1", Title: "Launch email", Description: strp("Market a product launch"), Category: "marketing", UsageCount: 10, Tags: []string{"email"}},
		{ID: "t2", Title: "Code review", Category: "development", UsageCount: 4, Tags: []string{"go", "review"}},
		{ID: "t3", Title: "Blog outline", Category: "writing", UsageCount: 1},
	}
}

func TestTemplateLibrary_LoadAndCategory(t *testing.T) {
	api := &fakeAPI{templates: sampleTemplates()}
	l := NewTemplateLibrary(api, api, nil)
	ctx := context.Background()

	l.SetCategory("marketing")
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if api.lastTplQ.Category != "marketing" {
		t.Fatalf("query = %+v", api.lastTplQ)
	}
	if items := l.Items(); len(items) != 1 || items[0].ID != "t1" {
		t.Fatalf("marketing items = %+v", items)
	}

	l.SetCategory("")
	if l.Category() != AllCategories {
		t.Fatalf("blank category = %q", l.Category())
	}
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"all", "development", "marketing", "writing"}
	if got := l.Categories(); !slices.Equal(got, want) {
		t.Fatalf("categories = %v", got)
	}
}

func TestTemplateLibrary_SearchIgnoresCategoryAndTags(t *testing.T) {
	api := &fakeAPI{templates: append(sampleTemplates(),
		domain.Template{ID: "t4", Title: "Ad review", Category: "development", Tags: []string{"marketing"}},
	)}
	l := NewTemplateLibrary(api, nil, nil)
	ctx := context.Background()
	l.SetCategory("development")
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, err := l.Search(ctx, "market")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// t1 matches by description in another category; t4 only by tag.
	if len(got) != 1 || got[0].ID != "t1" {
		t.Fatalf("search = %+v", got)
	}
	if api.lastTplQ.Category != "" || api.lastTplQ.Search != "market" {
		t.Fatalf("query = %+v", api.lastTplQ)
	}
	if items := l.Items(); len(items) != 1 {
		t.Fatalf("list not replaced: %+v", items)
	}
	if l.Category() != "development" {
		t.Fatalf("category changed to %q", l.Category())
	}

	if got, _ := l.Search(ctx, "REVIEW"); len(got) != 2 {
		t.Fatalf("title search = %+v", got)
	}
	if got, _ := l.Search(ctx, "go"); len(got) != 0 {
		t.Fatalf("tag-only search = %+v", got)
	}

	// A blank term goes back to the category listing.
	got, err = l.Search(ctx, "  ")
	if err != nil || len(got) != 2 || api.lastTplQ.Category != "development" {
		t.Fatalf("blank search = %+v, %v (query %+v)", got, err, api.lastTplQ)
	}
}

func TestTemplateLibrary_SearchFailureNotifies(t *testing.T) {
	api := &fakeAPI{templates: sampleTemplates()}
	rec := &Recorder{}
	l := NewTemplateLibrary(api, nil, rec)
	ctx := context.Background()
	_ = l.Load(ctx)

	api.failTemplates = errRemote
	if _, err := l.Search(ctx, "email"); !errors.Is(err, client.ErrRemoteUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if len(l.Items()) != 3 {
		t.Fatalf("last good list dropped")
	}
	if n := rec.Notices(); len(n) != 1 || n[0].Title != "Failed to search templates" {
		t.Fatalf("notices = %+v", n)
	}
}

func TestTemplateLibrary_UseCommitsServerCount(t *testing.T) {
	api := &fakeAPI{templates: sampleTemplates()}
	rec := &Recorder{}
	l := NewTemplateLibrary(api, api, rec)
	l.SetOwner("u1")
	_ = l.Load(context.Background())

	tpl, err := l.Use(context.Background(), "t2")
	if err != nil {
		t.Fatalf("Use: %v", err)
	}
	// The server saw a concurrent use as well; its count wins.
	if tpl.UsageCount != 6 {
		t.Fatalf("usage = %d, want 6", tpl.UsageCount)
	}
	if kinds := api.eventKinds(); !slices.Equal(kinds, []domain.EventKind{domain.KindTemplateUsed}) {
		t.Fatalf("events = %v", kinds)
	}
	if n := rec.Notices(); len(n) != 1 || n[0].Level != LevelInfo {
		t.Fatalf("notices = %+v", n)
	}
}

func TestTemplateLibrary_FailedUseReverts(t *testing.T) {
	api := &fakeAPI{templates: sampleTemplates(), failIncrement: errRemote}
	l := NewTemplateLibrary(api, api, nil)
	l.SetOwner("u1")
	_ = l.Load(context.Background())

	if _, err := l.Use(context.Background(), "t1"); !errors.Is(err, client.ErrRemoteUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if tpl, _ := l.Get("t1"); tpl.UsageCount != 10 {
		t.Fatalf("usage not reverted: %d", tpl.UsageCount)
	}
	if len(api.eventKinds()) != 0 {
		t.Fatalf("event logged for failed use")
	}
}

func TestTemplateLibrary_CreatePrepends(t *testing.T) {
	api := &fakeAPI{templates: sampleTemplates()}
	l := NewTemplateLibrary(api, nil, nil)
	_ = l.Load(context.Background())

	if _, err := l.Create(context.Background(), domain.NewTemplate{Title: "Mine", Category: "writing", TemplatePrompt: "x"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if items := l.Items(); items[0].ID != "t-new" || len(items) != 4 {
		t.Fatalf("items = %+v", items)
	}
}

func TestTemplateLibrary_LoadFailureNotifies(t *testing.T) {
	api := &fakeAPI{failTemplates: &client.APIError{Op: "list templates", Status: 403, Kind: client.ErrPermissionDenied}}
	rec := &Recorder{}
	l := NewTemplateLibrary(api, nil, rec)

	if err := l.Load(context.Background()); !errors.Is(err, client.ErrPermissionDenied) {
		t.Fatalf("err = %v", err)
	}
	n := rec.Notices()
	if len(n) != 1 || n[0].Message != describe(n[0].Err) {
		t.Fatalf("notices = %+v", n)
	}
	if v := l.View(); v.Err == nil || v.Loading {
		t.Fatalf("view = %+v", v)
	}
}
