package viewmodel

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/tbourn/go-prompt-studio/internal/client"
	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/session"
)

// AllCategories is the category value that disables the category filter.
const AllCategories = "all"

// TemplateAPI is the data access the template library needs.
type TemplateAPI interface {
	GetPromptTemplates(ctx context.Context, q client.TemplateQuery) ([]domain.Template, error)
	CreateTemplate(ctx context.Context, in domain.NewTemplate) (*domain.Template, error)
	IncrementTemplateUsage(ctx context.Context, id string) (int64, error)
}

// EventLogger records analytics events. Failures are not surfaced.
type EventLogger interface {
	LogUserAction(ctx context.Context, ownerID string, ev domain.Event) error
}

// TemplateLibrary backs the templates screen.
type TemplateLibrary struct {
	api    TemplateAPI
	events EventLogger
	notify Notifier

	mu       sync.Mutex
	category string
	owner    string

	*ListState[domain.Template]
}

// NewTemplateLibrary returns an empty library. events may be nil.
func NewTemplateLibrary(api TemplateAPI, events EventLogger, notify Notifier) *TemplateLibrary {
	return &TemplateLibrary{
		api:       api,
		events:    events,
		notify:    notify,
		category:  AllCategories,
		ListState: NewListState(func(t domain.Template) string { return t.ID }),
	}
}

// Bind loads the library whenever a user signs in and clears it on sign-out.
func (l *TemplateLibrary) Bind(src SessionSource) (stop func()) {
	return bind(src, func(ctx context.Context, id session.Identity) {
		l.setOwner(id.UserID())
		_ = l.Load(ctx)
	}, func() {
		l.setOwner("")
		l.reset()
	})
}

func (l *TemplateLibrary) setOwner(id string) {
	l.mu.Lock()
	l.owner = id
	l.mu.Unlock()
}

// SetOwner records who is using templates, for analytics.
func (l *TemplateLibrary) SetOwner(id string) { l.setOwner(id) }

// SetCategory changes the server-side category filter; call Load to apply.
func (l *TemplateLibrary) SetCategory(c string) {
	c = strings.TrimSpace(c)
	if c == "" {
		c = AllCategories
	}
	l.mu.Lock()
	l.category = c
	l.mu.Unlock()
}

// Category returns the active category filter.
func (l *TemplateLibrary) Category() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.category
}

// Load fetches templates for the active category, most used first.
func (l *TemplateLibrary) Load(ctx context.Context) error {
	gen := l.begin()
	items, err := l.api.GetPromptTemplates(ctx, client.TemplateQuery{Category: l.Category()})
	if l.finish(gen, items, err) && err != nil {
		notifyError(l.notify, "Failed to load templates", err)
	}
	return err
}

// Search replaces the list with the templates whose title or description
// contains term, in every category, most used first. The category filter
// does not apply. A blank term reloads the active category instead.
func (l *TemplateLibrary) Search(ctx context.Context, term string) ([]domain.Template, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		err := l.Load(ctx)
		return l.Items(), err
	}
	gen := l.begin()
	items, err := l.api.GetPromptTemplates(ctx, client.TemplateQuery{Search: term})
	if l.finish(gen, items, err) && err != nil {
		notifyError(l.notify, "Failed to search templates", err)
	}
	if err != nil {
		return nil, err
	}
	return l.Items(), nil
}

// Categories lists the distinct categories of the loaded templates, sorted,
// after AllCategories.
func (l *TemplateLibrary) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range l.Items() {
		if t.Category != "" && !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	slices.Sort(out)
	return append([]string{AllCategories}, out...)
}

// Use counts one use of template id and returns its text. The usage count
// is bumped locally first and replaced by the server's count.
func (l *TemplateLibrary) Use(ctx context.Context, id string) (domain.Template, error) {
	undo, ok := l.patch(id, func(t *domain.Template) { t.UsageCount++ })
	if !ok {
		return domain.Template{}, client.ErrNotFound
	}
	err := twoPhase(undo,
		func() (int64, error) { return l.api.IncrementTemplateUsage(ctx, id) },
		func(n int64) {
			l.patch(id, func(t *domain.Template) { t.UsageCount = n })
		},
	)
	if err != nil {
		notifyError(l.notify, "Failed to use template", err)
		return domain.Template{}, err
	}
	t, _ := l.Get(id)
	l.logUse(ctx, t)
	notifyInfo(l.notify, "Copied", "Template copied: "+t.Title)
	return t, nil
}

func (l *TemplateLibrary) logUse(ctx context.Context, t domain.Template) {
	l.mu.Lock()
	owner := l.owner
	l.mu.Unlock()
	if l.events == nil || owner == "" {
		return
	}
	_ = l.events.LogUserAction(ctx, owner, domain.TemplateUsed{TemplateID: t.ID, Category: t.Category})
}

// Create stores a new template and puts it at the head of the list.
func (l *TemplateLibrary) Create(ctx context.Context, in domain.NewTemplate) (*domain.Template, error) {
	t, err := l.api.CreateTemplate(ctx, in)
	if err != nil {
		notifyError(l.notify, "Failed to create template", err)
		return nil, err
	}
	l.prepend(*t)
	return t, nil
}
