package viewmodel

import (
	"context"

	"github.com/tbourn/go-prompt-studio/internal/client"
	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/session"
)

// PromptFilter selects which prompts a PromptList shows.
type PromptFilter int

const (
	// History lists every prompt, newest first.
	History PromptFilter = iota
	// Saved lists prompts flagged saved.
	Saved
	// Favorites lists prompts flagged favorite.
	Favorites
)

func (f PromptFilter) String() string {
	switch f {
	case Saved:
		return "saved"
	case Favorites:
		return "favorites"
	default:
		return "history"
	}
}

func (f PromptFilter) query(limit int) client.PromptQuery {
	q := client.PromptQuery{Limit: limit}
	yes := true
	switch f {
	case Saved:
		q.Saved = &yes
	case Favorites:
		q.Favorited = &yes
	}
	return q
}

// PromptAPI is the data access the prompt lists need.
type PromptAPI interface {
	GetUserPrompts(ctx context.Context, ownerID string, q client.PromptQuery) ([]domain.Prompt, error)
	UpdatePrompt(ctx context.Context, id string, patch domain.PromptPatch) (*domain.Prompt, error)
	DeletePrompt(ctx context.Context, id string) error
}

// PromptList backs the history, saved and favorites screens.
type PromptList struct {
	api    PromptAPI
	notify Notifier
	filter PromptFilter
	// Limit caps the fetched page; zero fetches everything.
	Limit int

	*ListState[domain.Prompt]
}

// NewPromptList returns an empty list for filter.
func NewPromptList(api PromptAPI, filter PromptFilter, notify Notifier) *PromptList {
	return &PromptList{
		api:       api,
		notify:    notify,
		filter:    filter,
		ListState: NewListState(func(p domain.Prompt) string { return p.ID }),
	}
}

// Filter returns the list's filter.
func (l *PromptList) Filter() PromptFilter { return l.filter }

// Bind loads the list whenever a user signs in and clears it on sign-out.
func (l *PromptList) Bind(src SessionSource) (stop func()) {
	return bind(src, func(ctx context.Context, id session.Identity) {
		_ = l.Load(ctx, id.UserID())
	}, l.reset)
}

// Load fetches ownerID's prompts and replaces the list.
func (l *PromptList) Load(ctx context.Context, ownerID string) error {
	gen := l.begin()
	items, err := l.api.GetUserPrompts(ctx, ownerID, l.filter.query(l.Limit))
	if l.finish(gen, items, err) && err != nil {
		notifyError(l.notify, "Failed to load "+l.filter.String()+" prompts", err)
	}
	return err
}

// Search filters the loaded prompts. The saved and favorites screens match
// title, initial and refined text; history matches initial and refined text.
func (l *PromptList) Search(term string) []domain.Prompt {
	m := newMatcher(term)
	items := l.Items()
	if m.empty() {
		return items
	}
	out := items[:0]
	for _, p := range items {
		fields := []string{p.InitialPrompt, deref(p.RefinedPrompt)}
		if l.filter != History {
			fields = append(fields, deref(p.Title))
		}
		if m.any(fields...) {
			out = append(out, p)
		}
	}
	return out
}

// ToggleFavorite flips the favorite flag of id.
func (l *PromptList) ToggleFavorite(ctx context.Context, id string) error {
	return l.toggle(ctx, id, "favorite", func(p *domain.Prompt) domain.PromptPatch {
		v := !p.IsFavorited
		p.IsFavorited = v
		return domain.PromptPatch{IsFavorited: &v}
	})
}

// ToggleSaved flips the saved flag of id.
func (l *PromptList) ToggleSaved(ctx context.Context, id string) error {
	return l.toggle(ctx, id, "saved", func(p *domain.Prompt) domain.PromptPatch {
		v := !p.IsSaved
		p.IsSaved = v
		return domain.PromptPatch{IsSaved: &v}
	})
}

func (l *PromptList) toggle(ctx context.Context, id, what string, flip func(*domain.Prompt) domain.PromptPatch) error {
	var patch domain.PromptPatch
	undo, ok := l.patch(id, func(p *domain.Prompt) { patch = flip(p) })
	if !ok {
		return client.ErrNotFound
	}
	err := twoPhase(undo,
		func() (*domain.Prompt, error) { return l.api.UpdatePrompt(ctx, id, patch) },
		func(p *domain.Prompt) { l.set(id, *p) },
	)
	if err != nil {
		notifyError(l.notify, "Failed to update "+what+" status", err)
	}
	return err
}

// Rename sets the title of id.
func (l *PromptList) Rename(ctx context.Context, id, title string) error {
	patch := domain.PromptPatch{Title: &title}
	undo, ok := l.patch(id, func(p *domain.Prompt) { patch.Apply(p) })
	if !ok {
		return client.ErrNotFound
	}
	err := twoPhase(undo,
		func() (*domain.Prompt, error) { return l.api.UpdatePrompt(ctx, id, patch) },
		func(p *domain.Prompt) { l.set(id, *p) },
	)
	if err != nil {
		notifyError(l.notify, "Failed to rename prompt", err)
	}
	return err
}

// Delete removes id. Attachments are removed by the server with the prompt.
func (l *PromptList) Delete(ctx context.Context, id string) error {
	undo, ok := l.remove(id)
	if !ok {
		return client.ErrNotFound
	}
	err := twoPhase(undo,
		func() (struct{}, error) { return struct{}{}, l.api.DeletePrompt(ctx, id) },
		nil,
	)
	if err != nil {
		notifyError(l.notify, "Failed to delete prompt", err)
		return err
	}
	notifyInfo(l.notify, "Deleted", "Prompt removed")
	return nil
}
