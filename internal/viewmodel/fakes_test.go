package viewmodel

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/tbourn/go-prompt-studio/internal/client"
	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/session"
)

func strp(s string) *string { return &s }

func intp(n int) *int { return &n }

var errRemote = &client.APIError{Op: "test", Status: 503, Kind: client.ErrRemoteUnavailable}

// fakeSession is a SessionSource driven by the test.
type fakeSession struct {
	mu        sync.Mutex
	snap      session.Snapshot
	listeners map[int]func(session.Snapshot)
	next      int
	updateErr error
}

func newFakeSession() *fakeSession {
	return &fakeSession{listeners: map[int]func(session.Snapshot){}}
}

func signedIn(userID, profession string) *fakeSession {
	s := newFakeSession()
	id := &session.Identity{User: domain.User{ID: userID, Email: userID + "@example.com"}}
	if profession != "" {
		id.Profile = &domain.Profile{UserID: userID, Profession: &profession}
	}
	s.snap = session.Snapshot{State: session.Authenticated, Identity: id, Version: 1}
	return s
}

func (s *fakeSession) Current() (*session.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.State != session.Authenticated {
		return nil, false
	}
	id := *s.snap.Identity
	return &id, true
}

func (s *fakeSession) Subscribe(fn func(session.Snapshot)) func() {
	s.mu.Lock()
	s.next++
	k := s.next
	s.listeners[k] = fn
	snap := s.snap
	s.mu.Unlock()
	fn(snap)
	return func() {
		s.mu.Lock()
		delete(s.listeners, k)
		s.mu.Unlock()
	}
}

// emit publishes snap synchronously to every listener.
func (s *fakeSession) emit(snap session.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	fns := make([]func(session.Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (s *fakeSession) UpdateProfile(_ context.Context, patch domain.ProfilePatch) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	id := s.snap.Identity
	if id == nil {
		return nil, session.ErrNoAuthenticatedUser
	}
	p := domain.Profile{UserID: id.UserID()}
	if id.Profile != nil {
		p = *id.Profile
	}
	patch.Apply(&p)
	id.Profile = &p
	out := p
	return &out, nil
}

// fakeAPI implements every data access interface the containers use.
type fakeAPI struct {
	mu sync.Mutex

	prompts   []domain.Prompt
	templates []domain.Template
	stats     domain.UserStats
	notif     domain.NotificationSettings

	lastQuery   client.PromptQuery
	lastTplQ    client.TemplateQuery
	events      []domain.Event
	attachments []domain.Attachment
	messages    []domain.ChatMessage
	feedback    []domain.NewFeedback
	sessions    int
	creates     int
	updates     int

	failUpdate     error
	failDelete     error
	failIncrement  error
	failStats      error
	failTemplates  error
	failNotif      error
	failMessage    error
	failAttachName string
	block          chan struct{}
}

func (f *fakeAPI) GetUserPrompts(ctx context.Context, _ string, q client.PromptQuery) ([]domain.Prompt, error) {
	f.mu.Lock()
	f.lastQuery = q
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Prompt(nil), f.prompts...), nil
}

func (f *fakeAPI) GetPrompt(_ context.Context, id string) (*domain.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.prompts {
		if p.ID == id {
			out := p
			return &out, nil
		}
	}
	return nil, &client.APIError{Op: "get prompt", Status: 404, Kind: client.ErrNotFound}
}

func (f *fakeAPI) CreatePrompt(_ context.Context, in domain.NewPrompt) (*domain.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	p := domain.Prompt{
		ID: "p-new", UserID: "u1", Title: in.Title, InitialPrompt: in.InitialPrompt, RefinedPrompt: in.RefinedPrompt,
		TargetModel: in.TargetModel, Tone: in.Tone, Persona: in.Persona, OutputFormat: in.OutputFormat,
		IsSaved: in.IsSaved, IsFavorited: in.IsFavorited, CreatedAt: time.Now(),
	}
	f.prompts = append([]domain.Prompt{p}, f.prompts...)
	return &p, nil
}

func (f *fakeAPI) UpdatePrompt(_ context.Context, id string, patch domain.PromptPatch) (*domain.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}
	for i := range f.prompts {
		if f.prompts[i].ID == id {
			patch.Apply(&f.prompts[i])
			f.prompts[i].UpdatedAt = time.Now()
			out := f.prompts[i]
			return &out, nil
		}
	}
	return nil, &client.APIError{Op: "update prompt", Status: 404, Kind: client.ErrNotFound}
}

func (f *fakeAPI) DeletePrompt(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	for i := range f.prompts {
		if f.prompts[i].ID == id {
			f.prompts = append(f.prompts[:i], f.prompts[i+1:]...)
			return nil
		}
	}
	return &client.APIError{Op: "delete prompt", Status: 404, Kind: client.ErrNotFound}
}

func (f *fakeAPI) GetPromptTemplates(_ context.Context, q client.TemplateQuery) ([]domain.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTplQ = q
	if f.failTemplates != nil {
		return nil, f.failTemplates
	}
	// Server semantics: exact category, title or description match.
	m := newMatcher(q.Search)
	out := []domain.Template{}
	for _, t := range f.templates {
		if c := q.Category; c != "" && c != AllCategories && t.Category != c {
			continue
		}
		if m.any(t.Title, deref(t.Description)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeAPI) CreateTemplate(_ context.Context, in domain.NewTemplate) (*domain.Template, error) {
	t := domain.Template{ID: "t-new", Title: in.Title, Category: in.Category, TemplatePrompt: in.TemplatePrompt, Tags: in.Tags}
	return &t, nil
}

func (f *fakeAPI) IncrementTemplateUsage(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIncrement != nil {
		return 0, f.failIncrement
	}
	for i := range f.templates {
		if f.templates[i].ID == id {
			// Another client used it concurrently.
			f.templates[i].UsageCount += 2
			return f.templates[i].UsageCount, nil
		}
	}
	return 0, &client.APIError{Op: "use template", Status: 404, Kind: client.ErrNotFound}
}

func (f *fakeAPI) LogUserAction(_ context.Context, _ string, ev domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeAPI) eventKinds() []domain.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.EventKind
	for _, e := range f.events {
		out = append(out, e.Kind())
	}
	return out
}

func (f *fakeAPI) CreateAttachment(_ context.Context, promptID string, file client.File, _ string) (*domain.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file.Name == f.failAttachName {
		return nil, errRemote
	}
	a := domain.Attachment{ID: "a-" + file.Name, PromptID: promptID, FileName: file.Name, FileType: file.Type, FileSize: file.Size}
	f.attachments = append(f.attachments, a)
	return &a, nil
}

func (f *fakeAPI) ListAttachments(_ context.Context, promptID string) ([]domain.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Attachment
	for _, a := range f.attachments {
		if a.PromptID == promptID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAPI) DeleteAttachment(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	for i := range f.attachments {
		if f.attachments[i].ID == id {
			f.attachments = append(f.attachments[:i], f.attachments[i+1:]...)
			return nil
		}
	}
	return &client.APIError{Op: "delete attachment", Status: 404, Kind: client.ErrNotFound}
}

func (f *fakeAPI) CreateChatSession(_ context.Context, promptID string) (*domain.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	return &domain.ChatSession{ID: "s1", PromptID: promptID}, nil
}

func (f *fakeAPI) AddChatMessage(_ context.Context, sessionID, role, content string) (*domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMessage != nil {
		return nil, f.failMessage
	}
	m := domain.ChatMessage{ID: "m" + strconv.Itoa(len(f.messages)), SessionID: sessionID, Role: role, Content: content, CreatedAt: time.Now()}
	f.messages = append(f.messages, m)
	return &m, nil
}

func (f *fakeAPI) SubmitFeedback(_ context.Context, promptID string, fb domain.NewFeedback) (*domain.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, fb)
	return &domain.Feedback{PromptID: promptID, Rating: fb.Rating}, nil
}

func (f *fakeAPI) GetUserStats(context.Context, string) (domain.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStats != nil {
		return domain.UserStats{}, f.failStats
	}
	return f.stats, nil
}

func (f *fakeAPI) GetNotificationSettings(context.Context) (domain.NotificationSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notif, nil
}

func (f *fakeAPI) UpdateNotificationSettings(_ context.Context, s domain.NotificationSettings) (domain.NotificationSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNotif != nil {
		return domain.NotificationSettings{}, f.failNotif
	}
	s.UpdatedAt = time.Now()
	f.notif = s
	return s, nil
}
