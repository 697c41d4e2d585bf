package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/tbourn/go-prompt-studio/internal/client"
	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/refine"
	"github.com/tbourn/go-prompt-studio/internal/session"
)

// PromptParam is the deep-link query parameter that pre-fills the prompt.
const PromptParam = "prompt"

var (
	// ErrRefining is returned when a refinement is already running.
	ErrRefining = errors.New("a refinement is already running")
	// ErrNotSaved is returned by operations that need the draft saved first.
	ErrNotSaved = errors.New("save the prompt first")
	// ErrNoPromptParam is returned for deep links without a prompt.
	ErrNoPromptParam = errors.New("link has no prompt parameter")
)

// WorkspaceAPI is the data access the workspace needs.
type WorkspaceAPI interface {
	EventLogger
	CreatePrompt(ctx context.Context, in domain.NewPrompt) (*domain.Prompt, error)
	GetPrompt(ctx context.Context, id string) (*domain.Prompt, error)
	UpdatePrompt(ctx context.Context, id string, patch domain.PromptPatch) (*domain.Prompt, error)
	CreateAttachment(ctx context.Context, promptID string, f client.File, ownerID string) (*domain.Attachment, error)
	ListAttachments(ctx context.Context, promptID string) ([]domain.Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error
	CreateChatSession(ctx context.Context, promptID string) (*domain.ChatSession, error)
	AddChatMessage(ctx context.Context, sessionID, role, content string) (*domain.ChatMessage, error)
	SubmitFeedback(ctx context.Context, promptID string, fb domain.NewFeedback) (*domain.Feedback, error)
}

// PromptConfig holds the refinement labels. Empty means "use the default".
type PromptConfig struct {
	TargetModel  string
	Tone         string
	Persona      string
	OutputFormat string
}

// Draft is the prompt being edited.
type Draft struct {
	// PromptID is empty until the draft is saved.
	PromptID      string
	Title         string
	InitialPrompt string
	RefinedPrompt string
	Config        PromptConfig
}

// Workspace backs the refine screen: prompt text, configuration labels,
// pending attachments, refinement, save and the refinement chat.
type Workspace struct {
	api     WorkspaceAPI
	refiner refine.Refiner
	src     SessionSource
	notify  Notifier

	mu          sync.Mutex
	draft       Draft
	pending     []client.File
	stored      []domain.Attachment
	chatSession string
	chat        []domain.ChatMessage
	localSeq    int
	refining    bool
}

// NewWorkspace returns an empty workspace.
func NewWorkspace(api WorkspaceAPI, refiner refine.Refiner, src SessionSource, notify Notifier) *Workspace {
	return &Workspace{api: api, refiner: refiner, src: src, notify: notify}
}

// ParsePromptLink extracts the prompt parameter from a deep link such as
// "studio://workspace?prompt=..." or a bare "prompt=..." query.
func ParsePromptLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	query := raw
	if strings.Contains(raw, "://") || strings.HasPrefix(raw, "/") || strings.Contains(raw, "?") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parse link: %w", err)
		}
		query = u.RawQuery
	}
	vals, err := url.ParseQuery(query)
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}
	p := vals.Get(PromptParam)
	if p == "" {
		return "", ErrNoPromptParam
	}
	return p, nil
}

// Draft returns a copy of the draft.
func (w *Workspace) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// SetPrompt replaces the initial prompt text.
func (w *Workspace) SetPrompt(text string) {
	w.mu.Lock()
	w.draft.InitialPrompt = text
	w.mu.Unlock()
}

// SetTitle sets the title used when saving.
func (w *Workspace) SetTitle(title string) {
	w.mu.Lock()
	w.draft.Title = title
	w.mu.Unlock()
}

// SetConfig replaces the refinement labels.
func (w *Workspace) SetConfig(c PromptConfig) {
	w.mu.Lock()
	w.draft.Config = c
	w.mu.Unlock()
}

// Prefill sets the prompt from a deep link.
func (w *Workspace) Prefill(link string) error {
	p, err := ParsePromptLink(link)
	if err != nil {
		return err
	}
	w.SetPrompt(p)
	return nil
}

// ApplyProfileDefaults fills empty labels from the profile's workspace
// defaults.
func (w *Workspace) ApplyProfileDefaults(p *domain.Profile) {
	if p == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	c := &w.draft.Config
	c.TargetModel = orValue(c.TargetModel, p.DefaultModel)
	c.Tone = orValue(c.Tone, p.DefaultTone)
	c.Persona = orValue(c.Persona, p.DefaultPersona)
	c.OutputFormat = orValue(c.OutputFormat, p.DefaultFormat)
}

func orValue(cur string, def *string) string {
	if cur != "" || def == nil {
		return cur
	}
	return *def
}

// AddFiles queues files for upload on the next Save. Each file is validated
// on its own; invalid files are reported and skipped while the rest are
// queued. The returned errors name the rejected files.
func (w *Workspace) AddFiles(files ...client.File) []error {
	var rejected []error
	w.mu.Lock()
	for _, f := range files {
		if err := f.Validate(); err != nil {
			rejected = append(rejected, err)
			continue
		}
		w.pending = append(w.pending, f)
	}
	w.mu.Unlock()

	for _, err := range rejected {
		notifyError(w.notify, "File rejected", err)
	}
	return rejected
}

// RemoveFile drops a queued file by name.
func (w *Workspace) RemoveFile(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := slices.IndexFunc(w.pending, func(f client.File) bool { return f.Name == name })
	if i < 0 {
		return false
	}
	w.pending = slices.Delete(w.pending, i, i+1)
	return true
}

// Pending returns the files waiting for upload.
func (w *Workspace) Pending() []client.File {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.pending)
}

// Attachments returns the stored attachments of the saved prompt.
func (w *Workspace) Attachments() []domain.Attachment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.stored)
}

func (w *Workspace) identity() (*session.Identity, bool) {
	if w.src == nil {
		return nil, false
	}
	return w.src.Current()
}

// Refine rewrites the initial prompt with the configured labels and the
// kinds of the attached files.
func (w *Workspace) Refine(ctx context.Context) (string, error) {
	w.mu.Lock()
	if w.refining {
		w.mu.Unlock()
		return "", ErrRefining
	}
	d := w.draft
	types := make([]string, 0, len(w.stored)+len(w.pending))
	for _, a := range w.stored {
		types = append(types, a.FileType)
	}
	for _, f := range w.pending {
		types = append(types, f.Type)
	}
	if strings.TrimSpace(d.InitialPrompt) == "" {
		w.mu.Unlock()
		notifyMessage(w.notify, "Error", "Please enter an initial prompt to refine", refine.ErrEmptyPrompt)
		return "", refine.ErrEmptyPrompt
	}
	w.refining = true
	w.mu.Unlock()

	req := refine.Request{
		Text:            d.InitialPrompt,
		TargetModel:     d.Config.TargetModel,
		Tone:            d.Config.Tone,
		Persona:         d.Config.Persona,
		OutputFormat:    d.Config.OutputFormat,
		AttachmentTypes: types,
	}
	id, signedIn := w.identity()
	if signedIn {
		req.Profession = id.Profession()
	}
	out, err := w.refiner.Refine(ctx, req)

	w.mu.Lock()
	w.refining = false
	if err == nil {
		w.draft.RefinedPrompt = out
	}
	w.mu.Unlock()

	if err != nil {
		notifyError(w.notify, "Refinement failed", err)
		return "", err
	}
	if signedIn {
		_ = w.api.LogUserAction(ctx, id.UserID(), domain.PromptRefined{
			PromptID:    d.PromptID,
			TargetModel: req.WithDefaults().TargetModel,
			Attachments: len(types),
		})
	}
	msg := "Your prompt has been enhanced!"
	if n := len(types); n > 0 {
		msg = fmt.Sprintf("Your prompt has been enhanced with %d attachment(s) considered!", n)
	}
	notifyInfo(w.notify, "Prompt Refined", msg)
	return out, nil
}

// Save stores the draft as a saved prompt (creating it on first save) and
// uploads the queued files. The prompt is returned whenever it was stored;
// the error then joins any per-file upload failures, and failed files stay
// queued for the next Save.
func (w *Workspace) Save(ctx context.Context) (*domain.Prompt, error) {
	id, ok := w.identity()
	if !ok {
		return nil, session.ErrNoAuthenticatedUser
	}
	d := w.Draft()
	if strings.TrimSpace(d.InitialPrompt) == "" {
		return nil, refine.ErrEmptyPrompt
	}

	p, err := w.savePrompt(ctx, d)
	if err != nil {
		notifyError(w.notify, "Failed to save prompt", err)
		return nil, err
	}
	w.mu.Lock()
	w.draft.PromptID = p.ID
	w.mu.Unlock()
	_ = w.api.LogUserAction(ctx, id.UserID(), domain.PromptSaved{PromptID: p.ID})

	uploadErr := w.uploadPending(ctx, p.ID, id.UserID())
	notifyInfo(w.notify, "Saved", "Prompt saved to your history")
	return p, uploadErr
}

func (w *Workspace) savePrompt(ctx context.Context, d Draft) (*domain.Prompt, error) {
	c := d.Config
	if d.PromptID == "" {
		return w.api.CreatePrompt(ctx, domain.NewPrompt{
			Title:         optional(d.Title),
			InitialPrompt: d.InitialPrompt,
			RefinedPrompt: optional(d.RefinedPrompt),
			TargetModel:   optional(c.TargetModel),
			Tone:          optional(c.Tone),
			Persona:       optional(c.Persona),
			OutputFormat:  optional(c.OutputFormat),
			IsSaved:       true,
		})
	}
	saved := true
	return w.api.UpdatePrompt(ctx, d.PromptID, domain.PromptPatch{
		Title:         optional(d.Title),
		InitialPrompt: &d.InitialPrompt,
		RefinedPrompt: optional(d.RefinedPrompt),
		TargetModel:   optional(c.TargetModel),
		Tone:          optional(c.Tone),
		Persona:       optional(c.Persona),
		OutputFormat:  optional(c.OutputFormat),
		IsSaved:       &saved,
	})
}

func (w *Workspace) uploadPending(ctx context.Context, promptID, ownerID string) error {
	w.mu.Lock()
	queue := w.pending
	w.pending = nil
	w.mu.Unlock()

	var errs []error
	var failed []client.File
	for _, f := range queue {
		a, err := w.api.CreateAttachment(ctx, promptID, f, ownerID)
		if err != nil {
			err = fmt.Errorf("%s: %w", f.Name, err)
			notifyError(w.notify, "Upload failed", err)
			errs = append(errs, err)
			if sk, ok := f.Body.(io.Seeker); ok {
				_, _ = sk.Seek(0, io.SeekStart)
			}
			failed = append(failed, f)
			continue
		}
		w.mu.Lock()
		w.stored = append(w.stored, *a)
		w.mu.Unlock()
		_ = w.api.LogUserAction(ctx, ownerID, domain.AttachmentUploaded{PromptID: promptID, FileType: a.FileType, FileSize: a.FileSize})
	}

	if len(failed) > 0 {
		w.mu.Lock()
		w.pending = append(failed, w.pending...)
		w.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Open loads a stored prompt and its attachments into the workspace.
func (w *Workspace) Open(ctx context.Context, promptID string) error {
	p, err := w.api.GetPrompt(ctx, promptID)
	if err != nil {
		notifyError(w.notify, "Failed to open prompt", err)
		return err
	}
	atts, err := w.api.ListAttachments(ctx, promptID)
	if err != nil {
		notifyError(w.notify, "Failed to load attachments", err)
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = Draft{
		PromptID:      p.ID,
		Title:         deref(p.Title),
		InitialPrompt: p.InitialPrompt,
		RefinedPrompt: deref(p.RefinedPrompt),
		Config: PromptConfig{
			TargetModel:  deref(p.TargetModel),
			Tone:         deref(p.Tone),
			Persona:      deref(p.Persona),
			OutputFormat: deref(p.OutputFormat),
		},
	}
	w.stored = atts
	w.pending = nil
	w.chatSession, w.chat = "", nil
	return nil
}

// RemoveAttachment deletes a stored attachment.
func (w *Workspace) RemoveAttachment(ctx context.Context, id string) error {
	w.mu.Lock()
	i := slices.IndexFunc(w.stored, func(a domain.Attachment) bool { return a.ID == id })
	if i < 0 {
		w.mu.Unlock()
		return client.ErrNotFound
	}
	removed := w.stored[i]
	w.stored = slices.Delete(w.stored, i, i+1)
	w.mu.Unlock()

	undo := func() {
		w.mu.Lock()
		w.stored = slices.Insert(w.stored, min(i, len(w.stored)), removed)
		w.mu.Unlock()
	}
	err := twoPhase(undo, func() (struct{}, error) { return struct{}{}, w.api.DeleteAttachment(ctx, id) }, nil)
	if err != nil {
		notifyError(w.notify, "Failed to remove attachment", err)
	}
	return err
}

// Chat returns the refinement conversation, oldest first.
func (w *Workspace) Chat() []domain.ChatMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.chat)
}

// SendChat appends text to the refinement chat and returns the assistant's
// reply. Messages of a saved prompt are persisted; each append is shown at
// once and withdrawn if storing it fails.
func (w *Workspace) SendChat(ctx context.Context, text string) (domain.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatMessage{}, refine.ErrEmptyPrompt
	}
	history := w.Chat()

	if _, err := w.appendChat(ctx, domain.RoleUser, text); err != nil {
		notifyError(w.notify, "Message not sent", err)
		return domain.ChatMessage{}, err
	}
	reply, err := w.refiner.Reply(ctx, history, text)
	if err != nil {
		notifyError(w.notify, "No reply", err)
		return domain.ChatMessage{}, err
	}
	msg, err := w.appendChat(ctx, domain.RoleAssistant, reply)
	if err != nil {
		notifyError(w.notify, "Reply not stored", err)
		return domain.ChatMessage{}, err
	}
	return msg, nil
}

func (w *Workspace) appendChat(ctx context.Context, role, content string) (domain.ChatMessage, error) {
	w.mu.Lock()
	w.localSeq++
	local := domain.ChatMessage{ID: fmt.Sprintf("local-%d", w.localSeq), Role: role, Content: content}
	w.chat = append(w.chat, local)
	promptID := w.draft.PromptID
	w.mu.Unlock()

	if promptID == "" {
		return local, nil
	}

	var stored domain.ChatMessage
	undo := func() {
		w.mu.Lock()
		w.chat = slices.DeleteFunc(w.chat, func(m domain.ChatMessage) bool { return m.ID == local.ID })
		w.mu.Unlock()
	}
	err := twoPhase(undo,
		func() (*domain.ChatMessage, error) {
			sid, err := w.ensureChatSession(ctx, promptID)
			if err != nil {
				return nil, err
			}
			return w.api.AddChatMessage(ctx, sid, role, content)
		},
		func(m *domain.ChatMessage) {
			stored = *m
			w.mu.Lock()
			if i := slices.IndexFunc(w.chat, func(c domain.ChatMessage) bool { return c.ID == local.ID }); i >= 0 {
				w.chat[i] = *m
			}
			w.mu.Unlock()
		},
	)
	return stored, err
}

func (w *Workspace) ensureChatSession(ctx context.Context, promptID string) (string, error) {
	w.mu.Lock()
	sid := w.chatSession
	w.mu.Unlock()
	if sid != "" {
		return sid, nil
	}
	s, err := w.api.CreateChatSession(ctx, promptID)
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	if w.chatSession == "" {
		w.chatSession = s.ID
	}
	sid = w.chatSession
	w.mu.Unlock()
	return sid, nil
}

// Rate submits feedback for the saved prompt.
func (w *Workspace) Rate(ctx context.Context, fb domain.NewFeedback) error {
	promptID := w.Draft().PromptID
	if promptID == "" {
		return ErrNotSaved
	}
	if _, err := w.api.SubmitFeedback(ctx, promptID, fb); err != nil {
		notifyError(w.notify, "Feedback not sent", err)
		return err
	}
	notifyInfo(w.notify, "Thanks", "Feedback recorded")
	return nil
}

// CopyText returns the refined prompt, or the initial prompt before
// refinement, for the clipboard.
func (w *Workspace) CopyText(ctx context.Context) (string, error) {
	d := w.Draft()
	text, refined := d.RefinedPrompt, true
	if strings.TrimSpace(text) == "" {
		text, refined = d.InitialPrompt, false
	}
	if strings.TrimSpace(text) == "" {
		return "", refine.ErrEmptyPrompt
	}
	if id, ok := w.identity(); ok {
		_ = w.api.LogUserAction(ctx, id.UserID(), domain.PromptCopied{PromptID: d.PromptID, Refined: refined})
	}
	return text, nil
}

// Reset clears the workspace for a new prompt.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft = Draft{}
	w.pending, w.stored = nil, nil
	w.chatSession, w.chat = "", nil
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
