package domain

import (
	"errors"
	"strings"
)

// EventKind is the action_type recorded with an analytics event.
type EventKind string

// Known analytics event kinds.
const (
	KindPromptRefined      EventKind = "prompt_refined"
	KindPromptSaved        EventKind = "prompt_saved"
	KindTemplateUsed       EventKind = "template_used"
	KindAttachmentUploaded EventKind = "attachment_uploaded"
	KindPromptCopied       EventKind = "prompt_copied"
)

// ErrEmptyActionType is returned when an event carries no action type.
var ErrEmptyActionType = errors.New("analytics event has empty action type")

// Event is a typed analytics payload. The known kinds below carry fixed
// fields; Custom covers anything else with an open map.
type Event interface {
	Kind() EventKind
	Metadata() map[string]any
}

// PromptRefined is logged after a refinement produced output.
type PromptRefined struct {
	PromptID    string
	TargetModel string
	Attachments int
}

func (PromptRefined) Kind() EventKind { return KindPromptRefined }

func (e PromptRefined) Metadata() map[string]any {
	m := map[string]any{"attachments": e.Attachments}
	putNonEmpty(m, "prompt_id", e.PromptID)
	putNonEmpty(m, "target_model", e.TargetModel)
	return m
}

// PromptSaved is logged when a prompt is persisted or flagged saved.
type PromptSaved struct {
	PromptID string
}

func (PromptSaved) Kind() EventKind { return KindPromptSaved }

func (e PromptSaved) Metadata() map[string]any {
	return map[string]any{"prompt_id": e.PromptID}
}

// TemplateUsed is logged when a template is copied or applied.
type TemplateUsed struct {
	TemplateID string
	Category   string
}

func (TemplateUsed) Kind() EventKind { return KindTemplateUsed }

func (e TemplateUsed) Metadata() map[string]any {
	m := map[string]any{"template_id": e.TemplateID}
	putNonEmpty(m, "category", e.Category)
	return m
}

// AttachmentUploaded is logged once per stored attachment.
type AttachmentUploaded struct {
	PromptID string
	FileType string
	FileSize int64
}

func (AttachmentUploaded) Kind() EventKind { return KindAttachmentUploaded }

func (e AttachmentUploaded) Metadata() map[string]any {
	return map[string]any{
		"prompt_id": e.PromptID,
		"file_type": e.FileType,
		"file_size": e.FileSize,
	}
}

// PromptCopied is logged when prompt text is copied out of the app.
type PromptCopied struct {
	PromptID string
	Refined  bool
}

func (PromptCopied) Kind() EventKind { return KindPromptCopied }

func (e PromptCopied) Metadata() map[string]any {
	return map[string]any{"prompt_id": e.PromptID, "refined": e.Refined}
}

// Custom is the open kind: any action type with free-form metadata.
type Custom struct {
	Action string
	Data   map[string]any
}

func (e Custom) Kind() EventKind { return EventKind(strings.TrimSpace(e.Action)) }

func (e Custom) Metadata() map[string]any {
	if e.Data == nil {
		return map[string]any{}
	}
	return e.Data
}

// NewAnalyticsEvent converts a typed event into its stored form.
func NewAnalyticsEvent(userID string, ev Event) (AnalyticsEvent, error) {
	if ev == nil || ev.Kind() == "" {
		return AnalyticsEvent{}, ErrEmptyActionType
	}
	return AnalyticsEvent{
		UserID:     userID,
		ActionType: string(ev.Kind()),
		Metadata:   ev.Metadata(),
	}, nil
}

func putNonEmpty(m map[string]any, k, v string) {
	if v != "" {
		m[k] = v
	}
}
