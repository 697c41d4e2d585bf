package viewmodel

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-prompt-studio/internal/client"
)

// Level is a notice's severity.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notice is a dismissible user-facing message.
type Notice struct {
	Level   Level
	Title   string
	Message string
	Err     error
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to a zerolog logger.
type LogNotifier struct {
	Log zerolog.Logger
}

func (l LogNotifier) Notify(n Notice) {
	ev := l.Log.Info()
	if n.Level == LevelError {
		ev = l.Log.Warn().Err(n.Err)
	}
	ev.Str("title", n.Title).Msg(n.Message)
}

// Recorder keeps every notice; useful for tests and batch reports.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

func notifyInfo(n Notifier, title, msg string) {
	if n != nil {
		n.Notify(Notice{Level: LevelInfo, Title: title, Message: msg})
	}
}

func notifyError(n Notifier, title string, err error) {
	if n != nil && err != nil {
		n.Notify(Notice{Level: LevelError, Title: title, Message: describe(err), Err: err})
	}
}

func notifyMessage(n Notifier, title, msg string, err error) {
	if n != nil {
		n.Notify(Notice{Level: LevelError, Title: title, Message: msg, Err: err})
	}
}

// describe turns a classified error into a short user message.
func describe(err error) string {
	switch {
	case errors.Is(err, client.ErrPermissionDenied):
		return "You don't have permission to do that. Try signing in again."
	case errors.Is(err, client.ErrNotFound):
		return "That item no longer exists."
	case errors.Is(err, client.ErrValidationFailed):
		if msg := messageOf(err); msg != "" {
			return msg
		}
		return "Some of the values are invalid."
	case errors.Is(err, client.ErrRemoteUnavailable):
		return "The service is unavailable. Please try again."
	default:
		return err.Error()
	}
}

func messageOf(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
