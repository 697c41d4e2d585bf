package viewmodel

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/tbourn/go-prompt-studio/internal/client"
	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/session"
)

// Accepted appearance values.
var (
	Themes    = []string{"light", "dark", "system"}
	FontSizes = []string{"small", "medium", "large"}
)

// Notification toggle keys, matching the stored column names.
const (
	EmailGeneral   = "email_general"
	EmailSecurity  = "email_security"
	EmailMarketing = "email_marketing"
	PushPrompts    = "push_prompts"
	PushUsage      = "push_usage"
	PushFeatures   = "push_features"
)

// NotificationKeys lists every toggle key in display order.
var NotificationKeys = []string{EmailGeneral, EmailSecurity, EmailMarketing, PushPrompts, PushUsage, PushFeatures}

// ProfileStore is the session store as seen by the settings screen.
type ProfileStore interface {
	Current() (*session.Identity, bool)
	UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.Profile, error)
}

// NotificationAPI reads and writes notification toggles.
type NotificationAPI interface {
	GetNotificationSettings(ctx context.Context) (domain.NotificationSettings, error)
	UpdateNotificationSettings(ctx context.Context, s domain.NotificationSettings) (domain.NotificationSettings, error)
}

// Settings backs the account, appearance, workspace-defaults and
// notification screens.
type Settings struct {
	store  ProfileStore
	api    NotificationAPI
	notify Notifier

	mu            sync.Mutex
	profile       domain.Profile
	notifications domain.NotificationSettings
	loaded        bool
}

// NewSettings returns unloaded settings.
func NewSettings(store ProfileStore, api NotificationAPI, notify Notifier) *Settings {
	return &Settings{store: store, api: api, notify: notify}
}

// Load reads the profile from the session and the notification toggles
// from the server.
func (s *Settings) Load(ctx context.Context) error {
	id, ok := s.store.Current()
	if !ok {
		return session.ErrNoAuthenticatedUser
	}
	n, err := s.api.GetNotificationSettings(ctx)
	if err != nil {
		notifyError(s.notify, "Failed to load settings", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = domain.Profile{UserID: id.UserID()}
	if id.Profile != nil {
		s.profile = *id.Profile
	}
	s.notifications = n
	s.loaded = true
	return nil
}

// Profile returns the displayed profile.
func (s *Settings) Profile() domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Notifications returns the displayed toggles.
func (s *Settings) Notifications() domain.NotificationSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifications
}

// UpdateProfile applies patch locally, saves it through the session store
// and reverts the local change if saving fails.
func (s *Settings) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) error {
	if err := validateAppearance(patch); err != nil {
		return err
	}
	s.mu.Lock()
	before := s.profile
	patch.Apply(&s.profile)
	s.mu.Unlock()

	undo := func() {
		s.mu.Lock()
		s.profile = before
		s.mu.Unlock()
	}
	err := twoPhase(undo,
		func() (*domain.Profile, error) { return s.store.UpdateProfile(ctx, patch) },
		func(p *domain.Profile) {
			s.mu.Lock()
			s.profile = *p
			s.mu.Unlock()
		},
	)
	if err != nil {
		notifyError(s.notify, "Failed to update profile", err)
		return err
	}
	notifyInfo(s.notify, "Saved", "Profile updated")
	return nil
}

func validateAppearance(p domain.ProfilePatch) error {
	if p.Theme != nil && !slices.Contains(Themes, *p.Theme) {
		return &client.APIError{Op: "update profile", Kind: client.ErrValidationFailed, Message: fmt.Sprintf("theme must be one of %v", Themes)}
	}
	if p.FontSize != nil && !slices.Contains(FontSizes, *p.FontSize) {
		return &client.APIError{Op: "update profile", Kind: client.ErrValidationFailed, Message: fmt.Sprintf("font size must be one of %v", FontSizes)}
	}
	return nil
}

// SetNotification switches one toggle. The change shows immediately and is
// reverted when the server rejects it.
func (s *Settings) SetNotification(ctx context.Context, key string, on bool) error {
	s.mu.Lock()
	before := s.notifications
	next := before
	field := toggleField(&next, key)
	if field == nil {
		s.mu.Unlock()
		return &client.APIError{Op: "update notifications", Kind: client.ErrValidationFailed, Message: "unknown notification " + key}
	}
	*field = on
	s.notifications = next
	s.mu.Unlock()

	undo := func() {
		s.mu.Lock()
		s.notifications = before
		s.mu.Unlock()
	}
	err := twoPhase(undo,
		func() (domain.NotificationSettings, error) { return s.api.UpdateNotificationSettings(ctx, next) },
		func(n domain.NotificationSettings) {
			s.mu.Lock()
			s.notifications = n
			s.mu.Unlock()
		},
	)
	if err != nil {
		notifyError(s.notify, "Failed to update notifications", err)
	}
	return err
}

// Toggle reports the value of one toggle key.
func Toggle(n domain.NotificationSettings, key string) (bool, bool) {
	f := toggleField(&n, key)
	if f == nil {
		return false, false
	}
	return *f, true
}

func toggleField(n *domain.NotificationSettings, key string) *bool {
	switch key {
	case EmailGeneral:
		return &n.EmailGeneral
	case EmailSecurity:
		return &n.EmailSecurity
	case EmailMarketing:
		return &n.EmailMarketing
	case PushPrompts:
		return &n.PushPrompts
	case PushUsage:
		return &n.PushUsage
	case PushFeatures:
		return &n.PushFeatures
	}
	return nil
}
