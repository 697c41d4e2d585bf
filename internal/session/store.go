// Package session holds the process-wide authentication state: who is signed
// in, their profile, and the credential lease used by the data access layer.
//
// A Store is created once per process with New, started with Start, and torn
// down with Close. Listeners registered with Subscribe are called on a single
// dispatch goroutine; several changes made before a dispatch collapse into one
// delivery of the newest snapshot.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-prompt-studio/internal/client"
	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// DefaultInitTimeout bounds how long the store stays Unknown after Start.
const DefaultInitTimeout = time.Second

var (
	// ErrNoAuthenticatedUser is returned by operations that need a signed-in
	// user when there is none. No remote call is made.
	ErrNoAuthenticatedUser = errors.New("no authenticated user")
	// ErrSuperseded is returned when a sign-in finished after a newer
	// sign-in or sign-out had already replaced the session.
	ErrSuperseded = errors.New("session changed while signing in")
)

// State is the authentication state.
type State int

const (
	// Unknown is the state before the persisted lease has been checked.
	Unknown State = iota
	// Anonymous means nobody is signed in.
	Anonymous
	// Authenticated means Identity is available.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Identity is the signed-in account and its optional profile.
type Identity struct {
	User domain.User
	// Profile is nil when it could not be loaded.
	Profile *domain.Profile
}

// UserID returns the account id.
func (i Identity) UserID() string { return i.User.ID }

// DisplayName prefers the profile's display name and falls back to the email.
func (i Identity) DisplayName() string {
	if i.Profile != nil && i.Profile.DisplayName != nil && strings.TrimSpace(*i.Profile.DisplayName) != "" {
		return *i.Profile.DisplayName
	}
	return i.User.Email
}

// Profession returns the profile's profession or "".
func (i Identity) Profession() string {
	if i.Profile != nil && i.Profile.Profession != nil {
		return *i.Profile.Profession
	}
	return ""
}

// Snapshot is the state delivered to listeners.
type Snapshot struct {
	State    State
	Identity *Identity // nil unless State is Authenticated
	// Version increases with every change.
	Version uint64
}

// AuthAPI is the part of the data access layer the store drives.
type AuthAPI interface {
	SignUp(ctx context.Context, email, password, displayName, redirectTo string) (*client.SignUpResult, error)
	VerifyEmail(ctx context.Context, token string) (*client.Session, error)
	SignIn(ctx context.Context, email, password string) (*client.Session, error)
	OAuthURL(ctx context.Context, provider, redirectTo string) (string, error)
	SignOut(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (*domain.User, error)
	GetProfile(ctx context.Context) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.Profile, error)
	SetTokenSource(ts client.TokenSource)
}

// Options configures a Store.
type Options struct {
	// TokenFile persists the lease between processes; empty disables it.
	TokenFile string
	// InitTimeout forces Unknown to Anonymous when no auth outcome arrives
	// in time after Start. Zero means DefaultInitTimeout.
	InitTimeout time.Duration
	// RedirectURL is where sign-up verification and OAuth land.
	RedirectURL string
	Logger      zerolog.Logger
	Now         func() time.Time
}

type listener struct {
	fn   func(Snapshot)
	seen uint64
}

// Store is the session store. It is safe for concurrent use.
type Store struct {
	api  AuthAPI
	file tokenFile
	opts Options
	log  zerolog.Logger

	mu        sync.Mutex
	state     State
	ident     *Identity
	lease     *client.Session
	version   uint64
	epoch     uint64
	subs      map[uint64]*listener
	nextSub   uint64
	ready     chan struct{}
	readyDone bool
	started   bool
	timer     *time.Timer

	base      context.Context
	cancel    context.CancelFunc
	kick      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a store, registers it as api's token source and starts the
// dispatch goroutine.
func New(api AuthAPI, opts Options) *Store {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = DefaultInitTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	base, cancel := context.WithCancel(context.Background())
	s := &Store{
		api:     api,
		file:    tokenFile{path: opts.TokenFile},
		opts:    opts,
		log:     opts.Logger,
		state:   Unknown,
		version: 1,
		subs:    map[uint64]*listener{},
		ready:   make(chan struct{}),
		base:    base,
		cancel:  cancel,
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	api.SetTokenSource(s)

	s.wg.Add(1)
	go s.dispatch()
	return s
}

// AccessToken implements client.TokenSource.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lease == nil {
		return ""
	}
	return s.lease.AccessToken
}

// Current returns the signed-in identity, if any.
func (s *Store) Current() (*Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Authenticated || s.ident == nil {
		return nil, false
	}
	id := *s.ident
	return &id, true
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, Version: s.version}
	if s.state == Authenticated && s.ident != nil {
		id := *s.ident
		snap.Identity = &id
	}
	return snap
}

// Subscribe registers fn for state changes. fn first receives the current
// snapshot, then every newer one, always on the dispatch goroutine. The
// returned func unregisters fn; a delivery already in flight may still run.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = &listener{fn: fn}
	s.mu.Unlock()
	s.signal()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// WaitReady blocks until the state has left Unknown.
func (s *Store) WaitReady(ctx context.Context) (Snapshot, error) {
	select {
	case <-s.ready:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// Start restores the persisted lease, if any, and arms the fallback timer.
// It returns immediately; the outcome is published to subscribers.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.timer = time.AfterFunc(s.opts.InitTimeout, s.initTimedOut)
	epoch := s.epoch
	s.mu.Unlock()

	lease, err := s.file.load()
	if err != nil {
		s.log.Warn().Err(err).Msg("ignoring unreadable session file")
	}
	if lease == nil || lease.Expired(s.opts.Now()) {
		if lease != nil {
			_ = s.file.clear()
		}
		s.settle(epoch, Anonymous)
		return
	}

	rctx, stop := context.WithCancel(ctx)
	unlink := context.AfterFunc(s.base, stop)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		defer unlink()
		s.restore(rctx, epoch, lease)
	}()
}

func (s *Store) restore(ctx context.Context, epoch uint64, lease *client.Session) {
	user, err := s.api.Me(ctx, lease.AccessToken)
	if err != nil {
		if errors.Is(err, client.ErrPermissionDenied) {
			_ = s.file.clear()
			s.settle(epoch, Anonymous)
			return
		}
		// Leave the file for the next run; the fallback timer settles state.
		s.log.Warn().Err(err).Msg("could not confirm saved session")
		return
	}
	if _, err := s.adopt(ctx, epoch, lease, user); err != nil && !errors.Is(err, ErrSuperseded) {
		s.log.Warn().Err(err).Msg("restore session")
	}
}

// settle moves Unknown to state when no newer change happened.
func (s *Store) settle(epoch uint64, state State) {
	s.mu.Lock()
	if s.epoch != epoch || s.state != Unknown {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.changedLocked()
	s.mu.Unlock()
	s.signal()
}

func (s *Store) initTimedOut() {
	s.mu.Lock()
	if s.state != Unknown {
		s.mu.Unlock()
		return
	}
	s.state = Anonymous
	s.changedLocked()
	s.mu.Unlock()
	s.log.Debug().Dur("after", s.opts.InitTimeout).Msg("session init timed out; continuing signed out")
	s.signal()
}

// SignUp registers an account and returns the raw outcome. The identity is
// not adopted: the account must be confirmed with VerifyEmail first.
func (s *Store) SignUp(ctx context.Context, email, password, displayName string) (*client.SignUpResult, error) {
	return s.api.SignUp(ctx, email, password, displayName, s.opts.RedirectURL)
}

// VerifyEmail confirms a sign-up and signs the account in.
func (s *Store) VerifyEmail(ctx context.Context, token string) (*Identity, error) {
	epoch := s.bump()
	lease, err := s.api.VerifyEmail(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, epoch, lease, lease.User)
}

// SignIn authenticates with email and password.
func (s *Store) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	epoch := s.bump()
	lease, err := s.api.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, epoch, lease, lease.User)
}

// SignInWithOAuth returns the provider URL to open. The flow finishes with
// CompleteOAuth once the browser lands on the redirect URL.
func (s *Store) SignInWithOAuth(ctx context.Context, provider string) (string, error) {
	return s.api.OAuthURL(ctx, provider, s.opts.RedirectURL)
}

// CompleteOAuth adopts the lease carried in the OAuth redirect URL.
func (s *Store) CompleteOAuth(ctx context.Context, redirectURL string) (*Identity, error) {
	lease, err := client.ParseOAuthRedirect(redirectURL)
	if err != nil {
		return nil, err
	}
	return s.AcceptLease(ctx, lease)
}

// AcceptLease adopts a lease obtained out of band.
func (s *Store) AcceptLease(ctx context.Context, lease *client.Session) (*Identity, error) {
	epoch := s.bump()
	return s.adopt(ctx, epoch, lease, lease.User)
}

// SignOut clears the cached identity and the persisted lease, then revokes
// the lease remotely. Local state is cleared even when revocation fails.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	lease := s.lease
	s.epoch++
	s.lease, s.ident, s.state = nil, nil, Anonymous
	s.changedLocked()
	s.mu.Unlock()
	s.signal()

	if err := s.file.clear(); err != nil {
		s.log.Warn().Err(err).Msg("remove session file")
	}
	if lease == nil {
		return nil
	}
	return s.api.SignOut(ctx, lease.AccessToken)
}

// UpdateProfile saves patch and merges the stored profile into the cached
// identity.
func (s *Store) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.Profile, error) {
	s.mu.Lock()
	authed := s.state == Authenticated && s.lease != nil
	epoch := s.epoch
	s.mu.Unlock()
	if !authed {
		return nil, ErrNoAuthenticatedUser
	}

	p, err := s.api.UpdateProfile(ctx, patch)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.epoch == epoch && s.ident != nil {
		prof := *p
		s.ident = &Identity{User: s.ident.User, Profile: &prof}
		s.changedLocked()
	}
	s.mu.Unlock()
	s.signal()
	return p, nil
}

// Close stops the dispatch goroutine and any pending restore. It is safe to
// call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.mu.Unlock()
		s.cancel()
		close(s.done)
		s.wg.Wait()
	})
}

func (s *Store) bump() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	return s.epoch
}

// adopt installs lease, loads the user's profile, and publishes the
// identity. A profile failure degrades to an identity without profile.
func (s *Store) adopt(ctx context.Context, epoch uint64, lease *client.Session, user *domain.User) (*Identity, error) {
	if user == nil {
		u, err := s.api.Me(ctx, lease.AccessToken)
		if err != nil {
			return nil, err
		}
		user = u
	}

	// The profile request authenticates with the new lease, so it is
	// installed now and put back if a newer change wins meanwhile.
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	prev := s.lease
	s.lease = lease
	s.mu.Unlock()

	prof, err := s.api.GetProfile(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("profile unavailable")
		prof = nil
	}

	id := &Identity{User: *user, Profile: prof}
	s.mu.Lock()
	if s.epoch != epoch {
		if s.lease == lease {
			s.lease = prev
		}
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	s.ident, s.state = id, Authenticated
	s.changedLocked()
	s.mu.Unlock()
	s.signal()

	if err := s.file.save(lease); err != nil {
		s.log.Warn().Err(err).Msg("persist session")
	}
	out := *id
	return &out, nil
}

func (s *Store) changedLocked() {
	s.version++
	if s.state != Unknown && !s.readyDone {
		s.readyDone = true
		close(s.ready)
	}
}

func (s *Store) signal() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Store) dispatch() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.kick:
			s.deliver()
		}
	}
}

func (s *Store) deliver() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	var due []func(Snapshot)
	for _, l := range s.subs {
		if l.seen < snap.Version {
			l.seen = snap.Version
			due = append(due, l.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range due {
		fn(snap)
	}
}
