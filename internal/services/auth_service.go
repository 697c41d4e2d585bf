package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/auth"
	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/repo"
)

// Session is a signed-in account with its access token.
type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
}

// SignUpResult reports a new account. Session is nil while verification is
// pending.
type SignUpResult struct {
	User                 *domain.User `json:"user"`
	VerificationRequired bool         `json:"verification_required"`
	Session              *Session     `json:"session,omitempty"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID  string
	LeaseID string
}

// AuthService manages accounts, credential leases and OAuth sign-in.
type AuthService struct {
	DB     *gorm.DB
	Issuer *auth.Issuer
	OAuth  *auth.OAuth

	// RequireVerification keeps new password accounts unverified until the
	// emailed token is confirmed.
	RequireVerification bool
	// SiteURL is the default post-verification and post-OAuth redirect.
	SiteURL string
	// Log receives verification links in place of an outbound mailer.
	Log zerolog.Logger

	now func() time.Time
}

func (s *AuthService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// SignUp registers a password account and seeds its profile with
// displayName. The caller is not signed in unless verification is disabled.
func (s *AuthService) SignUp(ctx context.Context, email, password, displayName, redirectTo string) (*SignUpResult, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "SignUp")
	defer span.End()

	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email", "must be a valid address")
	}
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrWeakPassword) {
		return nil, invalid("password", "must be at least 6 characters")
	}
	if err != nil {
		return nil, err
	}

	u := &domain.User{Email: email, PasswordHash: hash, EmailVerified: !s.RequireVerification}
	var token string
	if s.RequireVerification {
		token = repo.NewVerifyToken()
		u.VerifyToken = &token
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateUser(ctx, tx, u); err != nil {
			return err
		}
		p := &domain.Profile{UserID: u.ID}
		if dn := strings.TrimSpace(displayName); dn != "" {
			p.DisplayName = &dn
		}
		if err := repo.CreateProfile(ctx, tx, p); err != nil {
			return err
		}
		settings := domain.DefaultNotificationSettings(u.ID)
		return repo.SaveNotificationSettings(ctx, tx, &settings)
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", u.ID))

	res := &SignUpResult{User: u, VerificationRequired: s.RequireVerification}
	if s.RequireVerification {
		if redirectTo == "" {
			redirectTo = s.SiteURL
		}
		s.Log.Info().
			Str("user_id", u.ID).
			Str("verify_token", token).
			Str("redirect_to", redirectTo).
			Msg("email verification pending")
		return res, nil
	}
	sess, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	res.Session = sess
	return res, nil
}

// Verify confirms an email with its single-use token and signs the user in.
func (s *AuthService) Verify(ctx context.Context, token string) (*Session, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Verify")
	defer span.End()

	if blank(token) {
		return nil, invalid("token", "is required")
	}
	u, err := repo.VerifyUser(ctx, s.DB, strings.TrimSpace(token))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return s.issue(ctx, u)
}

// SignIn checks a password and issues a lease.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "SignIn")
	defer span.End()

	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if isNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	span.SetAttributes(attribute.String("user.id", u.ID))
	return s.issue(ctx, u)
}

// OAuthURL returns the provider consent URL for provider.
func (s *AuthService) OAuthURL(provider, redirectTo string) (string, error) {
	if s.OAuth == nil || !s.OAuth.Has(provider) {
		return "", invalid("provider", "is not configured")
	}
	if redirectTo == "" {
		redirectTo = s.SiteURL
	}
	return s.OAuth.AuthCodeURL(provider, redirectTo)
}

// OAuthCallback finishes a provider sign-in, creating the account on first
// use, and returns the new session plus the redirect recorded at start.
func (s *AuthService) OAuthCallback(ctx context.Context, provider, code, state string) (*Session, string, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "OAuthCallback", trace.WithAttributes(attribute.String("oauth.provider", provider)))
	defer span.End()

	if s.OAuth == nil || !s.OAuth.Has(provider) {
		return nil, "", invalid("provider", "is not configured")
	}
	pu, redirectTo, err := s.OAuth.Exchange(ctx, provider, code, state)
	if errors.Is(err, auth.ErrInvalidState) {
		return nil, "", invalid("state", "is invalid or expired")
	}
	if err != nil {
		return nil, "", err
	}

	u, err := repo.GetUserByEmail(ctx, s.DB, pu.Email)
	if isNotFound(err) {
		u = &domain.User{Email: pu.Email, Provider: strings.ToLower(provider), EmailVerified: true}
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := repo.CreateUser(ctx, tx, u); err != nil {
				return err
			}
			p := &domain.Profile{UserID: u.ID}
			if n := strings.TrimSpace(pu.Name); n != "" {
				p.DisplayName = &n
			}
			return repo.CreateProfile(ctx, tx, p)
		})
	}
	if err != nil {
		return nil, "", err
	}
	sess, err := s.issue(ctx, u)
	return sess, redirectTo, err
}

// Authenticate resolves a bearer token into a Principal. Tokens whose lease
// was revoked or expired are rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.Issuer.Parse(token)
	if err != nil {
		return Principal{}, ErrUnauthenticated
	}
	if _, err := repo.GetActiveAuthSession(ctx, s.DB, claims.ID, s.clock()); err != nil {
		if isNotFound(err) {
			return Principal{}, ErrUnauthenticated
		}
		return Principal{}, err
	}
	return Principal{UserID: claims.Subject, LeaseID: claims.ID}, nil
}

// SignOut revokes the caller's lease.
func (s *AuthService) SignOut(ctx context.Context, p Principal) error {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "SignOut")
	defer span.End()
	return repo.RevokeAuthSession(ctx, s.DB, p.LeaseID)
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return u, nil
}

func (s *AuthService) issue(ctx context.Context, u *domain.User) (*Session, error) {
	lease, err := s.Issuer.Issue(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	if _, err := repo.CreateAuthSession(ctx, s.DB, lease.ID, u.ID, lease.ExpiresAt); err != nil {
		return nil, err
	}
	return &Session{AccessToken: lease.Token, TokenType: "bearer", ExpiresAt: lease.ExpiresAt, User: u}, nil
}
