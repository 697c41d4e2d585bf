package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// Session is a credential lease returned by sign-in.
type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user,omitempty"`
}

// Expired reports whether the lease has run out at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SignUpResult is the raw outcome of a sign-up. Session is nil while email
// verification is pending.
type SignUpResult struct {
	User                 *domain.User `json:"user"`
	VerificationRequired bool         `json:"verification_required"`
	Session              *Session     `json:"session,omitempty"`
}

type signUpBody struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
	RedirectTo  string `json:"redirect_to,omitempty"`
}

// SignUp registers a password account.
func (c *Client) SignUp(ctx context.Context, email, password, displayName, redirectTo string) (*SignUpResult, error) {
	const op = "sign up"
	if strings.TrimSpace(email) == "" {
		return nil, invalidArg(op, "email")
	}
	if password == "" {
		return nil, invalidArg(op, "password")
	}
	return send[*SignUpResult](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(signUpBody{Email: email, Password: password, DisplayName: displayName, RedirectTo: redirectTo}).
			Post("/auth/signup")
	})
}

// VerifyEmail confirms a sign-up with the emailed token and returns a lease.
func (c *Client) VerifyEmail(ctx context.Context, token string) (*Session, error) {
	const op = "verify email"
	if strings.TrimSpace(token) == "" {
		return nil, invalidArg(op, "token")
	}
	return send[*Session](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(map[string]string{"token": token}).Post("/auth/verify")
	})
}

// SignIn exchanges email and password for a lease.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	const op = "sign in"
	if strings.TrimSpace(email) == "" {
		return nil, invalidArg(op, "email")
	}
	if password == "" {
		return nil, invalidArg(op, "password")
	}
	return send[*Session](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(map[string]string{"email": email, "password": password}).Post("/auth/signin")
	})
}

// OAuthURL returns the provider consent URL. After consent the server
// redirects to redirectTo with the lease in the URL fragment.
func (c *Client) OAuthURL(ctx context.Context, provider, redirectTo string) (string, error) {
	const op = "oauth start"
	if strings.TrimSpace(provider) == "" {
		return "", invalidArg(op, "provider")
	}
	res, err := send[struct {
		URL string `json:"url"`
	}](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		if redirectTo != "" {
			r.SetQueryParam("redirect_to", redirectTo)
		}
		return r.SetPathParam("provider", provider).Get("/auth/oauth/{provider}")
	})
	return res.URL, err
}

// SignOut revokes the lease identified by token.
func (c *Client) SignOut(ctx context.Context, token string) error {
	const op = "sign out"
	if token == "" {
		return invalidArg(op, "token")
	}
	return sendNoContent(ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetAuthToken(token).Post("/auth/signout")
	})
}

// Me returns the account behind token.
func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	const op = "me"
	if token == "" {
		return nil, invalidArg(op, "token")
	}
	return send[*domain.User](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetAuthToken(token).Get("/auth/me")
	})
}

// ParseOAuthRedirect extracts the lease from the URL the OAuth callback
// redirected to (access_token, token_type and expires_at in the fragment).
func ParseOAuthRedirect(raw string) (*Session, error) {
	const op = "oauth redirect"
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &APIError{Op: op, Kind: ErrValidationFailed, Message: "malformed redirect URL", Cause: err}
	}
	vals, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return nil, &APIError{Op: op, Kind: ErrValidationFailed, Message: "malformed fragment", Cause: err}
	}
	tok := vals.Get("access_token")
	if tok == "" {
		return nil, invalidArg(op, "access_token")
	}
	s := &Session{AccessToken: tok, TokenType: vals.Get("token_type")}
	if s.TokenType == "" {
		s.TokenType = "Bearer"
	}
	if exp, err := strconv.ParseInt(vals.Get("expires_at"), 10, 64); err == nil {
		s.ExpiresAt = time.Unix(exp, 0).UTC()
	}
	return s, nil
}
