package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-prompt-studio/internal/auth"
	"github.com/tbourn/go-prompt-studio/internal/repo"
)

const testSecret = "0123456789abcdef-secret"

func newAuthService(t *testing.T, requireVerification bool, log zerolog.Logger) *AuthService {
	t.Helper()
	return &AuthService{
		DB:                  newTestDB(t),
		Issuer:              auth.NewIssuer(testSecret, time.Hour),
		RequireVerification: requireVerification,
		SiteURL:             "http://localhost:8080",
		Log:                 log,
	}
}

func TestAuthService_SignUpVerifySignIn(t *testing.T) {
	var logs bytes.Buffer
	svc := newAuthService(t, true, zerolog.New(&logs))
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "not-an-email", "secret1", "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad email: want ErrValidation, got %v", err)
	}
	if _, err := svc.SignUp(ctx, "ada@example.com", "123", "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("weak password: want ErrValidation, got %v", err)
	}

	res, err := svc.SignUp(ctx, "Ada@Example.com", "secret1", "Ada", "studio://verified")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if !res.VerificationRequired || res.Session != nil || res.User.EmailVerified {
		t.Fatalf("sign-up must not sign in before verification: %+v", res)
	}
	if _, err := svc.SignUp(ctx, "ada@example.com", "secret2", "", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate: want ErrEmailTaken, got %v", err)
	}

	prof, err := repo.GetProfile(ctx, svc.DB, res.User.ID)
	if err != nil || prof.DisplayName == nil || *prof.DisplayName != "Ada" {
		t.Fatalf("profile not seeded: %+v, %v", prof, err)
	}

	if _, err := svc.SignIn(ctx, "ada@example.com", "secret1"); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("unverified sign-in: want ErrEmailNotVerified, got %v", err)
	}

	var entry struct {
		Token      string `json:"verify_token"`
		RedirectTo string `json:"redirect_to"`
	}
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil || entry.Token == "" {
		t.Fatalf("verification token not logged: %q (%v)", logs.String(), err)
	}
	if entry.RedirectTo != "studio://verified" {
		t.Fatalf("redirect_to = %q", entry.RedirectTo)
	}

	sess, err := svc.Verify(ctx, entry.Token)
	if err != nil || sess.AccessToken == "" || !sess.User.EmailVerified {
		t.Fatalf("Verify: %+v, %v", sess, err)
	}
	if _, err := svc.Verify(ctx, entry.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("token reuse: want ErrNotFound, got %v", err)
	}

	if _, err := svc.SignIn(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignIn(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignIn(ctx, " ADA@example.com ", "secret1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
}

func TestAuthService_AuthenticateAndSignOut(t *testing.T) {
	svc := newAuthService(t, false, zerolog.Nop())
	ctx := context.Background()

	res, err := svc.SignUp(ctx, "bob@example.com", "secret1", "", "")
	if err != nil || res.Session == nil {
		t.Fatalf("SignUp without verification should sign in: %+v, %v", res, err)
	}
	p, err := svc.Authenticate(ctx, res.Session.AccessToken)
	if err != nil || p.UserID != res.User.ID || p.LeaseID == "" {
		t.Fatalf("Authenticate: %+v, %v", p, err)
	}
	me, err := svc.Me(ctx, p.UserID)
	if err != nil || me.Email != "bob@example.com" {
		t.Fatalf("Me: %+v, %v", me, err)
	}

	if err := svc.SignOut(ctx, p); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := svc.Authenticate(ctx, res.Session.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("revoked lease: want ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "garbage"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("garbage token: want ErrUnauthenticated, got %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	again, err := svc.SignIn(ctx, "bob@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if _, err := svc.Authenticate(ctx, again.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("lease past expiry: want ErrUnauthenticated, got %v", err)
	}
}

func TestAuthService_OAuth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "token_type": "Bearer", "expires_in": 60})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"email": "grace@example.com", "name": "Grace"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := newAuthService(t, true, zerolog.Nop())
	svc.OAuth = auth.NewOAuth(testSecret, "http://localhost:8080/api/v1/auth/oauth", []auth.Provider{{
		Name: "acme", ClientID: "cid", AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token", UserInfoURL: srv.URL + "/userinfo",
	}})
	ctx := context.Background()

	if _, err := svc.OAuthURL("github", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown provider: want ErrValidation, got %v", err)
	}
	raw, err := svc.OAuthURL("acme", "")
	if err != nil {
		t.Fatalf("OAuthURL: %v", err)
	}
	u, _ := url.Parse(raw)
	state := u.Query().Get("state")

	if _, _, err := svc.OAuthCallback(ctx, "acme", "code", "forged"); !errors.Is(err, ErrValidation) {
		t.Fatalf("forged state: want ErrValidation, got %v", err)
	}
	sess, redirect, err := svc.OAuthCallback(ctx, "acme", "code", state)
	if err != nil {
		t.Fatalf("OAuthCallback: %v", err)
	}
	if redirect != svc.SiteURL || sess.User.Provider != "acme" || !sess.User.EmailVerified {
		t.Fatalf("unexpected callback result: %+v %q", sess.User, redirect)
	}
	// Second sign-in reuses the account.
	again, _, err := svc.OAuthCallback(ctx, "acme", "code", state)
	if err != nil || again.User.ID != sess.User.ID {
		t.Fatalf("repeat sign-in should reuse account: %+v, %v", again, err)
	}
}
