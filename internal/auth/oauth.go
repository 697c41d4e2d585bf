package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var (
	// ErrUnknownProvider is returned for providers that are not configured.
	ErrUnknownProvider = errors.New("unknown oauth provider")
	// ErrInvalidState is returned when the callback state does not verify.
	ErrInvalidState = errors.New("invalid oauth state")
)

// stateTTL bounds how long a user may take at the provider's consent page.
const stateTTL = 10 * time.Minute

// Provider describes one OAuth identity provider.
type Provider struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// ProviderUser is the subset of the provider's userinfo document we use.
type ProviderUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type oauthState struct {
	Provider   string `json:"prv"`
	RedirectTo string `json:"rdr"`
	Verifier   string `json:"vfr"`
	jwt.RegisteredClaims
}

// OAuth runs authorization-code flows. The state parameter is a short-lived
// signed token carrying the redirect target and PKCE verifier, so no server
// side storage is needed between the redirect and the callback.
type OAuth struct {
	secret    []byte
	providers map[string]*oauth2.Config
	userInfo  map[string]string
	client    *http.Client
}

// NewOAuth configures providers whose callbacks land on callbackBase +
// "/<provider>/callback".
func NewOAuth(secret, callbackBase string, providers []Provider) *OAuth {
	o := &OAuth{
		secret:    []byte(secret),
		providers: make(map[string]*oauth2.Config, len(providers)),
		userInfo:  make(map[string]string, len(providers)),
		client:    &http.Client{Timeout: 15 * time.Second},
	}
	base := strings.TrimRight(callbackBase, "/")
	for _, p := range providers {
		name := strings.ToLower(p.Name)
		o.providers[name] = &oauth2.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  base + "/" + name + "/callback",
			Scopes:       p.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  p.AuthURL,
				TokenURL: p.TokenURL,
			},
		}
		o.userInfo[name] = p.UserInfoURL
	}
	return o
}

// Has reports whether provider is configured.
func (o *OAuth) Has(provider string) bool {
	_, ok := o.providers[strings.ToLower(provider)]
	return ok
}

// AuthCodeURL returns the provider consent URL. After the callback the
// caller is sent on to redirectTo.
func (o *OAuth) AuthCodeURL(provider, redirectTo string) (string, error) {
	name := strings.ToLower(provider)
	cfg, ok := o.providers[name]
	if !ok {
		return "", ErrUnknownProvider
	}
	verifier := oauth2.GenerateVerifier()
	now := time.Now()
	st := oauthState{
		Provider:   name,
		RedirectTo: redirectTo,
		Verifier:   verifier,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, st).SignedString(o.secret)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier)), nil
}

// Exchange completes the flow: it verifies state, trades code for a token
// and fetches the provider's userinfo document. It returns the user and the
// redirect target recorded in state.
func (o *OAuth) Exchange(ctx context.Context, provider, code, state string) (ProviderUser, string, error) {
	name := strings.ToLower(provider)
	cfg, ok := o.providers[name]
	if !ok {
		return ProviderUser{}, "", ErrUnknownProvider
	}
	st := &oauthState{}
	_, err := jwt.ParseWithClaims(state, st, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return o.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || st.Provider != name {
		return ProviderUser{}, "", ErrInvalidState
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(st.Verifier))
	if err != nil {
		return ProviderUser{}, "", fmt.Errorf("token exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.userInfo[name], nil)
	if err != nil {
		return ProviderUser{}, "", err
	}
	resp, err := cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return ProviderUser{}, "", fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ProviderUser{}, "", fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}
	var u ProviderUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return ProviderUser{}, "", fmt.Errorf("userinfo: %w", err)
	}
	if strings.TrimSpace(u.Email) == "" {
		return ProviderUser{}, "", errors.New("userinfo: provider returned no email")
	}
	return u, st.RedirectTo, nil
}
