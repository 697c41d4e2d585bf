// Package client is the data access layer of Prompt Studio: one stateless
// method per entity operation, each a single request against the studio API.
//
// Methods return (value, error). Expected remote failures are classified
// (see errors.go) and never retried; missing required arguments fail with
// ErrValidationFailed before any request is sent.
package client

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// TokenSource yields the bearer token attached to authenticated calls. An
// empty token sends the request anonymously.
type TokenSource interface {
	AccessToken() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

// AccessToken implements TokenSource.
func (t StaticToken) AccessToken() string { return string(t) }

// Client talks to the studio API.
type Client struct {
	rest   *resty.Client
	tokens atomic.Value // tokenBox
	log    zerolog.Logger
	now    func() time.Time
}

type tokenBox struct{ ts TokenSource }

// Option customizes a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	tokens     TokenSource
	log        zerolog.Logger
	now        func() time.Time
}

// WithHTTPClient replaces the underlying http.Client (tests use this to
// route through httptest servers).
func WithHTTPClient(hc *http.Client) Option { return func(o *options) { o.httpClient = hc } }

// WithTokenSource sets the initial token source.
func WithTokenSource(ts TokenSource) Option { return func(o *options) { o.tokens = ts } }

// WithLogger sets the logger used for debug traces and best-effort cleanup warnings.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.log = l } }

// WithClock overrides the time source used for object keys.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// New builds a Client for cfg.APIURL.
func New(cfg Config, opts ...Option) *Client {
	o := options{log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	var rc *resty.Client
	if o.httpClient != nil {
		rc = resty.NewWithClient(o.httpClient)
	} else {
		rc = resty.New()
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rc.SetBaseURL(cfg.APIURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(0).
		SetLogger(restyLogger{o.log}).
		SetDebug(cfg.Debug)

	c := &Client{rest: rc, log: o.log, now: o.now}
	c.SetTokenSource(o.tokens)
	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if tok := c.token(); tok != "" && r.Token == "" {
			r.SetAuthToken(tok)
		}
		return nil
	})
	return c
}

// SetTokenSource swaps the token source; safe for concurrent use.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens.Store(tokenBox{ts})
}

func (c *Client) token() string {
	box, _ := c.tokens.Load().(tokenBox)
	if box.ts == nil {
		return ""
	}
	return box.ts.AccessToken()
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string { return c.rest.BaseURL }

func (c *Client) req(ctx context.Context) *resty.Request {
	return c.rest.R().SetContext(ctx).SetError(&errorBody{})
}

// send executes one request and decodes a successful JSON body into T.
func send[T any](ctx context.Context, c *Client, op string, do func(*resty.Request) (*resty.Response, error)) (T, error) {
	var out T
	resp, err := do(c.req(ctx).SetResult(&out))
	if err != nil {
		var zero T
		return zero, &APIError{Op: op, Kind: ErrRemoteUnavailable, Cause: err}
	}
	if resp.IsError() {
		var zero T
		return zero, classify(op, resp)
	}
	return out, nil
}

// sendNoContent executes a request whose success carries no body.
func sendNoContent(ctx context.Context, c *Client, op string, do func(*resty.Request) (*resty.Response, error)) error {
	_, err := send[struct{}](ctx, c, op, do)
	return err
}

func classify(op string, resp *resty.Response) error {
	e := &APIError{Op: op, Status: resp.StatusCode(), Kind: kindForStatus(resp.StatusCode())}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		e.Code, e.Message, e.RequestID = body.Code, body.Message, body.RequestID
	}
	if e.RequestID == "" {
		e.RequestID = resp.Header().Get("X-Request-ID")
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode())
	}
	return e
}

// restyLogger routes resty's internal logging into zerolog.
type restyLogger struct{ l zerolog.Logger }

func (r restyLogger) Errorf(format string, v ...any) { r.l.Error().Msg(fmt.Sprintf(format, v...)) }
func (r restyLogger) Warnf(format string, v ...any)  { r.l.Warn().Msg(fmt.Sprintf(format, v...)) }
func (r restyLogger) Debugf(format string, v ...any) { r.l.Debug().Msg(fmt.Sprintf(format, v...)) }
