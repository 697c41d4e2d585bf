package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// fakeAPI records requests and answers with a canned handler.
type fakeAPI struct {
	*httptest.Server
	hits atomic.Int32
	last atomic.Pointer[http.Request]
}

func newFakeAPI(t *testing.T, h http.HandlerFunc) (*fakeAPI, *Client) {
	t.Helper()
	f := &fakeAPI{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.last.Store(r.Clone(context.Background()))
		h(w, r)
	}))
	t.Cleanup(f.Close)
	c := New(Config{APIURL: f.URL + "/api/v1", HTTPTimeout: 2 * time.Second}, WithHTTPClient(f.Client()))
	return f, c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSend_ClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrValidationFailed},
		{http.StatusUnauthorized, ErrPermissionDenied},
		{http.StatusForbidden, ErrPermissionDenied},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrValidationFailed},
		{http.StatusRequestEntityTooLarge, ErrValidationFailed},
		{http.StatusTooManyRequests, ErrRemoteUnavailable},
		{http.StatusInternalServerError, ErrRemoteUnavailable},
		{http.StatusServiceUnavailable, ErrRemoteUnavailable},
	}
	for _, tc := range cases {
		_, c := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, tc.status, errorBody{RequestID: "rid-1", Code: "some_code", Message: "nope"})
		})
		_, err := c.GetPrompt(context.Background(), "p1")
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: err = %v; want %v", tc.status, err, tc.want)
		}
		if StatusOf(err) != tc.status || CodeOf(err) != "some_code" {
			t.Fatalf("status %d: lost details: %v", tc.status, err)
		}
		var ae *APIError
		if !errors.As(err, &ae) || ae.RequestID != "rid-1" || ae.Message != "nope" || ae.Op != "get prompt" {
			t.Fatalf("status %d: unexpected APIError %+v", tc.status, ae)
		}
	}
}

func TestSend_TransportFailureIsRemoteUnavailable(t *testing.T) {
	f, c := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {})
	f.Close()

	_, err := c.GetPromptTemplates(context.Background(), TemplateQuery{})
	if !errors.Is(err, ErrRemoteUnavailable) || StatusOf(err) != 0 {
		t.Fatalf("err = %v", err)
	}
}

func TestSend_ContextCancelKeepsCause(t *testing.T) {
	_, c := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GetProfile(ctx)
	if !errors.Is(err, ErrRemoteUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestValidation_NoRequestSent(t *testing.T) {
	f, c := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["create prompt"] = c.CreatePrompt(ctx, domain.NewPrompt{InitialPrompt: "   "})
	_, checks["list prompts"] = c.GetUserPrompts(ctx, "", PromptQuery{})
	_, checks["get prompt"] = c.GetPrompt(ctx, "")
	_, checks["update prompt"] = c.UpdatePrompt(ctx, " ", domain.PromptPatch{})
	checks["delete prompt"] = c.DeletePrompt(ctx, "")
	_, checks["create template"] = c.CreateTemplate(ctx, domain.NewTemplate{Title: "t", Category: "c"})
	_, checks["use template"] = c.IncrementTemplateUsage(ctx, "")
	_, checks["upload"] = c.UploadFile(ctx, "", File{Name: "a.txt", Body: strings.NewReader("x")}, "")
	_, checks["attach type"] = c.CreateAttachment(ctx, "p1", File{Name: "a.exe", Type: "application/x-msdownload", Size: 1, Body: strings.NewReader("x")}, "u1")
	_, checks["attach size"] = c.CreateAttachment(ctx, "p1", File{Name: "a.txt", Type: "text/plain", Size: domain.MaxFileSize + 1, Body: strings.NewReader("x")}, "u1")
	checks["delete object"] = c.DeleteObject(ctx, "../etc/passwd")
	_, checks["chat role"] = c.AddChatMessage(ctx, "s1", "system", "hi")
	_, checks["chat content"] = c.AddChatMessage(ctx, "s1", domain.RoleUser, " ")
	checks["log action"] = c.LogUserAction(ctx, "u1", domain.Custom{Action: "  "})
	_, checks["stats"] = c.GetUserStats(ctx, "")
	_, checks["sign in"] = c.SignIn(ctx, "a@b.c", "")
	checks["sign out"] = c.SignOut(ctx, "")

	for name, err := range checks {
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("%s: err = %v; want ErrValidationFailed", name, err)
		}
	}
	if n := f.hits.Load(); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestGetUserPrompts_QueryParams(t *testing.T) {
	f, c := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []domain.Prompt{})
	})
	yes, no := true, false

	cases := []struct {
		q    PromptQuery
		want string
	}{
		{PromptQuery{}, ""},
		{PromptQuery{Offset: 20}, "limit=10&offset=20"},
		{PromptQuery{Limit: 5, Saved: &yes}, "limit=5&saved=true"},
		{PromptQuery{Favorited: &no}, "favorited=false"},
	}
	for _, tc := range cases {
		items, err := c.GetUserPrompts(context.Background(), "u1", tc.q)
		if err != nil || items == nil {
			t.Fatalf("%+v: items=%v err=%v", tc.q, items, err)
		}
		if got := f.last.Load().URL.Query().Encode(); got != tc.want {
			t.Fatalf("%+v: query = %q; want %q", tc.q, got, tc.want)
		}
	}
}

func TestTemplateQuery_Params(t *testing.T) {
	got := TemplateQuery{Category: "all", PublicOnly: true, Search: "  mail "}.params()
	if len(got) != 2 || got["public_only"] != "true" || got["search"] != "mail" {
		t.Fatalf("params = %v", got)
	}
	if got := (TemplateQuery{Category: "writing"}).params(); got["category"] != "writing" {
		t.Fatalf("params = %v", got)
	}
}

func TestTokenSource_AttachedAndSwappable(t *testing.T) {
	f, c := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.Profile{})
	})
	ctx := context.Background()

	if _, err := c.GetProfile(ctx); err != nil {
		t.Fatal(err)
	}
	if h := f.last.Load().Header.Get("Authorization"); h != "" {
		t.Fatalf("anonymous call sent %q", h)
	}

	c.SetTokenSource(StaticToken("tok-1"))
	if _, err := c.GetProfile(ctx); err != nil {
		t.Fatal(err)
	}
	if h := f.last.Load().Header.Get("Authorization"); h != "Bearer tok-1" {
		t.Fatalf("Authorization = %q", h)
	}

	// An explicit token wins over the source.
	if _, err := c.Me(ctx, "tok-2"); err != nil {
		t.Fatal(err)
	}
	if h := f.last.Load().Header.Get("Authorization"); h != "Bearer tok-2" {
		t.Fatalf("Authorization = %q", h)
	}
}

func TestCreatePrompt_SendsFreshIdempotencyKey(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	_, c := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		mu.Unlock()
		writeJSON(w, http.StatusCreated, domain.Prompt{ID: "p1", InitialPrompt: "x"})
	})
	for i := 0; i < 2; i++ {
		p, err := c.CreatePrompt(context.Background(), domain.NewPrompt{InitialPrompt: "x"})
		if err != nil || p.ID != "p1" {
			t.Fatalf("create: %v %v", p, err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(keys) != 2 || keys[0] == "" || keys[0] == keys[1] {
		t.Fatalf("keys = %v", keys)
	}
}

func TestCreateAttachment_RecordFailureDeletesUpload(t *testing.T) {
	var deleted atomic.Value
	_, c := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/storage/objects":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("multipart: %v", err)
			}
			key := r.FormValue("path")
			if !strings.HasPrefix(key, "u1/p1/") || !strings.HasSuffix(key, ".txt") {
				t.Errorf("key = %q", key)
			}
			fh := r.MultipartForm.File["file"][0]
			if fh.Header.Get("Content-Type") != "text/plain" {
				t.Errorf("part type = %q", fh.Header.Get("Content-Type"))
			}
			writeJSON(w, http.StatusCreated, StoredObject{Path: key, URL: "http://x/files/attachments/" + key, Type: "text/plain", Size: 5})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/prompts/p1/attachments":
			writeJSON(w, http.StatusInternalServerError, errorBody{Code: "internal_error"})
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/v1/storage/objects/"):
			deleted.Store(strings.TrimPrefix(r.URL.Path, "/api/v1/storage/objects/"))
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	f := File{Name: "notes.txt", Type: "text/plain", Size: 5, Body: strings.NewReader("hello")}
	_, err := c.CreateAttachment(context.Background(), "p1", f, "u1")
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if key, _ := deleted.Load().(string); !strings.HasPrefix(key, "u1/p1/") {
		t.Fatalf("compensating delete not issued, deleted=%q", key)
	}
}

func TestParseOAuthRedirect(t *testing.T) {
	s, err := ParseOAuthRedirect("http://localhost:3000/#access_token=abc&token_type=Bearer&expires_at=1700000000")
	if err != nil {
		t.Fatal(err)
	}
	if s.AccessToken != "abc" || s.TokenType != "Bearer" || s.ExpiresAt.Unix() != 1700000000 {
		t.Fatalf("session = %+v", s)
	}
	if !s.Expired(time.Unix(1700000000, 0)) || s.Expired(time.Unix(1699999999, 0)) {
		t.Fatalf("Expired boundaries wrong")
	}

	if _, err := ParseOAuthRedirect("http://localhost:3000/#token_type=Bearer"); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("missing token err = %v", err)
	}
}

func TestOpenFile_DetectsType(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/data.csv"
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	f, closer, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()
	if f.Name != "data.csv" || f.Size != 8 || f.Type != "text/plain" {
		t.Fatalf("file = %+v", f)
	}
	b, _ := io.ReadAll(f.Body)
	if string(b) != "a,b\n1,2\n" {
		t.Fatalf("body rewound incorrectly: %q", b)
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("csv should validate as text: %v", err)
	}
}
