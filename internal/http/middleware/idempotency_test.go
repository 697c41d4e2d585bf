package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type lookupCall struct {
	user, scope, key string
}

func newIdemEngine(opts IdempotencyOptions, lookup IdempotencyLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(ctxKeyUserID, "u1"); c.Next() })
	r.Use(IdempotencyValidator(opts, lookup))
	h := func(c *gin.Context) {
		key, scope, _ := IdempotencyKey(c)
		id, replay := ReplayOf(c)
		c.JSON(http.StatusOK, gin.H{"key": key, "scope": scope, "replay": replay, "id": id})
	}
	r.POST("/prompts", h)
	r.POST("/templates", h)
	r.GET("/prompts", h)
	return r
}

func TestIdempotencyValidator(t *testing.T) {
	var calls []lookupCall
	lookup := func(_ context.Context, user, scope, key string, _ time.Time) (string, bool) {
		calls = append(calls, lookupCall{user, scope, key})
		if scope == "POST /prompts" && key == "seen" {
			return "p-123", true
		}
		return "", false
	}
	r := newIdemEngine(IdempotencyOptions{MaxLen: 10}, lookup)

	do := func(method, path, key string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		if key != "" {
			req.Header.Set(HeaderIdempotencyKey, key)
		}
		r.ServeHTTP(w, req)
		return w
	}

	if w := do(http.MethodPost, "/prompts", ""); w.Code != http.StatusOK || len(calls) != 0 {
		t.Fatalf("no header: status %d, calls %d", w.Code, len(calls))
	}
	if w := do(http.MethodPost, "/prompts", "bad key!"); w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "bad_idempotency_key") {
		t.Fatalf("invalid chars should 400: %d %s", w.Code, w.Body.String())
	}
	if w := do(http.MethodPost, "/prompts", "waytoolongkey"); w.Code != http.StatusBadRequest {
		t.Fatalf("too long should 400: %d", w.Code)
	}

	w := do(http.MethodPost, "/prompts", "seen")
	if !strings.Contains(w.Body.String(), `"replay":true`) || !strings.Contains(w.Body.String(), `"id":"p-123"`) {
		t.Fatalf("expected replay: %s", w.Body.String())
	}
	if last := calls[len(calls)-1]; last != (lookupCall{"u1", "POST /prompts", "seen"}) {
		t.Fatalf("lookup args = %+v", last)
	}

	// Same key on another endpoint is a different scope.
	w = do(http.MethodPost, "/templates", "seen")
	if !strings.Contains(w.Body.String(), `"replay":false`) || !strings.Contains(w.Body.String(), `"scope":"POST /templates"`) {
		t.Fatalf("scopes must not collide: %s", w.Body.String())
	}

	n := len(calls)
	if w := do(http.MethodGet, "/prompts", "seen"); w.Code != http.StatusOK || len(calls) != n {
		t.Fatalf("GET should skip idempotency handling")
	}
}

func TestIdempotencyValidator_CustomPattern(t *testing.T) {
	r := newIdemEngine(IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/prompts", nil)
	req.Header.Set(HeaderIdempotencyKey, "abc")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("pattern mismatch should 400, got %d", w.Code)
	}
}
