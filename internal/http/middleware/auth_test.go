package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newAuthEngine(verify TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", RequireAuth(verify), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c), "lease": LeaseID(c)})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	verify := func(_ context.Context, token string) (string, string, error) {
		if token == "good" {
			return "u1", "l1", nil
		}
		return "", "", errors.New("bad token")
	}
	r := newAuthEngine(verify)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic Zm9vOmJhcg==", http.StatusUnauthorized},
		{"empty token", "Bearer  ", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
		{"scheme case-insensitive", "bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d", w.Code, tc.status)
			}
			var body map[string]string
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			if tc.status == http.StatusOK {
				if body["user"] != "u1" || body["lease"] != "l1" {
					t.Fatalf("principal not stashed: %v", body)
				}
				return
			}
			if body["code"] != "unauthorized" || body["request_id"] == "" {
				t.Fatalf("unexpected envelope: %v", body)
			}
			if w.Header().Get("WWW-Authenticate") == "" {
				t.Fatalf("missing WWW-Authenticate")
			}
		})
	}
}

func TestUserID_EmptyOnPublicRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if UserID(c) != "" || LeaseID(c) != "" {
		t.Fatalf("expected empty principal")
	}
	c.Set(ctxKeyUserID, 42)
	if UserID(c) != "" {
		t.Fatalf("non-string values must be ignored")
	}
}
