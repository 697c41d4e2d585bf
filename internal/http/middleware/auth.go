package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Gin context keys for the authenticated caller.
const (
	ctxKeyUserID  = "userID"
	ctxKeyLeaseID = "leaseID"
)

// TokenVerifier resolves a bearer token into the caller's user id and the
// id of the lease the token belongs to.
type TokenVerifier func(ctx context.Context, token string) (userID, leaseID string, err error)

// RequireAuth rejects requests without a valid "Authorization: Bearer" token
// and stashes the caller for handlers (UserID, LeaseID).
func RequireAuth(verify TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, "missing bearer token")
			return
		}
		uid, lease, err := verify(c.Request.Context(), token)
		if err != nil || uid == "" {
			unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(ctxKeyUserID, uid)
		c.Set(ctxKeyLeaseID, lease)
		c.Next()
	}
}

// UserID returns the authenticated caller, or "" on public routes.
func UserID(c *gin.Context) string {
	v, _ := c.Get(ctxKeyUserID)
	return asString(v)
}

// LeaseID returns the credential lease of the authenticated caller.
func LeaseID(c *gin.Context) string {
	v, _ := c.Get(ctxKeyLeaseID)
	return asString(v)
}

func bearerToken(h string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(h), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="studio"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
