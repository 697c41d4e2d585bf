// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/docs"
	"github.com/tbourn/go-prompt-studio/internal/auth"
	"github.com/tbourn/go-prompt-studio/internal/config"
	"github.com/tbourn/go-prompt-studio/internal/http/handlers"
	"github.com/tbourn/go-prompt-studio/internal/http/middleware"
	"github.com/tbourn/go-prompt-studio/internal/repo"
	"github.com/tbourn/go-prompt-studio/internal/services"
	"github.com/tbourn/go-prompt-studio/internal/storage"
)

// jsonBodyLimit caps non-multipart request bodies.
const jsonBodyLimit = 1 << 20

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), CORS and security
// headers, health, metrics, docs and file endpoints, and then mounts the
// versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter (multipart bodies are capped per upload handler)
//  6. Metrics
//  7. CORS and Security headers
//
// Per group, authenticated routes then run RequireAuth, the idempotency
// validator (before rate limiting so replays bypass it) and the rate limiter.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, bucket *storage.FSBucket, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Body size limit for JSON payloads
	r.Use(limitBody(jsonBodyLimit))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture and security headers
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public objects
	r.Static(filesMount(cfg.Storage.PublicBaseURL)+"/"+bucket.Name(), bucket.Dir())

	// Dependency injection: services ← repo/db/bucket
	logger := log.Logger
	authSvc := &services.AuthService{
		DB:                  db,
		Issuer:              auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		OAuth:               auth.NewOAuth(cfg.Auth.JWTSecret, cfg.PublicURL+cfg.APIBasePath+"/auth/oauth", oauthProviders(cfg.OAuth)),
		RequireVerification: cfg.Auth.RequireVerification,
		SiteURL:             cfg.Auth.SiteURL,
		Log:                 logger,
	}
	h := handlers.New(handlers.Services{
		Auth:        authSvc,
		Prompts:     services.NewPromptService(db, bucket, logger),
		Templates:   &services.TemplateService{DB: db},
		Attachments: &services.AttachmentService{DB: db, Bucket: bucket, MaxUpload: cfg.Storage.MaxUpload, Log: logger},
		Chat:        &services.ChatService{DB: db},
		Feedback:    &services.FeedbackService{DB: db},
		Analytics:   &services.AnalyticsService{DB: db, Logger: logger},
		Profile:     &services.ProfileService{DB: db},
	}, handlers.Options{
		DB:             db,
		IdempotencyTTL: cfg.IdempotencyTTL,
		MaxUpload:      cfg.Storage.MaxUpload,
	})

	requireAuth := middleware.RequireAuth(func(ctx context.Context, token string) (string, string, error) {
		p, err := authSvc.Authenticate(ctx, token)
		return p.UserID, p.LeaseID, err
	})
	idem := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, scope, key string, now time.Time) (string, bool) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return "", false
			}
			return rec.ResourceID, true
		},
	)
	// Anonymous auth endpoints are limited per IP, the rest per user.
	authLimiter := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	apiLimiter := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(gzip.Gzip(gzip.DefaultCompression))

	// Accounts
	authGroup := api.Group("/auth", middleware.NoStore(), authLimiter.Handler())
	{
		authGroup.POST("/signup", h.SignUp)
		authGroup.POST("/verify", h.VerifyEmail)
		authGroup.POST("/signin", h.SignIn)
		authGroup.GET("/oauth/:provider", h.OAuthStart)
		authGroup.GET("/oauth/:provider/callback", h.OAuthCallback)
		authGroup.POST("/signout", requireAuth, h.SignOut)
		authGroup.GET("/me", requireAuth, h.Me)
	}

	// Everything else requires a bearer token
	v := api.Group("", requireAuth, idem, apiLimiter.Handler())
	{
		// Prompts
		v.POST("/prompts", h.CreatePrompt)
		v.GET("/prompts", h.ListPrompts)
		v.GET("/prompts/:id", h.GetPrompt)
		v.PATCH("/prompts/:id", h.UpdatePrompt)
		v.DELETE("/prompts/:id", h.DeletePrompt)
		v.POST("/prompts/:id/feedback", h.SubmitFeedback)

		// Attachments
		v.POST("/prompts/:id/attachments", h.CreateAttachment)
		v.GET("/prompts/:id/attachments", h.ListAttachments)
		v.DELETE("/attachments/:id", h.DeleteAttachment)

		// Storage
		v.POST("/storage/objects", h.UploadObject)
		v.DELETE("/storage/objects/*path", h.DeleteObject)

		// Templates
		v.GET("/templates", h.ListTemplates)
		v.POST("/templates", h.CreateTemplate)
		v.POST("/templates/:id/use", h.UseTemplate)

		// Chat
		v.POST("/chat/sessions", h.CreateChatSession)
		v.POST("/chat/sessions/:id/messages", h.PostChatMessage)
		v.GET("/chat/sessions/:id/messages", h.ListChatMessages)

		// Analytics
		v.POST("/analytics/events", h.LogEvent)
		v.GET("/stats", h.GetStats)

		// Profile
		v.GET("/profile", h.GetProfile)
		v.PATCH("/profile", h.UpdateProfile)
		v.GET("/settings/notifications", h.GetNotificationSettings)
		v.PUT("/settings/notifications", h.SaveNotificationSettings)
	}
}

// corsMiddleware returns the CORS chain. With no allowlist every origin is
// accepted without credentials; otherwise allowed origins are echoed.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotencyReplayed}
	methods := []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

	if len(origins) == 0 {
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     methods,
				AllowHeaders:     allowHeaders,
				ExposeHeaders:    exposeHeaders,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// limitBody returns a Gin middleware that caps the request body size to
// maxBytes using http.MaxBytesReader. Multipart bodies are left to the upload
// handlers, which apply the storage limit.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.ContentType(), "multipart/") {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// filesMount is the path component of the public object URL prefix.
func filesMount(publicBaseURL string) string {
	u, err := url.Parse(publicBaseURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "/files"
	}
	return strings.TrimRight(u.Path, "/")
}

func oauthProviders(in []config.OAuthProvider) []auth.Provider {
	out := make([]auth.Provider, 0, len(in))
	for _, p := range in {
		out = append(out, auth.Provider{
			Name:         p.Name,
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			AuthURL:      p.AuthURL,
			TokenURL:     p.TokenURL,
			UserInfoURL:  p.UserInfoURL,
			Scopes:       p.Scopes,
		})
	}
	return out
}
