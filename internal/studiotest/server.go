// Package studiotest runs the complete studio API over a temporary SQLite
// database and bucket, for end-to-end tests of the client packages.
package studiotest

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-prompt-studio/internal/client"
	"github.com/tbourn/go-prompt-studio/internal/config"
	"github.com/tbourn/go-prompt-studio/internal/domain"
	apphttp "github.com/tbourn/go-prompt-studio/internal/http"
	"github.com/tbourn/go-prompt-studio/internal/repo"
	"github.com/tbourn/go-prompt-studio/internal/storage"
)

// PublicURL is the origin object URLs are minted under.
const PublicURL = "http://studio.test"

// Password is used by SignUp.
const Password = "correct horse battery"

// Server is a running API plus direct handles on its storage.
type Server struct {
	*httptest.Server
	DB     *gorm.DB
	Bucket *storage.FSBucket
	Config config.Config
}

// Config returns the server configuration used by NewServer.
func Config() config.Config {
	return config.Config{
		PublicURL:      PublicURL,
		APIBasePath:    "/api/v1",
		Auth:           config.AuthConfig{JWTSecret: "0123456789abcdef-secret", TokenTTL: time.Hour, SiteURL: PublicURL},
		Storage:        config.StorageConfig{Bucket: "attachments", PublicBaseURL: PublicURL + "/files", MaxUpload: domain.MaxFileSize},
		RateRPS:        1000,
		RateBurst:      1000,
		IdempotencyTTL: time.Hour,
		OTEL:           config.OTELConfig{ServiceName: "studiotest"},
	}
}

// NewServer starts the API; it is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	return NewServerWith(t, Config())
}

// NewServerWith starts the API with cfg.
func NewServerWith(t testing.TB, cfg config.Config) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db, err := repo.OpenSQLite(filepath.Join(dir, "studio.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	bucket, err := storage.NewFSBucket(filepath.Join(dir, "objects"), cfg.Storage.Bucket, cfg.Storage.PublicBaseURL)
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}

	r := gin.New()
	apphttp.RegisterRoutes(r, db, bucket, cfg)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &Server{Server: srv, DB: db, Bucket: bucket, Config: cfg}
}

// ClientConfig points a client at the server.
func (s *Server) ClientConfig() client.Config {
	return client.Config{
		APIURL:             s.URL + s.Config.APIBasePath,
		HTTPTimeout:        5 * time.Second,
		SessionInitTimeout: time.Second,
	}
}

// NewClient returns an anonymous client for the server.
func (s *Server) NewClient(opts ...client.Option) *client.Client {
	return client.New(s.ClientConfig(), append([]client.Option{client.WithHTTPClient(s.Client())}, opts...)...)
}

// SignUp registers email and returns a client carrying its lease plus the
// new user's id.
func (s *Server) SignUp(t testing.TB, email string) (*client.Client, string) {
	t.Helper()
	c := s.NewClient()
	res, err := c.SignUp(context.Background(), email, Password, "Ada", "")
	if err != nil {
		t.Fatalf("sign up %s: %v", email, err)
	}
	if res.Session == nil {
		t.Fatalf("sign up %s: expected an immediate session", email)
	}
	c.SetTokenSource(client.StaticToken(res.Session.AccessToken))
	return c, res.User.ID
}
