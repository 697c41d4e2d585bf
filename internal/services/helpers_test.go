package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/repo"
	"github.com/tbourn/go-prompt-studio/internal/storage"
)

const testBaseURL = "http://localhost:8080/files"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestBucket(t *testing.T) *storage.FSBucket {
	t.Helper()
	b, err := storage.NewFSBucket(t.TempDir(), "attachments", testBaseURL)
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}
	return b
}

func seedPrompt(t *testing.T, db *gorm.DB, userID, text string) *domain.Prompt {
	t.Helper()
	svc := NewPromptService(db, nil, zerolog.Nop())
	p, err := svc.Create(context.Background(), userID, domain.NewPrompt{InitialPrompt: text})
	if err != nil {
		t.Fatalf("seed prompt: %v", err)
	}
	return p
}

// recordingBucket wraps a Bucket, remembers deletes and can hand out URLs
// that KeyFromURL refuses.
type recordingBucket struct {
	storage.Bucket

	mu          sync.Mutex
	deleted     []string
	foreignURLs bool
}

func (b *recordingBucket) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	b.deleted = append(b.deleted, key)
	b.mu.Unlock()
	return b.Bucket.Delete(ctx, key)
}

func (b *recordingBucket) PublicURL(key string) string {
	if b.foreignURLs {
		return "https://elsewhere.example/" + key
	}
	return b.Bucket.PublicURL(key)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }
