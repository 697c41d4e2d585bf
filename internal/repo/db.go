// Package repo is the gorm persistence layer of the studio server. This
// file opens the SQLite database and migrates the schema.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// ErrNotFound aliases gorm.ErrRecordNotFound so either matches errors.Is.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate reports a unique constraint violation.
var ErrDuplicate = errors.New("duplicate")

// Foreign keys must be on for attachments, chats and feedback to cascade
// when their prompt is deleted. They are set in the DSN so every pooled
// connection gets them.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// Schema lists the models owned by the server, parents before children.
var Schema = []any{
	&domain.User{},
	&domain.AuthSession{},
	&domain.Profile{},
	&domain.NotificationSettings{},
	&domain.Prompt{},
	&domain.Template{},
	&domain.Attachment{},
	&domain.ChatSession{},
	&domain.ChatMessage{},
	&domain.Feedback{},
	&domain.AnalyticsEvent{},
	&domain.Idempotency{},
}

func dsn(path string) string {
	return path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
}

// OpenSQLite opens the studio database at path, creating its directory if
// needed, and traces queries through the otel gorm plugin.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// WAL allows one writer; busy_timeout serializes the rest.
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// AutoMigrate creates or updates every table in Schema.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range Schema {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}

// isUniqueViolation recognizes duplicate keys. glebarez/sqlite reports
// them as plain text rather than gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// isForeignKeyViolation recognizes writes that reference a deleted parent,
// such as an attachment for a prompt removed concurrently.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
