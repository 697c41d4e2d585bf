// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for accounts and
// credential leases used by the auth endpoints.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// CreateUser inserts u with a fresh UUID. The email is stored lower-cased; a
// taken email returns ErrDuplicate.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Provider == "" {
		u.Provider = domain.ProviderPassword
	}
	err := db.WithContext(ctx).Create(u).Error
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetUser fetches an account by id.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail fetches an account by its (case-insensitive) email.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// VerifyUser marks the account holding token as verified and consumes the
// token. Unknown tokens return ErrNotFound.
func VerifyUser(ctx context.Context, db *gorm.DB, token string) (*domain.User, error) {
	var out *domain.User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u domain.User
		if err := tx.Where("verify_token = ?", token).First(&u).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.User{}).Where("id = ?", u.ID).Updates(map[string]any{
			"email_verified": true,
			"verify_token":   nil,
			"updated_at":     time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		u.EmailVerified = true
		u.VerifyToken = nil
		out = &u
		return nil
	})
	return out, err
}

// CreateAuthSession records a credential lease with the given id (the JWT
// jti) and expiry.
func CreateAuthSession(ctx context.Context, db *gorm.DB, id, userID string, expiresAt time.Time) (*domain.AuthSession, error) {
	s := &domain.AuthSession{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetActiveAuthSession returns a lease that is neither revoked nor expired
// at now, or ErrNotFound.
func GetActiveAuthSession(ctx context.Context, db *gorm.DB, id string, now time.Time) (*domain.AuthSession, error) {
	var s domain.AuthSession
	err := db.WithContext(ctx).
		Where("id = ? AND revoked_at IS NULL AND expires_at > ?", id, now.UTC()).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RevokeAuthSession ends a lease. Revoking an unknown or already revoked lease
// is not an error.
func RevokeAuthSession(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.AuthSession{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", time.Now().UTC()).Error
}

// NewVerifyToken returns an opaque single-use verification token.
func NewVerifyToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
