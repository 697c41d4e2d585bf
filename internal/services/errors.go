// Package services defines the business logic behind the studio API: accounts
// and sessions, prompts, templates, attachments, chat sessions, feedback,
// analytics, and profile settings.
//
// This file centralizes the service-level error values so that they can be
// consistently returned by service methods and checked by callers. Translation
// into HTTP status codes happens in the handler layer.
package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/repo"
)

// Generic errors shared by every resource.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the resource exists but belongs to someone else.
	ErrForbidden = errors.New("permission denied")

	// ErrValidation wraps input validation failures; the wrapping message
	// names the offending field.
	ErrValidation = errors.New("validation failed")
)

// Account errors.
var (
	// ErrEmailTaken is returned by sign-up for an already registered email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned for unknown emails or wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailNotVerified is returned by sign-in before the email is confirmed.
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrUnauthenticated is returned when a bearer token is missing, invalid,
	// expired or revoked.
	ErrUnauthenticated = errors.New("not authenticated")
)

// Storage errors.
var (
	// ErrObjectExists is returned when an upload targets a taken key.
	ErrObjectExists = errors.New("object already exists")
)

func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// notFoundOr maps repository not-found errors to ErrNotFound and passes
// everything else through.
func notFoundOr(err error) error {
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

func invalid(field, msg string) error {
	return &validationError{field: field, msg: msg}
}

type validationError struct {
	field string
	msg   string
}

func (e *validationError) Error() string { return e.field + ": " + e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

func blank(s string) bool { return strings.TrimSpace(s) == "" }
