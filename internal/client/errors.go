package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure classes. Every error returned by the client wraps exactly one of
// them; test with errors.Is.
var (
	// ErrRemoteUnavailable covers transport failures, timeouts, rate limits
	// and 5xx responses.
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrPermissionDenied is returned for 401 and 403 responses.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrValidationFailed is returned for rejected input, either locally
	// before any request or by the server (400, 409, 413, 422).
	ErrValidationFailed = errors.New("validation failed")
)

// APIError is a classified failure of one client operation.
type APIError struct {
	Op        string
	Status    int    // HTTP status; 0 when no response was received
	Code      string // stable server error code, when present
	Message   string
	RequestID string
	Kind      error // one of the Err* classes
	Cause     error // transport error, if any
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: %v (HTTP %d %s): %s", e.Op, e.Kind, e.Status, e.Code, msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, msg)
}

// Unwrap exposes both the class and the transport cause.
func (e *APIError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// errorBody is the server's error envelope.
type errorBody struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// kindForStatus maps an HTTP status to a failure class.
func kindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrPermissionDenied
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return ErrValidationFailed
	default:
		return ErrRemoteUnavailable
	}
}

func invalidArg(op, field string) error {
	return &APIError{Op: op, Kind: ErrValidationFailed, Message: field + " is required"}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// CodeOf returns the server error code carried by err, or "".
func CodeOf(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
