package domain

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// MaxFileSize is the largest accepted attachment (10 MiB).
const MaxFileSize int64 = 10 << 20

var (
	// ErrFileTooLarge is returned for attachments over MaxFileSize.
	ErrFileTooLarge = errors.New("file exceeds 10MB limit")
	// ErrFileType is returned for MIME types outside AllowedFileTypes.
	ErrFileType = errors.New("file type not supported")
)

// AllowedFileTypes lists the MIME types accepted as attachments.
var AllowedFileTypes = []string{
	"text/plain",
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// NormalizeMIME strips parameters and lower-cases a MIME type.
func NormalizeMIME(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// IsAllowedFileType reports whether mime is an accepted attachment type.
func IsAllowedFileType(mime string) bool {
	m := NormalizeMIME(mime)
	for _, a := range AllowedFileTypes {
		if a == m {
			return true
		}
	}
	return false
}

// ValidateFile checks the declared type and size of one attachment. The
// returned error names the file.
func ValidateFile(name, mime string, size int64) error {
	if !IsAllowedFileType(mime) {
		return fmt.Errorf("%s: %w", name, ErrFileType)
	}
	if size > MaxFileSize {
		return fmt.Errorf("%s: %w", name, ErrFileTooLarge)
	}
	return nil
}

// AttachmentKind is the human label for an attachment's MIME type, used in
// refinement text.
func AttachmentKind(mime string) string {
	m := NormalizeMIME(mime)
	switch {
	case strings.HasPrefix(m, "image/"):
		return "image"
	case m == "application/pdf":
		return "PDF document"
	case strings.Contains(m, "word"):
		return "Word document"
	case strings.Contains(m, "excel") || strings.Contains(m, "spreadsheet"):
		return "Excel spreadsheet"
	default:
		return "text file"
	}
}

// FileExt returns the lower-cased extension of name without the dot.
func FileExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}
