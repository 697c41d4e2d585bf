package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/repo"
	"github.com/tbourn/go-prompt-studio/internal/storage"
)

// StoredObject describes an uploaded object.
type StoredObject struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// NewAttachment records an object already uploaded to the bucket.
type NewAttachment struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
	FileURL  string `json:"file_url"`
}

// AttachmentService stores attachment objects and their prompt records.
type AttachmentService struct {
	DB        *gorm.DB
	Bucket    storage.Bucket
	MaxUpload int64
	Log       zerolog.Logger

	now func() time.Time
}

// genericTypes are container types the sniffer reports for files whose
// declared type is more specific (OLE for .doc/.xls, zip for OOXML).
var genericTypes = map[string]bool{
	"application/octet-stream":  true,
	"application/x-ole-storage": true,
	"application/zip":           true,
	"text/plain":                true,
}

// Upload writes r under key after checking ownership, size and type. The
// effective content type prefers what the bytes say over what the client
// declared.
func (s *AttachmentService) Upload(ctx context.Context, userID, key, fileName, declared string, r io.Reader) (*StoredObject, error) {
	tr := otel.Tracer("services/AttachmentService")
	ctx, span := tr.Start(ctx, "Upload", trace.WithAttributes(attribute.String("object.key", key)))
	defer span.End()

	k, err := storage.CleanKey(key)
	if err != nil {
		return nil, invalid("path", "is not a valid object key")
	}
	if storage.Owner(k) != userID {
		return nil, ErrForbidden
	}
	data, ctype, err := s.readChecked(fileName, declared, r)
	if err != nil {
		return nil, err
	}
	n, err := s.Bucket.Put(ctx, k, bytes.NewReader(data))
	if errors.Is(err, storage.ErrExists) {
		return nil, ErrObjectExists
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("object.size", n), attribute.String("object.type", ctype))
	return &StoredObject{Path: k, URL: s.Bucket.PublicURL(k), Type: ctype, Size: n}, nil
}

// DeleteObject removes one of the caller's objects.
func (s *AttachmentService) DeleteObject(ctx context.Context, userID, key string) error {
	k, err := storage.CleanKey(key)
	if err != nil {
		return invalid("path", "is not a valid object key")
	}
	if storage.Owner(k) != userID {
		return ErrForbidden
	}
	if err := s.Bucket.Delete(ctx, k); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Record links an uploaded object to one of the caller's prompts.
func (s *AttachmentService) Record(ctx context.Context, userID, promptID string, in NewAttachment) (*domain.Attachment, error) {
	tr := otel.Tracer("services/AttachmentService")
	ctx, span := tr.Start(ctx, "Record", trace.WithAttributes(attribute.String("prompt.id", promptID)))
	defer span.End()

	if blank(in.FileName) {
		return nil, invalid("file_name", "is required")
	}
	if err := domain.ValidateFile(in.FileName, in.FileType, in.FileSize); err != nil {
		return nil, invalid("file", err.Error())
	}
	key, ok := s.Bucket.KeyFromURL(in.FileURL)
	if !ok {
		return nil, invalid("file_url", "is not an object in this bucket")
	}
	if storage.Owner(key) != userID {
		return nil, ErrForbidden
	}
	if _, err := ownedPrompt(ctx, s.DB, userID, promptID); err != nil {
		return nil, err
	}
	a := &domain.Attachment{
		PromptID: promptID,
		FileName: in.FileName,
		FileType: domain.NormalizeMIME(in.FileType),
		FileSize: in.FileSize,
		FileURL:  in.FileURL,
	}
	if err := repo.CreateAttachment(ctx, s.DB, a); err != nil {
		return nil, notFoundOr(err)
	}
	return a, nil
}

// Attach uploads a file under the prompt's folder and records it. If the
// record cannot be written the uploaded object is deleted again.
func (s *AttachmentService) Attach(ctx context.Context, userID, promptID, fileName, declared string, r io.Reader) (*domain.Attachment, error) {
	tr := otel.Tracer("services/AttachmentService")
	ctx, span := tr.Start(ctx, "Attach", trace.WithAttributes(attribute.String("prompt.id", promptID)))
	defer span.End()

	if _, err := ownedPrompt(ctx, s.DB, userID, promptID); err != nil {
		return nil, err
	}
	key := storage.ObjectKey(userID, promptID, fileName, s.clock())
	obj, err := s.Upload(ctx, userID, key, fileName, declared, r)
	if err != nil {
		return nil, err
	}
	a, err := s.Record(ctx, userID, promptID, NewAttachment{
		FileName: fileName,
		FileType: obj.Type,
		FileSize: obj.Size,
		FileURL:  obj.URL,
	})
	if err != nil {
		if derr := s.Bucket.Delete(ctx, obj.Path); derr != nil {
			s.Log.Warn().Err(derr).Str("key", obj.Path).Msg("compensating delete failed")
		}
		return nil, err
	}
	return a, nil
}

// List returns the attachments of one of the caller's prompts.
func (s *AttachmentService) List(ctx context.Context, userID, promptID string) ([]domain.Attachment, error) {
	if _, err := ownedPrompt(ctx, s.DB, userID, promptID); err != nil {
		return nil, err
	}
	return repo.ListAttachments(ctx, s.DB, promptID)
}

// Delete removes an attachment record and, when its URL points into the
// bucket, the stored object. Object removal failures are logged only.
func (s *AttachmentService) Delete(ctx context.Context, userID, id string) error {
	tr := otel.Tracer("services/AttachmentService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("attachment.id", id)))
	defer span.End()

	a, err := repo.GetAttachment(ctx, s.DB, id)
	if err != nil {
		return notFoundOr(err)
	}
	if _, err := ownedPrompt(ctx, s.DB, userID, a.PromptID); err != nil {
		return err
	}
	if key, ok := s.Bucket.KeyFromURL(a.FileURL); ok {
		if err := s.Bucket.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.Log.Warn().Err(err).Str("key", key).Msg("attachment object not removed")
		}
	}
	return notFoundOr(repo.DeleteAttachment(ctx, s.DB, id))
}

func (s *AttachmentService) readChecked(fileName, declared string, r io.Reader) ([]byte, string, error) {
	max := s.MaxUpload
	if max <= 0 {
		max = domain.MaxFileSize
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > max {
		return nil, "", invalid("file", fmt.Sprintf("%s: %v", fileName, domain.ErrFileTooLarge))
	}
	ctype := effectiveType(declared, mimetype.Detect(data))
	if ctype == "" {
		return nil, "", invalid("file", fmt.Sprintf("%s: %v", fileName, domain.ErrFileType))
	}
	return data, ctype, nil
}

// effectiveType picks the attachment type: the sniffed type (or one of its
// ancestors) when allowed, otherwise the declared type when the sniffer only
// saw a generic container. Empty means rejected.
func effectiveType(declared string, sniffed *mimetype.MIME) string {
	for m := sniffed; m != nil; m = m.Parent() {
		if domain.IsAllowedFileType(m.String()) {
			if d := domain.NormalizeMIME(declared); d != "" && m.Is(d) {
				return d
			}
			return domain.NormalizeMIME(m.String())
		}
	}
	d := domain.NormalizeMIME(declared)
	if domain.IsAllowedFileType(d) && genericTypes[domain.NormalizeMIME(sniffed.String())] {
		return d
	}
	return ""
}

func (s *AttachmentService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
