package client

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/storage"
)

// File is one local file offered for upload.
type File struct {
	Name string    // base name, used for the key extension and the record
	Type string    // declared MIME type
	Size int64     // byte size
	Body io.Reader // content
}

// Validate checks type and size limits without touching the network.
func (f File) Validate() error {
	return domain.ValidateFile(f.Name, f.Type, f.Size)
}

// OpenFile opens path for upload, detecting its MIME type from content. The
// caller closes the returned file.
func OpenFile(path string) (File, io.Closer, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, nil, err
	}
	st, err := fh.Stat()
	if err != nil {
		fh.Close()
		return File{}, nil, err
	}
	mt, err := mimetype.DetectReader(fh)
	if err != nil {
		fh.Close()
		return File{}, nil, err
	}
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		fh.Close()
		return File{}, nil, err
	}
	return File{
		Name: filepath.Base(path),
		Type: declaredType(mt),
		Size: st.Size(),
		Body: fh,
	}, fh, nil
}

// declaredType walks up the detected type's ancestry to the first accepted
// attachment type, so plain text subtypes (csv, json, ...) upload as text.
func declaredType(mt *mimetype.MIME) string {
	for m := mt; m != nil; m = m.Parent() {
		if domain.IsAllowedFileType(m.String()) {
			return domain.NormalizeMIME(m.String())
		}
	}
	return domain.NormalizeMIME(mt.String())
}

// StoredObject is an uploaded object.
type StoredObject struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// UploadFile stores f under <owner>[/<segment>]/<unix-millis>-<rand>.<ext>
// and returns its key and public URL. Uploads are never retried and never
// overwrite an existing object.
func (c *Client) UploadFile(ctx context.Context, ownerID string, f File, segment string) (*StoredObject, error) {
	const op = "upload file"
	switch {
	case strings.TrimSpace(ownerID) == "":
		return nil, invalidArg(op, "owner")
	case strings.TrimSpace(f.Name) == "":
		return nil, invalidArg(op, "file name")
	case f.Body == nil:
		return nil, invalidArg(op, "file body")
	}
	key := storage.ObjectKey(ownerID, segment, f.Name, c.now())
	return send[*StoredObject](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetMultipartField("file", f.Name, f.Type, f.Body).
			SetMultipartFormData(map[string]string{"path": key}).
			Post("/storage/objects")
	})
}

// DeleteObject removes one of the caller's stored objects by key.
func (c *Client) DeleteObject(ctx context.Context, path string) error {
	const op = "delete object"
	key, err := storage.CleanKey(strings.TrimPrefix(path, "/"))
	if err != nil {
		return &APIError{Op: op, Kind: ErrValidationFailed, Message: err.Error()}
	}
	return sendNoContent(ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetRawPathParam("path", key).Delete("/storage/objects/{path}")
	})
}

type attachmentRecord struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
	FileURL  string `json:"file_url"`
}

// CreateAttachment uploads f into the prompt's folder and records it. When
// the record cannot be written, the uploaded object is deleted again on a
// best-effort basis and the record error is returned.
func (c *Client) CreateAttachment(ctx context.Context, promptID string, f File, ownerID string) (*domain.Attachment, error) {
	const op = "create attachment"
	if strings.TrimSpace(promptID) == "" {
		return nil, invalidArg(op, "prompt_id")
	}
	if err := f.Validate(); err != nil {
		return nil, &APIError{Op: op, Kind: ErrValidationFailed, Message: err.Error(), Cause: err}
	}
	obj, err := c.UploadFile(ctx, ownerID, f, promptID)
	if err != nil {
		return nil, err
	}
	att, err := send[*domain.Attachment](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", promptID).SetBody(attachmentRecord{
			FileName: f.Name,
			FileType: obj.Type,
			FileSize: obj.Size,
			FileURL:  obj.URL,
		}).Post("/prompts/{id}/attachments")
	})
	if err != nil {
		if derr := c.DeleteObject(context.WithoutCancel(ctx), obj.Path); derr != nil {
			c.log.Warn().Err(derr).Str("key", obj.Path).Msg("orphaned upload left in storage")
		}
		return nil, err
	}
	return att, nil
}

// ListAttachments returns the attachments of a prompt.
func (c *Client) ListAttachments(ctx context.Context, promptID string) ([]domain.Attachment, error) {
	const op = "list attachments"
	if strings.TrimSpace(promptID) == "" {
		return nil, invalidArg(op, "prompt_id")
	}
	items, err := send[[]domain.Attachment](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", promptID).Get("/prompts/{id}/attachments")
	})
	if items == nil && err == nil {
		items = []domain.Attachment{}
	}
	return items, err
}

// DeleteAttachment removes an attachment record. The server resolves the
// storage key from the record's URL and removes the object when it can; a
// URL outside the bucket leaves the object in place.
func (c *Client) DeleteAttachment(ctx context.Context, id string) error {
	const op = "delete attachment"
	if strings.TrimSpace(id) == "" {
		return invalidArg(op, "id")
	}
	return sendNoContent(ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", id).Delete("/attachments/{id}")
	})
}
