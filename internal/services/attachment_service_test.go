package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/repo"
	"github.com/tbourn/go-prompt-studio/internal/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestAttachmentService_Upload_TypeAndOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := &AttachmentService{DB: db, Bucket: newTestBucket(t), Log: zerolog.Nop()}
	ctx := context.Background()

	cases := []struct {
		name     string
		key      string
		declared string
		body     []byte
		wantType string
		wantErr  error
	}{
		{"png sniffed", "u1/a.png", "image/png", pngHeader, "image/png", nil},
		{"text declared as pdf", "u1/b.txt", "application/pdf", []byte("plain words"), "text/plain", nil},
		{"charset param dropped", "u1/c.txt", "text/plain; charset=utf-8", []byte("hi"), "text/plain", nil},
		{"binary lying about type", "u1/d.png", "image/png", []byte("\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00"), "", ErrValidation},
		{"foreign owner", "u2/e.txt", "text/plain", []byte("x"), "", ErrForbidden},
		{"traversal key", "u1/../u2/f.txt", "text/plain", []byte("x"), "", ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obj, err := svc.Upload(ctx, "u1", tc.key, filepath.Base(tc.key), tc.declared, bytes.NewReader(tc.body))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Upload: %v", err)
			}
			if obj.Type != tc.wantType || obj.Path != tc.key || obj.Size != int64(len(tc.body)) {
				t.Fatalf("unexpected object: %+v", obj)
			}
			if obj.URL != testBaseURL+"/attachments/"+tc.key {
				t.Fatalf("URL = %s", obj.URL)
			}
		})
	}

	if _, err := svc.Upload(ctx, "u1", "u1/a.png", "a.png", "image/png", bytes.NewReader(pngHeader)); !errors.Is(err, ErrObjectExists) {
		t.Fatalf("second upload to same key: want ErrObjectExists, got %v", err)
	}
}

func TestAttachmentService_Upload_SizeLimit(t *testing.T) {
	svc := &AttachmentService{DB: newTestDB(t), Bucket: newTestBucket(t), MaxUpload: 8, Log: zerolog.Nop()}
	_, err := svc.Upload(context.Background(), "u1", "u1/big.txt", "big.txt", "text/plain", strings.NewReader(strings.Repeat("a", 9)))
	if !errors.Is(err, ErrValidation) || !strings.Contains(err.Error(), domain.ErrFileTooLarge.Error()) {
		t.Fatalf("want too-large validation error, got %v", err)
	}
	if _, err := svc.Upload(context.Background(), "u1", "u1/ok.txt", "ok.txt", "text/plain", strings.NewReader(strings.Repeat("a", 8))); err != nil {
		t.Fatalf("upload at limit: %v", err)
	}
}

func TestAttachmentService_AttachListDelete(t *testing.T) {
	db := newTestDB(t)
	bucket := newTestBucket(t)
	svc := &AttachmentService{DB: db, Bucket: bucket, Log: zerolog.Nop()}
	ctx := context.Background()
	p := seedPrompt(t, db, "u1", "describe this image")

	a, err := svc.Attach(ctx, "u1", p.ID, "Photo.PNG", "image/png", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if a.FileType != "image/png" || a.FileName != "Photo.PNG" || a.PromptID != p.ID {
		t.Fatalf("unexpected attachment: %+v", a)
	}
	key, ok := bucket.KeyFromURL(a.FileURL)
	if !ok || !strings.HasPrefix(key, "u1/"+p.ID+"/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected key %q from %s", key, a.FileURL)
	}

	list, err := svc.List(ctx, "u1", p.ID)
	if err != nil || len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("List = %+v, %v", list, err)
	}
	if _, err := svc.List(ctx, "u2", p.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("List by non-owner: want ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, "u2", a.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Delete by non-owner: want ErrForbidden, got %v", err)
	}

	if err := svc.Delete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(bucket.Dir(), filepath.FromSlash(key))); !os.IsNotExist(err) {
		t.Fatalf("object should be gone, stat err = %v", err)
	}
	if _, err := repo.GetAttachment(ctx, db, a.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("record should be gone, got %v", err)
	}
	if err := svc.Delete(ctx, "u1", a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete: want ErrNotFound, got %v", err)
	}
}

func TestAttachmentService_Attach_CompensatesFailedRecord(t *testing.T) {
	db := newTestDB(t)
	bucket := &recordingBucket{Bucket: newTestBucket(t), foreignURLs: true}
	svc := &AttachmentService{DB: db, Bucket: bucket, Log: zerolog.Nop()}
	p := seedPrompt(t, db, "u1", "x")

	_, err := svc.Attach(context.Background(), "u1", p.ID, "a.txt", "text/plain", strings.NewReader("hello"))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("want record failure, got %v", err)
	}
	if len(bucket.deleted) != 1 || !strings.HasPrefix(bucket.deleted[0], "u1/"+p.ID+"/") {
		t.Fatalf("expected one compensating delete, got %v", bucket.deleted)
	}
	if list, _ := repo.ListAttachments(context.Background(), db, p.ID); len(list) != 0 {
		t.Fatalf("no record should exist, got %d", len(list))
	}
}

func TestAttachmentService_Record(t *testing.T) {
	db := newTestDB(t)
	bucket := newTestBucket(t)
	svc := &AttachmentService{DB: db, Bucket: bucket, Log: zerolog.Nop()}
	ctx := context.Background()
	p := seedPrompt(t, db, "u1", "x")

	good := NewAttachment{FileName: "r.pdf", FileType: "application/pdf", FileSize: 10, FileURL: bucket.PublicURL("u1/r.pdf")}
	if _, err := svc.Record(ctx, "u1", p.ID, good); err != nil {
		t.Fatalf("Record: %v", err)
	}

	bad := good
	bad.FileURL = "https://evil.example/u1/r.pdf"
	if _, err := svc.Record(ctx, "u1", p.ID, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("foreign URL: want ErrValidation, got %v", err)
	}
	bad = good
	bad.FileURL = bucket.PublicURL("u2/r.pdf")
	if _, err := svc.Record(ctx, "u1", p.ID, bad); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other owner's object: want ErrForbidden, got %v", err)
	}
	bad = good
	bad.FileSize = domain.MaxFileSize + 1
	if _, err := svc.Record(ctx, "u1", p.ID, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("oversize: want ErrValidation, got %v", err)
	}
	if _, err := svc.Record(ctx, "u1", "missing", good); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing prompt: want ErrNotFound, got %v", err)
	}
}

func TestAttachmentService_DeleteObject(t *testing.T) {
	bucket := newTestBucket(t)
	svc := &AttachmentService{DB: newTestDB(t), Bucket: bucket, Log: zerolog.Nop()}
	ctx := context.Background()

	if _, err := bucket.Put(ctx, "u1/x.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := svc.DeleteObject(ctx, "u2", "u1/x.txt"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	if err := svc.DeleteObject(ctx, "u1", "u1/x.txt"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if err := svc.DeleteObject(ctx, "u1", "u1/x.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := bucket.Delete(ctx, "u1/x.txt"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("bucket should report missing object, got %v", err)
	}
}
