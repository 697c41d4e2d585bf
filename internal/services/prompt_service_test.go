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
)

func TestPromptService_Create_ValidatesAndNormalizesTitle(t *testing.T) {
	db := newTestDB(t)
	svc := NewPromptService(db, nil, zerolog.Nop())
	svc.TitleMaxLen = 5
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", domain.NewPrompt{InitialPrompt: "   "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank prompt, got %v", err)
	}

	p, err := svc.Create(ctx, "u1", domain.NewPrompt{
		Title:         strPtr("  Café   menu\tplan "),
		InitialPrompt: "plan a menu",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Title == nil || *p.Title != "Café" {
		t.Fatalf("title = %v", p.Title)
	}
	if p.IsSaved || p.IsFavorited {
		t.Fatalf("flags must default to false: %+v", p)
	}

	blankTitle, err := svc.Create(ctx, "u1", domain.NewPrompt{Title: strPtr("  "), InitialPrompt: "x"})
	if err != nil || blankTitle.Title != nil {
		t.Fatalf("blank title should be dropped: %+v, %v", blankTitle, err)
	}
}

func TestPromptService_Ownership(t *testing.T) {
	db := newTestDB(t)
	svc := NewPromptService(db, nil, zerolog.Nop())
	ctx := context.Background()
	p := seedPrompt(t, db, "owner", "hello")

	if _, err := svc.Get(ctx, "intruder", p.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Get by non-owner: want ErrForbidden, got %v", err)
	}
	if _, err := svc.Update(ctx, "intruder", p.ID, domain.PromptPatch{IsSaved: boolPtr(true)}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Update by non-owner: want ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, "intruder", p.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Delete by non-owner: want ErrForbidden, got %v", err)
	}
	if _, err := svc.Get(ctx, "owner", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing: want ErrNotFound, got %v", err)
	}
}

func TestPromptService_UpdateFlagsIndependently(t *testing.T) {
	db := newTestDB(t)
	svc := NewPromptService(db, nil, zerolog.Nop())
	ctx := context.Background()
	p := seedPrompt(t, db, "u1", "hello")

	got, err := svc.Update(ctx, "u1", p.ID, domain.PromptPatch{IsFavorited: boolPtr(true)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !got.IsFavorited || got.IsSaved {
		t.Fatalf("favoriting must not touch saved: %+v", got)
	}
	got, err = svc.Update(ctx, "u1", p.ID, domain.PromptPatch{IsSaved: boolPtr(true), RefinedPrompt: strPtr("better")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !got.IsFavorited || !got.IsSaved || got.RefinedPrompt == nil || *got.RefinedPrompt != "better" {
		t.Fatalf("unexpected prompt after second update: %+v", got)
	}
	if _, err := svc.Update(ctx, "u1", p.ID, domain.PromptPatch{InitialPrompt: strPtr(" ")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank initial_prompt: want ErrValidation, got %v", err)
	}
}

func TestPromptService_List_RejectsNegativeRange(t *testing.T) {
	db := newTestDB(t)
	svc := NewPromptService(db, nil, zerolog.Nop())
	if _, err := svc.List(context.Background(), "u1", repo.PromptFilter{Offset: -1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestPromptService_Delete_SweepsAttachmentObjects(t *testing.T) {
	db := newTestDB(t)
	bucket := newTestBucket(t)
	ctx := context.Background()
	p := seedPrompt(t, db, "u1", "with files")

	atts := &AttachmentService{DB: db, Bucket: bucket, Log: zerolog.Nop()}
	a, err := atts.Attach(ctx, "u1", p.ID, "notes.txt", "text/plain", strings.NewReader("some notes"))
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	key, ok := bucket.KeyFromURL(a.FileURL)
	if !ok {
		t.Fatalf("attachment URL not in bucket: %s", a.FileURL)
	}
	objPath := filepath.Join(bucket.Dir(), filepath.FromSlash(key))
	if _, err := os.Stat(objPath); err != nil {
		t.Fatalf("object not written: %v", err)
	}

	svc := NewPromptService(db, bucket, zerolog.Nop())
	if err := svc.Delete(ctx, "u1", p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(objPath); !os.IsNotExist(err) {
		t.Fatalf("object should be removed, stat err = %v", err)
	}
	if list, _ := repo.ListAttachments(ctx, db, p.ID); len(list) != 0 {
		t.Fatalf("attachment rows should cascade, got %d", len(list))
	}
}

func TestPromptService_Delete_LogsObjectFailures(t *testing.T) {
	db := newTestDB(t)
	bucket := newTestBucket(t)
	ctx := context.Background()
	p := seedPrompt(t, db, "u1", "x")

	// Record points at an object that was never written.
	if err := repo.CreateAttachment(ctx, db, &domain.Attachment{
		PromptID: p.ID,
		FileName: "gone.txt",
		FileType: "text/plain",
		FileSize: 1,
		FileURL:  bucket.PublicURL("u1/" + p.ID + "/gone.txt"),
	}); err != nil {
		t.Fatalf("seed attachment: %v", err)
	}

	var buf bytes.Buffer
	svc := NewPromptService(db, bucket, zerolog.New(&buf))
	if err := svc.Delete(ctx, "u1", p.ID); err != nil {
		t.Fatalf("Delete should succeed despite missing object: %v", err)
	}
	if !strings.Contains(buf.String(), "orphaned attachment object") {
		t.Fatalf("expected warning log, got %q", buf.String())
	}
}
