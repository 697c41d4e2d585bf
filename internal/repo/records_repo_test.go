package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

func TestAttachments_CreateListDelete(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	p := &domain.Prompt{UserID: "u1", InitialPrompt: "x"}
	if err := CreatePrompt(ctx, db, p); err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}

	a := &domain.Attachment{PromptID: p.ID, FileName: "a.png", FileType: "image/png", FileSize: 10, FileURL: "http://h/files/attachments/u1/a.png"}
	if err := CreateAttachment(ctx, db, a); err != nil {
		t.Fatalf("CreateAttachment: %v", err)
	}
	orphan := &domain.Attachment{PromptID: "missing", FileName: "b", FileType: "text/plain", FileURL: "u"}
	if err := CreateAttachment(ctx, db, orphan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("attachment for missing prompt: want ErrNotFound, got %v", err)
	}

	list, err := ListAttachments(ctx, db, p.ID)
	if err != nil || len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("ListAttachments = %+v, %v", list, err)
	}
	if err := DeleteAttachment(ctx, db, a.ID); err != nil {
		t.Fatalf("DeleteAttachment: %v", err)
	}
	if _, err := GetAttachment(ctx, db, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("attachment should be gone, got %v", err)
	}
	if err := DeleteAttachment(ctx, db, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestChat_SessionsAndAscendingMessages(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	p := &domain.Prompt{UserID: "u1", InitialPrompt: "x"}
	if err := CreatePrompt(ctx, db, p); err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}
	if _, err := CreateChatSession(ctx, db, "missing", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("session for missing prompt: want ErrNotFound, got %v", err)
	}
	s, err := CreateChatSession(ctx, db, p.ID, "u1")
	if err != nil {
		t.Fatalf("CreateChatSession: %v", err)
	}
	for _, c := range []struct{ role, content string }{
		{domain.RoleUser, "one"}, {domain.RoleAssistant, "two"}, {domain.RoleUser, "three"},
	} {
		if _, err := CreateChatMessage(ctx, db, s.ID, c.role, c.content); err != nil {
			t.Fatalf("CreateChatMessage: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := CreateChatMessage(ctx, db, "missing", domain.RoleUser, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("message for missing session: want ErrNotFound, got %v", err)
	}
	msgs, err := ListChatMessages(ctx, db, s.ID)
	if err != nil || len(msgs) != 3 {
		t.Fatalf("ListChatMessages = %d, %v", len(msgs), err)
	}
	if msgs[0].Content != "one" || msgs[2].Content != "three" {
		t.Fatalf("messages not ascending: %+v", msgs)
	}
	got, err := GetChatSession(ctx, db, s.ID)
	if err != nil || got.PromptID != p.ID {
		t.Fatalf("GetChatSession = %+v, %v", got, err)
	}
}

func TestUpsertFeedback_ReplacesPerUser(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	p := &domain.Prompt{UserID: "u1", InitialPrompt: "x"}
	if err := CreatePrompt(ctx, db, p); err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}
	r1, r2 := 2, 5
	helpful := true
	if err := UpsertFeedback(ctx, db, &domain.Feedback{PromptID: p.ID, UserID: "u1", Rating: &r1}); err != nil {
		t.Fatalf("first feedback: %v", err)
	}
	if err := UpsertFeedback(ctx, db, &domain.Feedback{PromptID: p.ID, UserID: "u1", Rating: &r2, IsHelpful: &helpful, FeedbackText: strPtr("better")}); err != nil {
		t.Fatalf("second feedback: %v", err)
	}
	var n int64
	db.Model(&domain.Feedback{}).Where("prompt_id = ?", p.ID).Count(&n)
	if n != 1 {
		t.Fatalf("want one feedback row per user, got %d", n)
	}
	fb, err := GetFeedback(ctx, db, p.ID, "u1")
	if err != nil || *fb.Rating != 5 || !*fb.IsHelpful || *fb.FeedbackText != "better" {
		t.Fatalf("GetFeedback = %+v, %v", fb, err)
	}
	bad := 9
	if err := UpsertFeedback(ctx, db, &domain.Feedback{PromptID: p.ID, UserID: "u2", Rating: &bad}); err == nil {
		t.Fatalf("rating outside 1..5 should be rejected")
	}
	if err := UpsertFeedback(ctx, db, &domain.Feedback{PromptID: "missing", UserID: "u1"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("feedback for missing prompt: want ErrNotFound, got %v", err)
	}
}

func TestAnalytics_CreateAndWindow(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	ev := &domain.AnalyticsEvent{UserID: "u1", ActionType: "prompt_refined", Metadata: map[string]any{"attachments": 2}}
	if err := CreateAnalyticsEvent(ctx, db, ev); err != nil {
		t.Fatalf("CreateAnalyticsEvent: %v", err)
	}
	old := domain.AnalyticsEvent{ID: "old", UserID: "u1", ActionType: "prompt_saved", CreatedAt: time.Now().UTC().AddDate(0, 0, -45)}
	if err := db.Create(&old).Error; err != nil {
		t.Fatalf("seed old: %v", err)
	}
	got, err := ListAnalyticsSince(ctx, db, "u1", time.Now().AddDate(0, 0, -30))
	if err != nil || len(got) != 1 || got[0].ID != ev.ID {
		t.Fatalf("ListAnalyticsSince = %+v, %v", got, err)
	}
	if got[0].Metadata["attachments"] != float64(2) {
		t.Fatalf("metadata round-trip: %v", got[0].Metadata)
	}
}
