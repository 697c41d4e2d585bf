package domain

import (
	"errors"
	"testing"
)

func TestNewAnalyticsEvent_KnownKinds(t *testing.T) {
	cases := []struct {
		ev   Event
		kind string
		key  string
	}{
		{PromptRefined{PromptID: "p1", TargetModel: "gpt-4", Attachments: 2}, "prompt_refined", "target_model"},
		{PromptSaved{PromptID: "p1"}, "prompt_saved", "prompt_id"},
		{TemplateUsed{TemplateID: "t1", Category: "coding"}, "template_used", "category"},
		{AttachmentUploaded{PromptID: "p1", FileType: "image/png", FileSize: 10}, "attachment_uploaded", "file_size"},
		{PromptCopied{PromptID: "p1", Refined: true}, "prompt_copied", "refined"},
		{Custom{Action: " page_view ", Data: map[string]any{"page": "saved"}}, "page_view", "page"},
	}
	for _, tc := range cases {
		got, err := NewAnalyticsEvent("u1", tc.ev)
		if err != nil {
			t.Fatalf("%T: %v", tc.ev, err)
		}
		if got.UserID != "u1" || got.ActionType != tc.kind {
			t.Fatalf("%T: unexpected event %+v", tc.ev, got)
		}
		if _, ok := got.Metadata[tc.key]; !ok {
			t.Fatalf("%T: metadata missing %q: %v", tc.ev, tc.key, got.Metadata)
		}
	}
}

func TestNewAnalyticsEvent_RejectsEmptyKind(t *testing.T) {
	if _, err := NewAnalyticsEvent("u1", Custom{Action: "  "}); !errors.Is(err, ErrEmptyActionType) {
		t.Fatalf("want ErrEmptyActionType, got %v", err)
	}
	if _, err := NewAnalyticsEvent("u1", nil); !errors.Is(err, ErrEmptyActionType) {
		t.Fatalf("want ErrEmptyActionType for nil event, got %v", err)
	}
}

func TestPromptRefined_OmitsEmptyFields(t *testing.T) {
	md := PromptRefined{}.Metadata()
	if _, ok := md["target_model"]; ok {
		t.Fatalf("empty target_model should be omitted: %v", md)
	}
	if md["attachments"] != 0 {
		t.Fatalf("attachments should always be present: %v", md)
	}
	if (Custom{Action: "x"}).Metadata() == nil {
		t.Fatalf("custom metadata must not be nil")
	}
}
