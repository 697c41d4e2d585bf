package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/repo"
)

// ChatService manages the conversational refinement threads attached to
// prompts. Messages are append-only.
type ChatService struct {
	DB *gorm.DB
}

// CreateSession opens a thread on one of the caller's prompts.
func (s *ChatService) CreateSession(ctx context.Context, userID, promptID string) (*domain.ChatSession, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "CreateSession", trace.WithAttributes(attribute.String("prompt.id", promptID)))
	defer span.End()

	if blank(promptID) {
		return nil, invalid("prompt_id", "is required")
	}
	if _, err := ownedPrompt(ctx, s.DB, userID, promptID); err != nil {
		return nil, err
	}
	cs, err := repo.CreateChatSession(ctx, s.DB, promptID, userID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return cs, nil
}

// AddMessage appends a message to one of the caller's sessions.
func (s *ChatService) AddMessage(ctx context.Context, userID, sessionID, role, content string) (*domain.ChatMessage, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "AddMessage", trace.WithAttributes(
		attribute.String("chat.session_id", sessionID),
		attribute.String("chat.role", role),
	))
	defer span.End()

	role = strings.ToLower(strings.TrimSpace(role))
	if role != domain.RoleUser && role != domain.RoleAssistant {
		return nil, invalid("role", "must be user or assistant")
	}
	if blank(content) {
		return nil, invalid("content", "is required")
	}
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	m, err := repo.CreateChatMessage(ctx, s.DB, sessionID, role, content)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return m, nil
}

// Messages returns a session's messages oldest first.
func (s *ChatService) Messages(ctx context.Context, userID, sessionID string) ([]domain.ChatMessage, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Messages", trace.WithAttributes(attribute.String("chat.session_id", sessionID)))
	defer span.End()

	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return repo.ListChatMessages(ctx, s.DB, sessionID)
}

func (s *ChatService) ownedSession(ctx context.Context, userID, id string) (*domain.ChatSession, error) {
	cs, err := repo.GetChatSession(ctx, s.DB, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if cs.UserID != userID {
		return nil, ErrForbidden
	}
	return cs, nil
}
