package client

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// CreateChatSession opens a conversational-refinement session on a prompt.
func (c *Client) CreateChatSession(ctx context.Context, promptID string) (*domain.ChatSession, error) {
	const op = "create chat session"
	if strings.TrimSpace(promptID) == "" {
		return nil, invalidArg(op, "prompt_id")
	}
	return send[*domain.ChatSession](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(map[string]string{"prompt_id": promptID}).Post("/chat/sessions")
	})
}

// AddChatMessage appends a message to a session. role is "user" or "assistant".
func (c *Client) AddChatMessage(ctx context.Context, sessionID, role, content string) (*domain.ChatMessage, error) {
	const op = "add chat message"
	switch {
	case strings.TrimSpace(sessionID) == "":
		return nil, invalidArg(op, "session_id")
	case role != domain.RoleUser && role != domain.RoleAssistant:
		return nil, &APIError{Op: op, Kind: ErrValidationFailed, Message: "role must be user or assistant"}
	case strings.TrimSpace(content) == "":
		return nil, invalidArg(op, "content")
	}
	return send[*domain.ChatMessage](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", sessionID).
			SetBody(map[string]string{"role": role, "content": content}).
			Post("/chat/sessions/{id}/messages")
	})
}

// GetChatMessages returns a session's messages, oldest first.
func (c *Client) GetChatMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	const op = "list chat messages"
	if strings.TrimSpace(sessionID) == "" {
		return nil, invalidArg(op, "session_id")
	}
	items, err := send[[]domain.ChatMessage](ctx, c, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", sessionID).Get("/chat/sessions/{id}/messages")
	})
	if items == nil && err == nil {
		items = []domain.ChatMessage{}
	}
	return items, err
}
