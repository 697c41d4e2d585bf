// Chat HTTP handlers.
//
// This file exposes conversational refinement sessions:
//   - POST /chat/sessions                (open a session on a prompt)
//   - POST /chat/sessions/{id}/messages  (append a message)
//   - GET  /chat/sessions/{id}/messages  (messages, oldest first)
package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//
// DTOs
//

// CreateSessionRequest opens a chat session on a prompt.
type CreateSessionRequest struct {
	PromptID string `json:"prompt_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// PostMessageRequest appends one message to a session.
type PostMessageRequest struct {
	// Role is "user" or "assistant".
	Role    string `json:"role"    binding:"required" example:"user"`
	Content string `json:"content" binding:"required" example:"Make it shorter and friendlier."`
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes line endings, collapses blank-line runs and
// trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func sessionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return "", false
	}
	return id, true
}

// CreateChatSession godoc
// @ID          createChatSession
// @Summary     Open a chat session
// @Tags        Chat
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CreateSessionRequest  true  "Prompt to refine"
// @Success     201   {object}  domain.ChatSession
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /chat/sessions [post]
func (h *Handlers) CreateChatSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt_id required")
		return
	}
	s, err := h.svc.Chat.CreateSession(c.Request.Context(), userID(c), req.PromptID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, s)
}

// PostChatMessage godoc
// @ID          postChatMessage
// @Summary     Append a chat message
// @Tags        Chat
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id    path      string                       true  "Session ID (UUID)"  format(uuid)
// @Param       body  body      handlers.PostMessageRequest  true  "Message"
// @Success     201   {object}  domain.ChatMessage
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /chat/sessions/{id}/messages [post]
func (h *Handlers) PostChatMessage(c *gin.Context) {
	id, good := sessionID(c)
	if !good {
		return
	}
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role and content required")
		return
	}
	m, err := h.svc.Chat.AddMessage(c.Request.Context(), userID(c), id, req.Role, sanitizeContent(req.Content))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, m)
}

// ListChatMessages godoc
// @ID          listChatMessages
// @Summary     List a session's messages
// @Description Oldest first.
// @Tags        Chat
// @Security    BearerAuth
// @Produce     json
// @Param       id   path     string  true  "Session ID (UUID)"  format(uuid)
// @Success     200  {array}  domain.ChatMessage
// @Failure     403  {object} handlers.ErrorResponse
// @Failure     404  {object} handlers.ErrorResponse
// @Router      /chat/sessions/{id}/messages [get]
func (h *Handlers) ListChatMessages(c *gin.Context) {
	id, good := sessionID(c)
	if !good {
		return
	}
	items, err := h.svc.Chat.Messages(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}
