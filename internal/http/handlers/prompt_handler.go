// Prompt HTTP handlers.
//
// This file exposes REST endpoints for prompt resources:
//   - POST   /prompts                (create, Idempotency-Key aware)
//   - GET    /prompts                (list newest first, ETag support)
//   - GET    /prompts/{id}           (fetch one)
//   - PATCH  /prompts/{id}           (partial update)
//   - DELETE /prompts/{id}           (delete with attachments, chats and feedback)
//   - POST   /prompts/{id}/feedback  (rate a prompt)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/repo"
	"github.com/tbourn/go-prompt-studio/internal/utils"
)

// maxListLimit caps ?limit on list endpoints.
const maxListLimit = 100

// promptID validates the :id path parameter.
func promptID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt id must be a UUID")
		return "", false
	}
	return id, true
}

// promptFilter parses limit, offset, saved and favorited query params.
func promptFilter(c *gin.Context) (repo.PromptFilter, bool) {
	var f repo.PromptFilter
	page, err := utils.ParsePage(c.Query("limit"), c.Query("offset"), maxListLimit)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return f, false
	}
	f.Limit, f.Offset = page.Limit, page.Offset
	var good bool
	if f.Saved, good = utils.OptionalBool(c.Query("saved")); !good {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "saved must be a boolean")
		return f, false
	}
	if f.Favorited, good = utils.OptionalBool(c.Query("favorited")); !good {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "favorited must be a boolean")
		return f, false
	}
	return f, true
}

// CreatePrompt godoc
// @ID          createPrompt
// @Summary     Create a prompt
// @Description Stores a prompt for the caller. Retrying with the same Idempotency-Key returns the original prompt with Idempotency-Replayed: true.
// @Tags        Prompts
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string             false  "Client-generated retry key"
// @Param       body             body    domain.NewPrompt   true   "Prompt payload"
// @Success     201  {object}  domain.Prompt
// @Header      201  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /prompts [post]
func (h *Handlers) CreatePrompt(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	if h.replayed(c, func(id string) (any, error) { return h.svc.Prompts.Get(ctx, uid, id) }) {
		return
	}

	var req domain.NewPrompt
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p, err := h.svc.Prompts.Create(ctx, uid, req)
	if err != nil {
		failErr(c, err)
		return
	}
	h.remember(c, p.ID, http.StatusCreated)
	ok(c, http.StatusCreated, p)
}

// ListPrompts godoc
// @ID          listPrompts
// @Summary     List the caller's prompts
// @Description Newest first. saved/favorited are exact-match filters; an offset without a limit reads one page of 10. Supports weak ETag via If-None-Match.
// @Tags        Prompts
// @Security    BearerAuth
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       limit          query   int     false  "Max rows"  minimum(0) maximum(100)
// @Param       offset         query   int     false  "Rows to skip"  minimum(0)
// @Param       saved          query   bool    false  "Only saved (true) or unsaved (false)"
// @Param       favorited      query   bool    false  "Only favorites (true) or non-favorites (false)"
// @Success     200  {array}   domain.Prompt
// @Header      200  {string}  ETag  "Weak ETag for the caller's prompt set"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /prompts [get]
func (h *Handlers) ListPrompts(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	f, good := promptFilter(c)
	if !good {
		return
	}

	// ETag pre-check (best effort). The tag covers the whole set, so any
	// filter or page is stale once a prompt changes.
	if count, maxTS, err := h.svc.Prompts.Stats(ctx, uid); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"prompts:%s:%d:%d:%s"`, uid, count, ts, c.Request.URL.RawQuery)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.svc.Prompts.List(ctx, uid, f)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// GetPrompt godoc
// @ID          getPrompt
// @Summary     Fetch a prompt
// @Tags        Prompts
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      string  true  "Prompt ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Prompt
// @Failure     403  {object}  handlers.ErrorResponse  "Owned by another user"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /prompts/{id} [get]
func (h *Handlers) GetPrompt(c *gin.Context) {
	id, good := promptID(c)
	if !good {
		return
	}
	p, err := h.svc.Prompts.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdatePrompt godoc
// @ID          updatePrompt
// @Summary     Update a prompt
// @Description Only the fields present in the body change; is_saved and is_favorited are independent.
// @Tags        Prompts
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id    path      string              true  "Prompt ID (UUID)"  format(uuid)
// @Param       body  body      domain.PromptPatch  true  "Fields to change"
// @Success     200   {object}  domain.Prompt
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /prompts/{id} [patch]
func (h *Handlers) UpdatePrompt(c *gin.Context) {
	id, good := promptID(c)
	if !good {
		return
	}
	var patch domain.PromptPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p, err := h.svc.Prompts.Update(c.Request.Context(), userID(c), id, patch)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// DeletePrompt godoc
// @ID          deletePrompt
// @Summary     Delete a prompt
// @Description Removes the prompt with its attachments, chat sessions and feedback. Attachment objects are swept best-effort.
// @Tags        Prompts
// @Security    BearerAuth
// @Param       id   path  string  true  "Prompt ID (UUID)"  format(uuid)
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /prompts/{id} [delete]
func (h *Handlers) DeletePrompt(c *gin.Context) {
	id, good := promptID(c)
	if !good {
		return
	}
	if err := h.svc.Prompts.Delete(c.Request.Context(), userID(c), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// SubmitFeedback godoc
// @ID          submitFeedback
// @Summary     Rate a prompt
// @Description One feedback row per prompt and user; resubmitting replaces it.
// @Tags        Prompts
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id    path      string              true  "Prompt ID (UUID)"  format(uuid)
// @Param       body  body      domain.NewFeedback  true  "Rating, text and/or helpfulness"
// @Success     200   {object}  domain.Feedback
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /prompts/{id}/feedback [post]
func (h *Handlers) SubmitFeedback(c *gin.Context) {
	id, good := promptID(c)
	if !good {
		return
	}
	var req domain.NewFeedback
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	fb, err := h.svc.Feedback.Submit(c.Request.Context(), userID(c), id, req)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, fb)
}
