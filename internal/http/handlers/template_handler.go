// Template HTTP handlers.
//
// This file exposes the template library:
//   - GET  /templates           (list public and own templates, most used first)
//   - POST /templates           (create)
//   - POST /templates/{id}/use  (atomically count one use)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-prompt-studio/internal/domain"
	"github.com/tbourn/go-prompt-studio/internal/repo"
	"github.com/tbourn/go-prompt-studio/internal/utils"
)

// UsageResponse reports a template's usage count after an increment.
type UsageResponse struct {
	ID         string `json:"id"`
	UsageCount int64  `json:"usage_count" example:"42"`
}

// ListTemplates godoc
// @ID          listTemplates
// @Summary     List templates
// @Description Public templates plus the caller's own, ordered by usage count descending. search matches title or description, case-insensitively.
// @Tags        Templates
// @Security    BearerAuth
// @Produce     json
// @Param       category     query  string  false  "Exact category"  example(writing)
// @Param       public_only  query  bool    false  "Only public templates"
// @Param       search       query  string  false  "Substring of title or description"
// @Success     200  {array}   domain.Template
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /templates [get]
func (h *Handlers) ListTemplates(c *gin.Context) {
	publicOnly, good := utils.OptionalBool(c.Query("public_only"))
	if !good {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "public_only must be a boolean")
		return
	}
	f := repo.TemplateFilter{
		Category:   c.Query("category"),
		PublicOnly: publicOnly != nil && *publicOnly,
		Search:     strings.TrimSpace(c.Query("search")),
	}
	items, err := h.svc.Templates.List(c.Request.Context(), userID(c), f)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// CreateTemplate godoc
// @ID          createTemplate
// @Summary     Create a template
// @Tags        Templates
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string              false  "Client-generated retry key"
// @Param       body             body    domain.NewTemplate  true   "Template payload"
// @Success     201  {object}  domain.Template
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /templates [post]
func (h *Handlers) CreateTemplate(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	if h.replayed(c, func(id string) (any, error) { return repo.GetTemplate(ctx, h.opts.DB, id) }) {
		return
	}
	var req domain.NewTemplate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	t, err := h.svc.Templates.Create(ctx, uid, req)
	if err != nil {
		failErr(c, err)
		return
	}
	h.remember(c, t.ID, http.StatusCreated)
	ok(c, http.StatusCreated, t)
}

// UseTemplate godoc
// @ID          useTemplate
// @Summary     Count a template use
// @Description Increments usage_count server-side so concurrent uses are never lost.
// @Tags        Templates
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      string  true  "Template ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.UsageResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Private template of another user"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /templates/{id}/use [post]
func (h *Handlers) UseTemplate(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "template id must be a UUID")
		return
	}
	n, err := h.svc.Templates.Use(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, UsageResponse{ID: id, UsageCount: n})
}
