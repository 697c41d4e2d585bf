// Analytics HTTP handlers.
//
//   - POST /analytics/events  (record a usage event)
//   - GET  /stats             (dashboard aggregate)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// EventRequest is one usage event. Known action types (prompt_refined,
// prompt_saved, template_used, attachment_uploaded, prompt_copied) and
// custom ones share this shape.
type EventRequest struct {
	ActionType string         `json:"action_type" binding:"required" example:"prompt_copied"`
	Metadata   map[string]any `json:"metadata"`
}

// LogEvent godoc
// @ID          logEvent
// @Summary     Record a usage event
// @Tags        Analytics
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.EventRequest  true  "Event"
// @Success     201   {object}  domain.AnalyticsEvent
// @Failure     400   {object}  handlers.ErrorResponse
// @Router      /analytics/events [post]
func (h *Handlers) LogEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "action_type required")
		return
	}
	ev, err := h.svc.Analytics.Log(c.Request.Context(), userID(c), domain.Custom{Action: req.ActionType, Data: req.Metadata})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, ev)
}

// GetStats godoc
// @ID          getStats
// @Summary     Dashboard statistics
// @Description The caller's prompts, own templates and the last 30 days of events. A failed part is returned as an empty list.
// @Tags        Analytics
// @Security    BearerAuth
// @Produce     json
// @Success     200  {object}  domain.UserStats
// @Router      /stats [get]
func (h *Handlers) GetStats(c *gin.Context) {
	st, err := h.svc.Analytics.Stats(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}
