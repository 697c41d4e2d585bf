// Profile HTTP handlers.
//
//   - GET   /profile                 (identity enrichment and preferences)
//   - PATCH /profile                 (partial update)
//   - GET   /settings/notifications  (email and push toggles)
//   - PUT   /settings/notifications  (replace toggles)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-prompt-studio/internal/domain"
)

// GetProfile godoc
// @ID          getProfile
// @Summary     Current profile
// @Tags        Profile
// @Security    BearerAuth
// @Produce     json
// @Success     200  {object}  domain.Profile
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	p, err := h.svc.Profile.Get(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update profile fields
// @Description theme is light, dark or system; font_size is small, medium or large.
// @Tags        Profile
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       body  body      domain.ProfilePatch  true  "Fields to change"
// @Success     200   {object}  domain.Profile
// @Failure     400   {object}  handlers.ErrorResponse
// @Router      /profile [patch]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var patch domain.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p, err := h.svc.Profile.Update(c.Request.Context(), userID(c), patch)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// GetNotificationSettings godoc
// @ID          getNotificationSettings
// @Summary     Notification toggles
// @Description Accounts that never saved settings get the defaults.
// @Tags        Profile
// @Security    BearerAuth
// @Produce     json
// @Success     200  {object}  domain.NotificationSettings
// @Router      /settings/notifications [get]
func (h *Handlers) GetNotificationSettings(c *gin.Context) {
	s, err := h.svc.Profile.Settings(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}

// SaveNotificationSettings godoc
// @ID          saveNotificationSettings
// @Summary     Replace notification toggles
// @Tags        Profile
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       body  body      domain.NotificationSettings  true  "All toggles"
// @Success     200   {object}  domain.NotificationSettings
// @Failure     400   {object}  handlers.ErrorResponse
// @Router      /settings/notifications [put]
func (h *Handlers) SaveNotificationSettings(c *gin.Context) {
	var in domain.NotificationSettings
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	s, err := h.svc.Profile.SaveSettings(c.Request.Context(), userID(c), in)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}
