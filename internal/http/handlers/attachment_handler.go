// Attachment HTTP handlers.
//
// This file exposes the files linked to prompts:
//   - POST   /prompts/{id}/attachments  (multipart upload + record, or JSON record of an uploaded object)
//   - GET    /prompts/{id}/attachments  (list)
//   - DELETE /attachments/{id}          (remove record and object)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-prompt-studio/internal/http/middleware"
	"github.com/tbourn/go-prompt-studio/internal/services"
)

// CreateAttachment godoc
// @ID          createAttachment
// @Summary     Attach a file to a prompt
// @Description multipart/form-data uploads the "file" part and records it; if recording fails the object is removed again. application/json records an object already uploaded through /storage/objects.
// @Tags        Attachments
// @Security    BearerAuth
// @Accept      mpfd,json
// @Produce     json
// @Param       id    path      string                   true   "Prompt ID (UUID)"  format(uuid)
// @Param       file  formData  file                     false  "File contents (multipart)"
// @Param       body  body      services.NewAttachment   false  "Uploaded object (JSON)"
// @Success     201   {object}  domain.Attachment
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Failure     413   {object}  handlers.ErrorResponse
// @Router      /prompts/{id}/attachments [post]
func (h *Handlers) CreateAttachment(c *gin.Context) {
	id, good := promptID(c)
	if !good {
		return
	}
	ctx := c.Request.Context()

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req services.NewAttachment
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
		a, err := h.svc.Attachments.Record(ctx, userID(c), id, req)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, http.StatusCreated, a)
		return
	}

	f, fh, good := h.formFile(c)
	if !good {
		return
	}
	defer f.Close()

	a, err := h.svc.Attachments.Attach(ctx, userID(c), id, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		middleware.ObserveUpload("", 0, err)
		failErr(c, err)
		return
	}
	middleware.ObserveUpload(a.FileType, a.FileSize, nil)
	ok(c, http.StatusCreated, a)
}

// ListAttachments godoc
// @ID          listAttachments
// @Summary     List a prompt's attachments
// @Tags        Attachments
// @Security    BearerAuth
// @Produce     json
// @Param       id   path     string  true  "Prompt ID (UUID)"  format(uuid)
// @Success     200  {array}  domain.Attachment
// @Failure     403  {object} handlers.ErrorResponse
// @Failure     404  {object} handlers.ErrorResponse
// @Router      /prompts/{id}/attachments [get]
func (h *Handlers) ListAttachments(c *gin.Context) {
	id, good := promptID(c)
	if !good {
		return
	}
	items, err := h.svc.Attachments.List(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// DeleteAttachment godoc
// @ID          deleteAttachment
// @Summary     Delete an attachment
// @Description Removes the stored object (best effort) and then the record.
// @Tags        Attachments
// @Security    BearerAuth
// @Param       id   path  string  true  "Attachment ID (UUID)"  format(uuid)
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /attachments/{id} [delete]
func (h *Handlers) DeleteAttachment(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "attachment id must be a UUID")
		return
	}
	if err := h.svc.Attachments.Delete(c.Request.Context(), userID(c), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
