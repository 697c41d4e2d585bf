// Storage HTTP handlers.
//
// This file exposes the object bucket:
//   - POST   /storage/objects         (multipart upload under a caller-owned key)
//   - DELETE /storage/objects/{path}  (remove one of the caller's objects)
//
// Objects are served read-only from the static /files mount.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-prompt-studio/internal/http/middleware"
)

// UploadObject godoc
// @ID          uploadObject
// @Summary     Upload an object
// @Description Stores the file under path, whose first segment must be the caller's user id. Keys are never overwritten. The stored type is sniffed from the content.
// @Tags        Storage
// @Security    BearerAuth
// @Accept      mpfd
// @Produce     json
// @Param       path  formData  string  true  "Object key, <user>/[segment/]<name>"
// @Param       file  formData  file    true  "File contents"
// @Success     201   {object}  services.StoredObject
// @Failure     400   {object}  handlers.ErrorResponse  "Bad key, type or size"
// @Failure     403   {object}  handlers.ErrorResponse  "Key owned by another user"
// @Failure     409   {object}  handlers.ErrorResponse  "Key already taken"
// @Failure     413   {object}  handlers.ErrorResponse
// @Router      /storage/objects [post]
func (h *Handlers) UploadObject(c *gin.Context) {
	f, fh, good := h.formFile(c)
	if !good {
		return
	}
	defer f.Close()

	key := strings.TrimSpace(c.PostForm("path"))
	obj, err := h.svc.Attachments.Upload(c.Request.Context(), userID(c), key, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		middleware.ObserveUpload("", 0, err)
		failErr(c, err)
		return
	}
	middleware.ObserveUpload(obj.Type, obj.Size, nil)
	ok(c, http.StatusCreated, obj)
}

// DeleteObject godoc
// @ID          deleteObject
// @Summary     Delete an object
// @Tags        Storage
// @Security    BearerAuth
// @Param       path  path  string  true  "Object key"
// @Success     204   {string}  string  "No Content"
// @Failure     403   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /storage/objects/{path} [delete]
func (h *Handlers) DeleteObject(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("path"), "/")
	if err := h.svc.Attachments.DeleteObject(c.Request.Context(), userID(c), key); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
