// Package httpapi is the HTTP surface of the file service.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/filekeeper/internal/common"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	CodeInvalidFile        = "INVALID_FILE"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeFileNotFound       = "FILE_NOT_FOUND"
	CodeAttachmentNotFound = "ATTACHMENT_NOT_FOUND"
	CodeAlreadyAttached    = "ALREADY_ATTACHED"
	CodeForbidden          = "FORBIDDEN"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidation         = "VALIDATION_ERROR"
	CodeCancelled          = "REQUEST_CANCELLED"
	CodeInternal           = "INTERNAL_ERROR"
	internalErrorMessage   = "An internal error occurred"
)

func ok(c *gin.Context, data interface{}, msg string) {
	c.JSON(http.StatusOK, Response{Success: true, Message: msg, Data: data, Timestamp: time.Now().UTC()})
}

func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Message: msg, ErrorCode: code, Timestamp: time.Now().UTC()})
}

// failWith maps a service error to a status and error code. notFoundCode
// names the missing resource. Unclassified errors never leak detail.
func (h *Handler) failWith(c *gin.Context, err error, notFoundCode string) {
	switch {
	case errors.Is(err, common.ErrEmptyPayload):
		fail(c, http.StatusBadRequest, CodeInvalidFile, "File is required")
	case errors.Is(err, common.ErrSizeMismatch):
		fail(c, http.StatusBadRequest, CodeInvalidFile, "Received size does not match declared size")
	case errors.Is(err, common.ErrPayloadTooLarge):
		fail(c, http.StatusRequestEntityTooLarge, CodeFileTooLarge, "File exceeds the maximum upload size")
	case errors.Is(err, common.ErrNotFound):
		if notFoundCode == CodeAttachmentNotFound {
			fail(c, http.StatusNotFound, notFoundCode, "Attachment not found")
			return
		}
		fail(c, http.StatusNotFound, notFoundCode, "File not found")
	case errors.Is(err, common.ErrNotOwner):
		fail(c, http.StatusForbidden, CodeForbidden, "Access denied")
	case errors.Is(err, common.ErrAlreadyAttached):
		fail(c, http.StatusConflict, CodeAlreadyAttached, "File is already attached to this task")
	case errors.Is(err, common.ErrCancelled):
		fail(c, http.StatusRequestTimeout, CodeCancelled, "Request cancelled")
	default:
		h.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		fail(c, http.StatusInternalServerError, CodeInternal, internalErrorMessage)
	}
}
