package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) Attach(c *gin.Context) {
	taskID, valid := pathUUID(c, "taskId")
	if !valid {
		return
	}

	var req AttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeValidation, "Request body must be JSON with taskId and fileId")
		return
	}

	bodyTask, err := uuid.Parse(req.TaskID)
	if err != nil || bodyTask.String() != taskID {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, "Task ID in route and body must match")
		return
	}
	fileID, err := uuid.Parse(req.FileID)
	if err != nil {
		fail(c, http.StatusBadRequest, CodeValidation, "fileId must be a valid uuid")
		return
	}

	a, err := h.attachments.Attach(c.Request.Context(), currentUser(c), taskID, fileID.String())
	if err != nil {
		h.failWith(c, err, CodeFileNotFound)
		return
	}
	ok(c, toAttachmentResponse(a), "File attached to task successfully")
}

func (h *Handler) ListAttachments(c *gin.Context) {
	taskID, valid := pathUUID(c, "taskId")
	if !valid {
		return
	}

	list, err := h.attachments.ListByParent(c.Request.Context(), taskID)
	if err != nil {
		h.failWith(c, err, CodeAttachmentNotFound)
		return
	}

	out := make([]*AttachmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAttachmentResponse(a))
	}
	ok(c, out, "Attachments retrieved successfully")
}

func (h *Handler) Detach(c *gin.Context) {
	taskID, valid := pathUUID(c, "taskId")
	if !valid {
		return
	}
	attachmentID, valid := pathUUID(c, "attachmentId")
	if !valid {
		return
	}

	deleted, err := h.attachments.Detach(c.Request.Context(), taskID, attachmentID, currentUser(c))
	if err != nil {
		h.failWith(c, err, CodeAttachmentNotFound)
		return
	}
	if !deleted {
		fail(c, http.StatusNotFound, CodeAttachmentNotFound, "Attachment not found")
		return
	}
	ok(c, nil, "File detached from task successfully")
}
