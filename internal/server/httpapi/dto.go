package httpapi

import (
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

type FileResponse struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum,omitempty"`
	UploadedBy   string    `json:"uploadedBy"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

type AttachmentResponse struct {
	ID         string        `json:"id"`
	TaskID     string        `json:"taskId"`
	FileID     string        `json:"fileId"`
	File       *FileResponse `json:"file,omitempty"`
	UploadedBy string        `json:"uploadedBy"`
	UploadedAt time.Time     `json:"uploadedAt"`
}

type AttachRequest struct {
	TaskID string `json:"taskId"`
	FileID string `json:"fileId"`
}

func toFileResponse(o *models.StoredObject) *FileResponse {
	if o == nil {
		return nil
	}
	return &FileResponse{
		ID:           o.ID,
		OriginalName: o.OriginalName,
		MimeType:     o.ContentType,
		Size:         o.SizeBytes,
		Checksum:     o.Checksum,
		UploadedBy:   o.OwnerID,
		UploadedAt:   o.UploadedAt,
	}
}

func toAttachmentResponse(a *models.Attachment) *AttachmentResponse {
	return &AttachmentResponse{
		ID:         a.ID,
		TaskID:     a.ParentID,
		FileID:     a.ObjectID,
		File:       toFileResponse(a.Object),
		UploadedBy: a.UploadedBy,
		UploadedAt: a.UploadedAt,
	}
}
