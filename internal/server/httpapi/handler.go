package httpapi

import (
	"context"

	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/services"
)

// ObjectAPI is the part of services.ObjectService the handlers use.
type ObjectAPI interface {
	Ingest(ctx context.Context, req services.IngestRequest) (*models.StoredObject, error)
	GetMetadata(ctx context.Context, id string) (*models.StoredObject, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.StoredObject, error)
	Fetch(ctx context.Context, id string) (*services.Artifact, error)
	Delete(ctx context.Context, id, requester string) (bool, error)
}

// AttachmentAPI is the part of services.AttachmentService the handlers use.
type AttachmentAPI interface {
	Attach(ctx context.Context, requester, parentID, objectID string) (*models.Attachment, error)
	Detach(ctx context.Context, parentID, attachmentID, requester string) (bool, error)
	ListByParent(ctx context.Context, parentID string) ([]*models.Attachment, error)
}

type Handler struct {
	objects     ObjectAPI
	attachments AttachmentAPI
	logger      logging.Logger
}

func NewHandler(objects ObjectAPI, attachments AttachmentAPI, logger logging.Logger) *Handler {
	return &Handler{
		objects:     objects,
		attachments: attachments,
		logger:      logger.With("module", "httpapi"),
	}
}
