package attachments

import (
	"context"

	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, a *models.Attachment) error
	Exists(ctx context.Context, parentID, objectID string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Attachment, error)
	ListByParent(ctx context.Context, parentID string) ([]*models.Attachment, error)
	Delete(ctx context.Context, id string) (bool, error)
}
