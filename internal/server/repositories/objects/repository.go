package objects

import (
	"context"

	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, obj *models.StoredObject) error
	GetByID(ctx context.Context, id string) (*models.StoredObject, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.StoredObject, error)
	ListLive(ctx context.Context, afterID string, limit int) ([]*models.StoredObject, error)
	SoftDelete(ctx context.Context, id string) (bool, error)
}
