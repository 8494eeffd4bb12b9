package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
)

// AttachmentService links stored objects to tasks.
type AttachmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger

	newID func() string
	now   func() time.Time
}

func NewAttachmentService(db *sql.DB, repomanager repomanager.RepositoryManager, logger logging.Logger) *AttachmentService {
	return &AttachmentService{
		db:          db,
		repomanager: repomanager,
		logger:      logger.With("module", "attachments"),
		newID:       func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

// Attach links objectID to parentID on behalf of requester, who must own
// the object. A pair can be linked once.
func (s *AttachmentService) Attach(ctx context.Context, requester, parentID, objectID string) (*models.Attachment, error) {
	a := &models.Attachment{
		ID:         s.newID(),
		ParentID:   parentID,
		ObjectID:   objectID,
		UploadedBy: requester,
		UploadedAt: s.now().UTC(),
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		obj, err := s.repomanager.Objects(tx).GetByID(ctx, objectID)
		if err != nil {
			return err
		}
		if obj.OwnerID != requester {
			return common.ErrNotOwner
		}

		repo := s.repomanager.Attachments(tx)
		exists, err := repo.Exists(ctx, parentID, objectID)
		if err != nil {
			return err
		}
		if exists {
			return common.ErrAlreadyAttached
		}
		// the unique index still guards a concurrent insert
		return repo.Insert(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "object attached", "attachment_id", a.ID, "task_id", parentID, "object_id", objectID)

	loaded, err := s.repomanager.Attachments(s.db).GetByID(ctx, a.ID)
	if err != nil {
		// the link is committed; hand back what we wrote
		s.logger.Warn(ctx, "failed to reload attachment", "attachment_id", a.ID, "error", err)
		return a, nil
	}
	return loaded, nil
}

// Detach removes an attachment of parentID created by requester. It reports
// false when the attachment does not exist or belongs to another parent.
func (s *AttachmentService) Detach(ctx context.Context, parentID, attachmentID, requester string) (bool, error) {
	var deleted bool

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Attachments(tx)

		a, err := repo.GetByID(ctx, attachmentID)
		if err != nil {
			return err
		}
		if a.ParentID != parentID {
			return common.ErrNotFound
		}
		if a.UploadedBy != requester {
			return common.ErrNotOwner
		}
		deleted, err = repo.Delete(ctx, attachmentID)
		return err
	})
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if deleted {
		s.logger.Info(ctx, "attachment removed", "attachment_id", attachmentID)
	}
	return deleted, nil
}

// GetAttachment returns one attachment with its object.
func (s *AttachmentService) GetAttachment(ctx context.Context, attachmentID string) (*models.Attachment, error) {
	return s.repomanager.Attachments(s.db).GetByID(ctx, attachmentID)
}

// ListByParent returns the live attachments of a task, newest first.
func (s *AttachmentService) ListByParent(ctx context.Context, parentID string) ([]*models.Attachment, error) {
	return s.repomanager.Attachments(s.db).ListByParent(ctx, parentID)
}
