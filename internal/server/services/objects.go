package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/blobstore"
	sc "github.com/dmitrijs2005/filekeeper/internal/server/config"
	"github.com/dmitrijs2005/filekeeper/internal/server/events"
	"github.com/dmitrijs2005/filekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
)

// BlobStore is the filesystem side of an object.
type BlobStore interface {
	StagingPath(id string) string
	CanonicalPath(storedName string) string
	Write(ctx context.Context, path string, r io.Reader, sizeHint int64) (blobstore.WriteResult, error)
	Publish(staging, canonical string) error
	Discard(path string) error
	Remove(path string) error
	ReadAll(path string) ([]byte, error)
	Open(path string) (*os.File, int64, error)
}

// EventSink accepts object-created notifications without blocking.
type EventSink interface {
	Dispatch(ctx context.Context, evt events.ObjectCreated) bool
}

// IngestRequest is one upload. DeclaredSize < 0 means the size is unknown.
type IngestRequest struct {
	OwnerID      string
	Body         io.Reader
	Name         string
	ContentType  string
	DeclaredSize int64
}

// Artifact is a fetched object: Data for small objects, Stream (seekable,
// closed by the caller) above the streaming threshold.
type Artifact struct {
	Object *models.StoredObject
	Data   []byte
	Stream *os.File
}

// ObjectService ingests, serves and deletes stored objects. Metadata and
// bytes are kept consistent with a three-phase protocol: stream to
// staging, commit metadata, publish.
type ObjectService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       BlobStore
	events      EventSink
	logger      logging.Logger
	metrics     *metrics.Metrics
	config      *sc.Config

	now   func() time.Time
	newID func() string
}

func NewObjectService(db *sql.DB, repomanager repomanager.RepositoryManager, blobs BlobStore, sink EventSink,
	logger logging.Logger, m *metrics.Metrics, config *sc.Config) *ObjectService {
	return &ObjectService{
		db:          db,
		repomanager: repomanager,
		blobs:       blobs,
		events:      sink,
		logger:      logger.With("module", "objects"),
		metrics:     m,
		config:      config,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
}

// Ingest stores an upload. Cancellation is honoured only while bytes are
// being staged; once the metadata transaction starts the upload completes
// or fails on its own.
func (s *ObjectService) Ingest(ctx context.Context, req IngestRequest) (*models.StoredObject, error) {
	start := s.now()
	obj, err := s.ingest(ctx, req)
	s.observeIngest(start, obj, err)
	return obj, err
}

func (s *ObjectService) ingest(ctx context.Context, req IngestRequest) (*models.StoredObject, error) {
	limit := s.config.MaxUploadSize

	if req.DeclaredSize > limit {
		return nil, common.ErrPayloadTooLarge
	}
	if req.DeclaredSize == 0 {
		return nil, common.ErrEmptyPayload
	}

	id := s.newID()
	storedName := blobstore.StoredName(id, req.Name)
	staging := s.blobs.StagingPath(id)
	canonical := s.blobs.CanonicalPath(storedName)

	// phase 1: stage bytes
	res, err := s.blobs.Write(ctx, staging, io.LimitReader(req.Body, limit+1), req.DeclaredSize)
	if err != nil {
		s.discard(ctx, staging)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Info(ctx, "upload cancelled", "object_id", id)
			return nil, fmt.Errorf("%w: %w", common.ErrCancelled, err)
		}
		s.logger.Error(ctx, "failed to stage upload", "object_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrWriteFailed, err)
	}

	switch {
	case res.Size == 0:
		s.discard(ctx, staging)
		return nil, common.ErrEmptyPayload
	case res.Size > limit:
		s.discard(ctx, staging)
		return nil, common.ErrPayloadTooLarge
	case req.DeclaredSize > 0 && res.Size != req.DeclaredSize:
		s.discard(ctx, staging)
		return nil, fmt.Errorf("%w: declared %d, received %d", common.ErrSizeMismatch, req.DeclaredSize, res.Size)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = common.DefaultContentType
	}

	obj := &models.StoredObject{
		ID:            id,
		OriginalName:  req.Name,
		StoredName:    storedName,
		ContentType:   contentType,
		SizeBytes:     res.Size,
		Checksum:      res.Checksum,
		CanonicalPath: canonical,
		OwnerID:       req.OwnerID,
		UploadedAt:    s.now().UTC(),
	}

	// phase 2: commit metadata, detached from the request
	err = dbx.WithDetachedTx(ctx, s.db, s.config.MetadataTimeout, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Objects(tx).Insert(ctx, obj)
	})
	if err != nil {
		s.discard(ctx, staging)
		s.logger.Error(ctx, "failed to commit object metadata", "object_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrMetadataCommitFailed, err)
	}

	// phase 3: publish; no rollback past this point
	err = s.blobs.Publish(staging, canonical)
	if errors.Is(err, blobstore.ErrStagingLeftover) {
		s.logger.Warn(ctx, "object published by copy but staging file remains", "object_id", id, "path", staging, "error", err)
		err = nil
	}
	if err != nil {
		s.logger.Critical(ctx, "object metadata committed but file could not be published",
			"object_id", id, "staging_path", staging, "canonical_path", canonical, "error", err)
		if s.metrics != nil {
			s.metrics.CriticalFaults.Inc()
		}
		return nil, fmt.Errorf("%w: %v", common.ErrPublishFailed, err)
	}

	s.logger.Info(ctx, "object stored", "object_id", id, "owner_id", obj.OwnerID, "size", obj.SizeBytes)

	s.events.Dispatch(ctx, events.ObjectCreated{
		ObjectID:    obj.ID,
		OwnerID:     obj.OwnerID,
		Name:        obj.OriginalName,
		ContentType: obj.ContentType,
		Size:        obj.SizeBytes,
		Timestamp:   obj.UploadedAt,
	})

	return obj, nil
}

func (s *ObjectService) discard(ctx context.Context, staging string) {
	if err := s.blobs.Discard(staging); err != nil {
		s.logger.Warn(ctx, "failed to remove staging file", "path", staging, "error", err)
	}
}

func (s *ObjectService) observeIngest(start time.Time, obj *models.StoredObject, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.UploadDuration.Observe(s.now().Sub(start).Seconds())
	s.metrics.UploadsTotal.WithLabelValues(ingestResult(err)).Inc()
	if obj != nil {
		s.metrics.UploadedBytes.Add(float64(obj.SizeBytes))
	}
}

func ingestResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case common.IsClientError(err):
		return "client_error"
	case errors.Is(err, common.ErrCancelled):
		return "cancelled"
	case errors.Is(err, common.ErrWriteFailed):
		return "write_failed"
	case errors.Is(err, common.ErrMetadataCommitFailed):
		return "metadata_failed"
	case errors.Is(err, common.ErrPublishFailed):
		return "publish_failed"
	default:
		return "error"
	}
}

// GetMetadata returns the live record for id or common.ErrNotFound.
func (s *ObjectService) GetMetadata(ctx context.Context, id string) (*models.StoredObject, error) {
	return s.repomanager.Objects(s.db).GetByID(ctx, id)
}

// ListByOwner returns the owner's live objects, newest first.
func (s *ObjectService) ListByOwner(ctx context.Context, ownerID string) ([]*models.StoredObject, error) {
	return s.repomanager.Objects(s.db).ListByOwner(ctx, ownerID)
}

// Fetch loads a live object. Objects up to StreamThreshold come back as
// bytes, larger ones as an open file. A row whose file is gone is reported
// as common.ErrNotFound.
func (s *ObjectService) Fetch(ctx context.Context, id string) (*Artifact, error) {
	obj, err := s.repomanager.Objects(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if obj.SizeBytes <= s.config.StreamThreshold {
		data, err := s.blobs.ReadAll(obj.CanonicalPath)
		if err != nil {
			return nil, s.fetchError(ctx, obj, err)
		}
		return &Artifact{Object: obj, Data: data}, nil
	}

	f, _, err := s.blobs.Open(obj.CanonicalPath)
	if err != nil {
		return nil, s.fetchError(ctx, obj, err)
	}
	return &Artifact{Object: obj, Stream: f}, nil
}

func (s *ObjectService) fetchError(ctx context.Context, obj *models.StoredObject, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		s.logger.Warn(ctx, "object row present but file missing", "object_id", obj.ID, "path", obj.CanonicalPath)
		return common.ErrNotFound
	}
	s.logger.Error(ctx, "failed to read object", "object_id", obj.ID, "error", err)
	return fmt.Errorf("read object %s: %w", obj.ID, err)
}

// Delete soft-deletes the object owned by requester and then removes its
// file. It reports false when there was nothing live to delete. A failed
// file removal is logged and does not undo the metadata change.
func (s *ObjectService) Delete(ctx context.Context, id, requester string) (bool, error) {
	var (
		obj     *models.StoredObject
		deleted bool
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Objects(tx)

		var err error
		obj, err = repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if obj.OwnerID != requester {
			return common.ErrNotOwner
		}
		deleted, err = repo.SoftDelete(ctx, id)
		return err
	})
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}

	if err := s.blobs.Remove(obj.CanonicalPath); err != nil {
		s.logger.Warn(ctx, "object soft-deleted but file removal failed", "object_id", id, "path", obj.CanonicalPath, "error", err)
	}
	s.logger.Info(ctx, "object deleted", "object_id", id, "owner_id", requester)

	return true, nil
}
