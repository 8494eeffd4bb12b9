// Package attachments provides the PostgreSQL-backed store for links
// between tasks and uploaded objects (table task_attachments).
package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const joinedSelect = `SELECT a.id, a.task_id, a.file_id, a.uploaded_by, a.uploaded_at,
		f.id, f.original_name, f.stored_name, f.mime_type, f.size, f.checksum, f.storage_path, f.uploaded_by, f.uploaded_at, f.is_deleted
	FROM task_attachments a
	JOIN files f ON f.id = a.file_id`

// PostgresRepository implements attachment storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a new attachment. A duplicate (task_id, file_id) pair is
// reported as common.ErrAlreadyAttached.
func (r *PostgresRepository) Insert(ctx context.Context, a *models.Attachment) error {
	query := `
		INSERT INTO task_attachments (id, task_id, file_id, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, a.ID, a.ParentID, a.ObjectID, a.UploadedBy, a.UploadedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrAlreadyAttached
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Exists reports whether the object is already attached to the parent.
func (r *PostgresRepository) Exists(ctx context.Context, parentID, objectID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM task_attachments WHERE task_id=$1 AND file_id=$2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, parentID, objectID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// GetByID returns the attachment with its object, or common.ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	query := joinedSelect + ` WHERE a.id=$1`

	a, err := scanAttachment(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select attachment: %w", err)
	}
	return a, nil
}

// ListByParent returns the parent's attachments whose object is still
// live, newest first.
func (r *PostgresRepository) ListByParent(ctx context.Context, parentID string) ([]*models.Attachment, error) {
	query := joinedSelect + ` WHERE a.task_id=$1 AND f.is_deleted=false ORDER BY a.uploaded_at DESC`

	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to select attachments: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Attachment, 0)
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the attachment row and reports whether it existed.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM task_attachments WHERE id=$1`, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttachment(s scanner) (*models.Attachment, error) {
	var (
		a models.Attachment
		o models.StoredObject
	)
	if err := s.Scan(
		&a.ID, &a.ParentID, &a.ObjectID, &a.UploadedBy, &a.UploadedAt,
		&o.ID, &o.OriginalName, &o.StoredName, &o.ContentType, &o.SizeBytes,
		&o.Checksum, &o.CanonicalPath, &o.OwnerID, &o.UploadedAt, &o.IsDeleted,
	); err != nil {
		return nil, err
	}
	a.Object = &o
	return &a, nil
}
