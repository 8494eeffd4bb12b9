// Package objects provides the PostgreSQL-backed metadata store for
// uploaded objects (table files).
package objects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
)

const selectColumns = `id, original_name, stored_name, mime_type, size, checksum, storage_path, uploaded_by, uploaded_at, is_deleted`

// PostgresRepository implements object metadata storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a new live object row. Exactly one row must be affected.
func (r *PostgresRepository) Insert(ctx context.Context, obj *models.StoredObject) error {
	query := `
		INSERT INTO files (id, original_name, stored_name, mime_type, size, checksum, storage_path, uploaded_by, uploaded_at, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false)
	`
	res, err := r.db.ExecContext(ctx, query,
		obj.ID, obj.OriginalName, obj.StoredName, obj.ContentType, obj.SizeBytes,
		obj.Checksum, obj.CanonicalPath, obj.OwnerID, obj.UploadedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

// GetByID returns the live object with the given id, or common.ErrNotFound
// when it does not exist or was soft-deleted.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.StoredObject, error) {
	query := `SELECT ` + selectColumns + ` FROM files WHERE id=$1 AND is_deleted=false`

	obj, err := scanObject(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select object: %w", err)
	}
	return obj, nil
}

// ListByOwner returns the owner's live objects, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.StoredObject, error) {
	query := `SELECT ` + selectColumns + ` FROM files
		WHERE uploaded_by=$1 AND is_deleted=false
		ORDER BY uploaded_at DESC`

	return r.list(ctx, query, ownerID)
}

// ListLive pages through all live objects ordered by id, starting after
// afterID ("" for the first page).
func (r *PostgresRepository) ListLive(ctx context.Context, afterID string, limit int) ([]*models.StoredObject, error) {
	if afterID == "" {
		query := `SELECT ` + selectColumns + ` FROM files
			WHERE is_deleted=false
			ORDER BY id LIMIT $1`
		return r.list(ctx, query, limit)
	}
	query := `SELECT ` + selectColumns + ` FROM files
		WHERE is_deleted=false AND id>$1
		ORDER BY id LIMIT $2`
	return r.list(ctx, query, afterID, limit)
}

// SoftDelete flips is_deleted on a live row. It reports false when no live
// row matched, which covers a concurrent delete.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id string) (bool, error) {
	query := `UPDATE files SET is_deleted=true WHERE id=$1 AND is_deleted=false`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.StoredObject, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select objects: %w", err)
	}
	defer rows.Close()

	result := make([]*models.StoredObject, 0)
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObject(s scanner) (*models.StoredObject, error) {
	var o models.StoredObject
	if err := s.Scan(
		&o.ID, &o.OriginalName, &o.StoredName, &o.ContentType, &o.SizeBytes,
		&o.Checksum, &o.CanonicalPath, &o.OwnerID, &o.UploadedAt, &o.IsDeleted,
	); err != nil {
		return nil, err
	}
	return &o, nil
}
