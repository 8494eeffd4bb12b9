package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/attachments"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/objects"
)

// RepositoryManager vends repositories bound to a caller-chosen DBTX so
// that one transaction can span several of them.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Objects(db dbx.DBTX) objects.Repository
	Attachments(db dbx.DBTX) attachments.Repository
}
