package reaper

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/filex"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/repomanager"
)

const reconcilePageSize = 500

// publishGrace covers rows whose commit has landed but whose file is still
// being moved into place.
const publishGrace = time.Minute

// Missing is a live row whose canonical file is absent.
type Missing struct {
	ObjectID      string
	CanonicalPath string
}

// Report is the outcome of one reconciliation pass.
type Report struct {
	Checked int
	Skipped int
	Missing []Missing
}

// Reconciler finds live metadata rows without a readable file, the state a
// failed publish leaves behind. It only reports; it never repairs.
type Reconciler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	metrics     *metrics.Metrics

	exists func(path string) (bool, error)
	now    func() time.Time
	grace  time.Duration
}

func NewReconciler(db *sql.DB, repomanager repomanager.RepositoryManager, logger logging.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		db:          db,
		repomanager: repomanager,
		logger:      logger.With("module", "reconciler"),
		metrics:     m,
		exists:      filex.Exists,
		now:         time.Now,
		grace:       publishGrace,
	}
}

// Check pages through every live row and reports the ones whose file is
// missing. Rows committed within the grace window are skipped since their
// publish may still be running. It stops early only when ctx is done or the store fails.
func (c *Reconciler) Check(ctx context.Context) (Report, error) {
	var (
		rep   Report
		after string
	)
	repo := c.repomanager.Objects(c.db)

	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		page, err := repo.ListLive(ctx, after, reconcilePageSize)
		if err != nil {
			return rep, err
		}
		cutoff := c.now().Add(-c.grace)
		for _, obj := range page {
			if obj.UploadedAt.After(cutoff) {
				rep.Skipped++
				continue
			}
			rep.Checked++
			ok, err := c.exists(obj.CanonicalPath)
			if err != nil {
				c.logger.Warn(ctx, "failed to stat object file", "object_id", obj.ID, "path", obj.CanonicalPath, "error", err)
				continue
			}
			if !ok {
				c.logger.Error(ctx, "live object has no file", "object_id", obj.ID, "path", obj.CanonicalPath)
				rep.Missing = append(rep.Missing, Missing{ObjectID: obj.ID, CanonicalPath: obj.CanonicalPath})
			}
		}
		if len(page) < reconcilePageSize {
			break
		}
		after = page[len(page)-1].ID
	}

	if c.metrics != nil {
		c.metrics.UnpublishedObjects.Set(float64(len(rep.Missing)))
	}
	c.logger.Info(ctx, "reconcile finished", "checked", rep.Checked, "skipped", rep.Skipped, "missing", len(rep.Missing))
	return rep, nil
}

// Run checks on every interval until ctx is done.
func (c *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Check(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error(ctx, "reconcile failed", "error", err)
			}
		}
	}
}
