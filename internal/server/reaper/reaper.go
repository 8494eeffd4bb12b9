// Package reaper holds the background chores that keep the staging area
// and the metadata store honest: the orphan reaper and the reconciler.
package reaper

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/metrics"
)

// Stats summarises one sweep.
type Stats struct {
	Scanned    int
	Removed    int
	FreedBytes int64
	Errors     int
}

// Reaper removes staging files left behind by crashed or abandoned uploads.
// Only files older than MaxAge are touched, so in-flight uploads are safe.
type Reaper struct {
	dir      string
	interval time.Duration
	maxAge   time.Duration
	logger   logging.Logger
	metrics  *metrics.Metrics

	now    func() time.Time
	remove func(name string) error
}

func New(stagingDir string, interval, maxAge time.Duration, logger logging.Logger, m *metrics.Metrics) *Reaper {
	return &Reaper{
		dir:      stagingDir,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger.With("module", "reaper"),
		metrics:  m,
		now:      time.Now,
		remove:   os.Remove,
	}
}

// Run sweeps immediately and then on every interval until ctx is done.
// A sweep in progress is never interrupted.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info(context.WithoutCancel(ctx), "reaper stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep removes stale regular files from the staging directory. Per-file
// failures are logged and counted; they never stop the sweep. A missing
// directory yields empty stats.
func (r *Reaper) Sweep(ctx context.Context) Stats {
	var st Stats

	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return st
	}
	if err != nil {
		r.logger.Error(ctx, "failed to list staging directory", "dir", r.dir, "error", err)
		st.Errors++
		r.record(st)
		return st
	}

	cutoff := r.now().Add(-r.maxAge)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		st.Scanned++

		info, err := e.Info()
		if errors.Is(err, fs.ErrNotExist) {
			// published or discarded since ReadDir
			continue
		}
		if err != nil {
			r.logger.Warn(ctx, "failed to stat staging file", "file", e.Name(), "error", err)
			st.Errors++
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		if err := r.remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			r.logger.Warn(ctx, "failed to remove orphaned staging file", "file", path, "error", err)
			st.Errors++
			continue
		}
		st.Removed++
		st.FreedBytes += info.Size()
	}

	r.record(st)
	if st.Removed > 0 || st.Errors > 0 {
		r.logger.Info(ctx, "orphan sweep finished",
			"removed", st.Removed, "freed_bytes", st.FreedBytes, "errors", st.Errors, "scanned", st.Scanned)
	} else {
		r.logger.Debug(ctx, "orphan sweep finished", "scanned", st.Scanned)
	}
	return st
}

func (r *Reaper) record(st Stats) {
	if r.metrics == nil {
		return
	}
	r.metrics.ReaperRemovedFiles.Add(float64(st.Removed))
	r.metrics.ReaperFreedBytes.Add(float64(st.FreedBytes))
	r.metrics.ReaperErrors.Add(float64(st.Errors))
}
