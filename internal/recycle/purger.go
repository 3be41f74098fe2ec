// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recycle

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/litvault/internal/metrics"
	"github.com/pdiddy/litvault/internal/record"
	"github.com/pdiddy/litvault/pkg/types"
)

// Purger hard-deletes records whose recycle-bin entries have expired. It
// runs on its own schedule, claims entries with compare-and-set so
// multiple workers can sweep concurrently, and works in bounded batches
// to stay off the foreground path.
type Purger struct {
	db     *sql.DB
	store  *record.Store
	logger *zap.Logger
	met    *metrics.Metrics

	batch    int
	interval time.Duration
}

// NewPurger constructs a purger. A nil logger disables logging.
func NewPurger(store *record.Store, cfg types.RecycleConfig, logger *zap.Logger, met *metrics.Metrics) *Purger {
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := cfg.SweepBatch
	if batch <= 0 {
		batch = 200
	}
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Purger{
		db:       store.DB(),
		store:    store,
		logger:   logger,
		met:      met,
		batch:    batch,
		interval: interval,
	}
}

// SweepSummary reports the outcome of one sweep pass.
type SweepSummary struct {
	Purged  int
	Lost    int // entries claimed by a concurrent restore or sweep
	Errors  int
}

// Sweep purges up to one batch of pending entries whose expiry is at or
// before now. Each entry is claimed by flipping pending to purged with
// compare-and-set; a lost race means a concurrent restore (or another
// sweeper) won and the entry is skipped. Per-entry failures are logged
// and the entry stays pending for the next sweep.
func (p *Purger) Sweep(ctx context.Context, now time.Time) (SweepSummary, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, record_id FROM recycle_bin
		 WHERE status = ? AND expires_at <= ?
		 ORDER BY expires_at LIMIT ?`,
		string(types.EntryPending), now.Format(time.RFC3339Nano), p.batch,
	)
	if err != nil {
		return SweepSummary{}, fmt.Errorf("selecting expired entries: %w", err)
	}

	type expired struct{ entryID, recordID string }
	var batch []expired
	for rows.Next() {
		var e expired
		if err := rows.Scan(&e.entryID, &e.recordID); err != nil {
			rows.Close()
			return SweepSummary{}, fmt.Errorf("scanning expired entry: %w", err)
		}
		batch = append(batch, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return SweepSummary{}, err
	}

	var summary SweepSummary
	for _, e := range batch {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		purged, err := p.purgeOne(ctx, e.entryID, e.recordID)
		switch {
		case err != nil:
			summary.Errors++
			p.logger.Warn("purge failed, entry stays pending",
				zap.String("entry_id", e.entryID),
				zap.String("record_id", e.recordID),
				zap.Error(err))
		case !purged:
			summary.Lost++
		default:
			summary.Purged++
			if p.met != nil {
				p.met.RecordsPurged.Inc()
			}
		}
	}

	if summary.Purged > 0 || summary.Errors > 0 {
		p.logger.Info("sweep complete",
			zap.Int("purged", summary.Purged),
			zap.Int("lost", summary.Lost),
			zap.Int("errors", summary.Errors))
	}
	return summary, nil
}

// purgeOne claims and purges a single entry. The claim (pending to
// purged), the record removal, and the index-removal event commit in one
// transaction; false means the claim was lost to a concurrent restore.
func (p *Purger) purgeOne(ctx context.Context, entryID, recordID string) (bool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE recycle_bin SET status = ? WHERE id = ? AND status = ?`,
		string(types.EntryPurged), entryID, string(types.EntryPending),
	)
	if err != nil {
		return false, fmt.Errorf("claiming entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	// Idempotent: the row may already be gone.
	if err := record.HardDeleteTx(tx, recordID); err != nil {
		return false, err
	}
	if err := record.EnqueueTx(tx, record.OpRemove, recordID, time.Now().UTC()); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing purge: %w", err)
	}
	return true, nil
}

// Run sweeps on the configured interval until the context is cancelled.
func (p *Purger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("purger started", zap.Duration("interval", p.interval), zap.Int("batch", p.batch))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("purger stopped")
			return
		case <-ticker.C:
			if _, err := p.Sweep(ctx, time.Now().UTC()); err != nil && ctx.Err() == nil {
				p.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}
