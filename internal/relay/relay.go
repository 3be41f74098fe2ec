// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relay delivers the record store's outbox change feed to the
// search index. Delivery is asynchronous and at-least-once: each index
// call is bounded by a timeout, failures requeue the change with
// exponential backoff, and the originating record mutation is never
// rolled back because of index unavailability.
package relay

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/litvault/internal/errs"
	"github.com/pdiddy/litvault/internal/metrics"
	"github.com/pdiddy/litvault/internal/record"
	"github.com/pdiddy/litvault/pkg/types"
)

// Indexer is the consumer side of the change feed. Both operations must
// be idempotent so redelivery is safe.
type Indexer interface {
	Upsert(ctx context.Context, doc types.IndexDoc) error
	Remove(ctx context.Context, id string) error
}

// Dispatcher polls the outbox and applies changes to the index.
type Dispatcher struct {
	store  *record.Store
	idx    Indexer
	logger *zap.Logger
	met    *metrics.Metrics

	timeout   time.Duration
	poll      time.Duration
	batchSize int
	retryBase time.Duration
}

// NewDispatcher constructs a dispatcher. A nil logger disables logging.
func NewDispatcher(store *record.Store, idx Indexer, cfg types.EngineConfig, logger *zap.Logger, met *metrics.Metrics) *Dispatcher {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:     store,
		idx:       idx,
		logger:    logger,
		met:       met,
		timeout:   cfg.Index.Timeout,
		poll:      cfg.Relay.PollInterval,
		batchSize: cfg.Relay.BatchSize,
		retryBase: cfg.Relay.RetryBase,
	}
}

// ProcessOnce delivers one batch of due changes. It returns how many
// changes were delivered and how many were requeued.
func (d *Dispatcher) ProcessOnce(ctx context.Context, now time.Time) (delivered, requeued int, err error) {
	return d.processBatch(ctx, now, now)
}

// processBatch delivers changes due at cutoff. Failed deliveries are
// requeued relative to requeueFrom, which must be the wall clock: a
// far-future cutoff would otherwise push the next attempt out of reach
// of the polling relay.
func (d *Dispatcher) processBatch(ctx context.Context, cutoff, requeueFrom time.Time) (delivered, requeued int, err error) {
	changes, err := d.store.PendingChanges(ctx, cutoff, d.batchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, ch := range changes {
		if err := ctx.Err(); err != nil {
			return delivered, requeued, err
		}

		if err := d.deliver(ctx, ch); err != nil {
			requeued++
			backoff := d.retryBase << uint(min(ch.Attempts, 10))
			d.logger.Warn("index delivery failed, requeueing",
				zap.Int64("seq", ch.Seq),
				zap.String("op", string(ch.Op)),
				zap.String("record_id", ch.RecordID),
				zap.Int("attempts", ch.Attempts+1),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			if rqErr := d.store.RequeueChange(ctx, ch.Seq, requeueFrom.Add(backoff)); rqErr != nil {
				return delivered, requeued, rqErr
			}
			if d.met != nil {
				d.met.RelayRetries.Inc()
			}
			continue
		}

		if err := d.store.MarkDelivered(ctx, ch.Seq); err != nil {
			return delivered, requeued, err
		}
		delivered++
		if d.met != nil {
			d.met.RelayDelivered.Inc()
		}
	}

	if d.met != nil {
		if depth, err := d.store.OutboxDepth(ctx); err == nil {
			d.met.OutboxDepth.Set(float64(depth))
		}
	}
	return delivered, requeued, nil
}

// deliver applies one change under the index timeout. An upsert for a
// record that is no longer active degrades to a removal, so redeliveries
// never resurrect a deleted record.
func (d *Dispatcher) deliver(ctx context.Context, ch record.Change) error {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if ch.Op == record.OpRemove {
		return d.idx.Remove(callCtx, ch.RecordID)
	}

	rec, err := d.store.Get(ctx, ch.RecordID)
	if errors.Is(err, errs.ErrNotFound) {
		return d.idx.Remove(callCtx, ch.RecordID)
	}
	if err != nil {
		return err
	}
	return d.idx.Upsert(callCtx, record.Doc(rec))
}

// Drain synchronously delivers every queued change, ignoring retry
// backoff. Used by the CLI sync command and tests; a pass delivering
// nothing stops the loop so a dead index cannot spin it forever.
func (d *Dispatcher) Drain(ctx context.Context) error {
	// Far-future cutoff makes backed-off changes due immediately.
	// Requeues still anchor on the wall clock so a failed drain leaves
	// the change within reach of the polling relay.
	cutoff := time.Now().UTC().Add(100 * 365 * 24 * time.Hour)
	for {
		delivered, requeued, err := d.processBatch(ctx, cutoff, time.Now().UTC())
		if err != nil {
			return err
		}
		if delivered == 0 {
			if requeued > 0 {
				return errs.ErrUnavailable
			}
			return nil
		}
	}
}

// Run polls the outbox on the configured interval until the context is
// cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	d.logger.Info("change relay started",
		zap.Duration("poll", d.poll),
		zap.Int("batch", d.batchSize))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("change relay stopped")
			return
		case t := <-ticker.C:
			if _, _, err := d.ProcessOnce(ctx, t.UTC()); err != nil && ctx.Err() == nil {
				d.logger.Error("outbox poll failed", zap.Error(err))
			}
		}
	}
}
