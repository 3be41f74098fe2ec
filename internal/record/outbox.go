// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package record

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ChangeOp is the kind of index mutation a record write produced.
type ChangeOp string

const (
	OpUpsert ChangeOp = "upsert"
	OpRemove ChangeOp = "remove"
)

// Change is one outbox row awaiting delivery to the search index.
// Delivery is at-least-once; the index consumes changes idempotently.
type Change struct {
	Seq      int64
	Op       ChangeOp
	RecordID string
	Attempts int
}

// EnqueueTx appends a change event inside the transaction of the record
// write that produced it, so the feed never misses a committed write.
func EnqueueTx(tx *sql.Tx, op ChangeOp, recordID string, now time.Time) error {
	_, err := tx.Exec(
		`INSERT INTO outbox (op, record_id, attempts, next_attempt, created_at) VALUES (?, ?, 0, ?, ?)`,
		string(op), recordID,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("enqueueing change: %w", err)
	}
	return nil
}

// PendingChanges returns up to limit changes due for delivery at now, in
// commit order.
func (s *Store) PendingChanges(ctx context.Context, now time.Time, limit int) ([]Change, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, op, record_id, attempts FROM outbox
		 WHERE next_attempt <= ? ORDER BY seq LIMIT ?`,
		now.Format(time.RFC3339Nano), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying outbox: %w", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var (
			ch Change
			op string
		)
		if err := rows.Scan(&ch.Seq, &op, &ch.RecordID, &ch.Attempts); err != nil {
			return nil, fmt.Errorf("scanning change: %w", err)
		}
		ch.Op = ChangeOp(op)
		changes = append(changes, ch)
	}
	return changes, rows.Err()
}

// MarkDelivered removes a delivered change from the outbox.
func (s *Store) MarkDelivered(ctx context.Context, seq int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE seq = ?`, seq); err != nil {
		return fmt.Errorf("removing delivered change: %w", err)
	}
	return nil
}

// RequeueChange schedules a failed delivery for another attempt.
func (s *Store) RequeueChange(ctx context.Context, seq int64, nextAttempt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET attempts = attempts + 1, next_attempt = ? WHERE seq = ?`,
		nextAttempt.Format(time.RFC3339Nano), seq,
	)
	if err != nil {
		return fmt.Errorf("requeueing change: %w", err)
	}
	return nil
}

// OutboxDepth reports how many changes are waiting, for diagnostics.
func (s *Store) OutboxDepth(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM outbox`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting outbox: %w", err)
	}
	return n, nil
}
