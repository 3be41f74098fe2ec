// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recycle manages the deletion ledger and its time-to-live
// purge. Every soft delete appends one pending entry carrying a full
// snapshot of the record; an entry transitions exactly once to restored
// or purged. Transitions use compare-and-set on the pending status, so a
// restore racing a sweep yields exactly one terminal outcome.
package recycle

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/litvault/internal/errs"
	"github.com/pdiddy/litvault/internal/record"
	"github.com/pdiddy/litvault/pkg/types"
)

// Bin reads and transitions recycle-bin entries. It shares the record
// store's database so a restore commits the ledger transition and the
// record revival in one transaction.
type Bin struct {
	db    *sql.DB
	store *record.Store

	now func() time.Time
}

// NewBin wires the recycle bin to the record store.
func NewBin(store *record.Store) *Bin {
	return &Bin{
		db:    store.DB(),
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get returns one entry by id.
func (b *Bin) Get(ctx context.Context, entryID string) (types.RecycleEntry, error) {
	row := b.db.QueryRowContext(ctx,
		`SELECT id, record_type, record_id, snapshot, deleted_by, deleted_at, expires_at, status
		 FROM recycle_bin WHERE id = ?`, entryID,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RecycleEntry{}, fmt.Errorf("recycle entry %s: %w", entryID, errs.ErrNotFound)
	}
	if err != nil {
		return types.RecycleEntry{}, fmt.Errorf("looking up recycle entry: %w", err)
	}
	return entry, nil
}

// ListPending returns the pending entries visible to the actor: all of
// them for admins, otherwise only entries the actor deleted or owns.
func (b *Bin) ListPending(ctx context.Context, actor types.Actor) ([]types.RecycleEntry, error) {
	query := `SELECT id, record_type, record_id, snapshot, deleted_by, deleted_at, expires_at, status
		 FROM recycle_bin WHERE status = ?`
	args := []any{string(types.EntryPending)}

	if !actor.IsAdmin() {
		query += ` AND deleted_by = ?`
		args = append(args, actor.ID)
	}
	query += ` ORDER BY deleted_at DESC`

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing recycle entries: %w", err)
	}
	defer rows.Close()

	var entries []types.RecycleEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recycle entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Restore re-creates the active record from a pending entry's snapshot
// and marks the entry restored. The record keeps its id and original
// fields but gets a fresh updated timestamp; a subsequent sweep is a
// no-op for this entry. Only the deleting actor, the record owner, or an
// admin may restore.
func (b *Bin) Restore(ctx context.Context, entryID string, actor types.Actor) (types.Record, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Record{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		`SELECT id, record_type, record_id, snapshot, deleted_by, deleted_at, expires_at, status
		 FROM recycle_bin WHERE id = ?`, entryID,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, fmt.Errorf("recycle entry %s: %w", entryID, errs.ErrNotFound)
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("looking up recycle entry: %w", err)
	}

	if entry.Status != types.EntryPending {
		return types.Record{}, fmt.Errorf("recycle entry %s is %s: %w", entryID, entry.Status, errs.ErrInvalidState)
	}
	if !canRestore(entry, actor) {
		return types.Record{}, fmt.Errorf("actor %s may not restore entry %s: %w", actor.ID, entryID, errs.ErrForbidden)
	}

	// CAS on pending guards against a concurrent sweep claiming the
	// same entry between the read above and this transition.
	res, err := tx.Exec(
		`UPDATE recycle_bin SET status = ? WHERE id = ? AND status = ?`,
		string(types.EntryRestored), entryID, string(types.EntryPending),
	)
	if err != nil {
		return types.Record{}, fmt.Errorf("marking entry restored: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.Record{}, fmt.Errorf("recycle entry %s claimed concurrently: %w", entryID, errs.ErrConflict)
	}

	now := b.now()
	rec := entry.Snapshot
	if err := record.ReviveTx(tx, rec, now); err != nil {
		return types.Record{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Record{}, fmt.Errorf("committing restore: %w", err)
	}

	rec.Status = types.StatusActive
	rec.UpdatedAt = now
	return rec, nil
}

func canRestore(entry types.RecycleEntry, actor types.Actor) bool {
	return actor.IsAdmin() || actor.ID == entry.DeletedBy || actor.ID == entry.Snapshot.OwnerID
}

func scanEntry(sc interface{ Scan(...any) error }) (types.RecycleEntry, error) {
	var (
		entry     types.RecycleEntry
		snapshot  string
		deletedAt string
		expiresAt string
		status    string
	)
	if err := sc.Scan(
		&entry.ID, &entry.RecordType, &entry.RecordID, &snapshot,
		&entry.DeletedBy, &deletedAt, &expiresAt, &status,
	); err != nil {
		return types.RecycleEntry{}, err
	}

	if err := json.Unmarshal([]byte(snapshot), &entry.Snapshot); err != nil {
		return types.RecycleEntry{}, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	entry.Status = types.EntryStatus(status)
	if t, err := time.Parse(time.RFC3339Nano, deletedAt); err == nil {
		entry.DeletedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, expiresAt); err == nil {
		entry.ExpiresAt = t
	}
	return entry, nil
}
