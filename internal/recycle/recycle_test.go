// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/litvault/internal/errs"
	"github.com/pdiddy/litvault/internal/record"
	"github.com/pdiddy/litvault/pkg/types"
)

// --- test helpers ---

var (
	owner    = types.Actor{ID: "u1", Role: types.RoleResearcher}
	stranger = types.Actor{ID: "u2", Role: types.RoleResearcher}
	admin    = types.Actor{ID: "root", Role: types.RoleAdmin}
)

func testSetup(t *testing.T) (*record.Store, *Bin, *Purger) {
	t.Helper()
	cfg := types.EngineConfig{
		Store: types.StoreConfig{DataDir: t.TempDir()},
	}
	store, err := record.NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	bin := NewBin(store)
	purger := NewPurger(store, cfg.Recycle, nil, nil)
	return store, bin, purger
}

// deleteOne creates and soft-deletes a record, returning it with its
// pending ledger entry.
func deleteOne(t *testing.T, store *record.Store, bin *Bin, title string) (types.Record, types.RecycleEntry) {
	t.Helper()
	ctx := context.Background()

	rec, err := store.Create(ctx, types.Record{
		Title:    title,
		Abstract: "abstract of " + title,
		Keywords: []string{"lifecycle"},
		Year:     2021,
	}, owner)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SoftDelete(ctx, rec.ID, owner); err != nil {
		t.Fatal(err)
	}

	entries, err := bin.ListPending(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.RecordID == rec.ID {
			return rec, e
		}
	}
	t.Fatalf("no pending entry for %s", rec.ID)
	return types.Record{}, types.RecycleEntry{}
}

// --- ledger shape ---

func TestDeleteAppendsSnapshotEntry(t *testing.T) {
	store, bin, _ := testSetup(t)
	rec, entry := deleteOne(t, store, bin, "Snapshot fidelity")

	if entry.Status != types.EntryPending {
		t.Errorf("status = %s, want pending", entry.Status)
	}
	if entry.RecordType != types.RecordTypeLiterature {
		t.Errorf("record type = %s", entry.RecordType)
	}
	if entry.DeletedBy != owner.ID {
		t.Errorf("deleted_by = %s, want %s", entry.DeletedBy, owner.ID)
	}
	if entry.Snapshot.Title != rec.Title || entry.Snapshot.ID != rec.ID {
		t.Error("snapshot does not match deleted record")
	}
	if want := entry.DeletedAt.Add(types.DefaultRetention); !entry.ExpiresAt.Equal(want) {
		t.Errorf("expiry = %v, want %v", entry.ExpiresAt, want)
	}
}

func TestListPendingVisibility(t *testing.T) {
	store, bin, _ := testSetup(t)
	deleteOne(t, store, bin, "Mine")

	ctx := context.Background()

	mine, err := bin.ListPending(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 {
		t.Errorf("owner sees %d entries, want 1", len(mine))
	}

	theirs, err := bin.ListPending(ctx, stranger)
	if err != nil {
		t.Fatal(err)
	}
	if len(theirs) != 0 {
		t.Errorf("stranger sees %d entries, want 0", len(theirs))
	}

	all, err := bin.ListPending(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("admin sees %d entries, want 1", len(all))
	}
}

// --- restore ---

func TestRestoreRecreatesActiveRecord(t *testing.T) {
	store, bin, purger := testSetup(t)
	rec, entry := deleteOne(t, store, bin, "Back from the bin")

	restored, err := bin.Restore(context.Background(), entry.ID, owner)
	if err != nil {
		t.Fatal(err)
	}
	if restored.ID != rec.ID {
		t.Errorf("restored id = %s, want %s", restored.ID, rec.ID)
	}

	got, err := store.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.StatusActive {
		t.Errorf("status = %s, want active", got.Status)
	}
	if got.Title != rec.Title || got.Abstract != rec.Abstract {
		t.Error("original fields not intact after restore")
	}
	if !got.UpdatedAt.After(rec.UpdatedAt) {
		t.Error("expected fresh updated timestamp")
	}

	// The entry is terminal; any later sweep ignores it.
	summary, err := purger.Sweep(context.Background(), time.Now().UTC().Add(2*types.DefaultRetention))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Purged != 0 {
		t.Errorf("sweep purged %d after restore, want 0", summary.Purged)
	}
	if _, err := store.Get(context.Background(), rec.ID); err != nil {
		t.Error("restored record must survive sweeps")
	}
}

func TestRestoreErrors(t *testing.T) {
	store, bin, _ := testSetup(t)
	_, entry := deleteOne(t, store, bin, "Error cases")
	ctx := context.Background()

	if _, err := bin.Restore(ctx, "missing-entry", owner); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("unknown entry err = %v, want ErrNotFound", err)
	}
	if _, err := bin.Restore(ctx, entry.ID, stranger); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("stranger restore err = %v, want ErrForbidden", err)
	}

	if _, err := bin.Restore(ctx, entry.ID, owner); err != nil {
		t.Fatal(err)
	}
	// Second restore hits a terminal entry.
	if _, err := bin.Restore(ctx, entry.ID, owner); !errors.Is(err, errs.ErrInvalidState) {
		t.Errorf("double restore err = %v, want ErrInvalidState", err)
	}
}

func TestRestoreByAdmin(t *testing.T) {
	store, bin, _ := testSetup(t)
	rec, entry := deleteOne(t, store, bin, "Admin rescue")

	if _, err := bin.Restore(context.Background(), entry.ID, admin); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(context.Background(), rec.ID); err != nil {
		t.Error("record not active after admin restore")
	}
}

// --- sweep ---

func TestSweepPurgesExpiredEntries(t *testing.T) {
	store, bin, purger := testSetup(t)
	rec, entry := deleteOne(t, store, bin, "Past retention")
	ctx := context.Background()

	// One day before expiry: nothing to do.
	summary, err := purger.Sweep(ctx, entry.ExpiresAt.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Purged != 0 {
		t.Fatalf("early sweep purged %d, want 0", summary.Purged)
	}

	// One day past expiry: entry purged, record unrecoverable.
	summary, err = purger.Sweep(ctx, entry.ExpiresAt.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Purged != 1 {
		t.Fatalf("sweep purged %d, want 1", summary.Purged)
	}

	got, err := bin.Get(ctx, entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.EntryPurged {
		t.Errorf("entry status = %s, want purged", got.Status)
	}
	if _, err := store.Get(ctx, rec.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("purged record still resolvable: %v", err)
	}
	if _, err := bin.Restore(ctx, entry.ID, owner); !errors.Is(err, errs.ErrInvalidState) {
		t.Errorf("restore after purge err = %v, want ErrInvalidState", err)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	store, bin, purger := testSetup(t)
	_, entry := deleteOne(t, store, bin, "Swept twice")
	ctx := context.Background()
	after := entry.ExpiresAt.Add(time.Hour)

	if _, err := purger.Sweep(ctx, after); err != nil {
		t.Fatal(err)
	}
	summary, err := purger.Sweep(ctx, after)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Purged != 0 || summary.Errors != 0 {
		t.Errorf("second sweep = %+v, want no-op", summary)
	}
}

func TestSweepRespectsBatchLimit(t *testing.T) {
	cfg := types.EngineConfig{
		Store:   types.StoreConfig{DataDir: t.TempDir()},
		Recycle: types.RecycleConfig{SweepBatch: 2},
	}
	store, err := record.NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	bin := NewBin(store)
	purger := NewPurger(store, cfg.Recycle, nil, nil)

	var latest time.Time
	for _, title := range []string{"a", "b", "c"} {
		_, entry := deleteOne(t, store, bin, title)
		if entry.ExpiresAt.After(latest) {
			latest = entry.ExpiresAt
		}
	}

	after := latest.Add(time.Hour)
	summary, err := purger.Sweep(context.Background(), after)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Purged != 2 {
		t.Fatalf("first bounded sweep purged %d, want 2", summary.Purged)
	}
	summary, err = purger.Sweep(context.Background(), after)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Purged != 1 {
		t.Fatalf("second bounded sweep purged %d, want 1", summary.Purged)
	}
}

// --- restore/sweep race ---

func TestRestoreSweepRaceOneTerminalOutcome(t *testing.T) {
	for i := 0; i < 10; i++ {
		store, bin, purger := testSetup(t)
		rec, entry := deleteOne(t, store, bin, "Contended")
		ctx := context.Background()
		after := entry.ExpiresAt.Add(time.Hour)

		var wg sync.WaitGroup
		var restoreErr error
		var summary SweepSummary
		var sweepErr error

		wg.Add(2)
		go func() {
			defer wg.Done()
			_, restoreErr = bin.Restore(ctx, entry.ID, owner)
		}()
		go func() {
			defer wg.Done()
			summary, sweepErr = purger.Sweep(ctx, after)
		}()
		wg.Wait()

		if sweepErr != nil {
			t.Fatal(sweepErr)
		}

		got, err := bin.Get(ctx, entry.ID)
		if err != nil {
			t.Fatal(err)
		}

		switch got.Status {
		case types.EntryRestored:
			if restoreErr != nil {
				t.Fatalf("entry restored but restore errored: %v", restoreErr)
			}
			if summary.Purged != 0 {
				t.Fatal("entry restored yet sweep reports a purge")
			}
			if _, err := store.Get(ctx, rec.ID); err != nil {
				t.Fatal("restored record not resolvable")
			}
		case types.EntryPurged:
			if restoreErr == nil {
				t.Fatal("entry purged but restore also succeeded")
			}
			if _, err := store.Get(ctx, rec.ID); !errors.Is(err, errs.ErrNotFound) {
				t.Fatal("purged record still resolvable")
			}
		default:
			t.Fatalf("entry stuck in %s after race", got.Status)
		}
	}
}
