// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litvault/internal/errs"
	"github.com/pdiddy/litvault/internal/record"
	"github.com/pdiddy/litvault/pkg/types"
)

// fakeIndex records every call and can be told to fail.
type fakeIndex struct {
	mu       sync.Mutex
	upserts  []types.IndexDoc
	removes  []string
	failWith error
}

func (f *fakeIndex) Upsert(_ context.Context, doc types.IndexDoc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.upserts = append(f.upserts, doc)
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.removes = append(f.removes, id)
	return nil
}

func (f *fakeIndex) setFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

func testDispatcher(t *testing.T) (*record.Store, *fakeIndex, *Dispatcher) {
	t.Helper()
	cfg := types.EngineConfig{
		Store: types.StoreConfig{DataDir: t.TempDir()},
	}
	store, err := record.NewStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	idx := &fakeIndex{}
	return store, idx, NewDispatcher(store, idx, cfg, nil, nil)
}

func makeRecord(t *testing.T, store *record.Store, title string) types.Record {
	t.Helper()
	rec, err := store.Create(context.Background(), types.Record{
		Title: title,
		Year:  2022,
	}, types.Actor{ID: "u1", Role: types.RoleResearcher})
	require.NoError(t, err)
	return rec
}

func TestProcessOnceDeliversUpsert(t *testing.T) {
	store, idx, d := testDispatcher(t)
	ctx := context.Background()
	rec := makeRecord(t, store, "Fresh arrival")

	delivered, requeued, err := d.ProcessOnce(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Zero(t, requeued)

	require.Len(t, idx.upserts, 1)
	assert.Equal(t, rec.ID, idx.upserts[0].ID)
	assert.Equal(t, rec.Title, idx.upserts[0].Title)

	// The outbox is empty afterwards.
	depth, err := store.OutboxDepth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestUpsertOfDeletedRecordBecomesRemove(t *testing.T) {
	store, idx, d := testDispatcher(t)
	ctx := context.Background()
	rec := makeRecord(t, store, "Gone before delivery")

	// Delete before the create change is delivered. Both changes must
	// land as removals so a stale upsert cannot resurrect the record.
	require.NoError(t, store.SoftDelete(ctx, rec.ID, types.Actor{ID: "u1", Role: types.RoleResearcher}))

	delivered, _, err := d.ProcessOnce(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
	assert.Empty(t, idx.upserts)
	assert.Equal(t, []string{rec.ID, rec.ID}, idx.removes)
}

func TestFailedDeliveryRequeuesWithBackoff(t *testing.T) {
	store, idx, d := testDispatcher(t)
	ctx := context.Background()
	makeRecord(t, store, "Index down")

	idx.setFailure(errors.New("index offline"))
	now := time.Now().UTC()

	delivered, requeued, err := d.ProcessOnce(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Equal(t, 1, requeued)

	// Not due again until the backoff elapses.
	changes, err := store.PendingChanges(ctx, now.Add(time.Second), 10)
	require.NoError(t, err)
	assert.Empty(t, changes)

	changes, err = store.PendingChanges(ctx, now.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, 1, changes[0].Attempts)

	// Once the index recovers the change goes through.
	idx.setFailure(nil)
	delivered, requeued, err = d.ProcessOnce(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Zero(t, requeued)
	assert.Len(t, idx.upserts, 1)
}

func TestBackoffGrowsWithAttempts(t *testing.T) {
	store, idx, d := testDispatcher(t)
	ctx := context.Background()
	makeRecord(t, store, "Persistently failing")

	idx.setFailure(errors.New("index offline"))
	now := time.Now().UTC()

	// Each failed pass must push the next attempt further out.
	var prevGap time.Duration
	cursor := now
	for i := 0; i < 3; i++ {
		_, requeued, err := d.ProcessOnce(ctx, cursor)
		require.NoError(t, err)
		require.Equal(t, 1, requeued)

		changes, err := store.PendingChanges(ctx, cursor.Add(365*24*time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, i+1, changes[0].Attempts)

		// Not due before the backoff for this attempt has elapsed.
		gap := d.retryBase << uint(i)
		early, err := store.PendingChanges(ctx, cursor.Add(gap/2), 10)
		require.NoError(t, err)
		assert.Empty(t, early)

		assert.Greater(t, gap, prevGap)
		prevGap = gap
		cursor = cursor.Add(gap)
	}
}

func TestDrainDeliversEverything(t *testing.T) {
	store, idx, d := testDispatcher(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		makeRecord(t, store, title)
	}

	require.NoError(t, d.Drain(ctx))
	assert.Len(t, idx.upserts, 3)

	depth, err := store.OutboxDepth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestDrainReportsUnavailableIndex(t *testing.T) {
	store, idx, d := testDispatcher(t)
	makeRecord(t, store, "Stuck")

	idx.setFailure(errors.New("index offline"))
	err := d.Drain(context.Background())
	assert.ErrorIs(t, err, errs.ErrUnavailable)

	// The change survives for a later pass.
	depth, err := store.OutboxDepth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestDrainFailureLeavesChangeDueForPolling(t *testing.T) {
	store, idx, d := testDispatcher(t)
	ctx := context.Background()
	rec := makeRecord(t, store, "Recovers after failed sync")

	idx.setFailure(errors.New("index offline"))
	require.ErrorIs(t, d.Drain(ctx), errs.ErrUnavailable)

	// The requeue must anchor on the wall clock, not the drain cutoff: a
	// normal poll shortly after the backoff elapses picks the change up.
	idx.setFailure(nil)
	changes, err := store.PendingChanges(ctx, time.Now().UTC().Add(d.retryBase*2), 10)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	delivered, requeued, err := d.ProcessOnce(ctx, time.Now().UTC().Add(d.retryBase*2))
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Zero(t, requeued)
	require.Len(t, idx.upserts, 1)
	assert.Equal(t, rec.ID, idx.upserts[0].ID)
}

func TestRedeliveryIsHarmless(t *testing.T) {
	store, idx, d := testDispatcher(t)
	ctx := context.Background()
	rec := makeRecord(t, store, "Delivered twice")

	_, _, err := d.ProcessOnce(ctx, time.Now().UTC())
	require.NoError(t, err)

	// Simulate at-least-once by re-enqueueing the same change.
	tx, err := store.DB().Begin()
	require.NoError(t, err)
	require.NoError(t, record.EnqueueTx(tx, record.OpUpsert, rec.ID, time.Now().UTC()))
	require.NoError(t, tx.Commit())

	delivered, _, err := d.ProcessOnce(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	// Same doc both times.
	require.Len(t, idx.upserts, 2)
	assert.Equal(t, idx.upserts[0], idx.upserts[1])
}
