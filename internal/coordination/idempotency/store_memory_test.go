package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processingRecord(owner string, now time.Time) *Record {
	return &Record{
		Key:         testKey,
		Principal:   "user-1",
		Fingerprint: "fp",
		Status:      StatusProcessing,
		Owner:       owner,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Minute),
	}
}

func TestMemoryStoreReserveReturnsExisting(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()

	acquired, existing, err := store.Reserve(context.Background(), processingRecord("w1", now), time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Nil(t, existing)

	acquired, existing, err = store.Reserve(context.Background(), processingRecord("w2", now), time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)
	require.NotNil(t, existing)
	assert.Equal(t, "w1", existing.Owner)
}

func TestMemoryStoreFinalizeRequiresOwnership(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, _, err := store.Reserve(ctx, processingRecord("w1", time.Now()), time.Minute)
	require.NoError(t, err)

	ok, err := store.Finalize(ctx, "user-1", testKey, "impostor", 201, "body", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Finalize(ctx, "user-1", testKey, "w1", 201, "body", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	// Already completed: a second finalize is a no-op.
	ok, err = store.Finalize(ctx, "user-1", testKey, "w1", 500, "other", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	_, existing, err := store.Reserve(ctx, processingRecord("w3", time.Now()), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, existing.Status)
	assert.Equal(t, "body", existing.ResponseBody)
}

func TestMemoryStoreReleaseRequiresOwnership(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, _, err := store.Reserve(ctx, processingRecord("w1", time.Now()), time.Minute)
	require.NoError(t, err)

	// A stale worker whose reservation was reclaimed cannot delete the
	// current owner's record.
	require.NoError(t, store.Release(ctx, "user-1", testKey, "impostor"))
	acquired, _, err := store.Reserve(ctx, processingRecord("w2", time.Now()), time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, store.Release(ctx, "user-1", testKey, "w1"))
	acquired, _, err = store.Reserve(ctx, processingRecord("w2", time.Now()), time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}
