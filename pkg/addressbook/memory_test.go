package addressbook_test

import (
	"context"
	"testing"
	"time"

	"github.com/shipmux/shipmux/pkg/addressbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistration(hash string, lastUsed time.Time) *addressbook.Registration {
	return &addressbook.Registration{
		AddressHash:      hash,
		Carrier:          "freightcom",
		CanonicalAddress: "12 high st",
		ExternalID:       "ab-1",
		UsageCount:       1,
		CreatedAt:        lastUsed,
		LastUsedAt:       lastUsed,
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := addressbook.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Create(ctx, newRegistration("h1", now)))

	reg, err := store.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "ab-1", reg.ExternalID)
	assert.Equal(t, int64(1), reg.UsageCount)
}

func TestMemoryStore_Get_NotFound(t *testing.T) {
	store := addressbook.NewMemoryStore()
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, addressbook.ErrNotFound)
}

func TestMemoryStore_Create_Duplicate(t *testing.T) {
	store := addressbook.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Create(ctx, newRegistration("h1", now)))
	err := store.Create(ctx, newRegistration("h1", now))
	assert.ErrorIs(t, err, addressbook.ErrDuplicateKey)
}

func TestMemoryStore_Touch(t *testing.T) {
	store := addressbook.NewMemoryStore()
	ctx := context.Background()
	created := time.Now()

	require.NoError(t, store.Create(ctx, newRegistration("h1", created)))

	later := created.Add(time.Hour)
	require.NoError(t, store.Touch(ctx, "h1", later))

	reg, err := store.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), reg.UsageCount)
	assert.True(t, reg.LastUsedAt.Equal(later))
}

func TestMemoryStore_Touch_NotFound(t *testing.T) {
	store := addressbook.NewMemoryStore()
	err := store.Touch(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, addressbook.ErrNotFound)
}

func TestMemoryStore_DeleteLastUsedBefore(t *testing.T) {
	store := addressbook.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	stale := newRegistration("stale", now.Add(-91*24*time.Hour))
	fresh := newRegistration("fresh", now.Add(-89*24*time.Hour))
	fresh.ExternalID = "ab-2"
	require.NoError(t, store.Create(ctx, stale))
	require.NoError(t, store.Create(ctx, fresh))

	removed, err := store.DeleteLastUsedBefore(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = store.Get(ctx, "stale")
	assert.ErrorIs(t, err, addressbook.ErrNotFound)

	_, err = store.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestMemoryStore_Stats(t *testing.T) {
	store := addressbook.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Count)
	assert.Equal(t, float64(0), stats.AverageUsage)

	r1 := newRegistration("h1", now)
	r1.UsageCount = 3
	r2 := newRegistration("h2", now)
	r2.UsageCount = 1
	require.NoError(t, store.Create(ctx, r1))
	require.NoError(t, store.Create(ctx, r2))

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Count)
	assert.Equal(t, int64(4), stats.TotalUsage)
	assert.Equal(t, 2.0, stats.AverageUsage)
}
