package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/drivetime-cli/pkg/gis"
)

func openTestCache(t *testing.T) *GeocodeCache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "geocode.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestStoreAndLookup(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	cand := &gis.Candidate{Address: "2025 Stockton St, San Francisco", Score: 98.5}
	cand.Location.X = -122.41
	cand.Location.Y = 37.80

	require.NoError(t, c.Store(ctx, "2025 Stockton St", cand))

	got, hit, err := c.Lookup(ctx, "2025 Stockton St", time.Hour)
	require.NoError(t, err)
	require.True(t, hit)
	require.NotNil(t, got)
	assert.Equal(t, cand.Address, got.Address)
	assert.InDelta(t, -122.41, got.Location.X, 0.0001)
	assert.InDelta(t, 37.80, got.Location.Y, 0.0001)
	assert.InDelta(t, 98.5, got.Score, 0.001)
}

func TestLookup_Miss(t *testing.T) {
	c := openTestCache(t)

	got, hit, err := c.Lookup(context.Background(), "never seen", time.Hour)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, got)
}

func TestStore_NonMatch(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "123 Nowhere St", nil))

	got, hit, err := c.Lookup(ctx, "123 Nowhere St", time.Hour)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Nil(t, got)
}

func TestLookup_NormalizesQuery(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	cand := &gis.Candidate{Address: "A"}
	require.NoError(t, c.Store(ctx, "2025  Stockton St", cand))

	_, hit, err := c.Lookup(ctx, "2025 STOCKTON   st", time.Hour)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestStore_Overwrites(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "q", nil))
	cand := &gis.Candidate{Address: "matched now"}
	require.NoError(t, c.Store(ctx, "q", cand))

	got, hit, err := c.Lookup(ctx, "q", time.Hour)
	require.NoError(t, err)
	require.True(t, hit)
	require.NotNil(t, got)
	assert.Equal(t, "matched now", got.Address)
}

func TestLookup_TTLExpiry(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "q", &gis.Candidate{Address: "A"}))

	// A nanosecond TTL is already expired by lookup time.
	_, hit, err := c.Lookup(ctx, "q", time.Nanosecond)
	require.NoError(t, err)
	assert.False(t, hit)

	// Zero TTL disables expiry.
	_, hit, err = c.Lookup(ctx, "q", 0)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestPrune(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "old", &gis.Candidate{Address: "A"}))

	n, err := c.Prune(ctx, -time.Hour) // everything is older than -1h from now
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, hit, err := c.Lookup(ctx, "old", 0)
	require.NoError(t, err)
	assert.False(t, hit)
}
