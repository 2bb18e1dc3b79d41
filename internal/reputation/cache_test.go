package reputation

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/guildpoint/guildpoint/internal/database/types"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupCacheTest(t *testing.T) (*ScoreCache, *engineFixture, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	f := newEngineFixture(t)
	cache := NewScoreCache(f.engine, client, time.Minute, zap.NewNop())

	return cache, f, mr
}

func TestScoreCache_MissComputesAndCaches(t *testing.T) {
	t.Parallel()

	cache, f, mr := setupCacheTest(t)
	ctx := t.Context()

	f.addAttestation(t, "user", 1000, types.Metadata{"weight": 7}, 0)

	score, err := cache.GetScore(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, int64(7), score)

	// The computed score must now live in Redis.
	cached, err := mr.Get("score:user")
	require.NoError(t, err)
	assert.Equal(t, "7", cached)
}

func TestScoreCache_HitSkipsRecompute(t *testing.T) {
	t.Parallel()

	cache, f, mr := setupCacheTest(t)
	ctx := t.Context()

	f.addAttestation(t, "user", 1000, types.Metadata{"weight": 7}, 0)

	score, err := cache.GetScore(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, int64(7), score)

	// A stale cached value is served as-is until it expires or is
	// invalidated, even though a fresh computation would differ.
	require.NoError(t, mr.Set("score:user", "42"))

	score, err = cache.GetScore(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, int64(42), score)
}

func TestScoreCache_Invalidate(t *testing.T) {
	t.Parallel()

	cache, f, _ := setupCacheTest(t)
	ctx := t.Context()

	f.addAttestation(t, "user", 1000, types.Metadata{"weight": 7}, 0)

	score, err := cache.GetScore(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, int64(7), score)

	f.addAttestation(t, "user", 1000, types.Metadata{"weight": 3}, 0)

	require.NoError(t, cache.Invalidate(ctx, "user"))

	score, err = cache.GetScore(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, int64(10), score)
}

func TestScoreCache_KeyIsAliasOrderInsensitive(t *testing.T) {
	t.Parallel()

	assert.Equal(t, scoreKey([]string{"b", "a"}), scoreKey([]string{"a", "b"}))
	assert.NotEqual(t, scoreKey([]string{"a"}), scoreKey([]string{"a", "b"}))
}
