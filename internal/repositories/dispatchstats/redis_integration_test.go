//go:build integration
// +build integration

package dispatchstats_test

import (
	"context"
	"testing"

	"github.com/KirkDiggler/gridbus/internal/repositories/dispatchstats"
	"github.com/KirkDiggler/gridbus/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRepository_Integration(t *testing.T) {
	// This test requires Redis to be running (or TEST_REDIS_CONTAINER=1)
	client := testutils.CreateTestRedisClientOrSkip(t)

	repo := dispatchstats.NewRedisRepository(&dispatchstats.RedisRepoConfig{
		Client: client,
	})

	ctx := context.Background()

	t.Run("add accumulates counters", func(t *testing.T) {
		require.NoError(t, repo.Add(ctx, &dispatchstats.Stats{Key: "text:LevelStart", Variant: "text", Publishes: 1, Invocations: 2}))
		require.NoError(t, repo.Add(ctx, &dispatchstats.Stats{Key: "text:LevelStart", Variant: "text", Publishes: 1, Errors: 1}))

		stats, err := repo.Get(ctx, "text:LevelStart")
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Publishes)
		assert.Equal(t, int64(2), stats.Invocations)
		assert.Equal(t, int64(1), stats.Errors)
		assert.Equal(t, "text", stats.Variant)
		assert.False(t, stats.UpdatedAt.IsZero())
	})

	t.Run("list and reset", func(t *testing.T) {
		require.NoError(t, repo.Add(ctx, &dispatchstats.Stats{Key: "symbol:GameEvents.PlayerDied", Variant: "symbol", Publishes: 1}))

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "symbol:GameEvents.PlayerDied", list[0].Key)
		assert.Equal(t, "text:LevelStart", list[1].Key)

		// A stale index entry does not break List
		require.NoError(t, client.Del(ctx, "dispatch:stats:text:LevelStart").Err())
		list, err = repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)

		require.NoError(t, repo.Reset(ctx))
		list, err = repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
