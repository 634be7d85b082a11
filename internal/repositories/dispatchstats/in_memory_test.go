package dispatchstats_test

import (
	"context"
	"testing"
	"time"

	buserr "github.com/KirkDiggler/gridbus/internal/errors"
	"github.com/KirkDiggler/gridbus/internal/repositories/dispatchstats"
	"github.com/KirkDiggler/gridbus/internal/repositories/dispatchstats/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestInMemoryRepository_AddAccumulates(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	clock := mocks.NewMockTimeProvider(ctrl)
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	second := first.Add(time.Minute)
	gomock.InOrder(
		clock.EXPECT().Now().Return(first),
		clock.EXPECT().Now().Return(second),
	)

	repo := dispatchstats.NewInMemoryRepository(clock)

	require.NoError(t, repo.Add(ctx, &dispatchstats.Stats{Key: "7", Variant: "integer", Publishes: 1, Invocations: 2}))
	require.NoError(t, repo.Add(ctx, &dispatchstats.Stats{Key: "7", Variant: "integer", Publishes: 2, Errors: 1, Skipped: 3}))

	stats, err := repo.Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, &dispatchstats.Stats{
		Key:         "7",
		Variant:     "integer",
		Publishes:   3,
		Invocations: 2,
		Skipped:     3,
		Errors:      1,
		UpdatedAt:   second,
	}, stats)

	// Returned values are copies
	stats.Publishes = 100
	again, err := repo.Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, int64(3), again.Publishes)
}

func TestInMemoryRepository_ListAndReset(t *testing.T) {
	ctx := context.Background()
	repo := dispatchstats.NewInMemoryRepository(nil)

	require.NoError(t, repo.Add(ctx, &dispatchstats.Stats{Key: "b", Publishes: 1}))
	require.NoError(t, repo.Add(ctx, &dispatchstats.Stats{Key: "a", Publishes: 1}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Key)
	assert.Equal(t, "b", list[1].Key)

	require.NoError(t, repo.Reset(ctx))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = repo.Get(ctx, "a")
	assert.True(t, buserr.IsNotFound(err))
}

func TestInMemoryRepository_Validation(t *testing.T) {
	repo := dispatchstats.NewInMemoryRepository(nil)
	assert.True(t, buserr.IsInvalidArgument(repo.Add(context.Background(), nil)))
	assert.True(t, buserr.IsInvalidArgument(repo.Add(context.Background(), &dispatchstats.Stats{})))
}

func TestStats_Merge(t *testing.T) {
	base := &dispatchstats.Stats{Key: "k", Publishes: 1}
	base.Merge(nil)
	base.Merge(&dispatchstats.Stats{Variant: "text", Publishes: 2, Invocations: 4})

	assert.Equal(t, int64(3), base.Publishes)
	assert.Equal(t, int64(4), base.Invocations)
	assert.Equal(t, "text", base.Variant)
}
