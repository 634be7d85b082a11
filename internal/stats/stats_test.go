package stats_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KirkDiggler/gridbus/internal/events"
	"github.com/KirkDiggler/gridbus/internal/repositories/dispatchstats"
	"github.com/KirkDiggler/gridbus/internal/repositories/dispatchstats/mocks"
	"github.com/KirkDiggler/gridbus/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func publishSome(t *testing.T, collector *stats.Collector) {
	t.Helper()

	bus := events.NewBus(events.WithReporter(events.NopReporter{}), events.WithObserver(collector))
	levelStart := events.TextKey("LevelStart")
	score := events.IntKey(7)

	require.NoError(t, bus.Subscribe(levelStart, events.Void("hud", func() {})))
	require.NoError(t, bus.Subscribe(score, events.Int("hud", func(int) {})))
	require.NoError(t, bus.Subscribe(score, events.Text("log", func(string) {})))

	_, err := bus.PublishVoid(levelStart)
	require.NoError(t, err)
	_, err = bus.Publish(score, 10)
	require.NoError(t, err)
	_, err = bus.Publish(score, 20)
	require.NoError(t, err)
}

func TestCollector_ObserveDispatch(t *testing.T) {
	collector := stats.NewCollector()
	publishSome(t, collector)

	snapshot := collector.Snapshot()
	require.Len(t, snapshot, 2)

	assert.Equal(t, "integer:7", snapshot[0].Key)
	assert.Equal(t, "integer", snapshot[0].Variant)
	assert.Equal(t, int64(2), snapshot[0].Publishes)
	assert.Equal(t, int64(2), snapshot[0].Invocations)
	assert.Equal(t, int64(2), snapshot[0].Skipped)
	assert.Equal(t, int64(0), snapshot[0].Errors)

	assert.Equal(t, "text:LevelStart", snapshot[1].Key)
	assert.Equal(t, "text", snapshot[1].Variant)
	assert.Equal(t, int64(1), snapshot[1].Publishes)
	assert.Equal(t, int64(1), snapshot[1].Invocations)

	// Snapshot does not consume
	assert.Len(t, collector.Snapshot(), 2)
}

func TestCollector_CountsErrors(t *testing.T) {
	collector := stats.NewCollector()
	bus := events.NewBus(events.WithReporter(events.NopReporter{}), events.WithObserver(collector))
	key := events.SymbolKey("GameEvents", "PlayerDied")

	require.NoError(t, bus.Subscribe(key, events.Void("boom", func() { panic("boom") })))
	_, err := bus.PublishVoid(key)
	require.NoError(t, err)

	snapshot := collector.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "symbol:GameEvents.PlayerDied", snapshot[0].Key)
	assert.Equal(t, "symbol", snapshot[0].Variant)
	assert.Equal(t, int64(1), snapshot[0].Errors)
}

func TestCollector_SeparatesKeyVariants(t *testing.T) {
	collector := stats.NewCollector()
	bus := events.NewBus(events.WithReporter(events.NopReporter{}), events.WithObserver(collector))

	for _, key := range []events.Key{
		events.IntKey(1),
		events.TextKey("1"),
		events.SymbolKey("A", "B"),
		events.TextKey("A.B"),
	} {
		_, err := bus.PublishVoid(key)
		require.NoError(t, err)
	}

	snapshot := collector.Snapshot()
	require.Len(t, snapshot, 4)

	rows := map[string]string{}
	for _, s := range snapshot {
		assert.Equal(t, int64(1), s.Publishes, s.Key)
		rows[s.Key] = s.Variant
	}
	assert.Equal(t, map[string]string{
		"integer:1":  "integer",
		"text:1":     "text",
		"symbol:A.B": "symbol",
		"text:A.B":   "text",
	}, rows)
}

func TestCollector_DrainAndRestore(t *testing.T) {
	collector := stats.NewCollector()
	publishSome(t, collector)

	drained := collector.Drain()
	require.Len(t, drained, 2)
	assert.Empty(t, collector.Snapshot())

	collector.Restore(drained)
	collector.Restore([]*dispatchstats.Stats{nil, {}})
	assert.Len(t, collector.Snapshot(), 2)
}

func TestFlusher_Flush(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)

	collector := stats.NewCollector()
	publishSome(t, collector)

	flusher := stats.NewFlusher(&stats.FlusherConfig{
		Collector:  collector,
		Repository: repo,
		Reporter:   events.NopReporter{},
	})

	var stored []string
	repo.EXPECT().Add(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, s *dispatchstats.Stats) error {
		stored = append(stored, s.Key)
		return nil
	}).Times(2)

	n, err := flusher.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"integer:7", "text:LevelStart"}, stored)
	assert.Empty(t, collector.Snapshot())

	// Nothing pending, nothing stored
	n, err = flusher.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFlusher_FlushRestoresOnFailure(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)

	collector := stats.NewCollector()
	publishSome(t, collector)

	flusher := stats.NewFlusher(&stats.FlusherConfig{
		Collector:  collector,
		Repository: repo,
		Reporter:   events.NopReporter{},
	})

	repo.EXPECT().Add(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, s *dispatchstats.Stats) error {
		if s.Key == "text:LevelStart" {
			return errors.New("redis down")
		}
		return nil
	}).Times(2)

	n, err := flusher.Flush(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, n)

	remaining := collector.Snapshot()
	require.Len(t, remaining, 1)
	assert.Equal(t, "text:LevelStart", remaining[0].Key)
	assert.Equal(t, int64(1), remaining[0].Publishes)
}

func TestFlusher_RunFlushesOnShutdown(t *testing.T) {
	collector := stats.NewCollector()
	publishSome(t, collector)

	repo := dispatchstats.NewInMemoryRepository(nil)
	flusher := stats.NewFlusher(&stats.FlusherConfig{
		Collector:  collector,
		Repository: repo,
		Interval:   time.Hour,
		Reporter:   events.NopReporter{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- flusher.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("flusher did not stop")
	}

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestNewFlusher_RequiresDependencies(t *testing.T) {
	assert.Panics(t, func() { stats.NewFlusher(nil) })
	assert.Panics(t, func() { stats.NewFlusher(&stats.FlusherConfig{Collector: stats.NewCollector()}) })
	assert.Panics(t, func() {
		stats.NewFlusher(&stats.FlusherConfig{Repository: dispatchstats.NewInMemoryRepository(nil)})
	})
}
