package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/KirkDiggler/gridbus/internal/capability"
	"github.com/KirkDiggler/gridbus/internal/config"
	buserr "github.com/KirkDiggler/gridbus/internal/errors"
	"github.com/KirkDiggler/gridbus/internal/events"
	"github.com/KirkDiggler/gridbus/internal/repositories/dispatchstats"
	"github.com/KirkDiggler/gridbus/internal/stats"
)

// GameEvents are the symbolic events of the grid game
type GameEvents int

const (
	PlayerDied GameEvents = iota
	LevelCleared
)

func (e GameEvents) String() string {
	switch e {
	case PlayerDied:
		return "PlayerDied"
	case LevelCleared:
		return "LevelCleared"
	default:
		return "Unknown"
	}
}

// TileArgs is the structured payload for tile events
type TileArgs struct {
	events.BaseArgs
	X, Y int
}

var (
	levelStart  = events.TextKey("LevelStart")
	tileCleared = events.TextKey("TileCleared")
	scoreKey    = events.IntKey(1)
	playerDied  = events.SymbolOf(PlayerDied)
	levelDone   = events.SymbolOf(LevelCleared)
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	severity := cfg.Log.Severity()
	collector := stats.NewCollector()
	bus := events.NewBus(
		events.WithReporter(events.NewLogReporter(cfg.Log.Prefix, severity)),
		events.WithObserver(collector),
	)

	repo, redisClient := statsRepository(cfg.Redis.URL)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("Failed to close Redis connection: %v", err)
			}
		}()
	}

	flusher := stats.NewFlusher(&stats.FlusherConfig{
		Collector:  collector,
		Repository: repo,
		Interval:   cfg.Stats.FlushInterval,
		Reporter:   events.NewLogReporter("Stats: ", severity),
	})

	game := newGame(bus, severity)
	if err := game.activate(); err != nil {
		log.Fatalf("Failed to activate descriptors: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return flusher.Run(groupCtx)
	})
	group.Go(func() error {
		// Stop the flusher once the simulation is done
		defer cancelRun()
		return game.run(groupCtx, cfg.Demo.Ticks, cfg.Demo.TickInterval)
	})

	if err := group.Wait(); err != nil {
		log.Printf("Demo stopped with error: %v", err)
	}

	game.deactivate()

	summary, err := repo.List(context.Background())
	if err != nil {
		log.Printf("Failed to list dispatch stats: %v", err)
		return
	}
	fmt.Println("Dispatch statistics:")
	for _, s := range summary {
		fmt.Printf("  %-24s %-8s publishes=%d invocations=%d skipped=%d errors=%d\n",
			s.Key, s.Variant, s.Publishes, s.Invocations, s.Skipped, s.Errors)
	}
	fmt.Printf("Final score: %d, deaths: %d, tiles: %d\n", game.score, game.deaths, game.tiles)
}

// statsRepository returns a Redis backed repository when REDIS_URL is usable,
// otherwise an in-memory one
func statsRepository(redisURL string) (dispatchstats.Repository, *redis.Client) {
	if redisURL == "" {
		log.Println("No REDIS_URL found, using in-memory stats repository")
		return dispatchstats.NewInMemoryRepository(nil), nil
	}

	log.Printf("Connecting to Redis at: %s", redisURL)
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("Failed to parse Redis URL: %v", err)
		log.Println("Falling back to in-memory stats repository")
		return dispatchstats.NewInMemoryRepository(nil), nil
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		log.Printf("Failed to connect to Redis: %v", err)
		log.Println("Falling back to in-memory stats repository")
		return dispatchstats.NewInMemoryRepository(nil), nil
	}

	log.Println("Using Redis for dispatch stats")
	return dispatchstats.NewRedisRepository(&dispatchstats.RedisRepoConfig{Client: client}), client
}

// game is a tiny grid simulation: an engine descriptor emits, a HUD, an audio
// system and a tracker receive
type game struct {
	bus     *events.Bus
	engine  *capability.Descriptor
	hud     *capability.Descriptor
	audio   *capability.Descriptor
	tracker *capability.Descriptor

	score  int
	deaths int
	tiles  int
}

func newGame(bus *events.Bus, severity events.Severity) *game {
	g := &game{bus: bus}

	reporter := func(name string) events.Reporter {
		return events.NewLogReporter("Descriptor "+name+": ", severity)
	}

	g.engine = capability.New(&capability.Config{
		Name:     "engine",
		Keys:     []events.Key{levelStart, tileCleared, scoreKey, playerDied, levelDone},
		Bus:      bus,
		Reporter: reporter("engine"),
	})

	g.hud = capability.New(&capability.Config{
		Name:  "hud",
		Keys:  []events.Key{levelStart, scoreKey},
		Kinds: []events.PayloadKind{events.KindNone, events.KindInteger},
		Handler: capability.HandlerFunc(func(key events.Key, payload any) {
			switch key {
			case levelStart:
				g.score = 0
			case scoreKey:
				if delta, ok := payload.(int); ok {
					g.score += delta
				}
			}
		}),
		Reporter: reporter("hud"),
	})

	g.audio = capability.New(&capability.Config{
		Name:  "audio",
		Keys:  []events.Key{playerDied},
		Kinds: []events.PayloadKind{events.KindNone},
		Handler: capability.HandlerFunc(func(events.Key, any) {
			g.deaths++
		}),
		Reporter: reporter("audio"),
	})

	// No kinds declared: the tracker receives every payload on its keys
	g.tracker = capability.New(&capability.Config{
		Name: "tracker",
		Keys: []events.Key{tileCleared, levelDone},
		Handler: capability.HandlerFunc(func(key events.Key, payload any) {
			if _, ok := payload.(*TileArgs); ok {
				g.tiles++
			}
		}),
		Reporter: reporter("tracker"),
	})

	return g
}

func (g *game) activate() error {
	for _, d := range []*capability.Descriptor{g.hud, g.audio, g.tracker} {
		n, err := d.Activate(g.bus)
		if err != nil && !buserr.IsInformational(err) {
			return fmt.Errorf("activate %s: %w", d.Name(), err)
		}
		log.Printf("Activated %s with %d subscriptions", d.Name(), n)
	}
	return nil
}

func (g *game) deactivate() {
	for _, d := range []*capability.Descriptor{g.hud, g.audio, g.tracker} {
		if _, err := d.Deactivate(g.bus); err != nil && !buserr.IsInformational(err) {
			log.Printf("Failed to deactivate %s: %v", d.Name(), err)
		}
	}
}

func (g *game) run(ctx context.Context, ticks int, interval time.Duration) error {
	if _, err := g.engine.TriggerVoid(levelStart); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for tick := 1; tick <= ticks; tick++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := g.step(tick); err != nil {
			return err
		}
	}

	_, err := g.engine.TriggerVoid(levelDone)
	return err
}

func (g *game) step(tick int) error {
	args := &TileArgs{X: tick % 8, Y: tick / 8}
	if _, err := g.engine.Trigger(tileCleared, args); err != nil {
		return err
	}

	result, err := g.engine.Trigger(scoreKey, 10)
	if err != nil {
		return err
	}
	if !result.OK() {
		log.Printf("Score update had failures: %v", result.Err())
	}

	if tick%7 == 0 {
		if _, err := g.engine.TriggerVoid(playerDied); err != nil {
			return err
		}
	}
	return nil
}
