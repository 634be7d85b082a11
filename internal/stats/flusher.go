package stats

import (
	"context"
	"fmt"
	"time"

	buserr "github.com/KirkDiggler/gridbus/internal/errors"
	"github.com/KirkDiggler/gridbus/internal/events"
	"github.com/KirkDiggler/gridbus/internal/repositories/dispatchstats"
)

const defaultFlushInterval = 5 * time.Second

// FlusherConfig holds configuration for the flusher
type FlusherConfig struct {
	Collector  *Collector
	Repository dispatchstats.Repository
	Interval   time.Duration
	Reporter   events.Reporter
}

// Flusher moves collected counters into a repository, outside the dispatch path
type Flusher struct {
	collector  *Collector
	repository dispatchstats.Repository
	interval   time.Duration
	reporter   events.Reporter
}

// NewFlusher creates a new flusher
func NewFlusher(cfg *FlusherConfig) *Flusher {
	if cfg == nil {
		panic("flusher config is required")
	}
	if cfg.Collector == nil {
		panic("collector is required")
	}
	if cfg.Repository == nil {
		panic("repository is required")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = events.NewLogReporter("Stats: ", events.SeverityInfo)
	}

	return &Flusher{
		collector:  cfg.Collector,
		repository: cfg.Repository,
		interval:   interval,
		reporter:   reporter,
	}
}

// Flush drains the collector into the repository. Counters that fail to store
// are put back into the collector for the next attempt.
func (f *Flusher) Flush(ctx context.Context) (int, error) {
	pending := f.collector.Drain()
	if len(pending) == 0 {
		return 0, nil
	}

	var failed []*dispatchstats.Stats
	var firstErr error
	for _, s := range pending {
		if err := f.repository.Add(ctx, s); err != nil {
			failed = append(failed, s)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if len(failed) > 0 {
		f.collector.Restore(failed)
		f.reporter.Report(events.SeverityWarn,
			fmt.Sprintf("failed to flush %d of %d keys: %v", len(failed), len(pending), firstErr))
		return len(pending) - len(failed), buserr.Wrapf(firstErr, "failed to flush %d keys", len(failed))
	}

	f.reporter.Report(events.SeverityDebug, fmt.Sprintf("flushed %d keys", len(pending)))
	return len(pending), nil
}

// Run flushes on every interval until ctx is done, then flushes once more
func (f *Flusher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final flush gets its own deadline since ctx is already cancelled
			finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_, err := f.Flush(finalCtx)
			cancel()
			return err
		case <-ticker.C:
			if _, err := f.Flush(ctx); err != nil {
				// Counters were restored, retry on the next tick
				continue
			}
		}
	}
}
