package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/KirkDiggler/gridbus/internal/events"
	"github.com/KirkDiggler/gridbus/internal/repositories/dispatchstats"
)

// Collector accumulates dispatch counters in memory. It is installed on a bus
// as its Observer and never performs I/O. Rows are keyed by Key.Qualified so
// keys of different variants never share counters.
type Collector struct {
	mu      sync.Mutex
	pending map[string]*dispatchstats.Stats
	now     func() time.Time
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{
		pending: make(map[string]*dispatchstats.Stats),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ events.Observer = (*Collector)(nil)

// ObserveDispatch records one completed publish
func (c *Collector) ObserveDispatch(result events.Result) {
	c.merge(&dispatchstats.Stats{
		Key:         result.Key.Qualified(),
		Variant:     result.Key.Variant().String(),
		Publishes:   1,
		Invocations: int64(result.Invoked),
		Skipped:     int64(result.Skipped),
		Errors:      int64(len(result.Errors)),
		UpdatedAt:   c.now(),
	})
}

func (c *Collector) merge(s *dispatchstats.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.pending[s.Key]
	if !ok {
		cp := *s
		c.pending[s.Key] = &cp
		return
	}
	existing.Merge(s)
}

// Snapshot returns copies of the pending counters sorted by key
func (c *Collector) Snapshot() []*dispatchstats.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*dispatchstats.Stats, 0, len(c.pending))
	for _, s := range c.pending {
		cp := *s
		out = append(out, &cp)
	}
	sortStats(out)
	return out
}

// Drain returns the pending counters and resets the collector
func (c *Collector) Drain() []*dispatchstats.Stats {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]*dispatchstats.Stats)
	c.mu.Unlock()

	out := make([]*dispatchstats.Stats, 0, len(pending))
	for _, s := range pending {
		out = append(out, s)
	}
	sortStats(out)
	return out
}

// Restore merges counters back, used when a flush could not be stored
func (c *Collector) Restore(stats []*dispatchstats.Stats) {
	for _, s := range stats {
		if s == nil || s.Key == "" {
			continue
		}
		c.merge(s)
	}
}

func sortStats(list []*dispatchstats.Stats) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].Key < list[j].Key
	})
}
