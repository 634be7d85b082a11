package dispatchstats

import (
	"context"
	"sort"
	"sync"

	buserr "github.com/KirkDiggler/gridbus/internal/errors"
)

// inMemoryRepository implements Repository using in-memory storage
type inMemoryRepository struct {
	mu           sync.RWMutex
	stats        map[string]*Stats
	timeProvider TimeProvider
}

// NewInMemoryRepository creates a new in-memory statistics repository
func NewInMemoryRepository(timeProvider TimeProvider) Repository {
	if timeProvider == nil {
		timeProvider = SystemTime()
	}
	return &inMemoryRepository{
		stats:        make(map[string]*Stats),
		timeProvider: timeProvider,
	}
}

func (r *inMemoryRepository) Add(ctx context.Context, stats *Stats) error {
	if stats == nil {
		return buserr.InvalidArgument("stats cannot be nil")
	}
	if stats.Key == "" {
		return buserr.InvalidArgument("stats key cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.stats[stats.Key]
	if !ok {
		existing = &Stats{Key: stats.Key}
		r.stats[stats.Key] = existing
	}
	existing.Merge(stats)
	existing.UpdatedAt = r.timeProvider.Now()

	return nil
}

func (r *inMemoryRepository) Get(ctx context.Context, key string) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats, ok := r.stats[key]
	if !ok {
		return nil, buserr.NotFoundf("no dispatch stats for %s", key)
	}

	// Return a copy to avoid external modifications
	statsCopy := *stats
	return &statsCopy, nil
}

func (r *inMemoryRepository) List(ctx context.Context) ([]*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Stats, 0, len(r.stats))
	for _, stats := range r.stats {
		statsCopy := *stats
		out = append(out, &statsCopy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out, nil
}

func (r *inMemoryRepository) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats = make(map[string]*Stats)
	return nil
}
