package dispatchstats

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	buserr "github.com/KirkDiggler/gridbus/internal/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	keyIndex = "dispatch:stats:keys"

	fieldVariant     = "variant"
	fieldPublishes   = "publishes"
	fieldInvocations = "invocations"
	fieldSkipped     = "skipped"
	fieldErrors      = "errors"
	fieldUpdatedAt   = "updated_at"
)

// RedisRepoConfig holds configuration for the Redis repository
type RedisRepoConfig struct {
	Client       redis.UniversalClient
	TimeProvider TimeProvider
}

// redisRepository stores one hash per event key plus a set indexing the keys
type redisRepository struct {
	client       redis.UniversalClient
	timeProvider TimeProvider
}

// NewRedisRepository creates a new Redis-backed repository
func NewRedisRepository(cfg *RedisRepoConfig) Repository {
	if cfg == nil || cfg.Client == nil {
		panic("RedisRepoConfig and Client are required")
	}

	timeProvider := cfg.TimeProvider
	if timeProvider == nil {
		timeProvider = SystemTime()
	}

	return &redisRepository{
		client:       cfg.Client,
		timeProvider: timeProvider,
	}
}

func statsKey(key string) string {
	return fmt.Sprintf("dispatch:stats:%s", key)
}

func (r *redisRepository) Add(ctx context.Context, stats *Stats) error {
	if stats == nil {
		return buserr.InvalidArgument("stats cannot be nil")
	}
	if stats.Key == "" {
		return buserr.InvalidArgument("stats key cannot be empty")
	}

	key := statsKey(stats.Key)
	now := r.timeProvider.Now()

	pipe := r.client.Pipeline()
	pipe.HIncrBy(ctx, key, fieldPublishes, stats.Publishes)
	pipe.HIncrBy(ctx, key, fieldInvocations, stats.Invocations)
	pipe.HIncrBy(ctx, key, fieldSkipped, stats.Skipped)
	pipe.HIncrBy(ctx, key, fieldErrors, stats.Errors)
	pipe.HSet(ctx, key, fieldVariant, stats.Variant, fieldUpdatedAt, now.UnixMilli())
	pipe.SAdd(ctx, keyIndex, stats.Key)
	if _, err := pipe.Exec(ctx); err != nil {
		return buserr.Wrapf(err, "failed to add dispatch stats for %s", stats.Key)
	}

	return nil
}

func (r *redisRepository) Get(ctx context.Context, key string) (*Stats, error) {
	fields, err := r.client.HGetAll(ctx, statsKey(key)).Result()
	if err != nil {
		return nil, buserr.Wrapf(err, "failed to get dispatch stats for %s", key)
	}
	if len(fields) == 0 {
		return nil, buserr.NotFoundf("no dispatch stats for %s", key)
	}

	return toStats(key, fields)
}

func (r *redisRepository) List(ctx context.Context) ([]*Stats, error) {
	keys, err := r.client.SMembers(ctx, keyIndex).Result()
	if err != nil {
		return nil, buserr.Wrap(err, "failed to list dispatch stats keys")
	}

	found := make([]*Stats, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			stats, err := r.Get(ctx, key)
			if err != nil {
				// The index can outlive a hash that expired or was deleted by hand
				if buserr.IsNotFound(err) {
					return nil
				}
				return err
			}
			found[i] = stats
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*Stats, 0, len(found))
	for _, stats := range found {
		if stats != nil {
			out = append(out, stats)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *redisRepository) Reset(ctx context.Context) error {
	keys, err := r.client.SMembers(ctx, keyIndex).Result()
	if err != nil {
		return buserr.Wrap(err, "failed to list dispatch stats keys")
	}

	toDelete := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		toDelete = append(toDelete, statsKey(key))
	}
	toDelete = append(toDelete, keyIndex)

	if err := r.client.Del(ctx, toDelete...).Err(); err != nil {
		return buserr.Wrap(err, "failed to reset dispatch stats")
	}
	return nil
}

func toStats(key string, fields map[string]string) (*Stats, error) {
	stats := &Stats{
		Key:     key,
		Variant: fields[fieldVariant],
	}

	counters := []struct {
		field string
		dst   *int64
	}{
		{fieldPublishes, &stats.Publishes},
		{fieldInvocations, &stats.Invocations},
		{fieldSkipped, &stats.Skipped},
		{fieldErrors, &stats.Errors},
	}
	for _, c := range counters {
		raw, ok := fields[c.field]
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, buserr.Wrapf(err, "invalid %s for %s", c.field, key)
		}
		*c.dst = v
	}

	if raw, ok := fields[fieldUpdatedAt]; ok {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, buserr.Wrapf(err, "invalid %s for %s", fieldUpdatedAt, key)
		}
		stats.UpdatedAt = time.UnixMilli(ms).UTC()
	}

	return stats, nil
}
