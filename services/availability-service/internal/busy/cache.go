package busy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheBucket is the granularity cached windows start on, so requests made within the same
// bucket share one entry.
const cacheBucket = time.Hour

// CachedSource keeps busy snapshots in Redis. Entries are namespaced by a generation
// counter; Invalidate bumps it, which orphans every cached snapshot at once. Redis failures
// fall through to the wrapped source.
type CachedSource struct {
	next   Source
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewCachedSource(next Source, rdb *redis.Client, ttl time.Duration, prefix string, logger *slog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "slotboard:busy"
	}
	return &CachedSource{next: next, rdb: rdb, ttl: ttl, prefix: prefix, logger: logger}
}

// Busy serves the snapshot for the bucket containing from. The cached window starts at the
// bucket boundary, so it covers [from, to) as well.
func (c *CachedSource) Busy(ctx context.Context, from, to time.Time) ([]Interval, error) {
	windowStart := from.Truncate(cacheBucket)

	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("busy cache unavailable", "err", err)
		return c.next.Busy(ctx, windowStart, to)
	}
	key := c.key(gen, windowStart, to)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []Interval
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warn("busy cache entry unreadable", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("busy cache read failed", "err", err)
	}

	out, err := c.next.Busy(ctx, windowStart, to)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("busy cache write failed", "err", err)
		}
	}
	return out, nil
}

// Invalidate drops every cached snapshot.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, c.prefix+":gen").Err()
}

func (c *CachedSource) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.prefix+":gen").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *CachedSource) key(gen int64, from, to time.Time) string {
	return fmt.Sprintf("%s:%d:%d:%d", c.prefix, gen, from.Unix(), to.Unix())
}

// ReadyCheck pings the cache's Redis client.
func (c *CachedSource) ReadyCheck() func(context.Context) error {
	return func(ctx context.Context) error {
		return c.rdb.Ping(ctx).Err()
	}
}
