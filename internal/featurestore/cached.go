package featurestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/bracket-forecast/internal/metrics"
	"github.com/yourusername/bracket-forecast/internal/models"
)

// Cached memoizes Reader results per (season, instant). Stored data is
// append-only history so entries never go stale before their TTL.
type Cached struct {
	next  Reader
	cache *cache.Cache
	ttl   time.Duration

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// NewCached wraps next with an in-memory cache
func NewCached(next Reader, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

func cacheKey(kind string, season int, date time.Time) string {
	return fmt.Sprintf("%s:%d:%s", kind, season, date.UTC().Format(time.RFC3339Nano))
}

// Games implements Reader
func (c *Cached) Games(ctx context.Context, season int, upTo time.Time) ([]models.Game, error) {
	key := cacheKey("games", season, upTo)
	if v, found := c.cache.Get(key); found {
		c.record(true)
		return append([]models.Game(nil), v.([]models.Game)...), nil
	}
	c.record(false)

	games, err := c.next.Games(ctx, season, upTo)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, games, c.ttl)
	return append([]models.Game(nil), games...), nil
}

// Features implements Reader
func (c *Cached) Features(ctx context.Context, season int, asOf time.Time) (map[string]models.FeatureVector, error) {
	key := cacheKey("features", season, asOf)
	if v, found := c.cache.Get(key); found {
		c.record(true)
		return copyVectors(v.(map[string]models.FeatureVector)), nil
	}
	c.record(false)

	vectors, err := c.next.Features(ctx, season, asOf)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, vectors, c.ttl)
	return copyVectors(vectors), nil
}

// Stats returns cache hit and miss counts
func (c *Cached) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Clear flushes the cache
func (c *Cached) Clear() {
	c.cache.Flush()
	c.mu.Lock()
	c.hits, c.misses = 0, 0
	c.mu.Unlock()
}

func (c *Cached) record(hit bool) {
	c.mu.Lock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
	metrics.RecordFeatureCacheLookup(hit)
}

// copyVectors returns a map callers may modify without touching the cache.
// Values maps are shared; readers treat them as read-only.
func copyVectors(in map[string]models.FeatureVector) map[string]models.FeatureVector {
	out := make(map[string]models.FeatureVector, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
