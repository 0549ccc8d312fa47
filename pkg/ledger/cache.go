package ledger

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SpendWindow is the cached result of summing a tenant's usage transactions
// over the trailing hour and trailing month.
type SpendWindow struct {
	HourlySpendCents  int64
	MonthlySpendCents int64
	ComputedAt        time.Time
}

// Cache is the short-TTL store fronting the Budget Checker's window sums.
// Explicit Delete is used on every Debit so a cap check right after a spend
// never reads a stale pre-debit number; Get/Set handle TTL expiry on their
// own for everything in between.
type Cache interface {
	Get(tenantID string) (SpendWindow, bool)
	Set(tenantID string, window SpendWindow, ttl time.Duration)
	Delete(tenantID string)
}

// memCache is an in-process map-backed Cache, the default when no Redis
// endpoint is configured (tests, single-node deployments). Production
// multi-coordinator deployments should use RedisCache instead, so every
// coordinator replica observes the same invalidation.
type memCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	window  SpendWindow
	expires time.Time
}

// NewMemCache constructs the in-process default Cache.
func NewMemCache() Cache {
	return &memCache{entries: make(map[string]memEntry)}
}

func (c *memCache) Get(tenantID string) (SpendWindow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[tenantID]
	if !ok || time.Now().After(e.expires) {
		return SpendWindow{}, false
	}
	return e.window, true
}

func (c *memCache) Set(tenantID string, window SpendWindow, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenantID] = memEntry{window: window, expires: time.Now().Add(ttl)}
}

func (c *memCache) Delete(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
}

// RedisCache backs the Budget Checker's cache with Redis, so every
// coordinator replica in a multi-node deployment shares one view of each
// tenant's cached spend window instead of re-summing independently.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing Redis client. keyPrefix namespaces keys
// (e.g. "ledger:spend:") so the cache can share a Redis instance with other
// subsystems.
func NewRedisCache(client *redis.Client, keyPrefix string) *RedisCache {
	return &RedisCache{client: client, prefix: keyPrefix}
}

func (c *RedisCache) Get(tenantID string) (SpendWindow, bool) {
	raw, err := c.client.Get(context.Background(), c.prefix+tenantID).Bytes()
	if err != nil {
		return SpendWindow{}, false
	}
	var w SpendWindow
	if err := json.Unmarshal(raw, &w); err != nil {
		return SpendWindow{}, false
	}
	return w, true
}

func (c *RedisCache) Set(tenantID string, window SpendWindow, ttl time.Duration) {
	raw, err := json.Marshal(window)
	if err != nil {
		return
	}
	c.client.Set(context.Background(), c.prefix+tenantID, raw, ttl)
}

func (c *RedisCache) Delete(tenantID string) {
	c.client.Del(context.Background(), c.prefix+tenantID)
}
