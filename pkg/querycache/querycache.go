// Package querycache is the process-wide pattern cache for translated
// filesystem-pattern queries (spec.md §5c): LRU eviction, SHA-256
// hashed keys, TTL (default 30m), max entries (default 1000), and
// model-keyed invalidation fed by the record pipeline's post-phase
// observers. Grounded on the teacher's use of hashicorp/golang-lru
// (internal/app's pattern/session cache) plus go-redis/v9 for the
// cross-process fan-out signal the schema registry's TTL-only cache
// doesn't need but a multi-instance deployment of this cache does.
package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL and DefaultMaxEntries mirror spec.md §5's stated defaults.
const (
	DefaultTTL        = 30 * time.Minute
	DefaultMaxEntries = 1000
)

// Key hashes a (tenantID, modelName, pattern) triple into the cache's
// lookup key. Patterns can be arbitrarily long filesystem glob
// expressions; hashing keeps the LRU's internal map bounded to short keys.
func Key(tenantID, modelName, pattern string) string {
	h := sha256.Sum256([]byte(tenantID + "\x00" + modelName + "\x00" + pattern))
	return hex.EncodeToString(h[:])
}

type entry struct {
	modelName string
	value     any
	expiresAt time.Time
}

// Cache is an LRU-evicted, TTL-expired cache of translated query
// results, keyed by Key and invalidated in bulk by model name.
type Cache struct {
	ttl time.Duration

	mu      sync.Mutex
	lru     *lru.Cache
	byModel map[string]map[string]struct{} // modelName -> set of cache keys, for InvalidateModel

	redis  *redis.Client
	logger *slog.Logger
}

// New builds a Cache with maxEntries capacity and ttl expiry. redisClient
// may be nil, in which case invalidation stays process-local.
func New(maxEntries int, ttl time.Duration, redisClient *redis.Client, logger *slog.Logger) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		byModel: make(map[string]map[string]struct{}),
		redis:   redisClient,
		logger:  logger,
	}
	l, err := lru.NewWithEvict(maxEntries, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

func (c *Cache) onEvict(key, value any) {
	e, ok := value.(entry)
	if !ok {
		return
	}
	if set, ok := c.byModel[e.modelName]; ok {
		delete(set, key.(string))
		if len(set) == 0 {
			delete(c.byModel, e.modelName)
		}
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if time.Now().After(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, associated with modelName so a later
// InvalidateModel(modelName) drops it.
func (c *Cache) Set(key, modelName string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry{modelName: modelName, value: value, expiresAt: time.Now().Add(c.ttl)})
	set, ok := c.byModel[modelName]
	if !ok {
		set = make(map[string]struct{})
		c.byModel[modelName] = set
	}
	set[key] = struct{}{}
}

// InvalidateModel drops every cached entry associated with modelName
// and, when a Redis client is configured, publishes the invalidation so
// sibling processes evict their own local copies (spec.md §5's
// "process-wide pattern cache" becomes "per-process cache, tenant-wide
// signal" once more than one instance is deployed).
func (c *Cache) InvalidateModel(tenantID, modelName string) {
	c.mu.Lock()
	set := c.byModel[modelName]
	delete(c.byModel, modelName)
	for key := range set {
		c.lru.Remove(key)
	}
	c.mu.Unlock()

	if c.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	channel := "querycache:invalidate:" + tenantID
	if err := c.redis.Publish(ctx, channel, modelName).Err(); err != nil && c.logger != nil {
		c.logger.Warn("publishing query cache invalidation", "error", err, "model", modelName)
	}
}

// Subscribe starts a goroutine that listens for invalidation signals
// published by sibling processes for tenantID and applies them locally.
// Callers should invoke this once per active tenant namespace at
// startup, or skip it entirely in a single-instance deployment.
func (c *Cache) Subscribe(ctx context.Context, tenantID string) {
	if c.redis == nil {
		return
	}
	channel := "querycache:invalidate:" + tenantID
	sub := c.redis.Subscribe(ctx, channel)
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				c.mu.Lock()
				set := c.byModel[msg.Payload]
				delete(c.byModel, msg.Payload)
				for key := range set {
					c.lru.Remove(key)
				}
				c.mu.Unlock()
			}
		}
	}()
}
