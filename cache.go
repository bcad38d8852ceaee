package tabular

import (
	"container/list"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

const (
	defaultCacheEntries = 128
	defaultCacheTTL     = 5 * time.Minute
)

// CacheConfig sizes a Cache. Zero values take the defaults.
type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
}

type cacheEntry struct {
	key      uint64
	value    any
	storedAt time.Time
}

// Cache memoizes conversion results by input fingerprint. Eviction is
// oldest-inserted first, not least-recently-used, and expiry is lazy on
// access. The cache is an optimization only and never changes what a
// conversion produces. Construct one explicitly and hand it to
// WithCache; there is no package-level instance.
type Cache struct {
	mu      sync.Mutex
	entries map[uint64]*list.Element
	order   *list.List
	max     int
	ttl     time.Duration
	now     func() time.Time
}

func NewCache(cfg CacheConfig) *Cache {
	max := cfg.MaxEntries
	if max <= 0 {
		max = defaultCacheEntries
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{
		entries: make(map[uint64]*list.Element),
		order:   list.New(),
		max:     max,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Fingerprint hashes raw input plus any option bags into a cache key.
// FNV-1a: cheap and collision-resistant enough for a cache key.
func Fingerprint(data []byte, opts ...any) uint64 {
	h := fnv.New64a()
	h.Write(data)
	for _, o := range opts {
		fmt.Fprintf(h, "|%+v", o)
	}
	return h.Sum64()
}

// Get returns the cached value for key. Expired entries vanish on
// access.
func (c *Cache) Get(key uint64) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	ent := el.Value.(*cacheEntry)
	if c.now().Sub(ent.storedAt) > c.ttl {
		c.remove(el)
		return nil, false
	}
	return ent.value, true
}

// Set stores a value, evicting the oldest entries past capacity.
// Overwriting a key refreshes its insertion age.
func (c *Cache) Set(key uint64, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
	for c.order.Len() >= c.max {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.remove(oldest)
	}
	el := c.order.PushBack(&cacheEntry{key: key, value: value, storedAt: c.now()})
	c.entries[key] = el
}

// Has reports whether a live entry exists for key.
func (c *Cache) Has(key uint64) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete drops the entry for key, if present.
func (c *Cache) Delete(key uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
}

// Len counts stored entries, expired ones included until their next
// access.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// remove must run under mu.
func (c *Cache) remove(el *list.Element) {
	ent := el.Value.(*cacheEntry)
	delete(c.entries, ent.key)
	c.order.Remove(el)
}
