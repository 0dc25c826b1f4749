// Package datacache memoizes fetched view payloads for a short time so that
// repeated reads of the same view and range skip the network.
//
// Expiry is passive: an entry older than its TTL reads as a miss but stays in
// place until it is overwritten or invalidated, which lets callers fall back
// to the stale payload when a refetch fails. There is no capacity bound.
package datacache

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultTTL applies when New is given a non-positive TTL.
const DefaultTTL = 5 * time.Minute

var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_cache_hits_total",
		Help: "Data cache reads served from memory.",
	}, []string{"view"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_cache_misses_total",
		Help: "Data cache reads that required a fetch.",
	}, []string{"view"})
)

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	now     func() time.Time
	ttl     time.Duration
	entries map[string]entry
}

type entry struct {
	payload   []byte
	fetchedAt time.Time
	ttl       time.Duration
}

func (e entry) fresh(now time.Time) bool {
	return now.Sub(e.fetchedAt) < e.ttl
}

// New returns an empty cache. A nil now uses time.Now.
func New(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{now: now, ttl: ttl, entries: make(map[string]entry)}
}

// TTL returns the default entry lifetime.
func (c *Cache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// Get returns a copy of the payload stored under key while it is fresh.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	view := viewLabel(key)
	if !ok || !e.fresh(c.now()) {
		cacheMissesTotal.WithLabelValues(view).Inc()
		return nil, false
	}
	cacheHitsTotal.WithLabelValues(view).Inc()
	return clonePayload(e.payload), true
}

// Stale returns the payload under key regardless of age, with its fetch
// time. It is meant for fallback after a failed refetch.
func (c *Cache) Stale(key string) ([]byte, time.Time, bool) {
	if c == nil {
		return nil, time.Time{}, false
	}
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, time.Time{}, false
	}
	return clonePayload(e.payload), e.fetchedAt, true
}

// Put stores payload under key with fetchedAt set to now, replacing any
// previous entry.
func (c *Cache) Put(key string, payload []byte) {
	c.PutWithTTL(key, payload, 0)
}

// PutWithTTL is Put with a per-entry lifetime. Non-positive ttl uses the
// cache default.
func (c *Cache) PutWithTTL(key string, payload []byte, ttl time.Duration) {
	if c == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	e := entry{payload: clonePayload(payload), fetchedAt: c.now(), ttl: ttl}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Invalidate removes key.
func (c *Cache) Invalidate(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePrefix removes every key starting with prefix and returns how
// many entries were dropped.
func (c *Cache) InvalidatePrefix(prefix string) int {
	return c.InvalidateWhere(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// InvalidateWhere removes every key matching fn.
func (c *Cache) InvalidateWhere(fn func(key string) bool) int {
	if c == nil || fn == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if fn(key) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops every entry.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func clonePayload(payload []byte) []byte {
	if payload == nil {
		return nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out
}

func viewLabel(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "unknown"
}
