// Package cache holds the fingerprint-keyed memoization cache for metric
// results. One cache is constructed per run and discarded at run end; it is
// never a process-wide singleton.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/sells-group/urbanopt/internal/metrics"
	"github.com/sells-group/urbanopt/internal/scenario"
)

// DefaultCapacity bounds the cache when the configuration does not.
const DefaultCapacity = 10_000

// Cache is a concurrent-safe LRU mapping Fingerprint to MetricResult.
// Lookups either miss or return a fully computed result — a half-written
// entry is impossible because insertion happens under the lock with the
// complete result in hand. Two workers computing the same fingerprint
// concurrently is tolerated duplicate work, not a correctness bug; the
// second Put simply overwrites with an identical result.
type Cache struct {
	mu       sync.Mutex
	entries  map[scenario.Fingerprint]metrics.Result
	order    []scenario.Fingerprint // front=oldest, back=newest
	capacity int
	hits     atomic.Int64
	misses   atomic.Int64
}

// Stats contains cache performance counters for run statistics.
type Stats struct {
	Entries  int     `json:"entries"`
	Capacity int     `json:"capacity"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
}

// New creates a Cache with the given capacity. Non-positive capacities fall
// back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		entries:  make(map[scenario.Fingerprint]metrics.Result),
		capacity: capacity,
	}
}

// Get returns the cached result for the fingerprint, or ok=false on a miss.
// The returned map is a copy; callers may keep it without aliasing the cache.
func (c *Cache) Get(fp scenario.Fingerprint) (metrics.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.entries[fp]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	// Move to back (most recently used).
	c.removeFromOrder(fp)
	c.order = append(c.order, fp)
	c.hits.Add(1)

	out := make(metrics.Result, len(result))
	for k, v := range result {
		out[k] = v
	}
	return out, true
}

// Put stores a result, evicting the least recently used entry at capacity.
func (c *Cache) Put(fp scenario.Fingerprint, result metrics.Result) {
	stored := make(metrics.Result, len(result))
	for k, v := range result {
		stored[k] = v
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[fp]; ok {
		c.entries[fp] = stored
		c.removeFromOrder(fp)
		c.order = append(c.order, fp)
		return
	}

	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[fp] = stored
	c.order = append(c.order, fp)
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entry pairs a fingerprint with its cached result, for snapshotting.
type Entry struct {
	Fingerprint scenario.Fingerprint
	Result      metrics.Result
}

// Entries returns a copy of the cache contents in LRU order, oldest first,
// so a reloaded cache preserves the eviction ordering.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.order))
	for _, fp := range c.order {
		result, ok := c.entries[fp]
		if !ok {
			continue
		}
		cp := make(metrics.Result, len(result))
		for k, v := range result {
			cp[k] = v
		}
		out = append(out, Entry{Fingerprint: fp, Result: cp})
	}
	return out
}

// Stats returns the current performance counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	entries := len(c.entries)
	capacity := c.capacity
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Entries:  entries,
		Capacity: capacity,
		Hits:     hits,
		Misses:   misses,
		HitRate:  hitRate,
	}
}

// removeFromOrder removes a fingerprint from the LRU order slice.
func (c *Cache) removeFromOrder(fp scenario.Fingerprint) {
	for i, k := range c.order {
		if k == fp {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
