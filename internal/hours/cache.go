package hours

import (
	"sync"
	"time"
)

const (
	DefaultCacheCapacity = 100
	DefaultCacheTTL      = 300 * time.Second

	cacheKeyLayout = "2006-01-02-15-04"
)

// OpenChecker is satisfied by Evaluator and DecisionCache.
type OpenChecker interface {
	IsOpen(t time.Time) bool
}

type cacheEntry struct {
	value      bool
	insertedAt time.Time
	seq        uint64
}

// DecisionCache memoizes IsOpen per minute of the canonical instant.
// Instants within the same minute share an entry. When an insert pushes the
// cache over capacity, the entry inserted earliest is evicted; hits do not
// refresh insertion time.
type DecisionCache struct {
	next     OpenChecker
	loc      *time.Location
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
	seq     uint64
	gen     uint64
	hits    uint64
	misses  uint64
}

// NewDecisionCache wraps next, keying entries by the minute of the instant in
// loc. Non-positive capacity or ttl take the defaults; a nil loc means UTC and
// a nil now defaults to time.Now.
func NewDecisionCache(next OpenChecker, loc *time.Location, capacity int, ttl time.Duration, now func() time.Time) *DecisionCache {
	if loc == nil {
		loc = time.UTC
	}
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &DecisionCache{
		next:     next,
		loc:      loc,
		capacity: capacity,
		ttl:      ttl,
		now:      now,
		entries:  make(map[string]cacheEntry, capacity+1),
	}
}

// CacheKey truncates t to the minute as seen in loc.
func CacheKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(cacheKeyLayout)
}

// IsOpen returns the cached decision when it is younger than the TTL and
// recomputes it otherwise.
func (c *DecisionCache) IsOpen(t time.Time) bool {
	key := CacheKey(t, c.loc)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Sub(e.insertedAt) < c.ttl {
		c.hits++
		c.mu.Unlock()
		return e.value
	}
	c.misses++
	gen := c.gen
	c.mu.Unlock()

	value := c.next.IsOpen(t)

	c.mu.Lock()
	defer c.mu.Unlock()
	// A purge while computing means value may come from the old rules.
	if gen != c.gen {
		return value
	}
	c.seq++
	c.entries[key] = cacheEntry{value: value, insertedAt: c.now(), seq: c.seq}
	if len(c.entries) > c.capacity {
		c.evictOldest()
	}
	return value
}

// evictOldest removes the entry with the smallest insertion time. Ties go to
// the earlier insert. Callers hold c.mu.
func (c *DecisionCache) evictOldest() {
	var (
		oldestKey string
		oldest    cacheEntry
		first     = true
	)
	for k, e := range c.entries {
		if first || e.insertedAt.Before(oldest.insertedAt) ||
			(e.insertedAt.Equal(oldest.insertedAt) && e.seq < oldest.seq) {
			oldestKey, oldest, first = k, e, false
		}
	}
	delete(c.entries, oldestKey)
}

// Purge drops every entry. Call it whenever the rules behind next change,
// such as a holiday calendar swap.
func (c *DecisionCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry, c.capacity+1)
	c.gen++
}

// Len returns the number of cached entries.
func (c *DecisionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports whether the minute of t has an entry, fresh or stale.
func (c *DecisionCache) Contains(t time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[CacheKey(t, c.loc)]
	return ok
}

// Stats returns hit and miss counters.
func (c *DecisionCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
