package fhirpath

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// ExpressionCache is a thread-safe, size-bounded cache of compiled
// expressions with least-recently-used eviction. Compiling walks the
// grammar and builds an AST; for expressions reused across many resources
// (a server evaluating the same search-parameter path on every request,
// say) that cost is worth avoiding.
type ExpressionCache struct {
	mu    sync.Mutex
	cache map[string]*list.Element
	lru   *list.List // front = most recently used
	limit int

	hits   int64
	misses int64
}

type cacheEntry struct {
	key      string
	expr     *Expression
	lastUsed time.Time
}

// CacheStats is a point-in-time snapshot of cache occupancy and hit rate.
type CacheStats struct {
	Size   int
	Limit  int
	Hits   int64
	Misses int64
}

// NewExpressionCache builds a cache holding at most limit expressions.
// limit <= 0 means unbounded.
func NewExpressionCache(limit int) *ExpressionCache {
	return &ExpressionCache{
		cache: make(map[string]*list.Element),
		lru:   list.New(),
		limit: limit,
	}
}

// Get returns the compiled form of expr, compiling and caching it on a
// miss. The same *Expression is returned for repeated calls with the same
// source text until it's evicted.
func (c *ExpressionCache) Get(expr string) (*Expression, error) {
	if compiled, ok := c.lookup(expr); ok {
		return compiled, nil
	}

	compiled, err := Compile(expr)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have compiled and inserted the same
	// expression while this one was blocked in Compile.
	if elem, ok := c.cache[expr]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).lastUsed = time.Now()
		return elem.Value.(*cacheEntry).expr, nil
	}

	atomic.AddInt64(&c.misses, 1)
	if c.limit > 0 && len(c.cache) >= c.limit {
		c.evictOldest()
	}
	elem := c.lru.PushFront(&cacheEntry{key: expr, expr: compiled, lastUsed: time.Now()})
	c.cache[expr] = elem

	return compiled, nil
}

// lookup serves a cache hit without going through Compile, bumping the
// entry to the front of the LRU list and recording the hit.
func (c *ExpressionCache) lookup(expr string) (*Expression, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[expr]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(elem)
	entry := elem.Value.(*cacheEntry)
	entry.lastUsed = time.Now()
	atomic.AddInt64(&c.hits, 1)
	return entry.expr, true
}

// evictOldest drops the least-recently-used entry. Caller must hold mu.
func (c *ExpressionCache) evictOldest() {
	oldest := c.lru.Back()
	if oldest == nil {
		return
	}
	c.lru.Remove(oldest)
	delete(c.cache, oldest.Value.(*cacheEntry).key)
}

// MustGet is like Get but panics on a compile error. Handy for expressions
// known at compile time to be valid, such as constants in calling code.
func (c *ExpressionCache) MustGet(expr string) *Expression {
	compiled, err := c.Get(expr)
	if err != nil {
		panic(err)
	}
	return compiled
}

// Clear empties the cache and resets its hit/miss counters.
func (c *ExpressionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*list.Element)
	c.lru = list.New()
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Size returns the number of expressions currently cached.
func (c *ExpressionCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Stats reports a snapshot of cache occupancy and hit/miss counts.
func (c *ExpressionCache) Stats() CacheStats {
	c.mu.Lock()
	size := len(c.cache)
	c.mu.Unlock()
	return CacheStats{
		Size:   size,
		Limit:  c.limit,
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
	}
}

// HitRate returns hits as a percentage of all lookups, 0 if none have
// happened yet.
func (c *ExpressionCache) HitRate() float64 {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// DefaultCache is a package-level cache for callers that don't need
// control over cache lifetime or size.
var DefaultCache = NewExpressionCache(1000)

// GetCached compiles expr through DefaultCache.
func GetCached(expr string) (*Expression, error) {
	return DefaultCache.Get(expr)
}

// MustGetCached is like GetCached but panics on a compile error.
func MustGetCached(expr string) *Expression {
	return DefaultCache.MustGet(expr)
}

// EvaluateCached compiles expr through DefaultCache and evaluates it
// against resource. This is the recommended entry point for production
// callers evaluating a small set of expressions repeatedly.
func EvaluateCached(resource []byte, expr string) (Collection, error) {
	compiled, err := DefaultCache.Get(expr)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(resource)
}
