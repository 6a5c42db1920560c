package metadata

import (
	"container/list"
	"sync"
)

// lruCache is a bounded least-recently-used cache keyed by string, reused
// (re-grounded, not shared code) from the pattern in
// pkg/fhirpath.ExpressionCache for the snapshot and invariant caches that
// the Index needs.
type lruCache struct {
	mu    sync.Mutex
	cache map[string]*list.Element
	order *list.List
	limit int
}

type lruEntry struct {
	key   string
	value interface{}
}

func newLRUCache(limit int) *lruCache {
	return &lruCache{cache: make(map[string]*list.Element), order: list.New(), limit: limit}
}

func (c *lruCache) get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

func (c *lruCache) put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.cache[key]; ok {
		el.Value.(*lruEntry).value = value
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&lruEntry{key: key, value: value})
	c.cache[key] = el
	if c.limit > 0 && c.order.Len() > c.limit {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.cache, oldest.Value.(*lruEntry).key)
		}
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
