package funcs

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/fhirlang/gofhir/pkg/fhirpath/eval"
)

// RegexCache compiles and caches regular expressions used by the string
// matching functions (matches, replaceMatches), bounding both pattern
// complexity and match/replace wall time so a hostile FHIRPath expression
// can't turn a single evaluation into a ReDoS.
type RegexCache struct {
	mu       sync.RWMutex
	compiled map[string]*cachedPattern
	lru      []string
	capacity int
	maxLen   int
	timeout  time.Duration
}

type cachedPattern struct {
	re       *regexp.Regexp
	lastUsed time.Time
}

// DefaultRegexCache is shared by every "matches"/"replaceMatches" call.
var DefaultRegexCache = NewRegexCache(500, 1000, 100*time.Millisecond)

// NewRegexCache builds a cache holding up to capacity compiled patterns,
// rejecting source patterns longer than maxLen, and bounding match/replace
// operations to timeout.
func NewRegexCache(capacity, maxLen int, timeout time.Duration) *RegexCache {
	return &RegexCache{
		compiled: make(map[string]*cachedPattern),
		lru:      make([]string, 0, capacity),
		capacity: capacity,
		maxLen:   maxLen,
		timeout:  timeout,
	}
}

// Compile returns a compiled pattern, serving it from cache when possible.
func (c *RegexCache) Compile(pattern string) (*regexp.Regexp, error) {
	if len(pattern) > c.maxLen {
		return nil, eval.NewEvalError(eval.ErrInvalidExpression,
			"regex pattern too long (max %d characters)", c.maxLen)
	}
	if err := checkRegexComplexity(pattern); err != nil {
		return nil, err
	}

	c.mu.RLock()
	if entry, ok := c.compiled[pattern]; ok {
		entry.lastUsed = time.Now()
		c.mu.RUnlock()
		return entry.re, nil
	}
	c.mu.RUnlock()

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, eval.NewEvalError(eval.ErrInvalidExpression, "invalid regex: %s", err.Error())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.compiled[pattern]; ok {
		return entry.re, nil
	}
	if len(c.compiled) >= c.capacity {
		c.evictOldest()
	}
	c.compiled[pattern] = &cachedPattern{re: re, lastUsed: time.Now()}
	c.lru = append(c.lru, pattern)
	return re, nil
}

// evictOldest drops the least-recently-used entry. Caller must hold the
// write lock.
func (c *RegexCache) evictOldest() {
	if len(c.lru) == 0 {
		return
	}
	oldestIdx := 0
	oldest := c.lru[0]
	oldestTime := c.compiled[oldest].lastUsed
	for i, pattern := range c.lru {
		entry, ok := c.compiled[pattern]
		if ok && entry.lastUsed.Before(oldestTime) {
			oldest, oldestIdx, oldestTime = pattern, i, entry.lastUsed
		}
	}
	delete(c.compiled, oldest)
	c.lru = append(c.lru[:oldestIdx], c.lru[oldestIdx+1:]...)
}

// MatchWithTimeout reports whether pattern matches s. Subjects of 1000
// bytes or more are bounded by the cache's configured timeout; shorter
// ones are matched directly.
func (c *RegexCache) MatchWithTimeout(ctx context.Context, pattern, s string) (bool, error) {
	re, err := c.Compile(pattern)
	if err != nil {
		return false, err
	}
	if len(s) < 1000 {
		return re.MatchString(s), nil
	}
	return runBounded(ctx, c.timeout, func() bool { return re.MatchString(s) })
}

// ReplaceWithTimeout substitutes every match of pattern in s with
// replacement. Subjects of 1000 bytes or more are bounded by the cache's
// configured timeout; shorter ones are replaced directly.
func (c *RegexCache) ReplaceWithTimeout(ctx context.Context, pattern, s, replacement string) (string, error) {
	re, err := c.Compile(pattern)
	if err != nil {
		return "", err
	}
	if len(s) < 1000 {
		return re.ReplaceAllString(s, replacement), nil
	}
	return runBounded(ctx, c.timeout, func() string { return re.ReplaceAllString(s, replacement) })
}

// runBounded runs compute on its own goroutine and returns its result,
// unless ctx is cancelled or timeout elapses first. Used for the rare
// pathological input where a regex match/replace on a long string could
// otherwise run unbounded.
func runBounded[T any](ctx context.Context, timeout time.Duration, compute func() T) (T, error) {
	done := make(chan T, 1)
	go func() { done <- compute() }()

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	select {
	case result := <-done:
		return result, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-time.After(timeout):
		var zero T
		return zero, eval.NewEvalError(eval.ErrTimeout, "regex operation timeout exceeded")
	}
}

// Clear empties the cache.
func (c *RegexCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compiled = make(map[string]*cachedPattern)
	c.lru = make([]string, 0, c.capacity)
}

// Size reports the number of cached patterns.
func (c *RegexCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.compiled)
}

// checkRegexComplexity rejects shapes that commonly blow up regex engines:
// runs of consecutive quantifiers and deeply nested groups.
func checkRegexComplexity(pattern string) error {
	var groupDepth, maxGroupDepth int
	var prevWasQuant bool

	for _, ch := range pattern {
		switch ch {
		case '(':
			groupDepth++
			if groupDepth > maxGroupDepth {
				maxGroupDepth = groupDepth
			}
		case ')':
			if groupDepth > 0 {
				groupDepth--
			}
		case '*', '+', '?':
			if prevWasQuant {
				return eval.NewEvalError(eval.ErrInvalidExpression,
					"potentially dangerous regex: consecutive quantifiers")
			}
			prevWasQuant = true
		case '{':
			prevWasQuant = true
		default:
			prevWasQuant = false
		}
	}

	if maxGroupDepth > 5 {
		return eval.NewEvalError(eval.ErrInvalidExpression,
			"regex has too much nesting (max depth 5)")
	}
	return nil
}
