// Package query is a small keyed cache for API reads. Entries are served
// while younger than their stale time, concurrent fetches of one key are
// collapsed, failed fetches are retried with backoff and never cached, and
// mutations drop whole key prefixes.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/devilmonastery/infohunter/internal/pkg/metrics"
)

const (
	maxRetryDelay       = 30 * time.Second
	defaultFetchTimeout = 2 * time.Minute
)

// Key identifies a cached query as a list of segments, e.g. {"credits", "summary", "30"}
type Key []string

// NewKey builds a Key, formatting each part with fmt.Sprint
func NewKey(parts ...any) Key {
	k := make(Key, len(parts))
	for i, p := range parts {
		k[i] = fmt.Sprint(p)
	}
	return k
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether prefix matches the leading segments of k
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Options control freshness and retries for one Fetch
type Options struct {
	// StaleTime is how long a cached value is served without refetching.
	// Zero means always refetch.
	StaleTime time.Duration

	// Retry is the number of extra attempts after a failed fetch
	Retry int

	// RetryIf decides whether err is worth retrying. Nil retries every error.
	RetryIf func(err error) bool

	// RetryDelay returns the wait before retry attempt n (0-based).
	// Nil uses DefaultRetryDelay.
	RetryDelay func(attempt int) time.Duration
}

// DefaultRetryDelay doubles from one second up to thirty seconds
func DefaultRetryDelay(attempt int) time.Duration {
	if attempt >= 5 {
		return maxRetryDelay
	}
	return min(time.Second<<attempt, maxRetryDelay)
}

type entry struct {
	key       Key
	value     any
	updatedAt time.Time
}

// Cache holds query results keyed by Key
type Cache struct {
	name   string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
	// gen changes on every invalidation so fetches that started earlier
	// do not store their results
	gen uint64

	group        singleflight.Group
	fetchTimeout time.Duration
}

// Option configures a Cache
type Option func(*Cache)

// WithName sets the cache label reported in metrics
func WithName(name string) Option {
	return func(c *Cache) {
		c.name = name
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithFetchTimeout bounds a shared fetch including its retries
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.fetchTimeout = d
	}
}

// New creates an empty cache
func New(opts ...Option) *Cache {
	c := &Cache{
		name:    "default",
		logger:  slog.Default().With("component", "query_cache"),
		now:     time.Now,
		entries: make(map[string]*entry),

		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached value for key when it is fresh, otherwise calls fn.
// Concurrent callers for the same key share one call of fn. The shared call
// runs detached from any one caller; each caller stops waiting when its own
// ctx ends.
func Fetch[T any](ctx context.Context, c *Cache, key Key, opts Options, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	k := key.String()
	label := metrics.QueryLabel(k)

	if v, ok := c.lookup(k, opts.StaleTime); ok {
		if typed, ok := v.(T); ok {
			metrics.CacheHits.WithLabelValues(label).Inc()
			return typed, nil
		}
	}
	metrics.CacheMisses.WithLabelValues(label).Inc()

	ch := c.group.DoChan(k, func() (any, error) {
		gen := c.generation()
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		v, err := withRetry(fctx, opts, fn)
		if err != nil {
			c.logger.Debug("query failed", "key", k, "error", err)
			return nil, err
		}
		c.store(key, v, gen)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		typed, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("query %s: cached %T is not %T", k, res.Val, zero)
		}
		return typed, nil
	}
}

// Peek returns whatever is cached for key, fresh or not
func Peek[T any](c *Cache, key Key) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key.String()]
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

func withRetry[T any](ctx context.Context, opts Options, fn func(context.Context) (T, error)) (T, error) {
	delay := opts.RetryDelay
	if delay == nil {
		delay = DefaultRetryDelay
	}

	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= opts.Retry || ctx.Err() != nil {
			return v, err
		}
		if opts.RetryIf != nil && !opts.RetryIf(err) {
			return v, err
		}

		timer := time.NewTimer(delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return v, err
		case <-timer.C:
		}
	}
}

func (c *Cache) lookup(k string, staleTime time.Duration) (any, bool) {
	if staleTime <= 0 {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[k]
	if !ok || c.now().Sub(e.updatedAt) >= staleTime {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

func (c *Cache) store(key Key, v any, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	c.entries[key.String()] = &entry{key: key, value: v, updatedAt: c.now()}
	metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
}

// Set stores v under key as if it had just been fetched
func (c *Cache) Set(key Key, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key.String()] = &entry{key: key, value: v, updatedAt: c.now()}
	metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
}

// Invalidate drops every entry whose key starts with prefix and returns how
// many were dropped. Fetches already running will not store their results.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	n := 0
	for k, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, k)
			n++
		}
	}

	metrics.CacheInvalidations.WithLabelValues(metrics.QueryLabel(prefix.String())).Add(float64(n))
	metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
	c.logger.Debug("invalidated queries", "prefix", prefix.String(), "count", n)
	return n
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.entries = make(map[string]*entry)
	metrics.CacheSize.WithLabelValues(c.name).Set(0)
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
