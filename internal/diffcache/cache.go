package diffcache

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"thumbsweep/internal/logging"
	"thumbsweep/internal/metrics"
)

// maxSharedRetries bounds how often a live caller restarts a computation
// that was cancelled by the caller that started it.
const maxSharedRetries = 3

// ComputeFunc produces the value for a key.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Cache is a get-or-compute map with single-flight semantics.
type Cache[V any] struct {
	group singleflight.Group

	mu       sync.RWMutex
	entries  map[string]V
	inflight map[string]uint64 // key -> id of the flight that owns it
	flights  uint64
	epoch    uint64 // bumped by every invalidation
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{
		entries:  make(map[string]V),
		inflight: make(map[string]uint64),
	}
}

// GetOrCompute returns the cached value for key, or runs fn to produce it.
// Callers that arrive while fn is running wait for the same result. If the
// shared computation was cancelled through another caller's context and ctx
// is still live, the computation is restarted.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, fn ComputeFunc[V]) (V, error) {
	var zero V

	for attempt := 0; ; attempt++ {
		if v, ok := c.lookup(key); ok {
			metrics.CacheHits.Inc()
			return v, nil
		}

		ch := c.group.DoChan(key, func() (any, error) {
			return c.compute(ctx, key, fn)
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(V), nil
			}
			if isCancellation(res.Err) && ctx.Err() == nil && attempt < maxSharedRetries {
				logging.Debug("Diff cache: shared computation for %s was cancelled, retrying", key)
				continue
			}
			return zero, res.Err
		}
	}
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache[V]) compute(ctx context.Context, key string, fn ComputeFunc[V]) (V, error) {
	metrics.CacheMisses.Inc()

	c.mu.Lock()
	c.flights++
	flight := c.flights
	c.inflight[key] = flight
	startEpoch := c.epoch
	c.mu.Unlock()

	v, err := fn(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	// A detached flight must not clear the marker of its successor.
	if c.inflight[key] == flight {
		delete(c.inflight, key)
	}

	if err != nil {
		return v, err
	}
	if c.epoch != startEpoch {
		// Invalidated while running; hand the value to waiters only.
		return v, nil
	}
	c.entries[key] = v
	metrics.CacheEntries.Set(float64(len(c.entries)))
	return v, nil
}

// Invalidate removes key. It reports whether an entry was stored.
func (c *Cache[V]) Invalidate(key string) bool {
	return c.InvalidateFunc(func(k string) bool { return k == key }) > 0
}

// InvalidateFunc removes every key for which match returns true and returns
// the number of stored entries removed. Matching in-flight computations are
// detached so later callers start fresh.
func (c *Cache[V]) InvalidateFunc(match func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	removed := 0
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
			removed++
		}
	}
	for k := range c.inflight {
		if match(k) {
			c.group.Forget(k)
		}
	}

	metrics.CacheInvalidations.Add(float64(removed))
	metrics.CacheEntries.Set(float64(len(c.entries)))
	return removed
}

// InvalidateAll empties the cache.
func (c *Cache[V]) InvalidateAll() int {
	return c.InvalidateFunc(func(string) bool { return true })
}

// Len returns the number of stored entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
