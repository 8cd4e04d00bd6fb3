package typetraits

import (
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
)

// specCache is the process-wide, per-derivation specialization cache
// described in §3's data model: a map from type identity to the
// compiled procedure for that type, with publish-safe insertion.
//
// Insertion is guarded by [golang.org/x/sync/singleflight] rather than
// the teacher's hand-rolled double-checked RWMutex lock: singleflight.Do
// is exactly Invariant 2 of §3 ("at most one derivation effort is in
// flight; concurrent requests observe the result of the winner") as a
// library primitive instead of a bespoke lock dance.
type specCache[V any] struct {
	mu sync.RWMutex
	m  map[reflect.Type]V
	sf singleflight.Group
}

func newSpecCache[V any]() *specCache[V] {
	return &specCache[V]{m: make(map[reflect.Type]V)}
}

func (c *specCache[V]) get(t reflect.Type) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[t]
	return v, ok
}

func (c *specCache[V]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *specCache[V]) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.m)
}

// getOrCompute returns the cached specialization for t, computing it at
// most once across all concurrently racing callers. A failed compute is
// never cached — §7's propagation policy requires synthesis failures to
// remain retryable (e.g. after an [OverrideCopier]/[OverrideCreate]
// call installs a fix).
func (c *specCache[V]) getOrCompute(t reflect.Type, compute func() (V, error)) (V, error) {
	if v, ok := c.get(t); ok {
		return v, nil
	}

	res, err, _ := c.sf.Do(cacheKey(t), func() (any, error) {
		if v, ok := c.get(t); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.m[t] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// cacheKey returns a singleflight dedup token that is 1:1 with t's
// identity. t.String() is not: it renders a type's package using only
// the last import-path segment (e.g. "v1.Foo"), so two distinct types
// named identically from different import paths share one String().
// Two such types being derived concurrently would then collapse onto
// one singleflight call, and the loser would receive the winner's
// specialization for the wrong type — steady state is unaffected
// (c.get keys on the real reflect.Type), but the in-flight race window
// would hand back a mismatched value. reflect.Type's concrete
// implementation is always a pointer (*rtype), and the Go runtime
// interns exactly one type descriptor per distinct type, so formatting
// it with %p yields a token unique to t for the process's lifetime.
func cacheKey(t reflect.Type) string {
	return fmt.Sprintf("%p", t)
}

// CacheStats reports the number of entries currently held in each of
// the four specialization caches (mutability, cycles, copy, equality),
// plus the struct field cache the copier and equality walkers share
// with the introspector. It extends the teacher's own CacheStats,
// which reported only the copy cache.
func CacheStats() (mutability, cycles, copyDerivations, equality, structFields int) {
	return mutabilityCache.len(), cycleCache.len(), copyCache.len(), equalityCache.len(), structInfoCache.len()
}

// ResetCache clears every specialization cache. Intended for tests and
// for long-running processes that dynamically load plugin types whose
// reflect.Type values would otherwise be pinned forever.
func ResetCache() {
	mutabilityCache.reset()
	cycleCache.reset()
	copyCache.reset()
	equalityCache.reset()
	structInfoCache.reset()
}
