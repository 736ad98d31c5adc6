// Package lazy implements memoization with version-based invalidation.
//
// Every observable input (a quote, a handle, the evaluation date) carries a
// version stamp drawn from one process-wide monotonic counter. A derived
// object records the largest stamp among its dependencies when it computes;
// on the next query it compares that with the current largest stamp and
// recomputes only if something moved. Nothing is pushed to dependents, so
// there are no observer lists to keep alive or unregister.
package lazy

import (
	"sync"
	"sync/atomic"
)

var clock atomic.Uint64

// NextStamp returns a fresh version stamp, larger than every stamp handed out before.
func NextStamp() uint64 {
	return clock.Add(1)
}

// Dependency is anything whose changes invalidate derived results.
type Dependency interface {
	Version() uint64
}

// State is the lifecycle state of a Cache.
type State int32

const (
	Uninitialized State = iota
	Fresh
	Stale
	Recomputing
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Recomputing:
		return "recomputing"
	default:
		return "unknown"
	}
}

// MaxVersion returns the largest version among deps. Nil entries are skipped.
func MaxVersion(deps []Dependency) uint64 {
	var v uint64
	for _, d := range deps {
		if d == nil {
			continue
		}
		if dv := d.Version(); dv > v {
			v = dv
		}
	}
	return v
}

// Cache holds one lazily computed value of type T.
//
// Recomputation is serialized by the cache's mutex, so concurrent callers of
// Get block until the running computation finishes and then observe the new
// value; no caller ever sees a half-built T. A failed computation leaves the
// cache without a value and the error is returned to the caller that
// triggered it; the next Get retries.
type Cache[T any] struct {
	mu    sync.Mutex
	deps  []Dependency
	seen  atomic.Uint64
	value T
	ok    bool

	// seeded is true when value holds a past result usable as a warm start,
	// even if the latest recomputation failed.
	seeded bool
	state  atomic.Int32
	own    uint64
}

// New returns an empty cache observing deps.
func New[T any](deps ...Dependency) *Cache[T] {
	c := &Cache[T]{deps: deps, own: NextStamp()}
	c.state.Store(int32(Uninitialized))
	return c
}

// Version is the largest version among the cache's dependencies, or the
// cache's own creation stamp if that is larger. A derived object can therefore
// be used as a Dependency of further derived objects.
func (c *Cache[T]) Version() uint64 {
	v := MaxVersion(c.deps)
	if c.own > v {
		return c.own
	}
	return v
}

// State reports the current lifecycle state without blocking.
func (c *Cache[T]) State() State {
	s := State(c.state.Load())
	if s == Fresh && c.Version() != c.seenVersion() {
		return Stale
	}
	return s
}

func (c *Cache[T]) seenVersion() uint64 {
	return c.seen.Load()
}

// Get returns the cached value, recomputing it first if any dependency has
// changed since the last successful computation. compute receives the previous
// value (and whether there was one) so it can warm-start.
func (c *Cache[T]) Get(compute func(prev T, hasPrev bool) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.Version()
	if c.ok && current == c.seenVersion() {
		return c.value, nil
	}

	c.state.Store(int32(Recomputing))
	v, err := compute(c.value, c.seeded)
	if err != nil {
		var zero T
		c.ok = false
		if c.seeded {
			c.state.Store(int32(Stale))
		} else {
			c.state.Store(int32(Uninitialized))
		}
		return zero, err
	}
	c.value = v
	c.ok = true
	c.seeded = true
	c.seen.Store(current)
	c.state.Store(int32(Fresh))
	return v, nil
}

// Peek returns the last successfully computed value without recomputing.
func (c *Cache[T]) Peek() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.ok
}
