package quote

import (
	"sync"

	"github.com/meenmo/termfit/lazy"
)

// Handle is a stable slot pointing at a Quote. Helpers hold handles, not
// quotes, so the quote behind a helper can be swapped with LinkTo.
type Handle struct {
	mu     sync.RWMutex
	target *Quote
	stamp  uint64
}

// NewHandle returns a handle linked to q (which may be nil).
func NewHandle(q *Quote) *Handle {
	return &Handle{target: q, stamp: lazy.NextStamp()}
}

// Link is shorthand for NewHandle(New(name, value)).
func Link(name string, value float64) *Handle {
	return NewHandle(New(name, value))
}

// LinkTo re-targets the handle.
func (h *Handle) LinkTo(q *Quote) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.target = q
	h.stamp = lazy.NextStamp()
}

// Current returns the linked quote, or nil.
func (h *Handle) Current() *Quote {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.target
}

// Empty reports whether the handle points nowhere.
func (h *Handle) Empty() bool {
	return h.Current() == nil
}

// Value returns the linked quote's value.
func (h *Handle) Value() (float64, error) {
	q := h.Current()
	if q == nil {
		return 0, ErrEmptyHandle
	}
	return q.Value()
}

// Name returns the linked quote's name, or "" for an empty handle.
func (h *Handle) Name() string {
	if q := h.Current(); q != nil {
		return q.Name()
	}
	return ""
}

// Version implements lazy.Dependency: it changes when the handle is relinked
// or when the linked quote changes.
func (h *Handle) Version() uint64 {
	h.mu.RLock()
	v, q := h.stamp, h.target
	h.mu.RUnlock()
	if q != nil {
		if qv := q.Version(); qv > v {
			return qv
		}
	}
	return v
}
