// Package quote provides observable market values and relinkable handles to them.
package quote

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/meenmo/termfit/lazy"
)

var (
	// ErrInvalidQuote is returned for quotes without a usable value.
	ErrInvalidQuote = errors.New("invalid quote")
	// ErrEmptyHandle is returned when a handle is not linked to any quote.
	ErrEmptyHandle = errors.New("empty quote handle")
)

// Quote is a named scalar market value. Only its owner should call Set;
// any number of curves may read it.
type Quote struct {
	mu    sync.RWMutex
	name  string
	value float64
	valid bool
	stamp uint64
}

// New returns a quote holding value. A non-finite value yields an invalid quote.
func New(name string, value float64) *Quote {
	return &Quote{
		name:  name,
		value: value,
		valid: isFinite(value),
		stamp: lazy.NextStamp(),
	}
}

// Name returns the quote's label.
func (q *Quote) Name() string {
	return q.name
}

// Value returns the current value, or ErrInvalidQuote.
func (q *Quote) Value() (float64, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.valid {
		return 0, fmt.Errorf("quote %q: %w", q.name, ErrInvalidQuote)
	}
	return q.value, nil
}

// IsValid reports whether the quote currently holds a value.
func (q *Quote) IsValid() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.valid
}

// Set stores a new value. Setting the current value again does not bump the version.
func (q *Quote) Set(value float64) error {
	if !isFinite(value) {
		return fmt.Errorf("quote %q: non-finite value %v: %w", q.name, value, ErrInvalidQuote)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.valid && q.value == value {
		return nil
	}
	q.value = value
	q.valid = true
	q.stamp = lazy.NextStamp()
	return nil
}

// Invalidate removes the quote's value.
func (q *Quote) Invalidate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.valid = false
	q.stamp = lazy.NextStamp()
}

// Version implements lazy.Dependency.
func (q *Quote) Version() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.stamp
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
