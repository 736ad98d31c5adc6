// Package settings holds the evaluation date that curves measure time from.
//
// There is no process-wide "today": callers create an EvaluationDate, pass it
// to every curve that should track it, and move it explicitly. Curves built
// on a fixed reference date ignore it.
package settings

import (
	"sync"
	"time"

	"github.com/meenmo/termfit/calendar"
	"github.com/meenmo/termfit/lazy"
)

// EvaluationDate is a versioned, mutable date.
type EvaluationDate struct {
	mu    sync.RWMutex
	date  time.Time
	stamp uint64
}

// NewEvaluationDate returns an evaluation date set to d (truncated to the day).
func NewEvaluationDate(d time.Time) *EvaluationDate {
	return &EvaluationDate{date: truncate(d), stamp: lazy.NextStamp()}
}

// Date returns the current evaluation date.
func (e *EvaluationDate) Date() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.date
}

// Set moves the evaluation date. Setting the same date again is a no-op.
func (e *EvaluationDate) Set(d time.Time) {
	d = truncate(d)
	e.mu.Lock()
	defer e.mu.Unlock()
	if d.Equal(e.date) {
		return
	}
	e.date = d
	e.stamp = lazy.NextStamp()
}

// Advance moves the evaluation date by months, adjusted on cal with conv.
func (e *EvaluationDate) Advance(cal calendar.CalendarID, months int, conv calendar.Convention) time.Time {
	next := calendar.Advance(cal, e.Date(), months, conv)
	e.Set(next)
	return next
}

// Version implements lazy.Dependency.
func (e *EvaluationDate) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stamp
}

func truncate(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
