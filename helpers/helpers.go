// Package helpers provides the concrete instruments curves are built from:
// fixed-rate bonds quoted on clean price, deposits quoted on a simple rate,
// and fixed-vs-float swaps quoted on their par rate.
package helpers

import (
	"errors"
	"fmt"
	"math"

	"github.com/meenmo/termfit/quote"
)

// ErrInvalidHelper is returned for helpers that cannot be built as specified.
var ErrInvalidHelper = errors.New("invalid helper")

// checkHandle rejects nil and empty handles and quotes without a finite value.
func checkHandle(h *quote.Handle) (float64, error) {
	if h == nil {
		return 0, fmt.Errorf("nil quote handle: %w", ErrInvalidHelper)
	}
	if h.Empty() {
		return 0, fmt.Errorf("%w", quote.ErrEmptyHandle)
	}
	v, err := h.Value()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("quote %q is %v: %w", h.Name(), v, quote.ErrInvalidQuote)
	}
	return v, nil
}
