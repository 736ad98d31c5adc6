package curve

import "errors"

var (
	// ErrNoHelpers is returned when a curve is built without instruments.
	ErrNoHelpers = errors.New("no instrument helpers")
	// ErrUnsortedPillars is returned when pillar dates are not strictly increasing.
	ErrUnsortedPillars = errors.New("pillar dates not strictly increasing")
	// ErrInvalidOptions is returned for inconsistent curve options.
	ErrInvalidOptions = errors.New("invalid curve options")
	// ErrBeforeReference is returned for queries before the reference date.
	ErrBeforeReference = errors.New("date before reference date")
	// ErrBeyondMaxDate is returned for queries past the last node when extrapolation is off.
	ErrBeyondMaxDate = errors.New("date beyond curve max date")
)
