package engine

import "errors"

// Input validation errors. Every failure in this package is caller-supplied bad
// input; there are no transient errors to retry.
var (
	// ErrInvalidParameters indicates a rate or initial population outside its valid range.
	ErrInvalidParameters = errors.New("engine: invalid simulation parameters")

	// ErrInvalidHorizon indicates a negative year count or a non-positive sample count.
	ErrInvalidHorizon = errors.New("engine: invalid horizon")

	// ErrInvalidLogistic indicates logistic inputs for which the curve is undefined.
	ErrInvalidLogistic = errors.New("engine: invalid logistic growth input")
)
