package engine

import (
	"fmt"
	"math"
)

// LogisticGrowth returns the closed-form logistic curve
//
//	P(t) = K / (1 + ((K - P0) / P0) * e^(-r*t))
//
// for t = 0 .. numYears-1. P0 is the curve's own starting value and need not
// match the simulator's initial population. P0 and K must be positive and
// finite.
func LogisticGrowth(growthRate, initialPopulation, carryingCapacity float64, numYears int) ([]float64, error) {
	if numYears < 0 {
		return nil, fmt.Errorf("%w: year count %d is negative", ErrInvalidHorizon, numYears)
	}
	if !(initialPopulation > 0) || math.IsInf(initialPopulation, 0) {
		return nil, fmt.Errorf("%w: initial population %v must be positive and finite", ErrInvalidLogistic, initialPopulation)
	}
	if !(carryingCapacity > 0) || math.IsInf(carryingCapacity, 0) {
		return nil, fmt.Errorf("%w: carrying capacity %v must be positive and finite", ErrInvalidLogistic, carryingCapacity)
	}
	if math.IsNaN(growthRate) || math.IsInf(growthRate, 0) {
		return nil, fmt.Errorf("%w: growth rate %v must be finite", ErrInvalidLogistic, growthRate)
	}

	ratio := (carryingCapacity - initialPopulation) / initialPopulation
	curve := make([]float64, numYears)
	for t := range curve {
		curve[t] = carryingCapacity / (1 + ratio*math.Exp(-growthRate*float64(t)))
	}
	return curve, nil
}
