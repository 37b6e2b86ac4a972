package engine

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/talgya/hippo-sim/internal/entropy"
)

// SampleRate draws one rate from Normal(r.Mean, r.Dev). The draw is not clamped:
// values outside [0, 1], including negative rates, are accepted noise.
func SampleRate(src *entropy.Source, r Rate) float64 {
	n := distuv.Normal{Mu: r.Mean, Sigma: r.Dev, Src: src}
	return n.Rand()
}

// SampleCount applies a sampled rate to a population. The product is truncated
// toward zero, so small populations or small rates can yield zero.
func SampleCount(src *entropy.Source, population int, r Rate) int {
	return int(float64(population) * SampleRate(src, r))
}
