// Policy predicates: yearly conditions that switch the conditional death effects on or off.
// Each is evaluated fresh every year from the current population and year; nothing carries over.
package engine

import "github.com/talgya/hippo-sim/internal/entropy"

// Thresholds for the conditional effects.
const (
	HumanInfluenceStartYear     = 3   // regulation is not organised before this year
	HumanInfluenceMinPopulation = 400 // below this there is no culling pressure

	EarlyResourceYears   = 20   // first resource window: years [0, 20)
	EarlyResourceCeiling = 1000 // population the early window supports
	LateResourceYears    = 50   // second resource window: years (20, 50)
	LateResourceCeiling  = 500  // population the late window supports

	PhenomenonDieSides = 300 // phenomenon fires when a d300 roll is below the year
)

// HumanInfluence reports whether humans cull the population this year.
func HumanInfluence(population, year int) bool {
	if year < HumanInfluenceStartYear {
		return false
	}
	return population >= HumanInfluenceMinPopulation
}

// ResourcesSufficient reports whether the environment feeds the population this year.
//
// Year 20 itself belongs to neither window and is therefore always insufficient.
func ResourcesSufficient(population, year int) bool {
	if year < EarlyResourceYears && population < EarlyResourceCeiling {
		return true
	}
	if year > EarlyResourceYears && year < LateResourceYears && population < LateResourceCeiling {
		return true
	}
	return false
}

// PhenomenonOccurs rolls for a random phenomenon. The chance is (year-1)/300,
// so it is zero for the first two years and rises with elapsed time.
func PhenomenonOccurs(src *entropy.Source, year int) bool {
	return src.IntRange(1, PhenomenonDieSides) < year
}
