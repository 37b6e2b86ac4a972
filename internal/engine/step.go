// Year-step engine: one year of births and deaths.
package engine

import "github.com/talgya/hippo-sim/internal/entropy"

// YearState records one simulated year. A fresh value is produced for every
// year; nothing is updated in place.
type YearState struct {
	Year            int `json:"year"`
	StartPopulation int `json:"start_population"`
	Population      int `json:"population"` // after births and deaths; may be <= 0

	Births           int `json:"births"`
	NaturalDeaths    int `json:"natural_deaths"`
	HumanDeaths      int `json:"human_deaths"`
	ResourceDeaths   int `json:"resource_deaths"`
	PhenomenonDeaths int `json:"phenomenon_deaths"`

	HumanInfluence      bool `json:"human_influence"`
	ResourcesSufficient bool `json:"resources_sufficient"`
	Phenomenon          bool `json:"phenomenon"`
}

// Deaths returns the total of all four death categories.
func (y YearState) Deaths() int {
	return y.NaturalDeaths + y.HumanDeaths + y.ResourceDeaths + y.PhenomenonDeaths
}

// Step advances a population by one year.
//
// Each count is sampled and truncated on its own before the sum, so the result
// differs from applying one combined rate. Draws happen in a fixed order
// (births, natural deaths, culling, scarcity, phenomenon roll, phenomenon
// deaths) which keeps seeded runs reproducible.
func Step(src *entropy.Source, p Parameters, population, year int) YearState {
	ys := YearState{
		Year:            year,
		StartPopulation: population,
	}

	ys.Births = SampleCount(src, population, p.Birth)
	ys.NaturalDeaths = SampleCount(src, population, p.NaturalDeath)

	ys.HumanInfluence = HumanInfluence(population, year)
	if ys.HumanInfluence {
		ys.HumanDeaths = SampleCount(src, population, p.HumanInfluence)
	}

	ys.ResourcesSufficient = ResourcesSufficient(population, year)
	if !ys.ResourcesSufficient {
		ys.ResourceDeaths = SampleCount(src, population, p.Resources)
	}

	ys.Phenomenon = PhenomenonOccurs(src, year)
	if ys.Phenomenon {
		ys.PhenomenonDeaths = SampleCount(src, population, p.Phenomenon)
	}

	ys.Population = population + ys.Births - ys.Deaths()
	return ys
}
