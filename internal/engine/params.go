// Simulation parameters: the immutable per-run configuration.
package engine

import (
	"fmt"
	"math"
)

// Rate is the (mean, standard deviation) pair of a normally distributed
// per-capita yearly rate.
type Rate struct {
	Mean float64 `yaml:"mean" json:"mean"`
	Dev  float64 `yaml:"dev" json:"dev"`
}

// Parameters configures one simulation. It is passed by value and never mutated.
type Parameters struct {
	InitialPopulation int `yaml:"initial_population" json:"initial_population"`

	Birth          Rate `yaml:"birth" json:"birth"`
	NaturalDeath   Rate `yaml:"natural_death" json:"natural_death"`
	HumanInfluence Rate `yaml:"human_influence" json:"human_influence"` // culling once regulation applies
	Resources      Rate `yaml:"resources" json:"resources"`             // scarcity deaths
	Phenomenon     Rate `yaml:"phenomenon" json:"phenomenon"`           // weather, disease outbreaks
}

// DefaultParameters returns the reference hippo population configuration.
func DefaultParameters() Parameters {
	return Parameters{
		InitialPopulation: 100,
		Birth:             Rate{Mean: 0.3, Dev: 0.03},
		NaturalDeath:      Rate{Mean: 0.03, Dev: 0.01},
		HumanInfluence:    Rate{Mean: 0.2, Dev: 0.025},
		Resources:         Rate{Mean: 0.05, Dev: 0.01},
		Phenomenon:        Rate{Mean: 0.1, Dev: 0.05},
	}
}

// Validate checks that the initial population is non-negative and that every
// mean and deviation lies in [0, 1].
func (p Parameters) Validate() error {
	if p.InitialPopulation < 0 {
		return fmt.Errorf("%w: initial population %d is negative", ErrInvalidParameters, p.InitialPopulation)
	}
	for _, r := range p.rates() {
		if err := r.rate.validate(r.name); err != nil {
			return err
		}
	}
	return nil
}

type namedRate struct {
	name string
	rate Rate
}

func (p Parameters) rates() []namedRate {
	return []namedRate{
		{"birth", p.Birth},
		{"natural_death", p.NaturalDeath},
		{"human_influence", p.HumanInfluence},
		{"resources", p.Resources},
		{"phenomenon", p.Phenomenon},
	}
}

func (r Rate) validate(name string) error {
	if math.IsNaN(r.Mean) || r.Mean < 0 || r.Mean > 1 {
		return fmt.Errorf("%w: %s mean %v outside [0, 1]", ErrInvalidParameters, name, r.Mean)
	}
	if math.IsNaN(r.Dev) || r.Dev < 0 || r.Dev > 1 {
		return fmt.Errorf("%w: %s dev %v outside [0, 1]", ErrInvalidParameters, name, r.Dev)
	}
	return nil
}
