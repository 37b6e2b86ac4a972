// Package engine provides the year-by-year hippo population model: rate
// sampling, policy predicates, the yearly step, trajectory simulation,
// carrying-capacity estimation and the logistic reference curve.
package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/talgya/hippo-sim/internal/entropy"
)

// Trajectory is the population at the end of each simulated year, in order.
// It stops early, without the non-positive value, when the population dies out.
type Trajectory []int

// Peak returns the largest population in the trajectory, or 0 when it is empty.
func (t Trajectory) Peak() int {
	if len(t) == 0 {
		return 0
	}
	return slices.Max(t)
}

// Extinct reports whether a run of numYears ended before its horizon.
func (t Trajectory) Extinct(numYears int) bool {
	return len(t) < numYears
}

// History is the detailed record of one run.
type History struct {
	Years []YearState `json:"years"`

	// Extinction is the step that drove the population to zero or below.
	// It is not part of Years. Nil when the run reached its horizon
	// or started with no population.
	Extinction *YearState `json:"extinction,omitempty"`
}

// Trajectory returns the population values of the recorded years.
func (h History) Trajectory() Trajectory {
	t := make(Trajectory, len(h.Years))
	for i, y := range h.Years {
		t[i] = y.Population
	}
	return t
}

// Simulator runs trajectories for one fixed parameter set.
// It draws from a single source and is not safe for concurrent use;
// CarryingCapacityParallel handles its own fan-out.
type Simulator struct {
	params Parameters
	src    *entropy.Source
	logger *slog.Logger

	// OnYear, when set, is called with every year produced by Run and Simulate,
	// including the extinction step.
	OnYear func(YearState)
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger used for run and estimate summaries.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = l
	}
}

// WithObserver sets the OnYear callback.
func WithObserver(fn func(YearState)) Option {
	return func(s *Simulator) {
		s.OnYear = fn
	}
}

// NewSimulator validates params and binds them to src. A nil src is replaced
// by a crypto-seeded one.
func NewSimulator(params Parameters, src *entropy.Source, opts ...Option) (*Simulator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = entropy.New()
	}
	s := &Simulator{
		params: params,
		src:    src,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Parameters returns the parameter set the simulator was built with.
func (s *Simulator) Parameters() Parameters {
	return s.params
}

// Seed returns the seed of the underlying random source.
func (s *Simulator) Seed() uint64 {
	return s.src.Seed()
}

// Run simulates up to numYears years and returns every recorded year.
func (s *Simulator) Run(numYears int) (History, error) {
	if numYears < 0 {
		return History{}, fmt.Errorf("%w: year count %d is negative", ErrInvalidHorizon, numYears)
	}
	return s.run(s.src, numYears, s.OnYear), nil
}

// Simulate runs one trajectory of up to numYears years.
func (s *Simulator) Simulate(numYears int) (Trajectory, error) {
	h, err := s.Run(numYears)
	if err != nil {
		return nil, err
	}
	return h.Trajectory(), nil
}

// run is the RUNNING/STOPPED loop. It stops at the horizon or on the first
// step whose population is not positive; that step is reported separately.
func (s *Simulator) run(src *entropy.Source, numYears int, onYear func(YearState)) History {
	h := History{Years: make([]YearState, 0, numYears)}

	population := s.params.InitialPopulation
	for year := 0; year < numYears; year++ {
		if population <= 0 {
			break
		}

		ys := Step(src, s.params, population, year)
		if onYear != nil {
			onYear(ys)
		}

		if ys.Population <= 0 {
			h.Extinction = &ys
			s.logger.Debug("population extinct",
				"year", ys.Year,
				"start_population", ys.StartPopulation,
				"births", ys.Births,
				"deaths", ys.Deaths(),
			)
			break
		}

		h.Years = append(h.Years, ys)
		population = ys.Population
	}

	return h
}
