// Package experiment produces the data behind the two standard studies:
// the logistic growth comparison against an estimated carrying capacity, and
// a handful of raw trajectories side by side.
package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/hippo-sim/internal/engine"
)

// CalendarStart is the calendar year plotted for t = 0 of the growth curve.
const CalendarStart = 2020

// GrowthConfig configures the growth study.
type GrowthConfig struct {
	GrowthRate        float64 `yaml:"growth_rate" json:"growth_rate"`
	InitialPopulation float64 `yaml:"initial_population" json:"initial_population"` // P0 of the curve, not of the simulation
	NumSimulations    int     `yaml:"num_simulations" json:"num_simulations"`       // sample count and horizon of the estimate
	NumYears          int     `yaml:"num_years" json:"num_years"`                   // length of the curve
	Workers           int     `yaml:"-" json:"workers"`                             // 0 = sequential estimate
}

// DefaultGrowthConfig mirrors the reference study: r = 0.05, P0 = 100,
// 100×100 simulations, 150 years of curve.
func DefaultGrowthConfig() GrowthConfig {
	return GrowthConfig{
		GrowthRate:        0.05,
		InitialPopulation: 100,
		NumSimulations:    100,
		NumYears:          150,
	}
}

// GrowthReport is the outcome of the growth study.
type GrowthReport struct {
	GrowthRate        float64   `json:"growth_rate"`
	InitialPopulation float64   `json:"initial_population"`
	Capacity          int       `json:"capacity"`
	Years             []int     `json:"years"` // calendar years, one per curve point
	Curve             []float64 `json:"curve"`
}

// Growth estimates the carrying capacity and evaluates the logistic curve for it.
// The estimate uses NumSimulations both as the sample count and as the
// trajectory length.
func Growth(ctx context.Context, sim *engine.Simulator, cfg GrowthConfig) (GrowthReport, error) {
	var (
		est engine.Estimate
		err error
	)
	if cfg.Workers > 0 {
		est, err = sim.CarryingCapacityParallel(ctx, cfg.NumSimulations, cfg.NumSimulations, cfg.Workers)
	} else {
		est, err = sim.EstimateCapacity(cfg.NumSimulations, cfg.NumSimulations)
	}
	if err != nil {
		return GrowthReport{}, fmt.Errorf("estimate capacity: %w", err)
	}

	curve, err := engine.LogisticGrowth(cfg.GrowthRate, cfg.InitialPopulation, float64(est.Capacity), cfg.NumYears)
	if err != nil {
		return GrowthReport{}, fmt.Errorf("logistic growth: %w", err)
	}

	years := make([]int, len(curve))
	for i := range years {
		years[i] = CalendarStart + i
	}

	slog.Info("growth study complete",
		"growth_rate", cfg.GrowthRate,
		"p0", cfg.InitialPopulation,
		"capacity", est.Capacity,
		"final", fmt.Sprintf("%.1f", lastOr(curve, 0)),
	)

	return GrowthReport{
		GrowthRate:        cfg.GrowthRate,
		InitialPopulation: cfg.InitialPopulation,
		Capacity:          est.Capacity,
		Years:             years,
		Curve:             curve,
	}, nil
}

// Samples runs `runs` independent trajectories of numYears years.
func Samples(sim *engine.Simulator, runs, numYears int) ([]engine.Trajectory, error) {
	if runs < 0 {
		return nil, fmt.Errorf("%w: run count %d is negative", engine.ErrInvalidHorizon, runs)
	}
	out := make([]engine.Trajectory, 0, runs)
	for i := 0; i < runs; i++ {
		traj, err := sim.Simulate(numYears)
		if err != nil {
			return nil, fmt.Errorf("simulation %d: %w", i+1, err)
		}
		slog.Debug("sample trajectory", "run", i+1, "length", len(traj), "peak", traj.Peak())
		out = append(out, traj)
	}
	return out, nil
}

func lastOr(xs []float64, def float64) float64 {
	if len(xs) == 0 {
		return def
	}
	return xs[len(xs)-1]
}
