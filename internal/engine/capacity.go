// Carrying-capacity estimation: averages of running averages of trajectory peaks.
package engine

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/talgya/hippo-sim/internal/entropy"
)

// Estimate is the result of a carrying-capacity run together with the samples
// it was derived from.
type Estimate struct {
	Capacity int `json:"capacity"`

	// Peaks holds the peak of every trajectory in the order it was simulated.
	Peaks []int `json:"peaks"`

	// BatchMeans holds, for each outer iteration, the mean of all peaks
	// collected so far. Capacity is their mean, truncated.
	BatchMeans []float64 `json:"batch_means"`
}

// CarryingCapacity estimates the carrying capacity from num×num trajectories of
// the given length.
func (s *Simulator) CarryingCapacity(num, years int) (int, error) {
	est, err := s.EstimateCapacity(num, years)
	if err != nil {
		return 0, err
	}
	return est.Capacity, nil
}

// EstimateCapacity runs num outer iterations of num trajectories each, all
// drawn sequentially from the simulator's source.
//
// The running mean is cumulative across outer iterations, never reset, so
// early batches weigh more heavily in the final figure than a plain mean of
// all peaks would give them.
func (s *Simulator) EstimateCapacity(num, years int) (Estimate, error) {
	if err := checkCapacityInput(num, years); err != nil {
		return Estimate{}, err
	}

	peaks := make([]float64, 0, num*num)
	for i := 0; i < num; i++ {
		for j := 0; j < num; j++ {
			h := s.run(s.src, years, s.OnYear)
			peaks = append(peaks, float64(h.Trajectory().Peak()))
		}
	}

	est := summarize(peaks, num)
	s.logEstimate(est, num, years, 1)
	return est, nil
}

// CarryingCapacityParallel computes the same kind of estimate with trajectories
// spread over workers goroutines (GOMAXPROCS when workers <= 0).
//
// Every trajectory gets its own child source, derived in order from the
// simulator's source before any work starts, so a seeded simulator gives the
// same estimate whatever the worker count. OnYear is not called.
func (s *Simulator) CarryingCapacityParallel(ctx context.Context, num, years, workers int) (Estimate, error) {
	if err := checkCapacityInput(num, years); err != nil {
		return Estimate{}, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	total := num * num
	sources := make([]*entropy.Source, total)
	for i := range sources {
		sources[i] = s.src.Child()
	}

	peaks := make([]float64, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h := s.run(sources[i], years, nil)
			peaks[i] = float64(h.Trajectory().Peak())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Estimate{}, fmt.Errorf("carrying capacity: %w", err)
	}

	est := summarize(peaks, num)
	s.logEstimate(est, num, years, workers)
	return est, nil
}

func checkCapacityInput(num, years int) error {
	if num <= 0 {
		return fmt.Errorf("%w: sample count %d must be positive", ErrInvalidHorizon, num)
	}
	if years < 0 {
		return fmt.Errorf("%w: year count %d is negative", ErrInvalidHorizon, years)
	}
	return nil
}

// summarize turns peaks, ordered in batches of num, into an Estimate.
// Only the running mean after the last sample of a batch is observable, so it
// is computed once per batch over every peak collected so far.
func summarize(peaks []float64, num int) Estimate {
	est := Estimate{
		Peaks:      make([]int, len(peaks)),
		BatchMeans: make([]float64, 0, num),
	}
	for i, p := range peaks {
		est.Peaks[i] = int(p)
	}
	for i := 1; i <= num; i++ {
		est.BatchMeans = append(est.BatchMeans, stat.Mean(peaks[:i*num], nil))
	}
	est.Capacity = int(stat.Mean(est.BatchMeans, nil))
	return est
}

func (s *Simulator) logEstimate(est Estimate, num, years, workers int) {
	s.logger.Info("carrying capacity estimated",
		"num", num,
		"years", years,
		"trajectories", len(est.Peaks),
		"workers", workers,
		"first_batch_mean", fmt.Sprintf("%.3f", est.BatchMeans[0]),
		"last_batch_mean", fmt.Sprintf("%.3f", est.BatchMeans[len(est.BatchMeans)-1]),
		"capacity", est.Capacity,
	)
}
