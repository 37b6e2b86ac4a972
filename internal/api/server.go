// Package api serves simulations, capacity estimates and logistic curves
// over HTTP. All endpoints are GET and read-only; the Monte-Carlo capacity
// estimate is rate limited per client.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/talgya/hippo-sim/internal/engine"
	"github.com/talgya/hippo-sim/internal/entropy"
	"github.com/talgya/hippo-sim/internal/experiment"
	"github.com/talgya/hippo-sim/internal/persistence"
)

// Version is reported by the status endpoint.
var Version = "dev"

// Request bounds. Capacity cost grows with num² × years.
const (
	MaxYears       = 10000
	MaxCapacityNum = 200
	MaxCapacityYrs = 1000
)

// Server serves the simulator over HTTP.
type Server struct {
	Params  engine.Parameters // used when no scenario is requested
	DB      *persistence.DB   // scenario catalog; nil disables scenario lookups
	Port    int
	Workers int          // capacity fan-out; 0 = sequential
	Limiter *RateLimiter // capacity endpoint; nil = unlimited
}

// Handler builds the request router.
func (s *Server) Handler() http.Handler {
	limiter := s.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(0, time.Hour)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/simulate", s.handleSimulate)
	mux.HandleFunc("GET /api/v1/capacity", RateLimitMiddleware(limiter, s.handleCapacity))
	mux.HandleFunc("GET /api/v1/logistic", s.handleLogistic)
	mux.HandleFunc("GET /api/v1/scenarios", s.handleScenarios)
	mux.HandleFunc("GET /api/v1/scenarios/{name}", s.handleScenarioDetail)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.Limiter != nil {
		go s.Limiter.Run(ctx)
	}

	slog.Info("HTTP API starting", "addr", srv.Addr, "workers", s.Workers, "scenarios", s.DB != nil)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("HTTP API shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"name":       "hipposim",
		"version":    Version,
		"parameters": s.Params,
		"policy": map[string]int{
			"human_influence_start_year":     engine.HumanInfluenceStartYear,
			"human_influence_min_population": engine.HumanInfluenceMinPopulation,
			"early_resource_years":           engine.EarlyResourceYears,
			"early_resource_ceiling":         engine.EarlyResourceCeiling,
			"late_resource_years":            engine.LateResourceYears,
			"late_resource_ceiling":          engine.LateResourceCeiling,
			"phenomenon_die_sides":           engine.PhenomenonDieSides,
		},
		"scenarios_enabled": s.DB != nil,
	})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	years, err := queryInt(r, "years", 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if years > MaxYears {
		http.Error(w, fmt.Sprintf("years must be at most %d", MaxYears), http.StatusBadRequest)
		return
	}

	sim, ok := s.simulator(w, r)
	if !ok {
		return
	}
	hist, err := sim.Run(years)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"seed":       sim.Seed(),
		"parameters": sim.Parameters(),
		"trajectory": hist.Trajectory(),
		"years":      hist.Years,
		"extinction": hist.Extinction,
		"peak":       hist.Trajectory().Peak(),
	})
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	num, err := queryInt(r, "num", 10)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	years, err := queryInt(r, "years", num)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if num > MaxCapacityNum || years > MaxCapacityYrs {
		http.Error(w, fmt.Sprintf("num must be at most %d and years at most %d", MaxCapacityNum, MaxCapacityYrs),
			http.StatusBadRequest)
		return
	}

	sim, ok := s.simulator(w, r)
	if !ok {
		return
	}

	var est engine.Estimate
	if s.Workers > 0 {
		est, err = sim.CarryingCapacityParallel(r.Context(), num, years, s.Workers)
	} else {
		est, err = sim.EstimateCapacity(num, years)
	}
	switch {
	case errors.Is(err, engine.ErrInvalidHorizon):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		slog.Warn("capacity estimate aborted", "error", err)
		http.Error(w, "estimate aborted", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, map[string]any{
		"seed":        sim.Seed(),
		"num":         num,
		"years":       years,
		"capacity":    est.Capacity,
		"batch_means": est.BatchMeans,
	})
}

func (s *Server) handleLogistic(w http.ResponseWriter, r *http.Request) {
	def := experiment.DefaultGrowthConfig()

	rate, err := queryFloat(r, "rate", def.GrowthRate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p0, err := queryFloat(r, "p0", def.InitialPopulation)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	k, err := queryFloat(r, "k", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	years, err := queryInt(r, "years", def.NumYears)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if years > MaxYears {
		http.Error(w, fmt.Sprintf("years must be at most %d", MaxYears), http.StatusBadRequest)
		return
	}

	curve, err := engine.LogisticGrowth(rate, p0, k, years)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	calendar := make([]int, len(curve))
	for i := range calendar {
		calendar[i] = experiment.CalendarStart + i
	}

	writeJSON(w, map[string]any{
		"growth_rate":        rate,
		"initial_population": p0,
		"capacity":           k,
		"years":              calendar,
		"curve":              curve,
	})
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeJSON(w, []persistence.Scenario{})
		return
	}
	list, err := s.DB.ListScenarios()
	if err != nil {
		slog.Error("list scenarios", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func (s *Server) handleScenarioDetail(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	params, err := s.lookupScenario(name)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, map[string]any{"name": name, "parameters": params})
}

// simulator builds a fresh Simulator for the request's scenario and seed.
// It writes the error response itself and reports false on failure.
func (s *Server) simulator(w http.ResponseWriter, r *http.Request) (*engine.Simulator, bool) {
	params := s.Params
	if name := r.URL.Query().Get("scenario"); name != "" {
		p, err := s.lookupScenario(name)
		if err != nil {
			writeLookupError(w, err)
			return nil, false
		}
		params = p
	}

	var src *entropy.Source
	if v := r.URL.Query().Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid seed %q", v), http.StatusBadRequest)
			return nil, false
		}
		src = entropy.NewSeeded(seed)
	}

	sim, err := engine.NewSimulator(params, src)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return sim, true
}

func (s *Server) lookupScenario(name string) (engine.Parameters, error) {
	if s.DB == nil {
		return engine.Parameters{}, fmt.Errorf("%w: %q", persistence.ErrScenarioNotFound, name)
	}
	return s.DB.LoadScenario(name)
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, persistence.ErrScenarioNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	slog.Error("scenario lookup", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
