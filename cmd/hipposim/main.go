// Command hipposim runs the stochastic hippo population model: single
// trajectories, carrying-capacity estimates, the logistic growth study and
// an HTTP API over all of them.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/hippo-sim/internal/api"
	"github.com/talgya/hippo-sim/internal/config"
	"github.com/talgya/hippo-sim/internal/engine"
	"github.com/talgya/hippo-sim/internal/entropy"
	"github.com/talgya/hippo-sim/internal/persistence"
)

var version = "0.4.0"

// app carries the resolved configuration between the root command and its
// subcommands.
type app struct {
	configPath string
	seed       uint64
	scenario   string
	workers    int
	logLevel   string

	cfg *config.Config
}

func main() {
	api.Version = version
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		slog.Error("hipposim failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "hipposim",
		Short:         "Stochastic hippo population simulator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&a.configPath, "config", "hipposim.yaml", "YAML config file (missing file = defaults)")
	root.PersistentFlags().Uint64Var(&a.seed, "seed", 0, "Random seed (0 = config or crypto/rand)")
	root.PersistentFlags().StringVar(&a.scenario, "scenario", "", "Load parameters from a stored scenario")
	root.PersistentFlags().IntVar(&a.workers, "workers", -1, "Capacity estimator workers (0 = sequential, -1 = config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (default from config)")

	root.AddCommand(
		newSimulateCmd(a),
		newCapacityCmd(a),
		newGrowthCmd(a),
		newSamplesCmd(a),
		newServeCmd(a),
		newScenarioCmd(a),
	)
	return root
}

// setup loads the config, applies flag overrides and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = a.seed
	}
	if a.workers >= 0 {
		cfg.Workers = a.workers
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	a.cfg = cfg
	return nil
}

// openDB opens the scenario catalog and makes sure the default preset exists.
func (a *app) openDB() (*persistence.DB, error) {
	db, err := persistence.Open(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.SeedDefaults(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// parameters returns the configured parameters, or the stored scenario when
// --scenario is set.
func (a *app) parameters() (engine.Parameters, error) {
	if a.scenario == "" {
		return a.cfg.Parameters, nil
	}
	db, err := a.openDB()
	if err != nil {
		return engine.Parameters{}, err
	}
	defer db.Close()
	return db.LoadScenario(a.scenario)
}

func (a *app) source() *entropy.Source {
	if a.cfg.Seed == 0 {
		return entropy.New()
	}
	return entropy.NewSeeded(a.cfg.Seed)
}

func (a *app) simulator(opts ...engine.Option) (*engine.Simulator, error) {
	params, err := a.parameters()
	if err != nil {
		return nil, err
	}
	sim, err := engine.NewSimulator(params, a.source(), opts...)
	if err != nil {
		return nil, err
	}
	slog.Info("simulator ready",
		"seed", sim.Seed(),
		"scenario", a.scenario,
		"initial_population", params.InitialPopulation,
	)
	return sim, nil
}
