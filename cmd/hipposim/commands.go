package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/hippo-sim/internal/api"
	"github.com/talgya/hippo-sim/internal/chart"
	"github.com/talgya/hippo-sim/internal/engine"
	"github.com/talgya/hippo-sim/internal/experiment"
)

func newSimulateCmd(a *app) *cobra.Command {
	var (
		years  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one trajectory and print the yearly populations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := a.simulator()
			if err != nil {
				return err
			}
			hist, err := sim.Run(years)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]any{
					"seed":       sim.Seed(),
					"trajectory": hist.Trajectory(),
					"years":      hist.Years,
					"extinction": hist.Extinction,
				})
			}
			for _, y := range hist.Years {
				fmt.Fprintf(out, "year %3d  population %6d  births %5d  deaths %5d\n",
					y.Year, y.Population, y.Births, y.Deaths())
			}
			if hist.Extinction != nil {
				fmt.Fprintf(out, "extinct in year %d\n", hist.Extinction.Year)
			}
			fmt.Fprintf(out, "peak %d\n", hist.Trajectory().Peak())
			return nil
		},
	}
	cmd.Flags().IntVar(&years, "years", 100, "Years to simulate")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full history as JSON")
	return cmd
}

func newCapacityCmd(a *app) *cobra.Command {
	var num, years int
	cmd := &cobra.Command{
		Use:   "capacity",
		Short: "Estimate the carrying capacity from num × num simulations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("years") {
				years = num
			}
			sim, err := a.simulator()
			if err != nil {
				return err
			}
			var est engine.Estimate
			if a.cfg.Workers > 0 {
				est, err = sim.CarryingCapacityParallel(cmd.Context(), num, years, a.cfg.Workers)
			} else {
				est, err = sim.EstimateCapacity(num, years)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "carrying capacity %d (num=%d years=%d seed=%d)\n",
				est.Capacity, num, years, sim.Seed())
			return nil
		},
	}
	cmd.Flags().IntVar(&num, "num", 100, "Batches and simulations per batch")
	cmd.Flags().IntVar(&years, "years", 0, "Years per simulation (default: num)")
	return cmd
}

func newGrowthCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "growth",
		Short: "Estimate K and plot the logistic growth curve against it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sim, err := a.simulator()
			if err != nil {
				return err
			}
			gcfg := a.cfg.Experiment.GrowthConfig
			gcfg.Workers = a.cfg.Workers

			report, err := experiment.Growth(cmd.Context(), sim, gcfg)
			if err != nil {
				return err
			}
			path := chartPath(a, out, "growth.png")
			if err := renderTo(path, func(w io.Writer) error { return chart.RenderGrowth(w, report) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "carrying capacity %d, chart written to %s\n", report.Capacity, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Chart file (default: <chart_dir>/growth.png)")
	return cmd
}

func newSamplesCmd(a *app) *cobra.Command {
	var (
		out         string
		runs, years int
	)
	cmd := &cobra.Command{
		Use:   "samples",
		Short: "Plot several independent trajectories side by side",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("runs") {
				runs = a.cfg.Experiment.SampleRuns
			}
			if !cmd.Flags().Changed("years") {
				years = a.cfg.Experiment.SampleYears
			}
			sim, err := a.simulator()
			if err != nil {
				return err
			}
			trajectories, err := experiment.Samples(sim, runs, years)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, t := range trajectories {
				fmt.Fprintf(w, "simulation %d: %d years, peak %d\n", i+1, len(t), t.Peak())
			}
			path := chartPath(a, out, "samples.png")
			if err := renderTo(path, func(w io.Writer) error { return chart.RenderTrajectories(w, trajectories) }); err != nil {
				return err
			}
			fmt.Fprintf(w, "chart written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Chart file (default: <chart_dir>/samples.png)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of trajectories (default from config)")
	cmd.Flags().IntVar(&years, "years", 100, "Years per trajectory (default from config)")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.parameters()
			if err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &api.Server{
				Params:  params,
				DB:      db,
				Port:    a.cfg.API.Port,
				Workers: a.cfg.Workers,
				Limiter: api.NewRateLimiter(a.cfg.API.CapacityRatePerHour, time.Hour),
			}
			return srv.ListenAndServe(ctx)
		},
	}
}

func newScenarioCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "scenario",
		Short: "Manage stored parameter presets",
	}

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			list, err := db.ListScenarios()
			if err != nil {
				return err
			}
			for _, s := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s population %-6d updated %s\n",
					s.Name, s.Parameters.InitialPopulation, s.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "show NAME",
		Short: "Print a scenario's parameters as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			params, err := db.LoadScenario(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), params)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "save NAME",
		Short: "Store the configured parameters under NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.SaveScenario(args[0], a.cfg.Parameters); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved scenario %s\n", args[0])
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a stored scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			return db.DeleteScenario(args[0])
		},
	})

	return root
}

func chartPath(a *app, flag, name string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(a.cfg.ChartDir, name)
}

// renderTo writes a chart to path, creating its directory.
func renderTo(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create chart directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart: %w", err)
	}
	slog.Info("chart written", "path", path)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
