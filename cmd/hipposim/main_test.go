package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hippo-sim/internal/engine"
)

// run executes the CLI with a scratch database and chart directory.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HIPPOSIM_DB", filepath.Join(dir, "hippos.db"))
	t.Setenv("HIPPOSIM_CHART_DIR", filepath.Join(dir, "charts"))
	return runIn(t, args...)
}

func runIn(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWithConfig(t, filepath.Join(t.TempDir(), "none.yaml"), args...)
}

func runWithConfig(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--config", configPath, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSimulate_JSONDeterministic(t *testing.T) {
	a, err := run(t, "simulate", "--seed", "42", "--years", "30", "--json")
	require.NoError(t, err)
	b, err := run(t, "simulate", "--seed", "42", "--years", "30", "--json")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var resp struct {
		Seed       uint64 `json:"seed"`
		Trajectory []int  `json:"trajectory"`
	}
	require.NoError(t, json.Unmarshal([]byte(a), &resp))
	assert.Equal(t, uint64(42), resp.Seed)
	assert.LessOrEqual(t, len(resp.Trajectory), 30)
}

func TestSimulate_Text(t *testing.T) {
	out, err := run(t, "simulate", "--seed", "1", "--years", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "year   0")
	assert.Contains(t, out, "peak ")
}

func TestSimulate_NegativeYears(t *testing.T) {
	_, err := run(t, "simulate", "--years=-1")
	assert.ErrorIs(t, err, engine.ErrInvalidHorizon)
}

func TestCapacity(t *testing.T) {
	seq, err := run(t, "capacity", "--seed", "3", "--num", "3", "--workers", "0")
	require.NoError(t, err)
	assert.Contains(t, seq, "carrying capacity ")
	assert.Contains(t, seq, "num=3 years=3 seed=3")

	par1, err := run(t, "capacity", "--seed", "3", "--num", "3", "--workers", "1")
	require.NoError(t, err)
	par4, err := run(t, "capacity", "--seed", "3", "--num", "3", "--workers", "4")
	require.NoError(t, err)
	assert.Equal(t, par1, par4)
}

func TestGrowthAndSamplesWriteCharts(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HIPPOSIM_DB", filepath.Join(dir, "hippos.db"))
	cfgPath := filepath.Join(dir, "hipposim.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("experiment:\n  num_simulations: 10\n  num_years: 40\n"), 0644))

	growth := filepath.Join(dir, "g.png")
	out, err := runWithConfig(t, cfgPath, "growth", "--seed", "8", "--out", growth)
	require.NoError(t, err)
	assert.Contains(t, out, growth)
	info, err := os.Stat(growth)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	samples := filepath.Join(dir, "s.png")
	out, err = run(t, "samples", "--seed", "8", "--runs", "3", "--years", "20", "--out", samples)
	require.NoError(t, err)
	assert.Contains(t, out, "simulation 3:")
	_, err = os.Stat(samples)
	require.NoError(t, err)
}

func TestScenarioLifecycle(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HIPPOSIM_DB", filepath.Join(dir, "hippos.db"))
	t.Setenv("HIPPOSIM_CHART_DIR", filepath.Join(dir, "charts"))

	out, err := runIn(t, "scenario", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "default")

	_, err = runIn(t, "scenario", "save", "baseline")
	require.NoError(t, err)

	out, err = runIn(t, "scenario", "show", "baseline")
	require.NoError(t, err)
	var params engine.Parameters
	require.NoError(t, json.Unmarshal([]byte(out), &params))
	assert.Equal(t, engine.DefaultParameters(), params)

	_, err = runIn(t, "simulate", "--scenario", "baseline", "--years", "2", "--seed", "1")
	require.NoError(t, err)

	_, err = runIn(t, "scenario", "delete", "baseline")
	require.NoError(t, err)
	_, err = runIn(t, "simulate", "--scenario", "baseline")
	assert.Error(t, err)
}

func TestBadConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parameters:\n  birth:\n    mean: 4\n"), 0644))

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"--config", path, "simulate"})
	assert.ErrorIs(t, cmd.Execute(), engine.ErrInvalidParameters)
}
