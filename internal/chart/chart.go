// Package chart renders study results as PNG line charts.
package chart

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/talgya/hippo-sim/internal/engine"
	"github.com/talgya/hippo-sim/internal/experiment"
)

// Default canvas size in pixels.
const (
	Width  = 1024
	Height = 640
)

// ErrNothingToDraw is returned when no series has at least two points.
var ErrNothingToDraw = errors.New("chart: not enough data to draw")

// seriesColors cycles through trajectory lines.
var seriesColors = []drawing.Color{
	gochart.ColorBlue,
	gochart.ColorGreen,
	gochart.ColorRed,
	{R: 255, G: 165, B: 0, A: 255},
	{R: 128, G: 0, B: 128, A: 255},
	{R: 0, G: 139, B: 139, A: 255},
	gochart.ColorBlack,
}

// RenderGrowth draws the logistic curve with the carrying capacity as a
// horizontal reference line.
func RenderGrowth(w io.Writer, r experiment.GrowthReport) error {
	if len(r.Curve) < 2 {
		return ErrNothingToDraw
	}

	xs := make([]float64, len(r.Years))
	ks := make([]float64, len(r.Years))
	for i, y := range r.Years {
		xs[i] = float64(y)
		ks[i] = float64(r.Capacity)
	}

	graph := gochart.Chart{
		Title:  fmt.Sprintf("Population Growth with rate r = %v", r.GrowthRate),
		Width:  Width,
		Height: Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:           "Year",
			ValueFormatter: intFormatter,
		},
		YAxis: gochart.YAxis{
			Name:           "Number of Hippos",
			ValueFormatter: intFormatter,
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Population Growth",
				XValues: xs,
				YValues: r.Curve,
				Style:   gochart.Style{StrokeColor: gochart.ColorBlue, StrokeWidth: 3},
			},
			gochart.ContinuousSeries{
				Name:    "Carrying Capacity",
				XValues: xs,
				YValues: ks,
				Style:   gochart.Style{StrokeColor: gochart.ColorRed, StrokeWidth: 2},
			},
			gochart.AnnotationSeries{
				Annotations: []gochart.Value2{{
					XValue: xs[len(xs)/10],
					YValue: float64(r.Capacity),
					Label:  "K = " + strconv.Itoa(r.Capacity),
				}},
			},
		},
	}
	graph.Elements = []gochart.Renderable{gochart.LegendLeft(&graph)}

	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render growth chart: %w", err)
	}
	return nil
}

// RenderTrajectories draws each trajectory as its own line, indexed by
// simulated year. Trajectories with fewer than two points are skipped.
func RenderTrajectories(w io.Writer, runs []engine.Trajectory) error {
	var series []gochart.Series
	for i, traj := range runs {
		if len(traj) < 2 {
			continue
		}
		xs := make([]float64, len(traj))
		ys := make([]float64, len(traj))
		for year, pop := range traj {
			xs[year] = float64(year)
			ys[year] = float64(pop)
		}
		series = append(series, gochart.ContinuousSeries{
			Name:    fmt.Sprintf("Simulation %d", i+1),
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: seriesColors[i%len(seriesColors)],
				StrokeWidth: 2,
			},
		})
	}
	if len(series) == 0 {
		return ErrNothingToDraw
	}

	graph := gochart.Chart{
		Title:  "Amount of Hippos over time",
		Width:  Width,
		Height: Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:           "Years",
			ValueFormatter: intFormatter,
		},
		YAxis: gochart.YAxis{
			Name:           "Number of Hippos",
			ValueFormatter: intFormatter,
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.LegendLeft(&graph)}

	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render trajectory chart: %w", err)
	}
	return nil
}

func intFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return ""
}
