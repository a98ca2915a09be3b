// Package charts renders dashboard series as images.
package charts

import (
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"minidash/internal/analytics"
)

// Default sparkline image size in pixels
const (
	SparklineWidth  = 320
	SparklineHeight = 80
)

var sparklineColor = drawing.ColorFromHex("0ea5e9")

// RenderSparkline writes a PNG trend line of sessions. An empty series renders a flat baseline.
func RenderSparkline(w io.Writer, points []analytics.SparklinePoint, width, height int) error {
	if width <= 0 {
		width = SparklineWidth
	}
	if height <= 0 {
		height = SparklineHeight
	}

	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	maxY := 1.0
	for i, p := range points {
		xs = append(xs, float64(i))
		ys = append(ys, p.Sessions)
		maxY = max(maxY, p.Sessions)
	}

	// a line needs two points
	switch len(xs) {
	case 0:
		xs, ys = []float64{0, 1}, []float64{0, 0}
	case 1:
		xs, ys = []float64{0, 1}, []float64{ys[0], ys[0]}
	}

	graph := chart.Chart{
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 4, Left: 4, Right: 4, Bottom: 4}},
		XAxis:      chart.XAxis{Style: chart.Style{Hidden: true}},
		YAxis: chart.YAxis{
			Style: chart.Style{Hidden: true},
			Range: &chart.ContinuousRange{Min: 0, Max: maxY * 1.05},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "sessions",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: sparklineColor,
					StrokeWidth: 2,
					FillColor:   sparklineColor.WithAlpha(48),
				},
			},
		},
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render sparkline: %w", err)
	}
	return nil
}
