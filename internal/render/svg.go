package render

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/wcharczuk/go-chart/v2"

	"sweepwatch/domain/core"
	"sweepwatch/domain/series"
)

// LineSVG renders a one-level series as a standalone SVG snapshot: a line
// with scatter markers, real part only for complex data. The live heatmap
// view has no snapshot form; callers get an error for higher ranks.
func LineSVG(s *series.Series, width, height int) ([]byte, error) {
	if s == nil || s.Len() == 0 {
		return nil, core.NewEmptyDataError("series has no points")
	}
	if len(s.Levels) != 1 {
		return nil, fmt.Errorf("svg snapshot supports 1D series only, have %d levels", len(s.Levels))
	}

	points := append([]series.Point(nil), s.Points()...)
	sort.Slice(points, func(i, j int) bool { return points[i].Key[0] < points[j].Key[0] })

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Key[0]
		ys[i] = real(p.Value)
	}

	graph := chart.Chart{
		Width:  width,
		Height: height,
		XAxis:  chart.XAxis{Name: s.Levels[0]},
		YAxis:  chart.YAxis{Name: s.Name},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    s.Name,
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeWidth: 1.5},
			},
			chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeWidth: chart.Disabled, DotWidth: 3},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render svg: %w", err)
	}
	return buf.Bytes(), nil
}
