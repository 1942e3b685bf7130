package render

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"

	"sweepwatch/domain/series"
)

// Grid is a two-level series rasterized onto a dense rectangular grid.
// Values is indexed [y][x]; NaN marks cells the sweep has not measured.
type Grid struct {
	XName  string
	YName  string
	Xs     []float64
	Ys     []float64
	Values [][]float64
}

// BuildGrid rasterizes a two-level series: the outer level becomes rows,
// the inner level columns. Axis values are sorted ascending.
func BuildGrid(s *series.Series) (*Grid, error) {
	if len(s.Levels) != 2 {
		return nil, fmt.Errorf("grid needs exactly 2 index levels, have %d", len(s.Levels))
	}

	ys := sortedDistinct(s.LevelValues(0))
	xs := sortedDistinct(s.LevelValues(1))
	ypos := positions(ys)
	xpos := positions(xs)

	values := make([][]float64, len(ys))
	for i := range values {
		row := make([]float64, len(xs))
		for j := range row {
			row[j] = math.NaN()
		}
		values[i] = row
	}
	for _, p := range s.Points() {
		values[ypos[p.Key[0]]][xpos[p.Key[1]]] = real(p.Value)
	}

	return &Grid{
		XName:  s.Levels[1],
		YName:  s.Levels[0],
		Xs:     xs,
		Ys:     ys,
		Values: values,
	}, nil
}

// FillMissing interpolates interior gaps along each row with a piecewise
// linear fit over the measured cells. Gaps outside a row's measured range
// stay missing: a live sweep's unreached tail should read as absent, not
// extrapolated.
func (g *Grid) FillMissing() {
	for _, row := range g.Values {
		var xs, vs []float64
		for i, v := range row {
			if !math.IsNaN(v) {
				xs = append(xs, g.Xs[i])
				vs = append(vs, v)
			}
		}
		if len(xs) < 2 {
			continue
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, vs); err != nil {
			continue
		}
		lo, hi := xs[0], xs[len(xs)-1]
		for i, v := range row {
			if math.IsNaN(v) && g.Xs[i] > lo && g.Xs[i] < hi {
				row[i] = pl.Predict(g.Xs[i])
			}
		}
	}
}

func sortedDistinct(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
}

func positions(values []float64) map[float64]int {
	pos := make(map[float64]int, len(values))
	for i, v := range values {
		pos[v] = i
	}
	return pos
}
