package render

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweepwatch/domain/core"
	"sweepwatch/domain/series"
	"sweepwatch/ports"
)

func lineSeries() *series.Series {
	s := series.New("current", []string{"gate_v"})
	s.Append(series.Key{2}, complex(4, 0))
	s.Append(series.Key{0}, complex(1, 0))
	s.Append(series.Key{1}, complex(2, 0))
	return s
}

func gridSeries() *series.Series {
	s := series.New("current", []string{"B_field", "gate_v"})
	for _, p := range [][3]float64{
		{0, 0, 1}, {0, 1, 2}, {0, 2, 3},
		{1, 0, 4}, {1, 2, 6},
	} {
		s.Append(series.Key{p[0], p[1]}, complex(p[2], 0))
	}
	return s
}

func decodeSpec(t *testing.T, fig *ports.Figure) map[string]any {
	t.Helper()
	var spec map[string]any
	require.NoError(t, json.Unmarshal(fig.Spec, &spec))
	return spec
}

func TestVegaSinkLine(t *testing.T) {
	fig, err := NewVegaSink().Figure(lineSeries(), ports.RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, ports.FigureLine, fig.Kind)

	spec := decodeSpec(t, fig)
	assert.Contains(t, spec, "$schema")
	assert.Contains(t, spec, "layer")

	values := spec["data"].(map[string]any)["values"].([]any)
	require.Len(t, values, 3)
	// points are emitted in x order regardless of sweep order
	assert.Equal(t, 0.0, values[0].(map[string]any)["x"])
	assert.Equal(t, 2.0, values[2].(map[string]any)["x"])
}

func TestVegaSinkHeatmap(t *testing.T) {
	fig, err := NewVegaSink().Figure(gridSeries(), ports.RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, ports.FigureHeatmap, fig.Kind)

	spec := decodeSpec(t, fig)
	assert.Equal(t, "rect", spec["mark"])

	// the interior gap at (1,1) is interpolated, so the grid is dense
	values := spec["data"].(map[string]any)["values"].([]any)
	assert.Len(t, values, 6)
}

func TestVegaSinkComplexSplit(t *testing.T) {
	s := series.New("s21", []string{"freq"})
	s.Complex = true
	s.Append(series.Key{1}, complex(1, 2))
	s.Append(series.Key{2}, complex(3, 4))

	sink := NewVegaSink()

	fig, err := sink.Figure(s, ports.RenderOptions{ShowImaginary: true})
	require.NoError(t, err)
	assert.Equal(t, ports.FigureSplit, fig.Kind)
	spec := decodeSpec(t, fig)
	require.Len(t, spec["hconcat"], 2)

	// without the toggle the real part renders as a plain line
	fig, err = sink.Figure(s, ports.RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, ports.FigureLine, fig.Kind)
}

func TestVegaSinkScalar(t *testing.T) {
	s := series.New("current", nil)
	s.Append(series.Key{}, complex(42, 0))

	fig, err := NewVegaSink().Figure(s, ports.RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, ports.FigureMessage, fig.Kind)
	assert.Contains(t, fig.Message, "42")
}

func TestVegaSinkEmpty(t *testing.T) {
	_, err := NewVegaSink().Figure(series.New("current", []string{"x"}), ports.RenderOptions{})
	assert.True(t, core.IsEmptyDataError(err))

	_, err = NewVegaSink().Figure(nil, ports.RenderOptions{})
	assert.True(t, core.IsEmptyDataError(err))
}

func TestVegaSinkTooManyLevels(t *testing.T) {
	s := series.New("current", []string{"a", "b", "c"})
	s.Append(series.Key{0, 0, 0}, complex(1, 0))

	_, err := NewVegaSink().Figure(s, ports.RenderOptions{})
	assert.Error(t, err)
}

func TestBuildGrid(t *testing.T) {
	grid, err := BuildGrid(gridSeries())
	require.NoError(t, err)

	assert.Equal(t, "gate_v", grid.XName)
	assert.Equal(t, "B_field", grid.YName)
	assert.Equal(t, []float64{0, 1, 2}, grid.Xs)
	assert.Equal(t, []float64{0, 1}, grid.Ys)

	assert.Equal(t, []float64{1, 2, 3}, grid.Values[0])
	assert.Equal(t, 4.0, grid.Values[1][0])
	assert.True(t, math.IsNaN(grid.Values[1][1]), "unmeasured cell stays missing")
	assert.Equal(t, 6.0, grid.Values[1][2])
}

func TestGridFillMissing(t *testing.T) {
	grid, err := BuildGrid(gridSeries())
	require.NoError(t, err)

	grid.FillMissing()
	assert.Equal(t, 5.0, grid.Values[1][1], "interior gap interpolated linearly")
}

func TestGridFillMissingLeavesTail(t *testing.T) {
	s := series.New("current", []string{"y", "x"})
	// second row of a live sweep, only two cells measured so far
	s.Append(series.Key{0, 0}, complex(1, 0))
	s.Append(series.Key{0, 1}, complex(2, 0))
	s.Append(series.Key{0, 2}, complex(3, 0))
	s.Append(series.Key{1, 0}, complex(4, 0))
	s.Append(series.Key{1, 1}, complex(5, 0))

	grid, err := BuildGrid(s)
	require.NoError(t, err)
	grid.FillMissing()
	assert.True(t, math.IsNaN(grid.Values[1][2]), "tail beyond the measured range is not extrapolated")
}

func TestLineSVG(t *testing.T) {
	svg, err := LineSVG(lineSeries(), 400, 300)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(svg), "<svg"))
}

func TestLineSVGRejectsGrid(t *testing.T) {
	_, err := LineSVG(gridSeries(), 400, 300)
	assert.Error(t, err)

	_, err = LineSVG(nil, 400, 300)
	assert.True(t, core.IsEmptyDataError(err))
}
