// Package render turns reduced series into displayable figures: Vega-Lite
// specs for the browser view and SVG snapshots for export.
package render

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"sweepwatch/domain/core"
	"sweepwatch/domain/series"
	"sweepwatch/ports"
)

const vegaSchema = "https://vega.github.io/schema/vega-lite/v5.json"

// VegaSink renders series as Vega-Lite specs. One index level renders as a
// line+scatter layer, two as an interpolated heatmap; complex data renders
// real and imaginary parts side by side when requested.
type VegaSink struct {
	Width  int
	Height int
}

// NewVegaSink creates a sink with the default figure size.
func NewVegaSink() *VegaSink {
	return &VegaSink{Width: 500, Height: 400}
}

func (v *VegaSink) Figure(s *series.Series, opts ports.RenderOptions) (*ports.Figure, error) {
	if s == nil || s.Len() == 0 {
		return nil, core.NewEmptyDataError("series has no points")
	}
	if len(s.Levels) == 0 {
		value := s.Point(0).Value
		return &ports.Figure{
			Kind:    ports.FigureMessage,
			Message: fmt.Sprintf("%s is a single value: %v", s.Name, value),
		}, nil
	}
	if len(s.Levels) > 2 {
		return nil, fmt.Errorf("cannot render %d-dimensional data, slice an axis first", len(s.Levels))
	}

	if s.Complex && opts.ShowImaginary {
		re, _, err := v.spec(s.Real(), s.Name+" (re)")
		if err != nil {
			return nil, err
		}
		im, _, err := v.spec(s.Imag(), s.Name+" (im)")
		if err != nil {
			return nil, err
		}
		spec, err := json.Marshal(map[string]any{
			"$schema": vegaSchema,
			"hconcat": []any{re, im},
		})
		if err != nil {
			return nil, err
		}
		return &ports.Figure{Kind: ports.FigureSplit, Spec: spec}, nil
	}

	plot := s
	if s.Complex {
		plot = s.Real()
	}
	body, kind, err := v.spec(plot, s.Name)
	if err != nil {
		return nil, err
	}
	body["$schema"] = vegaSchema
	spec, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &ports.Figure{Kind: kind, Spec: spec}, nil
}

func (v *VegaSink) spec(s *series.Series, title string) (map[string]any, ports.FigureKind, error) {
	if len(s.Levels) == 1 {
		return v.lineSpec(s, title), ports.FigureLine, nil
	}
	spec, err := v.heatmapSpec(s, title)
	return spec, ports.FigureHeatmap, err
}

func (v *VegaSink) lineSpec(s *series.Series, title string) map[string]any {
	points := append([]series.Point(nil), s.Points()...)
	sort.Slice(points, func(i, j int) bool { return points[i].Key[0] < points[j].Key[0] })

	values := make([]map[string]any, len(points))
	for i, p := range points {
		values[i] = map[string]any{"x": p.Key[0], "y": real(p.Value)}
	}
	return map[string]any{
		"width":  v.Width,
		"height": v.Height,
		"title":  title,
		"data":   map[string]any{"values": values},
		"layer": []any{
			map[string]any{"mark": "line"},
			map[string]any{"mark": map[string]any{"type": "point", "filled": true, "size": 25}},
		},
		"encoding": map[string]any{
			"x": map[string]any{"field": "x", "type": "quantitative", "title": s.Levels[0]},
			"y": map[string]any{"field": "y", "type": "quantitative", "title": title},
		},
	}
}

func (v *VegaSink) heatmapSpec(s *series.Series, title string) (map[string]any, error) {
	grid, err := BuildGrid(s)
	if err != nil {
		return nil, err
	}
	grid.FillMissing()

	var values []map[string]any
	for yi, row := range grid.Values {
		for xi, cell := range row {
			if math.IsNaN(cell) {
				continue
			}
			values = append(values, map[string]any{
				"x": grid.Xs[xi],
				"y": grid.Ys[yi],
				"v": cell,
			})
		}
	}
	return map[string]any{
		"width":  v.Width,
		"height": v.Height,
		"title":  title,
		"data":   map[string]any{"values": values},
		"mark":   "rect",
		"encoding": map[string]any{
			"x":     map[string]any{"field": "x", "type": "ordinal", "title": grid.XName},
			"y":     map[string]any{"field": "y", "type": "ordinal", "title": grid.YName, "sort": "descending"},
			"color": map[string]any{"field": "v", "type": "quantitative", "title": title, "scale": map[string]any{"scheme": "viridis"}},
		},
	}, nil
}
