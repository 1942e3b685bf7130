package ports

import (
	"encoding/json"

	"sweepwatch/domain/series"
)

// FigureKind distinguishes the display shapes a render sink can produce.
type FigureKind string

const (
	FigureLine    FigureKind = "line"    // 1D line + scatter
	FigureHeatmap FigureKind = "heatmap" // 2D surface
	FigureSplit   FigureKind = "split"   // real/imaginary side by side
	FigureMessage FigureKind = "message" // explanatory text instead of a plot
)

// Figure is a rendered view of a series: a declarative plot spec for the
// browser, or an explanatory message when there is nothing to plot.
type Figure struct {
	Kind    FigureKind      `json:"kind"`
	Spec    json.RawMessage `json:"spec,omitempty"`
	Message string          `json:"message,omitempty"`
}

// RenderOptions carries the display flags that pick the render path.
type RenderOptions struct {
	ShowImaginary bool
}

// RenderSink turns a reduced (and already sliced) series into a Figure.
// One index level renders 1D, more render 2D; complex data renders as two
// linked real-valued views when ShowImaginary is set, otherwise only the
// real part.
type RenderSink interface {
	Figure(s *series.Series, opts RenderOptions) (*Figure, error)
}
