package view

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"sweepwatch/app/reactive"
	"sweepwatch/domain/core"
	"sweepwatch/domain/series"
	"sweepwatch/ports"
)

// Cell names of the session's dependency graph. Edges run
// source → run_id → catalog → {parameter, slice axis options} →
// raw series → {reduced series, slice value options} → slice value → figure,
// with show_imaginary feeding the figure directly.
const (
	cellSource            reactive.CellID = "source"
	cellRunID             reactive.CellID = "run_id"
	cellReloadSeq         reactive.CellID = "reload_seq"
	cellCatalog           reactive.CellID = "catalog"
	cellParameter         reactive.CellID = "parameter"
	cellParameterOptions  reactive.CellID = "parameter_options"
	cellSliceAxis         reactive.CellID = "slice_axis"
	cellSliceAxisOptions  reactive.CellID = "slice_axis_options"
	cellRawSeries         reactive.CellID = "raw_series"
	cellReducedSeries     reactive.CellID = "reduced_series"
	cellSliceValueOptions reactive.CellID = "slice_value_options"
	cellSliceValue        reactive.CellID = "slice_value"
	cellShowImaginary     reactive.CellID = "show_imaginary"
	cellRunSummary        reactive.CellID = "run_summary"
	cellFigure            reactive.CellID = "figure"
)

// Catalog is the parameter structure of one run: swept axes in axis order
// and measured quantities.
type Catalog struct {
	Independent []string
	Dependent   []string
}

func (c Catalog) equal(other Catalog) bool {
	return slices.Equal(c.Independent, other.Independent) && slices.Equal(c.Dependent, other.Dependent)
}

// RunSummary is the descriptive panel next to the plot: run metadata plus
// summary statistics of the selected series.
type RunSummary struct {
	Info   ports.RunInfo
	Points int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Markdown formats the summary the way the info panel displays it.
func (r RunSummary) Markdown() string {
	started := ""
	if !r.Info.StartedAt.IsZero() {
		started = r.Info.StartedAt.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprintf("# %s\n\n# %s run %d\n\n# Started %s\n",
		r.Info.SampleName, r.Info.ExperimentName, r.Info.Counter, started)
}

// Snapshot is the full user-observable state of a session, produced after
// every settled propagation wave for the UI layer to serve.
type Snapshot struct {
	SessionID         string        `json:"session_id"`
	SourcePath        string        `json:"source_path"`
	Connected         bool          `json:"connected"`
	RunID             int           `json:"run_id"`
	Parameter         string        `json:"parameter"`
	ParameterOptions  []string      `json:"parameter_options"`
	ShowImaginary     bool          `json:"show_imaginary"`
	SliceAxis         string        `json:"slice_axis"`
	SliceAxisOptions  []string      `json:"slice_axis_options"`
	SliceValue        *float64      `json:"slice_value"`
	SliceValueOptions []float64     `json:"slice_value_options"`
	RefreshEnabled    bool          `json:"refresh_enabled"`
	Summary           *RunSummary   `json:"summary,omitempty"`
	SummaryMarkdown   string        `json:"summary_markdown,omitempty"`
	Figure            *ports.Figure `json:"figure"`
}

// Session is one operator's live view of a measurement database. All state
// lives in the cell graph; all access is serialized behind the session
// mutex, so each stimulus runs exactly one settled propagation pass.
type Session struct {
	ID string

	mu    sync.Mutex
	graph *reactive.Graph
	log   *zap.SugaredLogger

	open ports.SourceOpener
	sink ports.RenderSink

	sourcePath string
	src        ports.Source

	refreshEvery time.Duration
	ticker       *time.Ticker
	stopRefresh  chan struct{}
}

// NewSession builds a session with its cell graph settled on empty state.
func NewSession(id string, open ports.SourceOpener, sink ports.RenderSink, refreshEvery time.Duration, log *zap.SugaredLogger) (*Session, error) {
	s := &Session{
		ID:           id,
		open:         open,
		sink:         sink,
		refreshEvery: refreshEvery,
		log:          log.With("session", id),
	}

	g := reactive.New()
	g.Input(cellSource, nil, eqAny)
	g.Input(cellRunID, 0, eqComparable[int])
	g.Input(cellReloadSeq, 0, eqComparable[int])
	g.Input(cellParameter, "", eqComparable[string])
	g.Input(cellSliceAxis, series.AxisNone, eqComparable[string])
	g.Input(cellSliceValue, nil, eqSliceValue)
	g.Input(cellShowImaginary, false, eqComparable[bool])

	g.Derived(cellCatalog, []reactive.CellID{cellSource, cellRunID, cellReloadSeq}, eqCatalog, s.computeCatalog)
	g.Derived(cellParameterOptions, []reactive.CellID{cellCatalog}, eqStrings, s.computeParameterOptions)
	g.Derived(cellSliceAxisOptions, []reactive.CellID{cellCatalog}, eqStrings, s.computeSliceAxisOptions)
	// raw_series reads parameter_options as well: the options cell is the
	// validator that resets a stale parameter, so it must settle first.
	g.Derived(cellRawSeries, []reactive.CellID{cellSource, cellRunID, cellCatalog, cellParameterOptions, cellParameter, cellReloadSeq}, eqSeries, s.computeRawSeries)
	g.Derived(cellReducedSeries, []reactive.CellID{cellRawSeries}, eqSeries, s.computeReducedSeries)
	g.Derived(cellSliceValueOptions, []reactive.CellID{cellRawSeries, cellSliceAxis}, eqFloats, s.computeSliceValueOptions)
	g.Derived(cellRunSummary, []reactive.CellID{cellSource, cellRunID, cellRawSeries}, nil, s.computeRunSummary)
	g.Derived(cellFigure,
		[]reactive.CellID{cellReducedSeries, cellSliceAxis, cellSliceValue, cellShowImaginary},
		nil, s.computeFigure)

	if err := g.Build(); err != nil {
		return nil, err
	}
	s.graph = g

	// Settle the graph once so a fresh session already shows the
	// "not connected" figure instead of nils.
	if err := g.Invalidate(cellCatalog); err != nil {
		return nil, err
	}
	return s, nil
}

// SetSource connects to a new database path. Unreachable stores leave the
// session disconnected; the error surfaces in the figure, never out of the
// setter.
func (s *Session) SetSource(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src != nil {
		if err := s.src.Close(); err != nil {
			s.log.Warnw("closing previous source", "error", err)
		}
		s.src = nil
	}
	s.sourcePath = path

	src, err := s.open(path)
	if err == nil {
		err = src.Ping(context.Background())
	}
	if err != nil {
		s.log.Infow("connect failed, session disconnected", "path", path, "error", err)
		s.setOrLog(cellSource, nil)
		return
	}
	s.src = src

	if latest, err := src.MostRecentRunID(context.Background()); err == nil {
		s.setOrLog(cellRunID, latest)
	} else {
		s.log.Warnw("most recent run id", "error", err)
	}
	s.setOrLog(cellSource, src)
}

// SetRunID selects a run. Nonexistent ids settle into an empty catalog and
// an explanatory figure.
func (s *Session) SetRunID(id int) error {
	if id < 0 {
		return fmt.Errorf("run id must be >= 0, got %d", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Set(cellRunID, id)
}

// SetParameter selects the dependent parameter to plot, constrained to the
// current catalog.
func (s *Session) SetParameter(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if opts, _ := cellValue[[]string](s.graph, cellParameterOptions); !slices.Contains(opts, name) {
		return core.NewNotFoundError("parameter", name)
	}
	return s.graph.Set(cellParameter, name)
}

// SetShowImaginary toggles the complex display mode.
func (s *Session) SetShowImaginary(show bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Set(cellShowImaginary, show)
}

// SetSliceAxis picks the axis for 1D cuts, "none" disabling slicing.
func (s *Session) SetSliceAxis(axis string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if opts, _ := cellValue[[]string](s.graph, cellSliceAxisOptions); !slices.Contains(opts, axis) {
		return core.NewNotFoundError("axis", axis)
	}
	return s.graph.Set(cellSliceAxis, axis)
}

// SetSliceValue picks the cut position, constrained to the current axis's
// option set.
func (s *Session) SetSliceValue(value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts, _ := cellValue[[]float64](s.graph, cellSliceValueOptions)
	if !slices.Contains(opts, value) {
		return core.NewNotFoundError("slice value", value)
	}
	return s.graph.Set(cellSliceValue, value)
}

// Refresh reloads data from the store without changing any input: the next
// sweep of the growing result table.
func (s *Session) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload()
}

// SetRefresh enables or disables the periodic refresh ticker. Each tick
// advances the slice value to the latest option, then reloads, so a live
// view keeps tracking the newest cut as data arrives.
func (s *Session) SetRefresh(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enabled == (s.ticker != nil) {
		return
	}
	if enabled {
		s.ticker = time.NewTicker(s.refreshEvery)
		s.stopRefresh = make(chan struct{})
		go s.refreshLoop(s.ticker, s.stopRefresh)
		s.log.Debugw("periodic refresh enabled", "interval", s.refreshEvery)
		return
	}
	s.ticker.Stop()
	close(s.stopRefresh)
	s.ticker = nil
	s.stopRefresh = nil
	s.log.Debugw("periodic refresh disabled")
}

// RefreshEnabled reports whether the ticker is running.
func (s *Session) RefreshEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker != nil
}

func (s *Session) refreshLoop(t *time.Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.Tick()
		}
	}
}

// Tick performs one periodic-refresh cycle: advance the slice value to the
// latest option, then reload from the store.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	axis, _ := cellValue[string](s.graph, cellSliceAxis)
	if axis != series.AxisNone {
		if opts, _ := cellValue[[]float64](s.graph, cellSliceValueOptions); len(opts) > 0 {
			s.setOrLog(cellSliceValue, opts[len(opts)-1])
		}
	}
	if err := s.reload(); err != nil {
		s.log.Warnw("refresh tick", "error", err)
	}
}

func (s *Session) reload() error {
	seq, _ := cellValue[int](s.graph, cellReloadSeq)
	return s.graph.Set(cellReloadSeq, seq+1)
}

// Snapshot assembles the current user-observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID:      s.ID,
		SourcePath:     s.sourcePath,
		Connected:      s.src != nil,
		RefreshEnabled: s.ticker != nil,
	}
	snap.RunID, _ = cellValue[int](s.graph, cellRunID)
	snap.Parameter, _ = cellValue[string](s.graph, cellParameter)
	snap.ParameterOptions, _ = cellValue[[]string](s.graph, cellParameterOptions)
	snap.ShowImaginary, _ = cellValue[bool](s.graph, cellShowImaginary)
	snap.SliceAxis, _ = cellValue[string](s.graph, cellSliceAxis)
	snap.SliceAxisOptions, _ = cellValue[[]string](s.graph, cellSliceAxisOptions)
	snap.SliceValueOptions, _ = cellValue[[]float64](s.graph, cellSliceValueOptions)
	if v, ok := s.graph.Value(cellSliceValue); ok {
		if f, ok := v.(float64); ok {
			snap.SliceValue = &f
		}
	}
	if summary, ok := cellValue[RunSummary](s.graph, cellRunSummary); ok {
		snap.Summary = &summary
		snap.SummaryMarkdown = summary.Markdown()
	}
	if fig, ok := cellValue[*ports.Figure](s.graph, cellFigure); ok {
		snap.Figure = fig
	}
	return snap
}

// Figure returns the current derived view.
func (s *Session) Figure() *ports.Figure {
	s.mu.Lock()
	defer s.mu.Unlock()
	fig, ok := cellValue[*ports.Figure](s.graph, cellFigure)
	if !ok {
		return &ports.Figure{Kind: ports.FigureMessage, Message: "Nothing to display"}
	}
	return fig
}

// ReducedSeries returns the current minimal-rank series, for export paths.
func (s *Session) ReducedSeries() (*series.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	red, ok := cellValue[*series.Series](s.graph, cellReducedSeries)
	if !ok {
		return nil, s.graph.Err(cellReducedSeries)
	}
	return red, nil
}

// Table loads the full run table for the current run, for the export path.
func (s *Session) Table(ctx context.Context) (*series.Table, error) {
	s.mu.Lock()
	src := s.src
	runID, _ := cellValue[int](s.graph, cellRunID)
	s.mu.Unlock()

	if src == nil {
		return nil, core.NewEmptyDataError("not connected to a data source")
	}
	return LoadTable(ctx, src, runID)
}

// Close stops the refresh ticker and releases the source connection.
func (s *Session) Close() {
	s.SetRefresh(false)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src != nil {
		if err := s.src.Close(); err != nil {
			s.log.Warnw("closing source", "error", err)
		}
		s.src = nil
	}
}

// Recomputes exposes a cell's recompute counter to tests.
func (s *Session) Recomputes(id reactive.CellID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Recomputes(id)
}

// ---- cell compute functions ----

func (s *Session) computeCatalog(g *reactive.Graph) (any, error) {
	src := currentSource(g)
	if src == nil {
		return Catalog{}, nil
	}
	runID := mustCell[int](g, cellRunID)

	independent, err := src.IndependentParameters(context.Background(), runID)
	if core.IsNotFoundError(err) {
		// Unknown run: empty catalog, unselectable downstream, no crash.
		return Catalog{}, nil
	}
	if err != nil {
		return nil, err
	}
	dependent, err := src.DependentParameters(context.Background(), runID)
	if err != nil {
		return nil, err
	}
	return Catalog{Independent: independent, Dependent: dependent}, nil
}

func (s *Session) computeParameterOptions(g *reactive.Graph) (any, error) {
	catalog, ok := cellValue[Catalog](g, cellCatalog)
	if !ok {
		catalog = Catalog{}
	}
	current := mustCell[string](g, cellParameter)
	if !slices.Contains(catalog.Dependent, current) {
		next := ""
		if len(catalog.Dependent) > 0 {
			next = catalog.Dependent[0]
		}
		if err := g.Set(cellParameter, next); err != nil {
			return nil, err
		}
	}
	return append([]string(nil), catalog.Dependent...), nil
}

func (s *Session) computeSliceAxisOptions(g *reactive.Graph) (any, error) {
	catalog, ok := cellValue[Catalog](g, cellCatalog)
	if !ok {
		catalog = Catalog{}
	}
	options := append([]string{series.AxisNone}, catalog.Independent...)
	if current := mustCell[string](g, cellSliceAxis); !slices.Contains(options, current) {
		if err := g.Set(cellSliceAxis, series.AxisNone); err != nil {
			return nil, err
		}
	}
	return options, nil
}

func (s *Session) computeRawSeries(g *reactive.Graph) (any, error) {
	src := currentSource(g)
	if src == nil {
		return nil, core.NewEmptyDataError("not connected to a data source")
	}
	parameter := mustCell[string](g, cellParameter)
	if parameter == "" {
		return nil, core.NewEmptyDataError("no plottable parameter for this run")
	}
	runID := mustCell[int](g, cellRunID)
	return LoadSeries(context.Background(), src, parameter, runID)
}

func (s *Session) computeReducedSeries(g *reactive.Graph) (any, error) {
	raw, err := seriesCell(g, cellRawSeries)
	if err != nil {
		return nil, err
	}
	return series.Reduce(raw), nil
}

func (s *Session) computeSliceValueOptions(g *reactive.Graph) (any, error) {
	axis := mustCell[string](g, cellSliceAxis)
	if axis == series.AxisNone {
		if err := g.Set(cellSliceValue, nil); err != nil {
			return nil, err
		}
		return []float64(nil), nil
	}

	raw, err := seriesCell(g, cellRawSeries)
	if err != nil {
		return nil, err
	}
	options, err := series.ValueOptions(raw, axis)
	if err != nil {
		return nil, err
	}

	current, hasCurrent := s.currentSliceValue(g)
	if !hasCurrent || !slices.Contains(options, current) {
		var next any
		if len(options) > 0 {
			next = options[0]
		}
		if err := g.Set(cellSliceValue, next); err != nil {
			return nil, err
		}
	}
	return options, nil
}

func (s *Session) computeRunSummary(g *reactive.Graph) (any, error) {
	src := currentSource(g)
	if src == nil {
		return nil, core.NewEmptyDataError("not connected to a data source")
	}
	runID := mustCell[int](g, cellRunID)
	info, err := src.RunInfo(context.Background(), runID)
	if err != nil {
		return nil, err
	}

	summary := RunSummary{Info: info}
	if raw, err := seriesCell(g, cellRawSeries); err == nil && raw.Len() > 0 {
		values := make([]float64, raw.Len())
		for i, p := range raw.Points() {
			values[i] = real(p.Value)
		}
		summary.Points = len(values)
		summary.Min, _ = stats.Min(values)
		summary.Max, _ = stats.Max(values)
		summary.Mean, _ = stats.Mean(values)
		summary.StdDev, _ = stats.StandardDeviation(values)
	}
	return summary, nil
}

// computeFigure converts upstream errors into an explanatory message
// figure: the derived view is the only user-visible failure surface.
func (s *Session) computeFigure(g *reactive.Graph) (any, error) {
	reduced, err := seriesCell(g, cellReducedSeries)
	if err != nil {
		return &ports.Figure{Kind: ports.FigureMessage, Message: err.Error()}, nil
	}

	plot := reduced
	axis := mustCell[string](g, cellSliceAxis)
	if axis != series.AxisNone && reduced.LevelIndex(axis) >= 0 {
		// The slice value settles in the same wave as the options; a
		// missing value just means there is nothing to cut yet.
		if value, ok := s.currentSliceValue(g); ok {
			if plot, err = series.Slice(reduced, axis, value); err != nil {
				return &ports.Figure{Kind: ports.FigureMessage, Message: err.Error()}, nil
			}
		}
	}

	show := mustCell[bool](g, cellShowImaginary)
	fig, err := s.sink.Figure(plot, ports.RenderOptions{ShowImaginary: show})
	if err != nil {
		return &ports.Figure{Kind: ports.FigureMessage, Message: "Error plotting: " + err.Error()}, nil
	}
	return fig, nil
}

func (s *Session) currentSliceValue(g *reactive.Graph) (float64, bool) {
	v, ok := g.Value(cellSliceValue)
	if !ok || v == nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func (s *Session) setOrLog(id reactive.CellID, value any) {
	if err := s.graph.Set(id, value); err != nil {
		s.log.Errorw("cell write failed", "cell", id, "error", err)
	}
}

// ---- cell access helpers ----

func currentSource(g *reactive.Graph) ports.Source {
	v, ok := g.Value(cellSource)
	if !ok || v == nil {
		return nil
	}
	src, _ := v.(ports.Source)
	return src
}

func cellValue[T any](g *reactive.Graph, id reactive.CellID) (T, bool) {
	var zero T
	v, ok := g.Value(id)
	if !ok || v == nil {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

func mustCell[T any](g *reactive.Graph, id reactive.CellID) T {
	t, _ := cellValue[T](g, id)
	return t
}

// seriesCell reads a series-valued cell, cascading its unavailability as an
// error so downstream cells settle unavailable too.
func seriesCell(g *reactive.Graph, id reactive.CellID) (*series.Series, error) {
	v, ok := g.Value(id)
	if !ok {
		if err := g.Err(id); err != nil {
			return nil, err
		}
		return nil, core.NewEmptyDataError(string(id))
	}
	s, _ := v.(*series.Series)
	if s == nil {
		return nil, core.NewEmptyDataError(string(id))
	}
	return s, nil
}

// ---- equality rules ----

func eqComparable[T comparable](a, b any) bool {
	av, aok := a.(T)
	bv, bok := b.(T)
	return aok && bok && av == bv
}

func eqAny(a, b any) bool { return a == b }

func eqStrings(a, b any) bool {
	av, aok := a.([]string)
	bv, bok := b.([]string)
	return aok == bok && slices.Equal(av, bv)
}

func eqFloats(a, b any) bool {
	av, aok := a.([]float64)
	bv, bok := b.([]float64)
	return aok == bok && slices.Equal(av, bv)
}

func eqCatalog(a, b any) bool {
	av, aok := a.(Catalog)
	bv, bok := b.(Catalog)
	return aok && bok && av.equal(bv)
}

func eqSeries(a, b any) bool {
	av, aok := a.(*series.Series)
	bv, bok := b.(*series.Series)
	return aok && bok && series.Equal(av, bv)
}

func eqSliceValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av, aok := a.(float64)
	bv, bok := b.(float64)
	return aok && bok && math.Float64bits(av) == math.Float64bits(bv)
}
