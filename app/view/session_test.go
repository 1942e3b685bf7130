package view

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sweepwatch/internal/render"
	"sweepwatch/internal/testkit"
	"sweepwatch/ports"
)

func sweepSource() *testkit.Source {
	src := testkit.NewSource()
	src.AddRun(&testkit.Run{
		ID:          1,
		Independent: []string{"B_field", "gate_v"},
		Dependent:   []string{"current"},
		Info: ports.RunInfo{
			SampleName:     "sample_A",
			ExperimentName: "cooldown",
			Counter:        1,
			StartedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	})
	src.Append(1, []float64{0, 0}, map[string]any{"current": 1.0})
	src.Append(1, []float64{0, 1}, map[string]any{"current": 2.0})
	src.Append(1, []float64{1, 0}, map[string]any{"current": 3.0})
	src.Append(1, []float64{1, 1}, map[string]any{"current": 4.0})
	return src
}

func newTestSession(t *testing.T, src *testkit.Source) *Session {
	t.Helper()
	s, err := NewSession("test", src.Opener(), render.NewVegaSink(), time.Hour, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSessionConnect(t *testing.T) {
	s := newTestSession(t, sweepSource())
	s.SetSource("any.db")

	snap := s.Snapshot()
	assert.True(t, snap.Connected)
	assert.Equal(t, 1, snap.RunID, "connect selects the most recent run")
	assert.Equal(t, "current", snap.Parameter)
	assert.Equal(t, []string{"current"}, snap.ParameterOptions)
	assert.Equal(t, []string{"none", "B_field", "gate_v"}, snap.SliceAxisOptions)
	assert.Equal(t, "none", snap.SliceAxis)

	require.NotNil(t, snap.Figure)
	assert.Equal(t, ports.FigureHeatmap, snap.Figure.Kind)

	require.NotNil(t, snap.Summary)
	assert.Equal(t, "sample_A", snap.Summary.Info.SampleName)
	assert.Equal(t, 4, snap.Summary.Points)
	assert.Equal(t, 1.0, snap.Summary.Min)
	assert.Equal(t, 4.0, snap.Summary.Max)
	assert.Contains(t, snap.SummaryMarkdown, "cooldown run 1")
}

func TestSessionDisconnectedSource(t *testing.T) {
	s, err := NewSession("test", testkit.FailingOpener(errors.New("no such file")),
		render.NewVegaSink(), time.Hour, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer s.Close()

	s.SetSource("missing.db")

	snap := s.Snapshot()
	assert.False(t, snap.Connected)
	assert.Empty(t, snap.ParameterOptions)
	require.NotNil(t, snap.Figure)
	assert.Equal(t, ports.FigureMessage, snap.Figure.Kind)
	assert.Contains(t, snap.Figure.Message, "not connected")
}

func TestSessionUnreachablePing(t *testing.T) {
	src := sweepSource()
	src.PingErr = errors.New("locked")
	s := newTestSession(t, src)
	s.SetSource("any.db")

	assert.False(t, s.Snapshot().Connected)
}

func TestSessionNonexistentRun(t *testing.T) {
	s := newTestSession(t, sweepSource())
	s.SetSource("any.db")

	require.NoError(t, s.SetRunID(99))

	snap := s.Snapshot()
	assert.True(t, snap.Connected)
	assert.Empty(t, snap.ParameterOptions)
	assert.Equal(t, "", snap.Parameter)
	assert.Equal(t, []string{"none"}, snap.SliceAxisOptions)
	require.NotNil(t, snap.Figure)
	assert.Equal(t, ports.FigureMessage, snap.Figure.Kind)
}

func TestSessionSlice(t *testing.T) {
	s := newTestSession(t, sweepSource())
	s.SetSource("any.db")

	require.NoError(t, s.SetSliceAxis("B_field"))
	snap := s.Snapshot()
	assert.Equal(t, []float64{0, 1}, snap.SliceValueOptions)
	require.NotNil(t, snap.SliceValue)
	assert.Equal(t, 0.0, *snap.SliceValue, "falls back to the first option")
	assert.Equal(t, ports.FigureLine, snap.Figure.Kind, "2D data sliced to a 1D cut")

	require.NoError(t, s.SetSliceValue(1))
	snap = s.Snapshot()
	assert.Equal(t, 1.0, *snap.SliceValue)

	// invalid choices are rejected at the setter
	assert.Error(t, s.SetSliceValue(42))
	assert.Error(t, s.SetSliceAxis("bogus"))

	// switching back to none clears the value
	require.NoError(t, s.SetSliceAxis("none"))
	snap = s.Snapshot()
	assert.Nil(t, snap.SliceValue)
	assert.Empty(t, snap.SliceValueOptions)
	assert.Equal(t, ports.FigureHeatmap, snap.Figure.Kind)
}

func TestSessionEqualWriteTriggersNothing(t *testing.T) {
	s := newTestSession(t, sweepSource())
	s.SetSource("any.db")

	raw := s.Recomputes(cellRawSeries)
	fig := s.Recomputes(cellFigure)

	require.NoError(t, s.SetRunID(1)) // unchanged
	require.NoError(t, s.SetShowImaginary(false))
	require.NoError(t, s.SetParameter("current"))

	assert.Equal(t, raw, s.Recomputes(cellRawSeries))
	assert.Equal(t, fig, s.Recomputes(cellFigure))
}

func TestSessionComplexData(t *testing.T) {
	src := testkit.NewSource()
	src.AddRun(&testkit.Run{
		ID:          1,
		Independent: []string{"freq"},
		Dependent:   []string{"s21"},
	})
	src.Append(1, []float64{1e9}, map[string]any{"s21": complex(1.0, 2.0)})
	src.Append(1, []float64{2e9}, map[string]any{"s21": complex(3.0, -1.0)})

	s := newTestSession(t, src)
	s.SetSource("any.db")

	// default: real part only
	snap := s.Snapshot()
	assert.Equal(t, ports.FigureLine, snap.Figure.Kind)

	require.NoError(t, s.SetShowImaginary(true))
	snap = s.Snapshot()
	assert.Equal(t, ports.FigureSplit, snap.Figure.Kind)
}

func TestSessionRefreshReloadsGrowingSweep(t *testing.T) {
	src := sweepSource()
	s := newTestSession(t, src)
	s.SetSource("any.db")

	require.Equal(t, 4, s.Snapshot().Summary.Points)

	src.Append(1, []float64{2, 0}, map[string]any{"current": 5.0})
	require.NoError(t, s.Refresh())
	assert.Equal(t, 5, s.Snapshot().Summary.Points)
}

func TestSessionTickAdvancesSliceToLatest(t *testing.T) {
	src := sweepSource()
	s := newTestSession(t, src)
	s.SetSource("any.db")

	require.NoError(t, s.SetSliceAxis("gate_v"))
	snap := s.Snapshot()
	require.Equal(t, []float64{0, 1}, snap.SliceValueOptions)
	require.Equal(t, 0.0, *snap.SliceValue)

	s.Tick()
	snap = s.Snapshot()
	assert.Equal(t, 1.0, *snap.SliceValue, "tick advances to the latest cut")

	// a tick advances first and reloads second, so a cut appearing in the
	// same cycle becomes current only on the following tick
	src.Append(1, []float64{0, 2}, map[string]any{"current": 6.0})
	s.Tick()
	snap = s.Snapshot()
	assert.Equal(t, []float64{0, 1, 2}, snap.SliceValueOptions)
	assert.Equal(t, 1.0, *snap.SliceValue)

	s.Tick()
	assert.Equal(t, 2.0, *s.Snapshot().SliceValue)
}

func TestSessionTickerLifecycle(t *testing.T) {
	s := newTestSession(t, sweepSource())
	s.SetSource("any.db")

	assert.False(t, s.RefreshEnabled())
	s.SetRefresh(true)
	assert.True(t, s.RefreshEnabled())
	s.SetRefresh(true) // idempotent
	assert.True(t, s.RefreshEnabled())
	s.SetRefresh(false)
	assert.False(t, s.RefreshEnabled())
	s.SetRefresh(false)
	assert.False(t, s.RefreshEnabled())
}

func TestSessionSourceFailureMidSession(t *testing.T) {
	src := sweepSource()
	s := newTestSession(t, src)
	s.SetSource("any.db")

	src.FetchErr = errors.New("database is locked")
	require.NoError(t, s.Refresh())

	snap := s.Snapshot()
	require.NotNil(t, snap.Figure)
	assert.Equal(t, ports.FigureMessage, snap.Figure.Kind)

	// next stimulus is the retry mechanism
	src.FetchErr = nil
	require.NoError(t, s.Refresh())
	assert.Equal(t, ports.FigureHeatmap, s.Snapshot().Figure.Kind, "recovers without reconnecting")
}
