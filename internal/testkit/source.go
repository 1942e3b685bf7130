// Package testkit provides an in-memory measurement store for tests: runs
// can grow row by row, simulating a live sweep, and failure modes can be
// injected at the source boundary.
package testkit

import (
	"context"
	"fmt"
	"sync"

	"sweepwatch/domain/core"
	"sweepwatch/ports"
)

// Cell is one stored value: a number, a binary payload, or absent.
type Cell struct {
	Number float64
	Blob   []byte
	Null   bool
}

// Record is one stored row: axis setpoints plus a cell per dependent
// parameter. Parameters without a cell read as NULL.
type Record struct {
	Axes  []float64
	Cells map[string]Cell
}

// Run is one in-memory sweep.
type Run struct {
	ID          int
	Independent []string
	Dependent   []string
	Info        ports.RunInfo
	Records     []Record
}

// Source is an in-memory ports.Source.
type Source struct {
	mu   sync.Mutex
	runs map[int]*Run

	PingErr  error
	FetchErr error
	Closed   bool
}

// NewSource creates an empty in-memory store.
func NewSource() *Source {
	return &Source{runs: make(map[int]*Run)}
}

// AddRun registers a run. Existing ids are replaced.
func (f *Source) AddRun(run *Run) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = run
}

// Append adds one row to a run. Values may be float64 or complex128;
// complex values are stored as encoded binary payloads, the way the real
// store keeps them.
func (f *Source) Append(runID int, axes []float64, values map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run := f.runs[runID]
	rec := Record{Axes: append([]float64(nil), axes...), Cells: make(map[string]Cell)}
	for name, v := range values {
		switch v := v.(type) {
		case float64:
			rec.Cells[name] = Cell{Number: v}
		case complex128:
			rec.Cells[name] = Cell{Blob: core.EncodeComplex(v)}
		case []byte:
			rec.Cells[name] = Cell{Blob: v}
		default:
			panic(fmt.Sprintf("testkit: unsupported cell type %T", v))
		}
	}
	run.Records = append(run.Records, rec)
}

// Opener returns a SourceOpener that hands out this store for every path.
func (f *Source) Opener() ports.SourceOpener {
	return func(string) (ports.Source, error) { return f, nil }
}

// FailingOpener returns a SourceOpener that always fails.
func FailingOpener(err error) ports.SourceOpener {
	return func(string) (ports.Source, error) { return nil, err }
}

func (f *Source) Ping(context.Context) error { return f.PingErr }

func (f *Source) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

func (f *Source) IndependentParameters(_ context.Context, runID int) ([]string, error) {
	run, err := f.run(runID)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), run.Independent...), nil
}

func (f *Source) DependentParameters(_ context.Context, runID int) ([]string, error) {
	run, err := f.run(runID)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), run.Dependent...), nil
}

func (f *Source) MostRecentRunID(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := -1
	for id := range f.runs {
		if id > max {
			max = id
		}
	}
	if max < 0 {
		return 0, core.NewEmptyDataError("store has no runs")
	}
	return max, nil
}

func (f *Source) ResultTableName(_ context.Context, runID int) (string, error) {
	if _, err := f.run(runID); err != nil {
		return "", err
	}
	return fmt.Sprintf("results-%d", runID), nil
}

func (f *Source) FetchRows(_ context.Context, table string, columns []string, notNull string) ([]ports.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}

	var run *Run
	for _, r := range f.runs {
		if fmt.Sprintf("results-%d", r.ID) == table {
			run = r
			break
		}
	}
	if run == nil {
		return nil, core.NewNotFoundError("result table", table)
	}

	axisOf := make(map[string]int, len(run.Independent))
	for i, name := range run.Independent {
		axisOf[name] = i
	}

	var out []ports.Row
	for _, rec := range run.Records {
		cell, ok := rec.Cells[notNull]
		if !ok || cell.Null {
			continue
		}
		row := ports.Row{}
		for _, col := range columns[:len(columns)-1] {
			i, ok := axisOf[col]
			if !ok {
				return nil, core.NewNotFoundError("column", col)
			}
			row.Axes = append(row.Axes, rec.Axes[i])
		}
		if cell.Blob != nil {
			row.Blob = append([]byte(nil), cell.Blob...)
		} else {
			row.Number = cell.Number
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *Source) RunInfo(_ context.Context, runID int) (ports.RunInfo, error) {
	run, err := f.run(runID)
	if err != nil {
		return ports.RunInfo{}, err
	}
	info := run.Info
	info.RunID = run.ID
	return info, nil
}

func (f *Source) run(id int) (*Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, core.NewNotFoundError("run", id)
	}
	return run, nil
}
