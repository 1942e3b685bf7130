package ports

import (
	"context"
	"time"
)

// Row is one raw measurement record as fetched from the store: one value
// per requested axis column, in request order, plus the target parameter's
// cell. Exactly one of Number/Blob is meaningful: Blob is non-nil when the
// column stores an opaque binary payload that still needs decoding.
type Row struct {
	Axes   []float64
	Number float64
	Blob   []byte
}

// RunInfo is the descriptive metadata shown next to the plot.
type RunInfo struct {
	RunID          int
	SampleName     string
	ExperimentName string
	Counter        int
	StartedAt      time.Time
}

// Source defines the interface to a measurement store. Implementations own
// connection lifecycle and query execution; callers own shaping. All
// methods are expected to bound their own query time and to surface store
// failures as core.ErrSource and missing runs/parameters/tables as
// core.ErrNotFound.
type Source interface {
	// Ping validates reachability, used when a session connects.
	Ping(ctx context.Context) error

	// IndependentParameters lists a run's swept axes in axis order.
	IndependentParameters(ctx context.Context, runID int) ([]string, error)

	// DependentParameters lists a run's measured quantities.
	DependentParameters(ctx context.Context, runID int) ([]string, error)

	// MostRecentRunID returns the greatest run id in the store.
	MostRecentRunID(ctx context.Context) (int, error)

	// ResultTableName resolves where a run's rows live.
	ResultTableName(ctx context.Context, runID int) (string, error)

	// FetchRows selects the given columns from a result table, keeping only
	// rows where notNull is present. The last requested column is the value
	// cell; the rest are axes.
	FetchRows(ctx context.Context, table string, columns []string, notNull string) ([]Row, error)

	// RunInfo loads the sample/experiment metadata for a run.
	RunInfo(ctx context.Context, runID int) (RunInfo, error)

	// Close releases the underlying connection.
	Close() error
}

// SourceOpener opens a Source for a given identifier (a database path).
// Injected into the session layer so tests can substitute a fake store.
type SourceOpener func(path string) (Source, error)
