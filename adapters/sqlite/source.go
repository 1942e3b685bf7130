// Package sqlite implements the measurement-store source over a qcodes-style
// SQLite database: runs and experiments tables for metadata, layouts and
// dependencies tables for parameter structure, one result table per run.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"sweepwatch/domain/core"
	"sweepwatch/ports"
)

// source implements the ports.Source interface
type source struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects to the measurement database at the given path. The file
// must already exist: a sweep monitor never creates stores, and sqlite
// would otherwise silently make an empty one.
func Open(path string, queryTimeout time.Duration) (ports.Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, core.NewNotFoundError("database", path)
	}

	db, err := sqlx.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, core.NewSourceError("open "+path, err)
	}
	return &source{db: db, timeout: queryTimeout}, nil
}

func (s *source) Close() error { return s.db.Close() }

func (s *source) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	// PingContext alone passes on an empty file; require the runs table.
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'runs'`)
	if err != nil {
		return core.NewSourceError("ping", err)
	}
	if n == 0 {
		return core.NewSourceError("ping", errors.New("no runs table, not a measurement database"))
	}
	return nil
}

// IndependentParameters lists a run's swept axes, ordered by axis number as
// recorded in the dependencies table.
func (s *source) IndependentParameters(ctx context.Context, runID int) ([]string, error) {
	query := `SELECT l.parameter
		FROM layouts l
		JOIN dependencies d ON d.independent = l.layout_id
		WHERE l.run_id = ?
		GROUP BY l.layout_id, l.parameter
		ORDER BY MIN(d.axis_num), l.layout_id`
	return s.parameterList(ctx, query, runID)
}

// DependentParameters lists a run's measured quantities in layout order.
func (s *source) DependentParameters(ctx context.Context, runID int) ([]string, error) {
	query := `SELECT l.parameter
		FROM layouts l
		JOIN dependencies d ON d.dependent = l.layout_id
		WHERE l.run_id = ?
		GROUP BY l.layout_id, l.parameter
		ORDER BY l.layout_id`
	return s.parameterList(ctx, query, runID)
}

func (s *source) parameterList(ctx context.Context, query string, runID int) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var names []string
	if err := s.db.SelectContext(ctx, &names, query, runID); err != nil {
		return nil, core.NewSourceError("list parameters", err)
	}
	if len(names) == 0 {
		// Distinguish "run has no such parameters" from "run absent".
		if _, err := s.ResultTableName(ctx, runID); err != nil {
			return nil, err
		}
	}
	return names, nil
}

func (s *source) MostRecentRunID(ctx context.Context) (int, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var id sql.NullInt64
	if err := s.db.GetContext(ctx, &id, `SELECT MAX(run_id) FROM runs`); err != nil {
		return 0, core.NewSourceError("most recent run id", err)
	}
	if !id.Valid {
		return 0, core.NewEmptyDataError("database has no runs")
	}
	return int(id.Int64), nil
}

func (s *source) ResultTableName(ctx context.Context, runID int) (string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var name string
	err := s.db.GetContext(ctx, &name, `SELECT result_table_name FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", core.NewNotFoundError("run", runID)
		}
		return "", core.NewSourceError("result table name", err)
	}
	return name, nil
}

// FetchRows selects the given columns from a result table, keeping rows
// where notNull is present. The last column is the value cell, the rest are
// axes.
func (s *source) FetchRows(ctx context.Context, table string, columns []string, notNull string) ([]ports.Row, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s IS NOT NULL`,
		strings.Join(quoted, ", "), quoteIdent(table), quoteIdent(notNull))

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		if isMissingColumn(err) || isMissingTable(err) {
			return nil, core.NewNotFoundError("column or table", table)
		}
		return nil, core.NewSourceError("fetch rows", err)
	}
	defer rows.Close()

	var out []ports.Row
	for rows.Next() {
		cells, err := rows.SliceScan()
		if err != nil {
			return nil, core.NewSourceError("scan row", err)
		}
		row := ports.Row{Axes: make([]float64, len(cells)-1)}
		for i, cell := range cells[:len(cells)-1] {
			v, err := asFloat(cell)
			if err != nil {
				return nil, core.NewSourceError(fmt.Sprintf("axis column %s", columns[i]), err)
			}
			row.Axes[i] = v
		}
		last := cells[len(cells)-1]
		if blob, ok := last.([]byte); ok {
			row.Blob = append([]byte(nil), blob...)
		} else {
			v, err := asFloat(last)
			if err != nil {
				return nil, core.NewSourceError(fmt.Sprintf("value column %s", notNull), err)
			}
			row.Number = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewSourceError("fetch rows", err)
	}
	return out, nil
}

func (s *source) RunInfo(ctx context.Context, runID int) (ports.RunInfo, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var rec struct {
		RunID      int             `db:"run_id"`
		Counter    int             `db:"result_counter"`
		Timestamp  sql.NullFloat64 `db:"run_timestamp"`
		Experiment string          `db:"name"`
		Sample     string          `db:"sample_name"`
	}
	query := `SELECT r.run_id, r.result_counter, r.run_timestamp, e.name, e.sample_name
		FROM runs r
		JOIN experiments e ON e.exp_id = r.exp_id
		WHERE r.run_id = ?`
	if err := s.db.GetContext(ctx, &rec, query, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.RunInfo{}, core.NewNotFoundError("run", runID)
		}
		return ports.RunInfo{}, core.NewSourceError("run info", err)
	}

	info := ports.RunInfo{
		RunID:          rec.RunID,
		Counter:        rec.Counter,
		ExperimentName: rec.Experiment,
		SampleName:     rec.Sample,
	}
	if rec.Timestamp.Valid {
		sec, frac := int64(rec.Timestamp.Float64), rec.Timestamp.Float64
		info.StartedAt = time.Unix(sec, int64((frac-float64(sec))*1e9)).UTC()
	}
	return info, nil
}

func (s *source) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// quoteIdent quotes an identifier for interpolation; parameter and table
// names come from the store itself, not users, but quoting keeps arbitrary
// names (units, slashes) valid.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func asFloat(cell any) (float64, error) {
	switch v := cell.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("unexpected column type %T", cell)
	}
}

func isMissingColumn(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such column")
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
