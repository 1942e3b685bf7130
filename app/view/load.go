// Package view wires the user-observable plot state: the shaping pipeline
// that turns stored rows into indexed series, the reactive cell graph that
// decides what recomputes when, and the per-session lifecycle around both.
package view

import (
	"context"
	"slices"

	"sweepwatch/domain/core"
	"sweepwatch/domain/series"
	"sweepwatch/ports"
)

// LoadSeries fetches one dependent parameter's data for a run and shapes it
// into a series indexed by the run's independent parameters, in catalog
// order. Binary-encoded cells are decoded into complex values.
func LoadSeries(ctx context.Context, src ports.Source, parameter string, runID int) (*series.Series, error) {
	independent, err := src.IndependentParameters(ctx, runID)
	if err != nil {
		return nil, err
	}
	dependent, err := src.DependentParameters(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(dependent, parameter) && !slices.Contains(independent, parameter) {
		return nil, core.NewNotFoundError("parameter", parameter)
	}

	table, err := src.ResultTableName(ctx, runID)
	if err != nil {
		return nil, err
	}
	columns := append(append([]string(nil), independent...), parameter)
	rows, err := src.FetchRows(ctx, table, columns, parameter)
	if err != nil {
		return nil, err
	}

	s := series.New(parameter, independent)
	for _, row := range rows {
		value := complex(row.Number, 0)
		if row.Blob != nil {
			if value, err = core.DecodeComplex(row.Blob); err != nil {
				return nil, err
			}
			s.Complex = true
		}
		s.Append(series.Key(row.Axes), value)
	}
	return s, nil
}

// LoadTable loads every dependent parameter's series for a run and aligns
// them on shared index tuples with outer-join semantics. A run with no
// dependent parameters yields an empty table, not an error.
func LoadTable(ctx context.Context, src ports.Source, runID int) (*series.Table, error) {
	dependent, err := src.DependentParameters(ctx, runID)
	if err != nil {
		return nil, err
	}
	list := make([]*series.Series, 0, len(dependent))
	for _, parameter := range dependent {
		s, err := LoadSeries(ctx, src, parameter, runID)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return series.Join(list), nil
}
