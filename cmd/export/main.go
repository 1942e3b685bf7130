// Command export pulls a run out of a measurement database without the web
// UI: the full aligned table as an xlsx workbook, or one parameter's trace
// as an SVG snapshot.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sweepwatch/adapters/excel"
	"sweepwatch/adapters/sqlite"
	"sweepwatch/app/view"
	"sweepwatch/domain/series"
	"sweepwatch/internal/render"
	"sweepwatch/ports"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "export",
		Short: "Export runs from a measurement database",
	}
	rootCmd.AddCommand(newTableCmd(), newSnapshotCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTableCmd() *cobra.Command {
	var dbPath, out string
	var runID int

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Write a run's aligned result table as xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, runID, err := openRun(cmd.Context(), dbPath, runID)
			if err != nil {
				return err
			}
			defer src.Close()

			table, err := view.LoadTable(cmd.Context(), src, runID)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := excel.WriteTable(f, table); err != nil {
				return err
			}
			fmt.Printf("run %d: %d rows, %d columns -> %s\n",
				runID, len(table.Index), len(table.Columns), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the measurement database")
	cmd.Flags().IntVar(&runID, "run", -1, "Run id (default: most recent)")
	cmd.Flags().StringVar(&out, "out", "run_table.xlsx", "Output file")
	cmd.MarkFlagRequired("db")
	return cmd
}

func newSnapshotCmd() *cobra.Command {
	var dbPath, parameter, out string
	var runID, width, height int

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write one parameter's 1D trace as an SVG",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, runID, err := openRun(cmd.Context(), dbPath, runID)
			if err != nil {
				return err
			}
			defer src.Close()

			if parameter == "" {
				dependent, err := src.DependentParameters(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if len(dependent) == 0 {
					return fmt.Errorf("run %d has no plottable parameters", runID)
				}
				parameter = dependent[0]
			}

			raw, err := view.LoadSeries(cmd.Context(), src, parameter, runID)
			if err != nil {
				return err
			}
			svg, err := render.LineSVG(series.Reduce(raw), width, height)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, svg, 0o644); err != nil {
				return err
			}
			fmt.Printf("run %d %s: %d points -> %s\n", runID, parameter, raw.Len(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the measurement database")
	cmd.Flags().IntVar(&runID, "run", -1, "Run id (default: most recent)")
	cmd.Flags().StringVar(&parameter, "parameter", "", "Parameter name (default: first dependent)")
	cmd.Flags().StringVar(&out, "out", "snapshot.svg", "Output file")
	cmd.Flags().IntVar(&width, "width", 1000, "SVG width")
	cmd.Flags().IntVar(&height, "height", 800, "SVG height")
	cmd.MarkFlagRequired("db")
	return cmd
}

func openRun(ctx context.Context, dbPath string, runID int) (ports.Source, int, error) {
	src, err := sqlite.Open(dbPath, 30*time.Second)
	if err != nil {
		return nil, 0, err
	}
	if runID < 0 {
		if runID, err = src.MostRecentRunID(ctx); err != nil {
			src.Close()
			return nil, 0, err
		}
	}
	return src, runID, nil
}
