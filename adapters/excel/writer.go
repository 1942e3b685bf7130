// Package excel writes aligned run tables as xlsx workbooks, the exchange
// format measurement groups pass around.
package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sweepwatch/domain/series"
)

// WriteTable writes one worksheet: a header row of index levels and column
// names, then one row per index tuple. Cells a column never measured stay
// blank; complex values are written as "a+bi" text.
func WriteTable(w io.Writer, table *series.Table) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "Sheet1"

	header := append([]string(nil), table.Levels...)
	for _, col := range table.Columns {
		header = append(header, col.Name)
	}
	for i, name := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}

	for ri, key := range table.Index {
		for li, v := range key {
			cell, err := excelize.CoordinatesToCellName(li+1, ri+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		for ci, col := range table.Columns {
			if !col.Present[ri] {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(len(table.Levels)+ci+1, ri+2)
			if err != nil {
				return err
			}
			value := any(real(col.Values[ri]))
			if col.Complex {
				value = fmt.Sprintf("%g%+gi", real(col.Values[ri]), imag(col.Values[ri]))
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}
