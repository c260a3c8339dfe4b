package parsers

import (
	"io"

	"github.com/extrame/xls"

	"partner-reconciliation-service/pkg/errors"
)

// ReadXLS reads the first sheet of a legacy XLS workbook into a
// RawTable. Both source systems still export the old binary format, so
// the modern XLSX container is intentionally not handled here; convert
// such files to CSV before feeding them in.
func ReadXLS(r io.ReadSeeker) (RawTable, error) {
	workbook, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, "input", "not a readable XLS workbook", err)
	}

	if workbook.NumSheets() == 0 {
		return nil, errors.ParseError(errors.CodeEmptyTable, "input", "workbook has no sheets", nil)
	}

	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, "input", "could not open first sheet", nil)
	}

	var table RawTable
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			table = append(table, RawRow{})
			continue
		}

		cells := make(RawRow, 0, row.LastCol())
		for col := 0; col < row.LastCol(); col++ {
			cells = append(cells, row.Col(col))
		}
		table = append(table, cells)
	}

	return table, nil
}
