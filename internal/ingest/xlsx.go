package ingest

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads the configured sheet, or the first one, of a workbook.
// Trailing empty cells are trimmed by excelize, so short rows are not malformed.
func readXLSX(ctx context.Context, src Source) ([]RawRow, error) {
	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := src.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s: workbook has no sheets", src.Label())
		}
		sheet = sheets[0]
	}
	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: read sheet %q: %w", src.Label(), sheet, err)
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("%s: sheet %q is empty", src.Label(), sheet)
	}
	h := parseHeader(grid[0])
	if missing := h.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%s: missing required columns %v", src.Label(), missing)
	}

	rows := make([]RawRow, 0, len(grid)-1)
	for i, cells := range grid[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if blank(cells) {
			continue
		}
		row := h.row(cells, src.Label(), i+2)
		if len(cells) > len(grid[0]) {
			row.Malformed = "column_count"
		}
		rows = append(rows, row)
	}
	return rows, nil
}
