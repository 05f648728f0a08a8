package ingest

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"thp/internal"
)

// ReadXLSX reads a standard-charges workbook. Only the first sheet is
// considered; its columns follow the same tall layout as the CSV
// publication, with or without the two CMS metadata rows on top.
func ReadXLSX(r io.Reader) ([]internal.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := newColumnMap(rows[0])
	body := rows[1:]
	if !cols.hasDescription() {
		if len(rows) < 3 {
			return nil, errors.New("no description column found")
		}
		cols = newColumnMap(rows[2])
		body = rows[3:]
		if !cols.hasDescription() {
			return nil, errors.New("no description column found")
		}
	}

	out := make([]internal.Record, 0, len(body))
	for _, row := range body {
		out = append(out, cols.rowToRecord(row))
	}
	return out, nil
}
