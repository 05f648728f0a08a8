// Package export writes match results as a price-comparison workbook:
// one row per group, one column per source.
package export

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"thp/internal"
)

// GroupsToXLSX writes one row per match group with per-source best prices
// in the column order given by sourceOrder. Sources missing from the order
// are appended alphabetically so no price is silently dropped.
func GroupsToXLSX(rows []internal.GroupExportRow, sourceOrder []string, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	sources := sourceColumns(rows, sourceOrder)

	headers := []string{
		"group_key", "reason", "description", "category", "code", "code_type", "sources",
	}
	headers = append(headers, sources...)
	headers = append(headers, "min_price", "max_price", "spread", "spread_percent")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.Key)
		set(2, row.Reason)
		set(3, row.Description)
		set(4, row.Category)
		set(5, derefString(row.CodeValue))
		set(6, derefString(row.CodeType))
		set(7, row.Sources)

		col := 8
		for _, source := range sources {
			if price, ok := row.PerSourceBest[source]; ok {
				set(col, price)
			} else {
				set(col, "")
			}
			col++
		}

		set(col, row.MinPrice)
		set(col+1, row.MaxPrice)
		set(col+2, row.Spread)
		set(col+3, row.SpreadPercent)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func sourceColumns(rows []internal.GroupExportRow, sourceOrder []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(sourceOrder))
	for _, source := range sourceOrder {
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		out = append(out, source)
	}

	extra := []string{}
	for _, row := range rows {
		for source := range row.PerSourceBest {
			if _, ok := seen[source]; ok {
				continue
			}
			seen[source] = struct{}{}
			extra = append(extra, source)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
