// Package ingest turns hospital standard-charges files (the CMS
// machine-readable JSON, tall CSV, or XLSX layouts) into records ready
// for indexing. Readers are permissive: they parse whatever is present
// and leave validation to the collection, which counts the rejects.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"thp/internal"
	"thp/internal/index"
)

// LoadFile dispatches on the file extension, defaulting to JSON, which
// is by far the most common publication format.
func LoadFile(path string) ([]internal.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".xlsx":
		return ReadXLSX(f)
	default:
		return ReadJSON(f)
	}
}

// LoadCollection reads a source file straight into a built collection,
// reporting how many records survived validation.
func LoadCollection(sourceID, path string) (*index.Collection, internal.IngestResult, error) {
	records, err := LoadFile(path)
	if err != nil {
		return nil, internal.IngestResult{}, fmt.Errorf("load %s: %w", path, err)
	}
	col, result := IntoCollection(sourceID, records)
	return col, result, nil
}

// IntoCollection indexes parsed records, counting the malformed ones
// instead of failing on them.
func IntoCollection(sourceID string, records []internal.Record) (*index.Collection, internal.IngestResult) {
	col := index.NewCollection(sourceID)
	result := internal.IngestResult{}
	for _, r := range records {
		if _, err := col.Add(r); err != nil {
			result.Skipped++
			continue
		}
		result.Processed++
	}
	return col, result
}

// parseAmount reads a money value that may carry a currency sign and
// thousands separators, e.g. "$24,945.00".
func parseAmount(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
