package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"thp/internal"
)

// columnMap resolves the tall-layout item columns shared by the CSV and
// XLSX readers.
type columnMap struct {
	byName map[string]int
}

func newColumnMap(headers []string) columnMap {
	byName := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		if h != "" {
			byName[h] = i
		}
	}
	return columnMap{byName: byName}
}

func (m columnMap) get(row []string, name string) string {
	idx, ok := m.byName[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (m columnMap) hasDescription() bool {
	_, ok := m.byName["description"]
	return ok
}

// rowToRecord maps one tall-layout row onto a record. Works for both CSV
// rows and XLSX rows.
func (m columnMap) rowToRecord(row []string) internal.Record {
	r := internal.Record{Description: m.get(row, "description")}

	for n := 1; ; n++ {
		codeCol := fmt.Sprintf("code|%d", n)
		if _, ok := m.byName[codeCol]; !ok {
			break
		}
		value := m.get(row, codeCol)
		rawType := m.get(row, fmt.Sprintf("code|%d|type", n))
		if value == "" || rawType == "" {
			continue
		}
		r.Codes = append(r.Codes, internal.CodeEntry{
			Value: value,
			Type:  internal.ParseCodeType(rawType),
		})
	}

	setting := m.get(row, "setting")
	if gross, ok := parseAmount(m.get(row, "standard_charge|gross")); ok {
		r.Prices = append(r.Prices, internal.PriceEntry{Amount: gross, Setting: setting})
	}
	if cash, ok := parseAmount(m.get(row, "standard_charge|discounted_cash")); ok {
		r.Prices = append(r.Prices, internal.PriceEntry{Amount: cash, Setting: setting, IsCash: true})
	}

	return r
}

// ReadCSV reads a tall-format standard-charges CSV. CMS files carry two
// metadata rows before the item header row; plain exports put the header
// first. Both layouts are accepted, a UTF-8 BOM is tolerated, and rows
// that fail to parse are skipped rather than aborting the file.
func ReadCSV(r io.Reader) ([]internal.Record, error) {
	buf := bufio.NewReaderSize(r, 256*1024)
	if bom, err := buf.Peek(3); err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	reader := csv.NewReader(buf)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	headerRow, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := newColumnMap(headerRow)
	if !cols.hasDescription() {
		// CMS layout: rows 1-2 are hospital metadata, row 3 has the
		// item columns.
		if _, err := reader.Read(); err != nil {
			return nil, fmt.Errorf("read metadata row: %w", err)
		}
		itemHeader, err := reader.Read()
		if err != nil {
			return nil, fmt.Errorf("read item header: %w", err)
		}
		cols = newColumnMap(itemHeader)
		if !cols.hasDescription() {
			return nil, errors.New("no description column found")
		}
	}

	var out []internal.Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A single broken row must not sink the rest of the file.
			continue
		}
		out = append(out, cols.rowToRecord(row))
	}
	return out, nil
}
