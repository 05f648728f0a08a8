package export

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"thp/internal"
)

func TestGroupsToXLSX(t *testing.T) {
	code := "00002831501"
	codeType := "NDC"
	rows := []internal.GroupExportRow{
		{
			Key:           "NDC:00002831501",
			Reason:        "CODE",
			Description:   "insulin lispro 100 unit/ml vial",
			Category:      "Diabetes Care",
			CodeValue:     &code,
			CodeType:      &codeType,
			Sources:       2,
			MinPrice:      90,
			MaxPrice:      150,
			Spread:        60,
			SpreadPercent: 66.7,
			PerSourceBest: map[string]float64{"mercy": 90, "stanford": 150},
		},
		{
			Key:           "DESC:0a1b2c3d",
			Reason:        "FUZZY",
			Description:   "office visit established patient",
			Sources:       2,
			MinPrice:      100,
			MaxPrice:      120,
			Spread:        20,
			SpreadPercent: 20,
			PerSourceBest: map[string]float64{"mercy": 120, "ucsf": 100},
		},
	}

	out := filepath.Join(t.TempDir(), "groups.xlsx")
	if err := GroupsToXLSX(rows, []string{"mercy", "stanford"}, out); err != nil {
		t.Fatalf("GroupsToXLSX: %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(got))
	}

	header := got[0]
	// ordered sources first, then the extra source picked up from the rows
	wantHeader := []string{
		"group_key", "reason", "description", "category", "code", "code_type", "sources",
		"mercy", "stanford", "ucsf",
		"min_price", "max_price", "spread", "spread_percent",
	}
	if len(header) != len(wantHeader) {
		t.Fatalf("expected %d header columns, got %d: %v", len(wantHeader), len(header), header)
	}
	for i, want := range wantHeader {
		if header[i] != want {
			t.Errorf("header[%d] = %q, want %q", i, header[i], want)
		}
	}

	first := got[1]
	if first[0] != "NDC:00002831501" || first[4] != "00002831501" || first[5] != "NDC" {
		t.Errorf("unexpected first row: %v", first)
	}
	if first[7] != "90" || first[8] != "150" {
		t.Errorf("unexpected per-source prices in first row: %v", first)
	}

	second := got[2]
	if second[8] != "" {
		t.Errorf("expected empty stanford cell for second group, got %q", second[8])
	}
	if second[9] != "100" {
		t.Errorf("expected ucsf price 100, got %q", second[9])
	}
}
