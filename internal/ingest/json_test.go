package ingest

import (
	"strings"
	"testing"

	"thp/internal"
)

const sampleJSON = `{
  "hospital_name": "Example Medical Center",
  "version": "3.0.0",
  "standard_charge_information": [
    {
      "description": "INSULIN GLARGINE 100 UNIT/ML",
      "code_information": [
        {"code": "0002-8315-01", "type": "NDC"},
        {"code": "J1815", "type": "HCPCS"}
      ],
      "standard_charges": [
        {"gross_charge": 125.5, "discounted_cash": "$100.00", "setting": "outpatient"}
      ]
    },
    {
      "description": "MRI BRAIN WITHOUT CONTRAST",
      "code_information": [{"code": "70551", "type": "CPT"}],
      "standard_charges": [{"gross_charges": "1,250.00", "setting": "outpatient"}]
    },
    {
      "description": "",
      "code_information": [],
      "standard_charges": [{"gross_charge": 10, "setting": "inpatient"}]
    },
    {
      "description": "NO PRICE ITEM",
      "code_information": [{"code": "12345", "type": "CPT"}],
      "standard_charges": [{"gross_charge": null, "setting": "inpatient"}]
    }
  ]
}`

func TestReadJSON(t *testing.T) {
	records, err := ReadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("want 4 parsed items, got %d", len(records))
	}

	first := records[0]
	if first.Description != "INSULIN GLARGINE 100 UNIT/ML" {
		t.Fatalf("unexpected description %q", first.Description)
	}
	if len(first.Codes) != 2 || first.Codes[0].Type != internal.CodeNDC {
		t.Fatalf("unexpected codes %+v", first.Codes)
	}
	if len(first.Prices) != 2 {
		t.Fatalf("want gross and cash prices, got %+v", first.Prices)
	}
	if !first.Prices[1].IsCash || first.Prices[1].Amount != 100 {
		t.Fatalf("cash price not parsed: %+v", first.Prices[1])
	}

	// V2 files pluralize gross_charges and quote the number.
	if records[1].BestPrice() != 1250 {
		t.Fatalf("string amount not parsed: %+v", records[1].Prices)
	}
}

func TestReadJSONNotAnMRF(t *testing.T) {
	if _, err := ReadJSON(strings.NewReader(`[]`)); err == nil {
		t.Fatal("array input must be rejected")
	}
	if _, err := ReadJSON(strings.NewReader(`{"other": 1}`)); err == nil {
		t.Fatal("object without charge section must be rejected")
	}
}

func TestIntoCollectionCountsSkips(t *testing.T) {
	records, err := ReadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	col, result := IntoCollection("example", records)

	// The empty-description and the no-price items are dropped.
	if result.Processed != 2 || result.Skipped != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if col.Len() != 2 {
		t.Fatalf("collection should hold only valid records, got %d", col.Len())
	}
	if got := col.FindByCode("12345", internal.CodeCPT); len(got) != 0 {
		t.Fatal("rejected record must not be indexed")
	}
	if got := col.SearchKeywords("insulin glargine"); len(got) != 1 {
		t.Fatalf("valid record must be searchable, got %d", len(got))
	}
}
