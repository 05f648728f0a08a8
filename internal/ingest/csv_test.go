package ingest

import (
	"strings"
	"testing"

	"thp/internal"
)

func TestReadCSVPlainLayout(t *testing.T) {
	input := "description,code|1,code|1|type,code|2,code|2|type,setting,standard_charge|gross,standard_charge|discounted_cash\n" +
		"INSULIN GLARGINE 100 UNIT/ML,0002-8315-01,NDC,J1815,HCPCS,outpatient,\"$125.50\",100\n" +
		"MRI BRAIN WITHOUT CONTRAST,70551,CPT,,,outpatient,\"1,250.00\",\n"

	records, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("want 2 records, got %d", len(records))
	}

	first := records[0]
	if len(first.Codes) != 2 {
		t.Fatalf("want 2 codes, got %+v", first.Codes)
	}
	if first.Codes[1].Type != internal.CodeHCPCS {
		t.Fatalf("unexpected second code %+v", first.Codes[1])
	}
	if first.BestPrice() != 100 {
		t.Fatalf("cash price should be the best, got %v", first.BestPrice())
	}
	if records[1].BestPrice() != 1250 {
		t.Fatalf("separator-laden amount not parsed: %v", records[1].BestPrice())
	}
}

func TestReadCSVCMSLayout(t *testing.T) {
	input := "\uFEFFhospital_name,last_updated_on,version\n" +
		"Example Medical Center,2025-01-01,3.0.0\n" +
		"description,code|1,code|1|type,setting,standard_charge|gross,standard_charge|discounted_cash\n" +
		"OFFICE VISIT,99213,CPT,outpatient,75.00,60.00\n"

	records, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("want 1 record, got %d", len(records))
	}
	if records[0].Description != "OFFICE VISIT" {
		t.Fatalf("unexpected description %q", records[0].Description)
	}
	if len(records[0].Prices) != 2 {
		t.Fatalf("want gross and cash entries, got %+v", records[0].Prices)
	}
}

func TestReadCSVNoDescriptionColumn(t *testing.T) {
	input := "a,b\n1,2\nc,d\n3,4\n"
	if _, err := ReadCSV(strings.NewReader(input)); err == nil {
		t.Fatal("headerless file must be rejected")
	}
}
