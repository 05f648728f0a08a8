package codes

import (
	"testing"

	"thp/internal"
)

func TestNormalizeNDC(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "4-4-2 segments", input: "0002-8315-01", want: "NDC:00002831501", ok: true},
		{name: "already 11 digits", input: "00002831501", want: "NDC:00002831501", ok: true},
		{name: "5-3-2 segments", input: "00002-831-501", want: "NDC:00002831501", ok: true},
		{name: "5-4-1 segments", input: "00002-8315-01", want: "NDC:00002831501", ok: true},
		{name: "9 digits padded", input: "283-1501-23", want: "NDC:00283150123", ok: true},
		{name: "10 digits padded", input: "0283-1501-23", want: "NDC:00283150123", ok: true},
		{name: "dotted separators", input: "0002.8315.01", want: "NDC:00002831501", ok: true},
		{name: "too short", input: "1234", ok: false},
		{name: "too long", input: "123456789012", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Normalize(tc.input, internal.CodeNDC)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v (key=%q)", ok, tc.ok, got)
			}
			if !ok {
				return
			}
			if len(got) != len("NDC:")+11 {
				t.Fatalf("key %q is not 11 digits after prefix", got)
			}
			if tc.want != "" && got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeNDCIdempotent(t *testing.T) {
	first, ok := Normalize("0002-8315-01", internal.CodeNDC)
	if !ok {
		t.Fatal("normalize failed")
	}
	// Feeding the canonical digit string back in yields the same key.
	again, ok := Normalize("00002831501", internal.CodeNDC)
	if !ok || again != first {
		t.Fatalf("not idempotent: %q vs %q", first, again)
	}
}

func TestNormalizeByType(t *testing.T) {
	cases := []struct {
		name  string
		value string
		typ   internal.CodeType
		want  string
		ok    bool
	}{
		{name: "cpt", value: "99213", typ: internal.CodeCPT, want: "CPT:99213", ok: true},
		{name: "cpt lowercase separators", value: "992-13", typ: internal.CodeCPT, want: "CPT:99213", ok: true},
		{name: "cpt too short", value: "99", typ: internal.CodeCPT, ok: false},
		{name: "hcpcs", value: "j1815", typ: internal.CodeHCPCS, want: "HCPCS:J1815", ok: true},
		{name: "drg digits only", value: "DRG-470", typ: internal.CodeDRG, want: "DRG:470", ok: true},
		{name: "drg too short", value: "7", typ: internal.CodeDRG, ok: false},
		{name: "ms-drg", value: "871", typ: internal.CodeMSDRG, want: "MS-DRG:871", ok: true},
		{name: "rev code", value: "0250", typ: internal.CodeREV, want: "REV:0250", ok: true},
		{name: "unknown type kept verbatim", value: "abc-123", typ: internal.CodeType("EAPG"), want: "EAPG:ABC123", ok: true},
		{name: "unknown type too short", value: "a1", typ: internal.CodeType("EAPG"), ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Normalize(tc.value, tc.typ)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v (key=%q)", ok, tc.ok, got)
			}
			if ok && got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}
