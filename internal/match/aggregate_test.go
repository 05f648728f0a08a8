package match

import (
	"reflect"
	"testing"

	"thp/internal"
)

func TestSummarize(t *testing.T) {
	g := internal.MatchGroup{
		Members: map[string][]internal.Record{
			"alpha": {{Prices: []internal.PriceEntry{{Amount: 120}, {Amount: 100, IsCash: true}}}},
			"beta":  {{Prices: []internal.PriceEntry{{Amount: 150}}}},
			"gamma": {{Prices: []internal.PriceEntry{{Amount: -5}, {Amount: 0}, {Amount: 90}}}},
		},
	}

	s := Summarize(g)
	if s.MinPrice != 90 || s.MaxPrice != 150 || s.Spread != 60 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.PerSourceBest["alpha"] != 100 {
		t.Fatalf("alpha best should ignore the higher entry, got %v", s.PerSourceBest["alpha"])
	}
	if s.SpreadPercent <= 0 {
		t.Fatalf("spread percent must be positive, got %v", s.SpreadPercent)
	}

	// Idempotent: a second call yields identical output.
	if again := Summarize(g); !reflect.DeepEqual(s, again) {
		t.Fatalf("summarize not idempotent: %+v vs %+v", s, again)
	}
}

func TestSummarizeNoPositivePrices(t *testing.T) {
	g := internal.MatchGroup{
		Members: map[string][]internal.Record{
			"alpha": {{Prices: []internal.PriceEntry{{Amount: 0}}}},
			"beta":  {{Prices: []internal.PriceEntry{{Amount: -1}}}},
		},
	}
	s := Summarize(g)
	if s.MinPrice != 0 || s.MaxPrice != 0 || s.Spread != 0 || s.SpreadPercent != 0 {
		t.Fatalf("all-zero summary expected, got %+v", s)
	}
	if len(s.PerSourceBest) != 0 {
		t.Fatalf("sources without prices must be omitted, got %+v", s.PerSourceBest)
	}
}

func TestElectPrimaryCode(t *testing.T) {
	order := []string{"alpha", "beta"}
	g := internal.MatchGroup{
		Members: map[string][]internal.Record{
			"alpha": {{Codes: []internal.CodeEntry{{Value: "J1815", Type: internal.CodeHCPCS}}}},
			"beta":  {{Codes: []internal.CodeEntry{{Value: "99213", Type: internal.CodeCPT}}}},
		},
	}
	code := electPrimaryCode(g, order)
	if code == nil || code.Type != internal.CodeCPT {
		t.Fatalf("CPT must win over HCPCS, got %+v", code)
	}

	g.Members["beta"] = nil
	code = electPrimaryCode(g, order)
	if code == nil || code.Type != internal.CodeHCPCS {
		t.Fatalf("HCPCS is next preference, got %+v", code)
	}

	g.Members["alpha"] = []internal.Record{{Codes: []internal.CodeEntry{{Value: "X1", Type: internal.CodeLocal}}}}
	code = electPrimaryCode(g, order)
	if code == nil || code.Type != internal.CodeLocal {
		t.Fatalf("fallback is the first code of the first member, got %+v", code)
	}

	g.Members["alpha"] = nil
	if code = electPrimaryCode(g, order); code != nil {
		t.Fatalf("no codes anywhere must elect nil, got %+v", code)
	}
}

func TestRepresentativeDescriptionTieBreak(t *testing.T) {
	order := []string{"beta", "alpha"}
	g := internal.MatchGroup{
		Members: map[string][]internal.Record{
			"alpha": {{Description: "SAME LENGTH A"}},
			"beta":  {{Description: "SAME LENGTH B"}},
		},
	}
	// Equal lengths: the first source in the stable order wins.
	if got := representativeDescription(g, order); got != "SAME LENGTH B" {
		t.Fatalf("tie-break should pick beta's description, got %q", got)
	}
}
