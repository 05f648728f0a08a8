package internal

import "strings"

// CodeType names the coding scheme a billing code belongs to.
type CodeType string

const (
	CodeCPT    CodeType = "CPT"
	CodeHCPCS  CodeType = "HCPCS"
	CodeNDC    CodeType = "NDC"
	CodeDRG    CodeType = "DRG"
	CodeMSDRG  CodeType = "MS-DRG"
	CodeAPRDRG CodeType = "APR-DRG"
	CodeICD    CodeType = "ICD"
	CodeREV    CodeType = "REV"
	CodeCDM    CodeType = "CDM"
	CodeLocal  CodeType = "LOCAL"
)

// ParseCodeType canonicalizes a raw type tag from a source file. Unknown
// schemes are kept as-is so they can still participate in exact-key matching.
func ParseCodeType(raw string) CodeType {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch s {
	case "RC", "REVENUE", "REVENUE CODE", "REVENUE_CODE":
		return CodeREV
	case "ICD10", "ICD-10", "ICD9", "ICD-9", "ICD-10-CM", "ICD-10-PCS":
		return CodeICD
	}
	return CodeType(s)
}

type CodeEntry struct {
	Value string
	Type  CodeType
}

type PriceEntry struct {
	Amount  float64
	Setting string
	IsCash  bool
}

// Record is one priced line-item from one source. Records are immutable
// once added to a collection.
type Record struct {
	SourceID    string
	Description string
	Codes       []CodeEntry
	Prices      []PriceEntry
}

// BestPrice returns the minimum strictly-positive amount, or 0 when the
// record has no usable price.
func (r Record) BestPrice() float64 {
	best := 0.0
	for _, p := range r.Prices {
		if p.Amount <= 0 {
			continue
		}
		if best == 0 || p.Amount < best {
			best = p.Amount
		}
	}
	return best
}

type MatchReason string

const (
	ReasonCode  MatchReason = "CODE"
	ReasonFuzzy MatchReason = "FUZZY"
)

// MatchGroup is a set of records from at least two sources believed to
// represent the same real-world item.
type MatchGroup struct {
	Key         string
	Reason      MatchReason
	Description string
	Category    string
	PrimaryCode *CodeEntry
	Members     map[string][]Record
}

// SourceCount reports how many distinct sources contribute members.
func (g MatchGroup) SourceCount() int {
	return len(g.Members)
}

// GroupSummary is the price-spread view of one group. Derived, read-only.
type GroupSummary struct {
	MinPrice      float64
	MaxPrice      float64
	Spread        float64
	SpreadPercent float64
	PerSourceBest map[string]float64
}

// SourceStats describes one built collection.
type SourceStats struct {
	SourceID         string
	Records          int
	RecordsWithCodes int
	DistinctCodes    int
	CodeTypeCounts   map[CodeType]int
	SearchableTokens int
}

// IngestResult counts the outcome of loading one source file.
type IngestResult struct {
	Processed int
	Skipped   int
}

type GroupExportRow struct {
	Key           string
	Description   string
	Category      string
	Reason        string
	CodeValue     *string
	CodeType      *string
	Sources       int
	MinPrice      float64
	MaxPrice      float64
	Spread        float64
	SpreadPercent float64
	PerSourceBest map[string]float64
}
