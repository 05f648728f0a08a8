package match

import "thp/internal"

// Summarize computes the price-spread view of one group: the best
// (lowest positive) price per source, the min/max of those across
// sources, and the spread relative to the minimum. Sources with no
// positive price are omitted from PerSourceBest, and a group where no
// source has a price summarizes to all zeros rather than NaN. The
// computation is pure, so calling it twice yields identical output.
func Summarize(g internal.MatchGroup) internal.GroupSummary {
	perSource := make(map[string]float64, len(g.Members))
	for sourceID, records := range g.Members {
		best := 0.0
		for _, r := range records {
			price := r.BestPrice()
			if price <= 0 {
				continue
			}
			if best == 0 || price < best {
				best = price
			}
		}
		if best > 0 {
			perSource[sourceID] = best
		}
	}

	summary := internal.GroupSummary{PerSourceBest: perSource}
	for _, price := range perSource {
		if summary.MinPrice == 0 || price < summary.MinPrice {
			summary.MinPrice = price
		}
		if price > summary.MaxPrice {
			summary.MaxPrice = price
		}
	}
	summary.Spread = summary.MaxPrice - summary.MinPrice
	if summary.MinPrice > 0 {
		summary.SpreadPercent = 100 * summary.Spread / summary.MinPrice
	}
	return summary
}

// representativeDescription picks the longest member description. Ties
// keep the record seen first walking sources in corpus order.
func representativeDescription(g internal.MatchGroup, order []string) string {
	best := ""
	for _, sourceID := range order {
		for _, r := range g.Members[sourceID] {
			if len(r.Description) > len(best) {
				best = r.Description
			}
		}
	}
	return best
}

// electPrimaryCode picks the code reported for a group: CPT first, then
// HCPCS, then the first code of the first member in corpus order.
func electPrimaryCode(g internal.MatchGroup, order []string) *internal.CodeEntry {
	for _, want := range []internal.CodeType{internal.CodeCPT, internal.CodeHCPCS} {
		for _, sourceID := range order {
			for _, r := range g.Members[sourceID] {
				for _, code := range r.Codes {
					if code.Type == want {
						c := code
						return &c
					}
				}
			}
		}
	}
	for _, sourceID := range order {
		for _, r := range g.Members[sourceID] {
			if len(r.Codes) > 0 {
				c := r.Codes[0]
				return &c
			}
		}
	}
	return nil
}
