package match

import (
	"thp/internal"
	"thp/internal/codes"
	"thp/internal/util"
)

// DescriptionSimilarity scores two descriptions in [0,1] after
// lowercasing and stripping punctuation. The score is the classic
// sequence-matcher ratio 2*LCS/(len(a)+len(b)), which is symmetric.
func DescriptionSimilarity(a, b string) float64 {
	na := util.NormalizeDescription(a)
	nb := util.NormalizeDescription(b)
	if na == nb {
		return 1
	}
	return ratioNormalized(na, nb)
}

// ratioNormalized is DescriptionSimilarity for strings that are already
// normalized, so the matcher can score pre-normalized pairs in bulk.
func ratioNormalized(na, nb string) float64 {
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}
	ra := []rune(na)
	rb := []rune(nb)
	return 2 * float64(lcsLength(ra, rb)) / float64(len(ra)+len(rb))
}

// lcsLength computes the longest-common-subsequence length with a
// two-row table, so memory stays linear in the shorter string.
func lcsLength(a, b []rune) int {
	if len(b) > len(a) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// CodeOverlap reports whether two code sets share any normalized key.
// Codes that fail normalization are ignored.
func CodeOverlap(a, b []internal.CodeEntry) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	keys := make(map[string]struct{}, len(a))
	for _, code := range a {
		if key, ok := codes.Normalize(code.Value, code.Type); ok {
			keys[key] = struct{}{}
		}
	}
	if len(keys) == 0 {
		return false
	}
	for _, code := range b {
		if key, ok := codes.Normalize(code.Value, code.Type); ok {
			if _, hit := keys[key]; hit {
				return true
			}
		}
	}
	return false
}

// DiceCoefficient is a cheap bigram similarity used to prefilter pairs
// before the quadratic LCS ratio.
func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	pairs := func(s string) []string {
		r := []rune(s)
		if len(r) < 2 {
			return nil
		}
		out := make([]string, 0, len(r)-1)
		for i := 0; i < len(r)-1; i++ {
			out = append(out, string(r[i:i+2]))
		}
		return out
	}

	aPairs := pairs(a)
	bPairs := pairs(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	bCount := map[string]int{}
	for _, p := range bPairs {
		bCount[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if bCount[p] > 0 {
			inter++
			bCount[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}
