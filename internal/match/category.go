package match

import "strings"

// Coarse procedure categories. They bound the fuzzy pass: pairwise
// comparison happens only inside one category bucket, never across the
// whole corpus.
const CategoryOther = "Other"

var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{"Diabetes Care", []string{"insulin", "diabetic", "glucose"}},
	{"Antibiotics", []string{"antibiotic", "penicillin", "amoxicillin", "azithromycin"}},
	{"Cardiovascular", []string{"blood pressure", "hypertension", "metoprolol", "lisinopril"}},
	{"Imaging", []string{"mri", "ct scan", "x-ray", "ultrasound", "echo"}},
	{"Surgery", []string{"surgery", "surgical", "operation"}},
	{"Laboratory", []string{"lab", "test", "analysis", "panel"}},
	{"Vaccines", []string{"vaccine", "immunization", "flu shot"}},
	{"Pain Management", []string{"pain", "analgesic", "morphine", "oxycodone"}},
}

// Categorize assigns a description to its first matching category, or
// CategoryOther when no keyword hits.
func Categorize(description string) string {
	lower := strings.ToLower(description)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.name
			}
		}
	}
	return CategoryOther
}
