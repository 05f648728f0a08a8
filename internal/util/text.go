package util

import (
	"regexp"
	"strings"
)

var (
	rePunct  = regexp.MustCompile(`[^a-z0-9\s]`)
	reSpaces = regexp.MustCompile(`\s+`)
)

// NormalizeDescription lowercases a description and strips punctuation so
// that wording variants like "INSULIN GLARGINE 100 UNIT/ML" and
// "Insulin Glargine, 100 units/mL" compare on their words alone.
func NormalizeDescription(input string) string {
	s := strings.ToLower(input)
	s = rePunct.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokenize splits a description into its lowercase word tokens, keeping
// every word regardless of length. Callers decide the minimum length.
func Tokenize(input string) []string {
	norm := NormalizeDescription(input)
	if norm == "" {
		return nil
	}
	return strings.Split(norm, " ")
}
