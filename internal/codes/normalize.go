// Package codes canonicalizes billing codes so the same item can be
// recognized across sources that format identifiers differently.
package codes

import (
	"strings"

	"thp/internal"
)

const ndcKeyLen = 11

// Normalize converts a (code, type) pair into a comparable key such as
// "NDC:00002831501" or "CPT:99213". The second return is false when the
// code cannot produce a usable key; callers must then skip code indexing
// for it rather than fail.
func Normalize(value string, t internal.CodeType) (string, bool) {
	cleaned := stripSeparators(value)
	if cleaned == "" {
		return "", false
	}

	switch t {
	case internal.CodeNDC:
		// The three legal NDC segment formats (4-4-2, 5-3-2, 5-4-1)
		// all collapse to the same 11-digit left-padded key.
		digits := digitsOnly(cleaned)
		if len(digits) < 9 || len(digits) > ndcKeyLen {
			return "", false
		}
		return Key(t, leftPadZero(digits, ndcKeyLen)), true

	case internal.CodeCPT, internal.CodeHCPCS:
		alnum := alphanumericOnly(cleaned)
		if len(alnum) < 3 {
			return "", false
		}
		return Key(t, alnum), true

	case internal.CodeDRG, internal.CodeMSDRG, internal.CodeAPRDRG, internal.CodeREV:
		digits := digitsOnly(cleaned)
		if len(digits) < 2 {
			return "", false
		}
		return Key(t, digits), true

	default:
		if len(cleaned) < 3 {
			return "", false
		}
		return Key(t, cleaned), true
	}
}

// Key builds the exact-lookup key for a raw, un-normalized code. It is
// also the final form of every normalized key.
func Key(t internal.CodeType, value string) string {
	return string(t) + ":" + value
}

func stripSeparators(value string) string {
	s := strings.ToUpper(strings.TrimSpace(value))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '-', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func alphanumericOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func leftPadZero(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
