// Package index holds the per-source record collections and their lookup
// structures. A collection is write-once: it is filled during ingestion,
// then treated as read-only by searches and by the matcher.
package index

import (
	"errors"
	"sort"
	"strings"

	"thp/internal"
	"thp/internal/codes"
	"thp/internal/util"
)

// Records shorter than this never enter the token index.
const minTokenLen = 3

var (
	ErrEmptyDescription = errors.New("record has no description")
	ErrNoPositivePrice  = errors.New("record has no positive price")
)

// Collection owns the records of one source plus three derived indexes:
// code key to positions, lowercased description to positions, and token to
// position set. The record sequence is authoritative; the indexes are
// rebuilt from it and never the other way round.
type Collection struct {
	sourceID string
	records  []internal.Record

	codeIndex  map[string][]int
	valueIndex map[string][]int
	descIndex  map[string][]int
	tokenIndex map[string]map[int]struct{}

	normalizedKeys map[string]struct{}

	codeTypeCounts map[internal.CodeType]int
	codesByType    map[internal.CodeType]map[string]struct{}
}

func NewCollection(sourceID string) *Collection {
	return &Collection{
		sourceID:       sourceID,
		codeIndex:      map[string][]int{},
		valueIndex:     map[string][]int{},
		descIndex:      map[string][]int{},
		tokenIndex:     map[string]map[int]struct{}{},
		normalizedKeys: map[string]struct{}{},
		codeTypeCounts: map[internal.CodeType]int{},
		codesByType:    map[internal.CodeType]map[string]struct{}{},
	}
}

func (c *Collection) SourceID() string { return c.sourceID }

func (c *Collection) Len() int { return len(c.records) }

// Record returns the record at a stable position previously returned by Add.
func (c *Collection) Record(pos int) internal.Record { return c.records[pos] }

// Records returns the authoritative record sequence. Callers must not
// mutate it.
func (c *Collection) Records() []internal.Record { return c.records }

// Add validates and appends a record, indexing its codes and description
// tokens. Malformed records are rejected with ErrEmptyDescription or
// ErrNoPositivePrice so ingestion can count skips and keep going.
func (c *Collection) Add(r internal.Record) (int, error) {
	if strings.TrimSpace(r.Description) == "" {
		return 0, ErrEmptyDescription
	}
	if r.BestPrice() <= 0 {
		return 0, ErrNoPositivePrice
	}

	r.SourceID = c.sourceID
	pos := len(c.records)
	c.records = append(c.records, r)

	// One posting per distinct key per record, but code-type counts are
	// per code occurrence, matching how source files repeat types.
	seenKeys := map[string]struct{}{}
	seenValues := map[string]struct{}{}
	for _, code := range r.Codes {
		c.codeTypeCounts[code.Type]++

		rawValue := strings.ToUpper(strings.TrimSpace(code.Value))
		if rawValue == "" {
			continue
		}
		if c.codesByType[code.Type] == nil {
			c.codesByType[code.Type] = map[string]struct{}{}
		}
		c.codesByType[code.Type][rawValue] = struct{}{}

		rawKey := codes.Key(code.Type, rawValue)
		if _, ok := seenKeys[rawKey]; !ok {
			seenKeys[rawKey] = struct{}{}
			c.codeIndex[rawKey] = append(c.codeIndex[rawKey], pos)
		}
		if normKey, ok := codes.Normalize(code.Value, code.Type); ok {
			c.normalizedKeys[normKey] = struct{}{}
			if _, dup := seenKeys[normKey]; !dup {
				seenKeys[normKey] = struct{}{}
				c.codeIndex[normKey] = append(c.codeIndex[normKey], pos)
			}
		}
		if _, ok := seenValues[rawValue]; !ok {
			seenValues[rawValue] = struct{}{}
			c.valueIndex[rawValue] = append(c.valueIndex[rawValue], pos)
		}
	}

	lowerDesc := strings.ToLower(strings.TrimSpace(r.Description))
	c.descIndex[lowerDesc] = append(c.descIndex[lowerDesc], pos)

	for _, token := range util.Tokenize(r.Description) {
		if len(token) < minTokenLen {
			continue
		}
		if c.tokenIndex[token] == nil {
			c.tokenIndex[token] = map[int]struct{}{}
		}
		c.tokenIndex[token][pos] = struct{}{}
	}

	return pos, nil
}

// FindByCode looks a code up by its exact "{TYPE}:{value}" key, falling
// back to the normalized key so separator variants still resolve. An empty
// codeType searches the flat value index instead. A miss is an empty
// slice, never an error.
func (c *Collection) FindByCode(value string, codeType internal.CodeType) []internal.Record {
	cleaned := strings.ToUpper(strings.TrimSpace(value))
	if cleaned == "" {
		return nil
	}

	if codeType == "" {
		return c.recordsAt(c.valueIndex[cleaned])
	}

	positions := c.codeIndex[codes.Key(codeType, cleaned)]
	if len(positions) == 0 {
		if normKey, ok := codes.Normalize(value, codeType); ok {
			positions = c.codeIndex[normKey]
		}
	}
	return c.recordsAt(positions)
}

// FindByNormalizedKey resolves an already-normalized code key. Used by the
// cross-source matcher, which iterates keys rather than raw codes.
func (c *Collection) FindByNormalizedKey(key string) []internal.Record {
	return c.recordsAt(c.codeIndex[key])
}

// PositionsByKey exposes the raw postings for a code key.
func (c *Collection) PositionsByKey(key string) []int {
	return c.codeIndex[key]
}

// CodeKeys returns every code key present in the index, normalized and raw.
func (c *Collection) CodeKeys() []string {
	out := make([]string, 0, len(c.codeIndex))
	for key := range c.codeIndex {
		out = append(out, key)
	}
	return out
}

// NormalizedCodeKeys returns only the keys produced by code
// normalization. The cross-source code pass iterates these so that raw
// formatting variants of one code cannot spawn duplicate groups.
func (c *Collection) NormalizedCodeKeys() []string {
	out := make([]string, 0, len(c.normalizedKeys))
	for key := range c.normalizedKeys {
		out = append(out, key)
	}
	return out
}

// FindByDescription returns the records whose full description equals the
// given one, case-insensitively.
func (c *Collection) FindByDescription(description string) []internal.Record {
	return c.recordsAt(c.descIndex[strings.ToLower(strings.TrimSpace(description))])
}

// SearchKeywords returns the records whose description contains every
// word of the query. Words shorter than the indexed minimum match no
// postings, so any such word empties the result. Result order is
// unspecified.
func (c *Collection) SearchKeywords(query string) []internal.Record {
	tokens := util.Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	var matched map[int]struct{}
	for _, token := range tokens {
		if len(token) < minTokenLen {
			return nil
		}
		postings := c.tokenIndex[token]
		if len(postings) == 0 {
			return nil
		}
		if matched == nil {
			matched = make(map[int]struct{}, len(postings))
			for pos := range postings {
				matched[pos] = struct{}{}
			}
			continue
		}
		for pos := range matched {
			if _, ok := postings[pos]; !ok {
				delete(matched, pos)
			}
		}
		if len(matched) == 0 {
			return nil
		}
	}

	out := make([]internal.Record, 0, len(matched))
	for pos := range matched {
		out = append(out, c.records[pos])
	}
	return out
}

// CountByCodeType reports how many code occurrences of a type were added.
// Multiple codes of one type on a single record count multiple times.
func (c *Collection) CountByCodeType(t internal.CodeType) int {
	return c.codeTypeCounts[t]
}

// AllCodesOfType lists the distinct raw code values of a type, sorted.
func (c *Collection) AllCodesOfType(t internal.CodeType) []string {
	values := c.codesByType[t]
	out := make([]string, 0, len(values))
	for v := range values {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (c *Collection) Stats() internal.SourceStats {
	withCodes := 0
	for _, r := range c.records {
		if len(r.Codes) > 0 {
			withCodes++
		}
	}
	counts := make(map[internal.CodeType]int, len(c.codeTypeCounts))
	for t, n := range c.codeTypeCounts {
		counts[t] = n
	}
	return internal.SourceStats{
		SourceID:         c.sourceID,
		Records:          len(c.records),
		RecordsWithCodes: withCodes,
		DistinctCodes:    len(c.codeIndex),
		CodeTypeCounts:   counts,
		SearchableTokens: len(c.tokenIndex),
	}
}

func (c *Collection) recordsAt(positions []int) []internal.Record {
	if len(positions) == 0 {
		return nil
	}
	out := make([]internal.Record, 0, len(positions))
	for _, pos := range positions {
		out = append(out, c.records[pos])
	}
	return out
}
