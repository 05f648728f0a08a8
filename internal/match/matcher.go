// Package match links records across sources. The matcher runs two
// passes: an exact pass over normalized code keys, then a fuzzy pass that
// groups the remaining records by description similarity inside category
// buckets. Groups spanning fewer than the minimum number of sources are
// discarded.
package match

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"thp/internal"
	"thp/internal/index"
	"thp/internal/util"
)

// Pairs whose bigram similarity falls below this cannot reach the
// description threshold in practice, so the quadratic ratio is skipped.
const diceFloor = 0.4

type Config struct {
	// DescThreshold is the pairwise similarity required to pull a record
	// into a fuzzy group. DedupThreshold is the higher bar at which a new
	// seed counts as a rewording of one already processed.
	DescThreshold  float64
	DedupThreshold float64
	FuzzyEnabled   bool
	MinSources     int
	Workers        int
}

func DefaultConfig() Config {
	return Config{
		DescThreshold:  0.8,
		DedupThreshold: 0.9,
		FuzzyEnabled:   true,
		MinSources:     2,
		Workers:        4,
	}
}

type Matcher struct {
	cfg Config
}

func New(cfg Config) *Matcher {
	if cfg.DescThreshold <= 0 || cfg.DescThreshold > 1 {
		cfg.DescThreshold = 0.8
	}
	if cfg.DedupThreshold < cfg.DescThreshold || cfg.DedupThreshold > 1 {
		cfg.DedupThreshold = 0.9
	}
	if cfg.MinSources < 2 {
		cfg.MinSources = 2
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Matcher{cfg: cfg}
}

// BuildGroups links the corpus and returns its match groups. Fewer than
// two sources is a normal steady state and yields no groups. The context
// is checked between fuzzy buckets, so callers bound latency by bucket
// count rather than record count.
func (m *Matcher) BuildGroups(ctx context.Context, corpus *index.Corpus) ([]internal.MatchGroup, error) {
	if corpus == nil || corpus.Len() < 2 {
		return nil, nil
	}

	order := corpus.Sources()
	groups, matched := m.codePass(corpus, order)

	if m.cfg.FuzzyEnabled {
		fuzzy, err := m.fuzzyPass(ctx, corpus, order, matched)
		if err != nil {
			return nil, err
		}
		groups = append(groups, fuzzy...)
	}

	for i := range groups {
		groups[i].Description = representativeDescription(groups[i], order)
		groups[i].Category = Categorize(groups[i].Description)
		groups[i].PrimaryCode = electPrimaryCode(groups[i], order)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Reason != groups[j].Reason {
			return groups[i].Reason == internal.ReasonCode
		}
		return groups[i].Key < groups[j].Key
	})
	return groups, nil
}

// codePass groups records that share a normalized code key across
// sources. A record carrying several matching codes joins one group per
// code; that is accepted, not deduplicated. The returned position sets
// mark which records found a code group, per source.
func (m *Matcher) codePass(corpus *index.Corpus, order []string) ([]internal.MatchGroup, map[string]map[int]struct{}) {
	keySet := map[string]struct{}{}
	for _, sourceID := range order {
		col, _ := corpus.Get(sourceID)
		for _, key := range col.NormalizedCodeKeys() {
			keySet[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	matched := make(map[string]map[int]struct{}, len(order))
	for _, sourceID := range order {
		matched[sourceID] = map[int]struct{}{}
	}

	var groups []internal.MatchGroup
	for _, key := range keys {
		members := map[string][]internal.Record{}
		positions := map[string][]int{}
		for _, sourceID := range order {
			col, _ := corpus.Get(sourceID)
			hits := col.PositionsByKey(key)
			if len(hits) == 0 {
				continue
			}
			positions[sourceID] = hits
			for _, pos := range hits {
				members[sourceID] = append(members[sourceID], col.Record(pos))
			}
		}
		if len(members) < m.cfg.MinSources {
			continue
		}
		for sourceID, hits := range positions {
			for _, pos := range hits {
				matched[sourceID][pos] = struct{}{}
			}
		}
		groups = append(groups, internal.MatchGroup{
			Key:     key,
			Reason:  internal.ReasonCode,
			Members: members,
		})
	}
	return groups, matched
}

type fuzzyItem struct {
	sourceID string
	pos      int
	record   internal.Record
	norm     string
}

// fuzzyPass groups the records the code pass left unmatched, comparing
// descriptions only inside one category bucket at a time. Buckets are
// independent and run on a fixed worker pool.
func (m *Matcher) fuzzyPass(ctx context.Context, corpus *index.Corpus, order []string, matched map[string]map[int]struct{}) ([]internal.MatchGroup, error) {
	buckets := map[string][]fuzzyItem{}
	for _, sourceID := range order {
		col, _ := corpus.Get(sourceID)
		for pos := 0; pos < col.Len(); pos++ {
			if _, ok := matched[sourceID][pos]; ok {
				continue
			}
			r := col.Record(pos)
			cat := Categorize(r.Description)
			buckets[cat] = append(buckets[cat], fuzzyItem{
				sourceID: sourceID,
				pos:      pos,
				record:   r,
				norm:     util.NormalizeDescription(r.Description),
			})
		}
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		if distinctSources(buckets[name]) >= m.cfg.MinSources {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	jobs := make(chan string)
	results := make(map[string][]internal.MatchGroup, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := m.cfg.Workers
	if workers > len(names) && len(names) > 0 {
		workers = len(names)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				if ctx.Err() != nil {
					continue
				}
				found := m.matchBucket(buckets[name])
				if len(found) > 0 {
					mu.Lock()
					results[name] = found
					mu.Unlock()
				}
			}
		}()
	}

feed:
	for _, name := range names {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- name:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fuzzy pass canceled: %w", err)
	}

	var out []internal.MatchGroup
	for _, name := range names {
		out = append(out, results[name]...)
	}
	return out, nil
}

// matchBucket runs the seed loop over one bucket. Each ungrouped record
// seeds a candidate group; records from other sources join on similarity
// or normalized code overlap. A seed too close to one already used is
// skipped so minor rewordings do not spawn near-duplicate groups.
func (m *Matcher) matchBucket(items []fuzzyItem) []internal.MatchGroup {
	used := make([]bool, len(items))
	var seeds []string
	var groups []internal.MatchGroup

	for i := range items {
		if used[i] {
			continue
		}
		seed := items[i]
		if m.nearUsedSeed(seeds, seed.norm) {
			continue
		}

		memberIdx := []int{i}
		sources := map[string]struct{}{seed.sourceID: {}}
		for j := range items {
			if j == i || used[j] || items[j].sourceID == seed.sourceID {
				continue
			}
			if m.pairMatches(seed, items[j]) {
				memberIdx = append(memberIdx, j)
				sources[items[j].sourceID] = struct{}{}
			}
		}
		if len(sources) < m.cfg.MinSources {
			continue
		}

		members := map[string][]internal.Record{}
		for _, idx := range memberIdx {
			used[idx] = true
			members[items[idx].sourceID] = append(members[items[idx].sourceID], items[idx].record)
		}
		seeds = append(seeds, seed.norm)
		groups = append(groups, internal.MatchGroup{
			Key:     descKey(seed.norm),
			Reason:  internal.ReasonFuzzy,
			Members: members,
		})
	}
	return groups
}

func (m *Matcher) pairMatches(a, b fuzzyItem) bool {
	if CodeOverlap(a.record.Codes, b.record.Codes) {
		return true
	}
	if DiceCoefficient(a.norm, b.norm) < diceFloor {
		return false
	}
	return ratioNormalized(a.norm, b.norm) >= m.cfg.DescThreshold
}

func (m *Matcher) nearUsedSeed(seeds []string, norm string) bool {
	for _, s := range seeds {
		if ratioNormalized(s, norm) > m.cfg.DedupThreshold {
			return true
		}
	}
	return false
}

func distinctSources(items []fuzzyItem) int {
	sources := map[string]struct{}{}
	for _, item := range items {
		sources[item.sourceID] = struct{}{}
	}
	return len(sources)
}

// descKey derives the stable synthetic key of a fuzzy group from its
// seed description.
func descKey(norm string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(norm))
	return fmt.Sprintf("DESC:%08x", h.Sum32())
}
