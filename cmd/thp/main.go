package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"thp/internal"
	"thp/internal/config"
	"thp/internal/export"
	"thp/internal/fetch"
	"thp/internal/index"
	"thp/internal/ingest"
	"thp/internal/match"
	"thp/internal/storage"
)

// sourceFlags collects repeated -source NAME=PATH arguments.
type sourceFlags struct {
	names []string
	paths map[string]string
}

func (s *sourceFlags) String() string {
	return strings.Join(s.names, ",")
}

func (s *sourceFlags) Set(value string) error {
	name, path, ok := strings.Cut(value, "=")
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if !ok || name == "" || path == "" {
		return fmt.Errorf("expected NAME=PATH, got %q", value)
	}
	if s.paths == nil {
		s.paths = map[string]string{}
	}
	if _, dup := s.paths[name]; dup {
		return fmt.Errorf("duplicate source name %q", name)
	}
	s.names = append(s.names, name)
	s.paths[name] = path
	return nil
}

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "ingest":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sources := &sourceFlags{}
		fs.Var(sources, "source", "NAME=PATH, repeatable")
		_ = fs.Parse(os.Args[2:])
		if len(sources.names) == 0 {
			must(fmt.Errorf("at least one -source NAME=PATH is required"))
		}

		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		for _, name := range sources.names {
			path := sources.paths[name]
			col, result, err := ingest.LoadCollection(name, path)
			must(err)
			must(db.UpsertSource(name, filepath.Base(path), result))
			fmt.Printf("ingested %s: records=%d skipped=%d\n", name, result.Processed, result.Skipped)
			printStats(col.Stats())
		}
	case "search":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sources := &sourceFlags{}
		fs.Var(sources, "source", "NAME=PATH, repeatable")
		query := fs.String("q", "", "keyword query, all words must match")
		_ = fs.Parse(os.Args[2:])
		if len(sources.names) == 0 || strings.TrimSpace(*query) == "" {
			must(fmt.Errorf("-source and -q are required"))
		}

		corpus, _ := loadCorpus(sources)
		total := 0
		for _, name := range corpus.Sources() {
			col, _ := corpus.Get(name)
			for _, r := range col.SearchKeywords(*query) {
				printRecord(name, r)
				total++
			}
		}
		fmt.Printf("%d records match %q\n", total, *query)
	case "find-code":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sources := &sourceFlags{}
		fs.Var(sources, "source", "NAME=PATH, repeatable")
		code := fs.String("code", "", "code value, any formatting")
		codeType := fs.String("type", "", "code type (CPT, HCPCS, NDC, ...), optional")
		_ = fs.Parse(os.Args[2:])
		if len(sources.names) == 0 || strings.TrimSpace(*code) == "" {
			must(fmt.Errorf("-source and -code are required"))
		}

		parsedType := internal.ParseCodeType(*codeType)
		corpus, _ := loadCorpus(sources)
		total := 0
		for _, name := range corpus.Sources() {
			col, _ := corpus.Get(name)
			for _, r := range col.FindByCode(*code, parsedType) {
				printRecord(name, r)
				total++
			}
		}
		fmt.Printf("%d records carry code %s\n", total, *code)
	case "stats":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sources := &sourceFlags{}
		fs.Var(sources, "source", "NAME=PATH, repeatable")
		_ = fs.Parse(os.Args[2:])
		if len(sources.names) == 0 {
			must(fmt.Errorf("at least one -source NAME=PATH is required"))
		}

		corpus, _ := loadCorpus(sources)
		for _, name := range corpus.Sources() {
			col, _ := corpus.Get(name)
			printStats(col.Stats())
		}
	case "match":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sources := &sourceFlags{}
		fs.Var(sources, "source", "NAME=PATH, repeatable")
		out := fs.String("out", "", "optional XLSX output path")
		top := fs.Int("top", 10, "top spreads to print")
		_ = fs.Parse(os.Args[2:])
		if len(sources.names) < 2 {
			must(fmt.Errorf("match needs at least two -source NAME=PATH arguments"))
		}

		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		corpus, results := loadCorpus(sources)
		for _, name := range corpus.Sources() {
			result := results[name]
			must(db.UpsertSource(name, filepath.Base(sources.paths[name]), result))
			fmt.Printf("loaded %s: records=%d skipped=%d\n", name, result.Processed, result.Skipped)
		}

		matcher := match.New(match.Config{
			DescThreshold:  cfg.MatchDescThreshold,
			DedupThreshold: cfg.MatchDedupThreshold,
			FuzzyEnabled:   cfg.MatchFuzzyEnabled,
			MinSources:     cfg.MatchMinSources,
			Workers:        cfg.MatchWorkers,
		})
		groups, err := matcher.BuildGroups(context.Background(), corpus)
		must(err)

		snapshots := make([]storage.GroupSnapshot, 0, len(groups))
		rows := make([]internal.GroupExportRow, 0, len(groups))
		codeGroups := 0
		for _, g := range groups {
			summary := match.Summarize(g)
			snapshots = append(snapshots, storage.GroupSnapshot{Group: g, Summary: summary})
			rows = append(rows, exportRow(g, summary))
			if g.Reason == internal.ReasonCode {
				codeGroups++
			}
		}
		must(db.ReplaceSnapshot(snapshots))

		fmt.Printf("match complete: groups=%d code=%d fuzzy=%d sources=%d\n",
			len(groups), codeGroups, len(groups)-codeGroups, corpus.Len())
		printTopSpreads(rows, *top)

		if strings.TrimSpace(*out) != "" {
			must(export.GroupsToXLSX(rows, corpus.Sources(), *out))
			fmt.Printf("exported %d groups to %s\n", len(rows), *out)
		}
	case "export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output XLSX path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("-out is required"))
		}

		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		rows, err := db.ExportRows()
		must(err)
		sourceRows, err := db.ListSources()
		must(err)
		order := make([]string, 0, len(sourceRows))
		for _, s := range sourceRows {
			order = append(order, s.Name)
		}
		must(export.GroupsToXLSX(rows, order, *out))
		fmt.Printf("exported %d groups to %s\n", len(rows), *out)
	case "fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		pageURL := fs.String("url", "", "hospital price-transparency page URL")
		dir := fs.String("dir", cfg.DataDir, "download directory")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*pageURL) == "" {
			must(fmt.Errorf("-url is required"))
		}

		client := fetch.NewClient(cfg)
		ctx := context.Background()
		links, err := client.DiscoverLinks(ctx, *pageURL)
		must(err)
		if len(links) == 0 {
			fmt.Println("no standard-charges files found")
			return
		}
		for _, link := range links {
			dest, err := client.Download(ctx, link, *dir)
			must(err)
			fmt.Printf("downloaded %s\n", dest)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func loadCorpus(sources *sourceFlags) (*index.Corpus, map[string]internal.IngestResult) {
	corpus := index.NewCorpus()
	results := map[string]internal.IngestResult{}
	for _, name := range sources.names {
		col, result, err := ingest.LoadCollection(name, sources.paths[name])
		must(err)
		corpus.Attach(col)
		results[name] = result
	}
	return corpus, results
}

func exportRow(g internal.MatchGroup, summary internal.GroupSummary) internal.GroupExportRow {
	row := internal.GroupExportRow{
		Key:           g.Key,
		Description:   g.Description,
		Category:      g.Category,
		Reason:        string(g.Reason),
		Sources:       g.SourceCount(),
		MinPrice:      summary.MinPrice,
		MaxPrice:      summary.MaxPrice,
		Spread:        summary.Spread,
		SpreadPercent: summary.SpreadPercent,
		PerSourceBest: summary.PerSourceBest,
	}
	if g.PrimaryCode != nil {
		value := g.PrimaryCode.Value
		codeType := string(g.PrimaryCode.Type)
		row.CodeValue = &value
		row.CodeType = &codeType
	}
	return row
}

func printTopSpreads(rows []internal.GroupExportRow, top int) {
	if top <= 0 || len(rows) == 0 {
		return
	}
	sorted := make([]internal.GroupExportRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Spread > sorted[j].Spread })
	if top > len(sorted) {
		top = len(sorted)
	}
	fmt.Println("largest spreads:")
	for _, row := range sorted[:top] {
		fmt.Printf("  %-24s %-40.40s min=%.2f max=%.2f spread=%.2f (%.1f%%)\n",
			row.Key, row.Description, row.MinPrice, row.MaxPrice, row.Spread, row.SpreadPercent)
	}
}

func printRecord(source string, r internal.Record) {
	codes := make([]string, 0, len(r.Codes))
	for _, c := range r.Codes {
		codes = append(codes, fmt.Sprintf("%s:%s", c.Type, c.Value))
	}
	fmt.Printf("  [%s] %s codes=%s best=%.2f\n", source, r.Description, strings.Join(codes, ","), r.BestPrice())
}

func printStats(stats internal.SourceStats) {
	fmt.Printf("source %s: records=%d with_codes=%d distinct_codes=%d tokens=%d\n",
		stats.SourceID, stats.Records, stats.RecordsWithCodes, stats.DistinctCodes, stats.SearchableTokens)
	types := make([]internal.CodeType, 0, len(stats.CodeTypeCounts))
	for t := range stats.CodeTypeCounts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		fmt.Printf("  %-8s %d\n", t, stats.CodeTypeCounts[t])
	}
}

func usage() {
	fmt.Println("usage: thp <command>")
	fmt.Println("commands:")
	fmt.Println("  ingest    -source NAME=PATH [...]")
	fmt.Println("  search    -source NAME=PATH [...] -q \"insulin lispro\"")
	fmt.Println("  find-code -source NAME=PATH [...] -code 0002-8315-01 [-type NDC]")
	fmt.Println("  stats     -source NAME=PATH [...]")
	fmt.Println("  match     -source NAME=PATH -source NAME=PATH [...] [-out groups.xlsx] [-top 10]")
	fmt.Println("  export    -out groups.xlsx")
	fmt.Println("  fetch     -url https://hospital.example/price-transparency [-dir data/]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
