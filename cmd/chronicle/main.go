// Command chronicle drives the United States Code version-control
// pipeline: advancing the derived revision graph, validating checkpoints,
// and reading section state, via subcommands dispatched on os.Args[1].
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/uscchron/chronicle/internal/build"
	"github.com/uscchron/chronicle/internal/checkpoint"
	"github.com/uscchron/chronicle/internal/config"
	"github.com/uscchron/chronicle/internal/diff"
	"github.com/uscchron/chronicle/internal/fetch"
	"github.com/uscchron/chronicle/internal/ingest"
	"github.com/uscchron/chronicle/internal/lawchanges"
	"github.com/uscchron/chronicle/internal/logging"
	"github.com/uscchron/chronicle/internal/model"
	"github.com/uscchron/chronicle/internal/playforward"
	"github.com/uscchron/chronicle/internal/registry"
	"github.com/uscchron/chronicle/internal/revision"
	"github.com/uscchron/chronicle/internal/store/postgres"
	"github.com/uscchron/chronicle/internal/workers"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	subcommand := os.Args[1]
	args := os.Args[2:]

	var (
		configFile = flag.String("config", "", "Configuration file path")
		logLevel   = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
		jsonOutput = flag.Bool("json", false, "Output results as JSON")
	)
	flag.CommandLine.Parse(args)

	cfg, err := config.Load(*configFile)
	if err != nil {
		fatal(*jsonOutput, err)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	level, err := logging.ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		fatal(*jsonOutput, err)
	}
	format := logging.TextFormat
	if cfg.Logging.Format == "json" {
		format = logging.JSONFormat
	}
	logger := logging.New(&logging.Config{Level: level, Format: format, Output: os.Stderr, Component: "chronicle"})

	ctx := context.Background()

	switch subcommand {
	case "advance":
		runAdvance(ctx, cfg, logger, *jsonOutput, args)
	case "validate":
		runValidate(ctx, cfg, logger, *jsonOutput, args)
	case "section":
		runSection(ctx, cfg, logger, *jsonOutput, args)
	case "history":
		runHistory(ctx, cfg, logger, *jsonOutput, args)
	case "diff":
		runDiff(ctx, cfg, logger, *jsonOutput, args)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: chronicle <advance|validate|section|history|diff> [flags]")
}

func fatal(jsonOutput bool, err error) {
	if jsonOutput {
		json.NewEncoder(os.Stdout).Encode(map[string]string{"error": err.Error()})
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

// wiring bundles the components every subcommand needs.
type wiring struct {
	db         *postgres.Database
	store      *postgres.Store
	graph      *revision.Graph
	builder    *build.Builder
	ingestor   *ingest.Ingestor
	checker    *checkpoint.Validator
	lawFetcher fetch.LawFetcher
}

func connect(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*wiring, func(), error) {
	db, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	store := postgres.NewStore(db)
	graph := revision.New(db, store)
	b := build.New(store, graph, logger)

	cache, err := fetch.NewLocalCache(cfg.Fetch.CacheDir, nil, logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("open local cache: %w", err)
	}
	titleFetcher := fetch.NewHTTPTitleFetcher("https://uscode.house.gov", cfg.Fetch.RequestTimeout, cache)
	lawFetcher := fetch.NewHTTPLawFetcher("https://www.govinfo.gov", cfg.Fetch.RequestTimeout, cache)
	pool := workers.New(cfg.Ingest.TitleFetchConcurrency)
	ingestor := ingest.New(titleFetcher, store, graph, pool, logger)
	checker := checkpoint.New(store, cfg.Ingest.MaxFailuresReported, logger)

	cleanup := func() {
		cache.Close()
		db.Close()
	}

	return &wiring{
		db: db, store: store, graph: graph, builder: b, ingestor: ingestor,
		checker: checker, lawFetcher: lawFetcher,
	}, cleanup, nil
}

func runAdvance(ctx context.Context, cfg *config.Config, logger *logging.Logger, jsonOutput bool, args []string) {
	fs := flag.NewFlagSet("advance", flag.ExitOnError)
	count := fs.Int("count", 1, "Number of events to advance")
	untilTag := fs.String("until-tag", "", "Advance through this release-point tag inclusive")
	fs.Parse(args)

	w, cleanup, err := connect(ctx, cfg, logger)
	if err != nil {
		fatal(jsonOutput, err)
	}
	defer cleanup()

	changes := lawchanges.New(w.lawFetcher)

	reg, err := registry.Load(fetch.NewHTTPReleasePointSource("https://uscode.house.gov/download/releasepoints.json", cfg.Fetch.RequestTimeout))
	if err != nil {
		fatal(jsonOutput, err)
	}
	laws := fetch.NewHTTPEnactedLawSource("https://www.govinfo.gov/bulkdata/PLAW/index.json", cfg.Fetch.RequestTimeout)

	titles := make([]int, 54)
	for i := range titles {
		titles[i] = i + 1
	}

	engine := playforward.New(w.graph, reg, changes, laws, w.builder, w.ingestor, w.checker, titles, logger)
	result, err := engine.Advance(ctx, playforward.Options{Count: *count, UntilTag: *untilTag})
	if err != nil {
		fatal(jsonOutput, err)
	}

	printResult(jsonOutput, result)
}

func runValidate(ctx context.Context, cfg *config.Config, logger *logging.Logger, jsonOutput bool, args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	tag := fs.String("tag", "", "Release-point tag to validate")
	fs.Parse(args)

	if *tag == "" {
		fatal(jsonOutput, fmt.Errorf("validate requires -tag"))
	}

	w, cleanup, err := connect(ctx, cfg, logger)
	if err != nil {
		fatal(jsonOutput, err)
	}
	defer cleanup()

	groundTruth, err := w.graph.ByReleasePoint(ctx, *tag)
	if err != nil {
		fatal(jsonOutput, err)
	}
	derived, err := w.graph.LatestDerivedBefore(ctx, groundTruth.RevisionID)
	if err != nil {
		fatal(jsonOutput, err)
	}

	result, err := w.checker.Validate(ctx, groundTruth.RevisionID, derived.RevisionID)
	if err != nil {
		fatal(jsonOutput, err)
	}

	printResult(jsonOutput, result)
}

func runSection(ctx context.Context, cfg *config.Config, logger *logging.Logger, jsonOutput bool, args []string) {
	fs := flag.NewFlagSet("section", flag.ExitOnError)
	title := fs.Int("title", 0, "Title number")
	section := fs.String("section", "", "Section number")
	revisionID := fs.String("revision", "", "Revision ID (defaults to head)")
	fs.Parse(args)

	w, cleanup, err := connect(ctx, cfg, logger)
	if err != nil {
		fatal(jsonOutput, err)
	}
	defer cleanup()

	rev := *revisionID
	if rev == "" {
		head, err := w.store.Head(ctx)
		if err != nil {
			fatal(jsonOutput, err)
		}
		rev = head.RevisionID
	}

	snap, err := w.store.GetSectionAt(ctx, rev, model.SectionKey{TitleNumber: *title, SectionNumber: *section})
	if err != nil {
		fatal(jsonOutput, err)
	}

	printResult(jsonOutput, snap)
}

func runHistory(ctx context.Context, cfg *config.Config, logger *logging.Logger, jsonOutput bool, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	title := fs.Int("title", 0, "Title number")
	section := fs.String("section", "", "Section number")
	fs.Parse(args)

	w, cleanup, err := connect(ctx, cfg, logger)
	if err != nil {
		fatal(jsonOutput, err)
	}
	defer cleanup()

	snaps, err := w.store.SectionHistory(ctx, model.SectionKey{TitleNumber: *title, SectionNumber: *section})
	if err != nil {
		fatal(jsonOutput, err)
	}

	printResult(jsonOutput, snaps)
}

func runDiff(ctx context.Context, cfg *config.Config, logger *logging.Logger, jsonOutput bool, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	revisionA := fs.String("a", "", "First revision ID")
	revisionB := fs.String("b", "", "Second revision ID")
	fs.Parse(args)

	if *revisionA == "" || *revisionB == "" {
		fatal(jsonOutput, fmt.Errorf("diff requires -a and -b"))
	}

	w, cleanup, err := connect(ctx, cfg, logger)
	if err != nil {
		fatal(jsonOutput, err)
	}
	defer cleanup()

	sectionDiffs, err := diff.Diff(ctx, w.store, *revisionA, *revisionB)
	if err != nil {
		fatal(jsonOutput, err)
	}

	printResult(jsonOutput, sectionDiffs)
}

func printResult(jsonOutput bool, v interface{}) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(v)
		return
	}
	fmt.Fprintf(os.Stdout, "%+v\n", v)
}
