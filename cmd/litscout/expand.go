package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/litscout/internal/expand"
	"github.com/matsen/litscout/internal/source"
)

var (
	expandSeedTag       string
	expandSeedDOIs      []string
	expandStrategy      string
	expandDepth         int
	expandMinCitations  int
	expandMaxCandidates int
	expandSource        string
	expandDryRun        bool
)

func init() {
	expandCmd.Flags().StringVar(&expandSeedTag, "seed-tag", expand.DefaultSeedTag, "Use papers with this tag as seeds")
	expandCmd.Flags().StringSliceVar(&expandSeedDOIs, "seed-doi", nil, "Seed DOIs (overrides --seed-tag, repeatable)")
	expandCmd.Flags().StringVar(&expandStrategy, "strategy", string(expand.Both), "forward, backward, both, recommend or all")
	expandCmd.Flags().IntVar(&expandDepth, "depth", 1, "Number of expansion rounds")
	expandCmd.Flags().IntVar(&expandMinCitations, "min-citations", 0, "Drop candidates with fewer citations")
	expandCmd.Flags().IntVar(&expandMaxCandidates, "max-candidates", expand.DefaultMaxCandidates, "Keep at most this many candidates per round")
	expandCmd.Flags().StringVar(&expandSource, "source", string(source.SemanticScholar), "Citation source: semantic_scholar or openalex")
	expandCmd.Flags().BoolVar(&expandDryRun, "dry-run", false, "Score candidates without writing anything")
	rootCmd.AddCommand(expandCmd)
}

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Expand the corpus through citations of seed papers",
	Long: `Walk the citation graph from seed papers, score every candidate by
connections, citations and recency, and add the best to papers.jsonl.

Examples:
  litscout expand
  litscout expand --strategy all --depth 2 --min-citations 5
  litscout expand --seed-doi 10.1056/NEJMoa1709866 --dry-run`,
	Args: cobra.NoArgs,
	RunE: runExpand,
}

func runExpand(cmd *cobra.Command, args []string) error {
	cfg := mustLoadProject()
	log := newLogger()
	defer log.Sync()

	strategy, err := expand.ParseStrategy(expandStrategy)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	kind, err := source.ParseKind(expandSource)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	store, logs := openStore(cfg)
	engine, err := expand.NewEngine(source.FromConfig(cfg, log), kind, strategy, store, logs, log)
	if err != nil {
		if errors.Is(err, source.ErrUnsupported) {
			exitWithError(ExitError, "%s cannot serve strategy %s", kind, strategy)
		}
		exitWithError(ExitError, "%v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	sum, err := engine.Run(ctx, expand.Options{
		SeedTag:       expandSeedTag,
		SeedDOIs:      expandSeedDOIs,
		Strategy:      strategy,
		Depth:         expandDepth,
		MinCitations:  expandMinCitations,
		MaxCandidates: expandMaxCandidates,
		DryRun:        expandDryRun,
	})
	if err != nil {
		exitWithError(ExitError, "expansion failed: %v", err)
	}

	return output(sum, func() {
		if expandDryRun {
			fmt.Println("Dry run: nothing written")
		}
		outputHuman("Seeds: %d, strategy: %s\n", sum.SeedCount, sum.Strategy)
		for _, d := range sum.Depths {
			outputHuman("  depth %d: %d seeds, %d found, %d kept, %d new\n",
				d.Depth, d.SeedCount, d.CandidatesFound, d.CandidatesKept, d.NewPapersAdded)
		}
		outputHuman("Candidates: %d, new papers: %d\n", sum.CandidatesFound, sum.NewPapersAdded)
	})
}
