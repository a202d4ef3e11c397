package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/litscout/internal/search"
	"github.com/matsen/litscout/internal/source"
)

var (
	searchSources      string
	searchYearRange    []int
	searchMinCitations int
	searchMaxResults   int
	searchTag          string
)

func init() {
	searchCmd.Flags().StringVar(&searchSources, "sources", string(source.SemanticScholar), "Comma-separated sources: semantic_scholar, pubmed, openalex")
	searchCmd.Flags().IntSliceVar(&searchYearRange, "year-range", nil, "Publication years as FROM,TO (default from litscout.toml)")
	searchCmd.Flags().IntVar(&searchMinCitations, "min-citations", -1, "Minimum citation count (default from litscout.toml)")
	searchCmd.Flags().IntVar(&searchMaxResults, "max-results", 0, "Maximum results per source (default from litscout.toml)")
	searchCmd.Flags().StringVar(&searchTag, "tag", "", "Tag every new paper")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search literature sources and add new papers",
	Long: `Search one or more literature sources and append the papers not
already in papers.jsonl. A failing source is reported and skipped.

Examples:
  litscout search "CAR-T cell exhaustion"
  litscout search "menin inhibitor" --sources semantic_scholar,pubmed --year-range 2019,2025
  litscout search "clonal hematopoiesis" --min-citations 20 --tag seed`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadProject()
	log := newLogger()
	defer log.Sync()

	kinds, err := source.ParseKinds(searchSources)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	opts := search.Options{
		Query:         args[0],
		Sources:       kinds,
		MinCitations:  cfg.Search.Defaults.MinCitationCount,
		MaxResults:    cfg.Search.Defaults.MaxResultsPerQuery,
		FieldsOfStudy: cfg.Search.Defaults.FieldsOfStudy,
		Tag:           searchTag,
	}
	if from, to, ok := cfg.YearRange(); ok {
		opts.YearFrom, opts.YearTo = from, to
	}
	if cmd.Flags().Changed("year-range") {
		if len(searchYearRange) != 2 || searchYearRange[0] > searchYearRange[1] {
			exitWithError(ExitError, "--year-range needs FROM,TO with FROM <= TO")
		}
		opts.YearFrom, opts.YearTo = searchYearRange[0], searchYearRange[1]
	}
	if searchMinCitations >= 0 {
		opts.MinCitations = searchMinCitations
	}
	if searchMaxResults > 0 {
		opts.MaxResults = searchMaxResults
	}

	store, logs := openStore(cfg)
	runner := &search.Runner{
		Registry: source.FromConfig(cfg, log),
		Store:    store,
		Logs:     logs,
		Log:      log,
	}

	ctx, cancel := signalContext()
	defer cancel()
	res, err := runner.Run(ctx, opts)
	if err != nil {
		exitWithError(ExitError, "search failed: %v", err)
	}

	return output(res, func() {
		for _, s := range res.Sources {
			if s.Error != "" {
				outputHuman("%-17s failed: %s\n", s.Source, s.Error)
				continue
			}
			outputHuman("%-17s %d found\n", s.Source, s.Found)
		}
		fmt.Println()
		outputHuman("Total: %d, new: %d, duplicates skipped: %d\n",
			res.Log.TotalResults, res.Log.NewPapersAdded, res.Log.DuplicatesSkipped)
	})
}
