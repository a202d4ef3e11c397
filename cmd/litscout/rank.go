package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/litscout/internal/apiclient"
	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/rank"
)

var (
	rankFilterTag    string
	rankFilterMethod string
	rankTop          int
	rankTag          string
	rankPrompt       string
	rankWeight       float64
)

func init() {
	rankCmd.Flags().StringVar(&rankFilterTag, "filter-tag", "", "Only rank papers with this tag")
	rankCmd.Flags().StringVar(&rankFilterMethod, "filter-method", "", "Only rank papers found by this discovery method")
	rankCmd.Flags().IntVar(&rankTop, "top", rank.DefaultTop, "Number of papers to return")
	rankCmd.Flags().StringVar(&rankTag, "tag", "", "Tag the returned papers")
	rankCmd.Flags().StringVar(&rankPrompt, "prompt", "", "Research focus for LLM relevance scoring (needs ANTHROPIC_API_KEY)")
	rankCmd.Flags().Float64Var(&rankWeight, "weight", rank.DefaultWeight, "Share of LLM relevance in the combined score, 0 to 1")
	rootCmd.AddCommand(rankCmd)
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank papers by citations, recency and relevance",
	Long: `Score papers by normalized citations, recency and influential citation
ratio. With --prompt and an Anthropic API key, blend in an LLM relevance
rating of each paper against the research focus.

Examples:
  litscout rank --top 50
  litscout rank --filter-method citation_forward --tag shortlist
  litscout rank --prompt "resistance to venetoclax in AML" --weight 0.7`,
	Args: cobra.NoArgs,
	RunE: runRank,
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg := mustLoadProject()
	log := newLogger()
	defer log.Sync()

	store, _ := openStore(cfg)
	engine := &rank.Engine{Store: store, Log: log}
	if rankPrompt != "" && cfg.APIs.AnthropicAPIKey != "" {
		engine.Oracle = rank.NewAnthropic(cfg.APIs.AnthropicAPIKey, apiclient.WithLogger(log))
	}

	ctx, cancel := signalContext()
	defer cancel()
	res, err := engine.Run(ctx, rank.Options{
		FilterTag:    rankFilterTag,
		FilterMethod: paper.DiscoveryMethod(rankFilterMethod),
		Top:          rankTop,
		Tag:          rankTag,
		Prompt:       rankPrompt,
		Weight:       rankWeight,
	})
	if err != nil {
		exitWithError(ExitError, "ranking failed: %v", err)
	}

	return output(res, func() {
		for i := range res.Ranked {
			s := &res.Ranked[i]
			outputHuman("%3d. %.3f  %s\n", i+1, s.Score, truncateString(s.Paper.Title, SearchTitleMaxLen))
			outputHuman("           %s (%s), %d citations\n", s.Paper.PaperID, s.Paper.YearString(), s.Paper.Citations())
		}
		outputHuman("Ranked %d of %d papers", len(res.Ranked), res.Considered)
		if res.Tagged > 0 {
			outputHuman(", tagged %d with %q", res.Tagged, rankTag)
		}
		outputHuman("\n")
	})
}
