package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/litscout/internal/extract"
	"github.com/matsen/litscout/internal/paper"
)

var (
	extractDOI       string
	extractStatus    string
	extractMaxTokens int
)

func init() {
	extractCmd.Flags().StringVar(&extractDOI, "doi", "", "Only this paper (re-extracts if already done)")
	extractCmd.Flags().StringVar(&extractStatus, "status", "", "Only papers with this fulltext status")
	extractCmd.Flags().IntVar(&extractMaxTokens, "max-tokens", 0, "Token budget per document (default from litscout.toml)")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Write LLM-ready text for retrieved papers",
	Long: `Turn BioC sections or PDF text into fulltext/txt files with a metadata
header, keeping priority sections when the document exceeds the budget.

Examples:
  litscout extract
  litscout extract --status manual_retrieved
  litscout extract --doi 10.1038/s41586-020-2012-7 --max-tokens 4000`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := mustLoadProject()
	log := newLogger()
	defer log.Sync()

	status := paper.FulltextStatus(extractStatus)
	if status != "" && !status.Valid() {
		exitWithError(ExitError, "unknown status %q", extractStatus)
	}

	store, _ := openStore(cfg)
	ctx, cancel := signalContext()
	defer cancel()
	sum, err := extract.New(cfg, store, log).Run(ctx, extract.Options{
		DOI:       extractDOI,
		Status:    status,
		MaxTokens: extractMaxTokens,
	})
	if err != nil {
		exitWithError(ExitError, "extraction failed: %v", err)
	}

	return output(sum, func() {
		for _, r := range sum.Papers {
			switch {
			case r.Error != "":
				outputHuman("  error   %s: %s\n", r.PaperID, r.Error)
			case r.Skipped:
				outputHuman("  skipped %s (no readable full text)\n", r.PaperID)
			default:
				outputHuman("  wrote   %s (~%d of ~%d tokens)\n", r.TxtPath, r.ShownTokens, r.TotalTokens)
			}
		}
		outputHuman("Extracted: %d, skipped: %d, errors: %d\n", sum.Extracted, sum.Skipped, sum.Errors)
	})
}
