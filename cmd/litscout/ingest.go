package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/extract"
	"github.com/matsen/litscout/internal/ingest"
	"github.com/matsen/litscout/internal/paper"
)

var (
	ingestExtract bool
	ingestDryRun  bool
	ingestWatch   bool
	ingestSettle  time.Duration
)

func init() {
	ingestCmd.Flags().BoolVar(&ingestExtract, "extract", false, "Extract text for manually retrieved papers afterwards")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "Report matches without moving or updating anything")
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "Keep running and ingest new inbox files as they arrive")
	ingestCmd.Flags().DurationVar(&ingestSettle, "settle", ingest.DefaultSettle, "With --watch, wait this long after the last file event")
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "File manually downloaded PDFs from the inbox",
	Long: `Match every PDF in the inbox to a paper, by DOI in the file name, DOI
in the text, PDF title metadata or first page text, then file it under
fulltext/pdf and mark the paper manual_retrieved.

Examples:
  litscout ingest
  litscout ingest --dry-run
  litscout ingest --watch --extract`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := mustLoadProject()
	log := newLogger()
	defer log.Sync()

	store, logs := openStore(cfg)
	in := ingest.New(cfg, store, logs, log)
	opts := ingest.Options{DryRun: ingestDryRun}

	ctx, cancel := signalContext()
	defer cancel()

	afterPass := func(sum *ingest.Summary) *extract.Summary {
		if !ingestExtract || sum.DryRun || sum.Ingested == 0 {
			return nil
		}
		ex, err := extract.New(cfg, store, log).Run(ctx, extract.Options{Status: paper.StatusManualRetrieved})
		if err != nil && !errors.Is(err, context.Canceled) {
			exitWithError(ExitError, "extraction failed: %v", err)
		}
		return ex
	}

	if ingestWatch {
		log.Info("watching inbox, Ctrl-C to stop", zap.String("dir", cfg.Rel(cfg.InboxDir())))
		err := in.Watch(ctx, opts, ingestSettle, func(sum *ingest.Summary, err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				return
			}
			printIngest(sum, afterPass(sum))
		})
		if err != nil {
			exitWithError(ExitError, "watching inbox: %v", err)
		}
		return nil
	}

	sum, err := in.Run(ctx, opts)
	if err != nil {
		exitWithError(ExitError, "ingest failed: %v", err)
	}
	printIngest(sum, afterPass(sum))
	return nil
}

// IngestResponse pairs an ingest pass with the extraction it triggered.
type IngestResponse struct {
	*ingest.Summary
	Extraction *extract.Summary `json:"extraction,omitempty"`
}

func printIngest(sum *ingest.Summary, ex *extract.Summary) {
	output(IngestResponse{Summary: sum, Extraction: ex}, func() {
		for _, f := range sum.Files {
			switch {
			case f.Error != "":
				outputHuman("  error     %s: %s\n", f.File, f.Error)
			case f.Matched:
				outputHuman("  matched   %s -> %s (%s)\n", f.File, f.PaperID, f.Method)
			case f.Closest != "":
				outputHuman("  unmatched %s (closest: %q, %.0f)\n", f.File, truncateString(f.Closest, ListTitleMaxLen), f.ClosestScore)
			default:
				outputHuman("  unmatched %s\n", f.File)
			}
		}
		if sum.DryRun {
			fmt.Println("Dry run: nothing moved")
		}
		outputHuman("Ingested: %d, unmatched: %d, errors: %d, still pending: %d\n",
			sum.Ingested, sum.Unmatched, sum.Errors, sum.StillPending)
		if ex != nil {
			outputHuman("Extracted: %d, skipped: %d, errors: %d\n", ex.Extracted, ex.Skipped, ex.Errors)
		}
	})
}
