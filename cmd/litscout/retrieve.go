package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/litscout/internal/retrieve"
	"github.com/matsen/litscout/internal/source"
)

var (
	retrieveTag              string
	retrieveRetryFailed      bool
	retrieveRetryManual      bool
	retrieveDryRun           bool
	retrieveUpdateManualList bool
)

func init() {
	retrieveCmd.Flags().StringVar(&retrieveTag, "tag", "", "Only papers with this tag")
	retrieveCmd.Flags().BoolVar(&retrieveRetryFailed, "retry-failed", false, "Also retry papers whose retrieval failed")
	retrieveCmd.Flags().BoolVar(&retrieveRetryManual, "retry-manual", false, "Also retry papers pending manual retrieval")
	retrieveCmd.Flags().BoolVar(&retrieveDryRun, "dry-run", false, "List the papers that would be attempted")
	retrieveCmd.Flags().BoolVar(&retrieveUpdateManualList, "update-manual-list", false, "Only regenerate the manual retrieval list")
	rootCmd.AddCommand(retrieveCmd)
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Download open access full text",
	Long: `Walk the configured fallback chain for every paper without full text:
Semantic Scholar open access PDFs, Unpaywall, bioRxiv, arXiv, publisher
landing pages and PMC BioC. Papers that fail are listed in
manual_retrieval_list.md.

Examples:
  litscout retrieve
  litscout retrieve --tag seed --retry-failed
  litscout retrieve --update-manual-list`,
	Args: cobra.NoArgs,
	RunE: runRetrieve,
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	cfg := mustLoadProject()
	log := newLogger()
	defer log.Sync()

	store, logs := openStore(cfg)
	var oa retrieve.OALookup
	if upw := source.NewUnpaywall(cfg, log); upw.Enabled() {
		oa = upw
	} else {
		log.Warn("UNPAYWALL_EMAIL not set, skipping Unpaywall lookups")
	}
	r := retrieve.New(cfg, store, logs, oa, source.NewPubMed(cfg, log), log)

	ctx, cancel := signalContext()
	defer cancel()
	sum, err := r.Run(ctx, retrieve.Options{
		Tag:                  retrieveTag,
		RetryFailed:          retrieveRetryFailed,
		RetryManualPending:   retrieveRetryManual,
		DryRun:               retrieveDryRun,
		UpdateManualListOnly: retrieveUpdateManualList,
	})
	if err != nil {
		exitWithError(ExitError, "retrieval failed: %v", err)
	}

	return output(sum, func() {
		if sum.DryRun {
			outputHuman("Would attempt %d papers:\n", sum.Selected)
			for _, p := range sum.Papers {
				outputHuman("  %s  %s\n", p.PaperID, truncateString(p.Title, ListTitleMaxLen))
			}
			return
		}
		for _, p := range sum.Papers {
			line := fmt.Sprintf("  %-8s %s", p.Status, truncateString(p.Title, ListTitleMaxLen))
			if p.Source != "" {
				line += fmt.Sprintf(" [%s]", p.Source)
			}
			fmt.Println(line)
		}
		outputHuman("Selected: %d, retrieved: %d, failed: %d\n", sum.Selected, sum.Retrieved, sum.Failed)
		if sum.UpdateErrors > 0 {
			outputHuman("Store update errors: %d\n", sum.UpdateErrors)
		}
		outputHuman("Pending manual retrieval: %d (see %s)\n", sum.ManualPending, cfg.Rel(cfg.ManualListPath()))
	})
}
