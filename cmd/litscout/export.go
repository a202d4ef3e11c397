package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matsen/litscout/internal/config"
	"github.com/matsen/litscout/internal/export"
	"github.com/matsen/litscout/internal/storage"
)

var (
	exportTags   []string
	exportOutput string
)

func init() {
	exportCmd.Flags().StringSliceVar(&exportTags, "tag", nil, "Export only papers with one of these tags")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Append new entries to this .bib file instead of printing")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export papers to BibTeX",
	Long: `Export papers to BibTeX with LastYear-xx cite keys.

With --output, entries whose DOI or cite key is already in the file are
skipped and the rest are appended.

Examples:
  litscout export > refs.bib
  litscout export --tag shortlist
  litscout export --tag seed -o ~/papers/review.bib`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadProject()
	store, _ := openStore(cfg)
	papers, err := store.Load(storage.Filter{Tags: exportTags})
	if err != nil {
		exitWithError(ExitDataError, "loading papers: %v", err)
	}

	if exportOutput == "" {
		// BibTeX is always text output, never JSON
		fmt.Print(export.ToBibTeXList(papers))
		return nil
	}

	path, err := filepath.Abs(config.ExpandPath(exportOutput))
	if err != nil {
		exitWithError(ExitError, "resolving path: %v", err)
	}
	res, err := export.AppendNew(path, papers)
	if err != nil {
		exitWithError(ExitError, "exporting: %v", err)
	}
	return output(res, func() {
		outputHuman("Added %d entries, skipped %d already present\n", res.Added, res.Skipped)
	})
}
