package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/litscout/internal/fsutil"
	"github.com/matsen/litscout/internal/report"
)

var (
	reportFormat string
	reportOutput string
)

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", report.FormatText, "Report format: text, markdown or json")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the report to this file under reports/")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize the corpus",
	Long: `Report paper counts by discovery method, full-text status and source,
a year histogram, top venues and tags, and the most cited and most
recent papers.

Examples:
  litscout report
  litscout report --format markdown --output corpus.md
  litscout report --format json`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	switch reportFormat {
	case report.FormatText, report.FormatMarkdown, report.FormatJSON:
	default:
		exitWithError(ExitError, "unknown format %q (valid: text, markdown, json)", reportFormat)
	}

	cfg := mustLoadProject()
	store, _ := openStore(cfg)
	papers, err := store.LoadAll()
	if err != nil {
		exitWithError(ExitDataError, "loading papers: %v", err)
	}
	if len(papers) == 0 {
		fmt.Println(report.EmptyCorpusMessage)
		return nil
	}

	db := mustOpenIndex(cfg, store)
	defer db.Close()
	stats, err := report.Build(papers, db)
	if err != nil {
		exitWithError(ExitError, "building report: %v", err)
	}

	var buf bytes.Buffer
	switch reportFormat {
	case report.FormatMarkdown:
		err = report.WriteMarkdown(&buf, stats)
	case report.FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		err = enc.Encode(stats)
	default:
		err = report.WriteText(&buf, stats)
	}
	if err != nil {
		exitWithError(ExitError, "rendering report: %v", err)
	}

	if reportOutput == "" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}

	dest := reportOutput
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(cfg.ReportsDir(), dest)
	}
	err = fsutil.WriteAtomic(dest, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	})
	if err != nil {
		exitWithError(ExitError, "writing report: %v", err)
	}
	return output(ReportResponse{Path: cfg.Rel(dest), Format: reportFormat, Total: stats.Total, Generated: time.Now().Format(time.RFC3339)}, func() {
		outputHuman("Wrote %s report to %s\n", reportFormat, cfg.Rel(dest))
	})
}

// ReportResponse describes a report written to disk.
type ReportResponse struct {
	Path      string `json:"path"`
	Format    string `json:"format"`
	Total     int    `json:"total"`
	Generated string `json:"generated"`
}
