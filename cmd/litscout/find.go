package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/storage"
)

var (
	findLimit  int
	findAuthor string
	findYear   string
	findTitle  string
	findVenue  string
	findStatus string
)

func init() {
	findCmd.Flags().IntVar(&findLimit, "limit", DefaultFindLimit, "Maximum results to return")
	findCmd.Flags().StringVarP(&findAuthor, "author", "a", "", "Search by author name (prefix match)")
	findCmd.Flags().StringVar(&findYear, "year", "", "Filter by year: exact (2024), range (2020:2024), or open (2020: or :2024)")
	findCmd.Flags().StringVarP(&findTitle, "title", "t", "", "Search in title only")
	findCmd.Flags().StringVar(&findVenue, "venue", "", "Filter by venue/journal (partial match)")
	findCmd.Flags().StringVar(&findStatus, "status", "", "Filter by fulltext status")
	rootCmd.AddCommand(findCmd)
}

var findCmd = &cobra.Command{
	Use:   "find [query]",
	Short: "Search the local corpus",
	Long: `Full-text search over titles, abstracts and authors of the papers
already in papers.jsonl. The SQLite index is rebuilt on every call.
Results are ordered by citation count.

Year syntax:
  --year 2024         - Exact year
  --year 2020:2024    - Range (inclusive)
  --year 2020:        - 2020 and later
  --year :2020        - 2020 and earlier

Examples:
  litscout find "single cell"
  litscout find -a Bloom --year 2020:
  litscout find --title "phase 3" --status failed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFind,
}

func runFind(cmd *cobra.Command, args []string) error {
	filters := storage.SearchFilters{
		Author: findAuthor,
		Title:  findTitle,
		Venue:  findVenue,
		Status: paper.FulltextStatus(findStatus),
	}
	if len(args) == 1 {
		filters.Keyword = args[0]
	}
	if filters.Status != "" && !filters.Status.Valid() {
		exitWithError(ExitError, "unknown status %q", findStatus)
	}
	var err error
	filters.YearFrom, filters.YearTo, err = parseYearRange(findYear)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	cfg := mustLoadProject()
	store, _ := openStore(cfg)
	db := mustOpenIndex(cfg, store)
	defer db.Close()

	papers, err := db.Search(filters, findLimit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}
	if papers == nil {
		papers = []paper.Paper{}
	}

	return output(papers, func() {
		if len(papers) == 0 {
			fmt.Println("No matching papers")
			return
		}
		for i := range papers {
			printPaperSummary(i+1, &papers[i])
		}
	})
}

// parseYearRange parses a year expression into from/to values.
// Supported formats: "2024", "2020:2024", "2020:", ":2024"
func parseYearRange(expr string) (from, to int, err error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, 0, nil
	}

	if before, after, ok := strings.Cut(expr, ":"); ok {
		if before != "" {
			if from, err = strconv.Atoi(before); err != nil {
				return 0, 0, fmt.Errorf("invalid start year %q", before)
			}
		}
		if after != "" {
			if to, err = strconv.Atoi(after); err != nil {
				return 0, 0, fmt.Errorf("invalid end year %q", after)
			}
		}
		return from, to, nil
	}

	year, err := strconv.Atoi(expr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", expr)
	}
	return year, year, nil
}
