package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/litscout/internal/paper"
)

// Constants for output formatting.
const (
	DefaultFindLimit = 50 // Default limit for find

	// Title truncation lengths by context
	ListTitleMaxLen   = 60 // Used in per-paper run summaries
	SearchTitleMaxLen = 70 // Used in find and rank results
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...any) {
	fmt.Printf(format, args...)
}

// output writes v as JSON, or calls human when --human is set.
func output(v any, human func()) error {
	if humanOutput {
		human()
		return nil
	}
	return outputJSON(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// formatAuthorsShort lists up to maxCount author names, then "et al.".
func formatAuthorsShort(authors []paper.Author, maxCount int) string {
	var names []string
	for i, a := range authors {
		if i >= maxCount {
			names = append(names, "et al.")
			break
		}
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// printPaperSummary prints one numbered paper line block.
func printPaperSummary(num int, p *paper.Paper) {
	fmt.Printf("[%d] %s\n", num, p.PaperID)
	fmt.Printf("    %s\n", truncateString(p.Title, SearchTitleMaxLen))
	if len(p.Authors) > 0 {
		fmt.Printf("    %s\n", formatAuthorsShort(p.Authors, 3))
	}
	if venue := p.VenueName(); venue != "" {
		fmt.Printf("    %s (%s), %d citations\n", venue, p.YearString(), p.Citations())
	} else {
		fmt.Printf("    (%s), %d citations\n", p.YearString(), p.Citations())
	}
	fmt.Println()
}
