// Package report renders corpus statistics and the manual retrieval list.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/storage"
)

// Report formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// EmptyCorpusMessage is printed instead of a report when the store is empty.
const EmptyCorpusMessage = "No papers in corpus. Run `litscout search` to add papers."

const (
	histogramWidth = 40
	topVenueCount  = 10
	listedPapers   = 20
)

// Aggregator answers the grouped queries a report needs. storage.DB
// implements it over the SQLite index.
type Aggregator interface {
	VenueCounts(limit int) ([]storage.Count, error)
	YearCounts() ([]storage.Count, error)
}

// PaperRef is a short paper listing in a report.
type PaperRef struct {
	Title     string `json:"title"`
	Year      *int   `json:"year"`
	DOI       string `json:"doi"`
	Citations *int   `json:"citations,omitempty"`
}

// Stats summarizes a corpus.
type Stats struct {
	Total        int             `json:"total"`
	MethodCounts map[string]int  `json:"method_counts"`
	StatusCounts map[string]int  `json:"status_counts"`
	SourceCounts map[string]int  `json:"source_counts"`
	HasPDF       int             `json:"has_pdf"`
	HasXML       int             `json:"has_xml"`
	HasTxt       int             `json:"has_txt"`
	NeedsManual  int             `json:"needs_manual"`
	Years        []storage.Count `json:"years"`
	TopVenues    []storage.Count `json:"top_venues"`
	TagCounts    map[string]int  `json:"tag_counts"`
	AvgCitations float64         `json:"avg_citations"`
	TopCited     []PaperRef      `json:"top_cited"`
	MostRecent   []PaperRef      `json:"most_recent"`
}

// Build computes statistics for papers. Venue and year aggregates come
// from agg, which must index the same papers.
func Build(papers []paper.Paper, agg Aggregator) (*Stats, error) {
	s := &Stats{
		Total:        len(papers),
		MethodCounts: map[string]int{},
		StatusCounts: map[string]int{},
		SourceCounts: map[string]int{},
		TagCounts:    map[string]int{},
	}

	var citationSum, cited int
	for i := range papers {
		p := &papers[i]
		s.MethodCounts[string(p.DiscoveryMethod)]++
		s.StatusCounts[string(p.FulltextStatus)]++
		if p.FulltextSource != "" {
			s.SourceCounts[string(p.FulltextSource)]++
		}
		if p.FulltextPDFPath != "" {
			s.HasPDF++
		}
		if p.FulltextXMLPath != "" {
			s.HasXML++
		}
		if p.FulltextTxtPath != "" {
			s.HasTxt++
		}
		if p.NeedsManualRetrieval {
			s.NeedsManual++
		}
		for _, tag := range p.Tags {
			s.TagCounts[tag]++
		}
		if p.CitationCount != nil {
			citationSum += *p.CitationCount
			cited++
		}
	}
	if cited > 0 {
		s.AvgCitations = float64(citationSum) / float64(cited)
	}

	var err error
	if s.TopVenues, err = agg.VenueCounts(topVenueCount); err != nil {
		return nil, fmt.Errorf("counting venues: %w", err)
	}
	if s.Years, err = agg.YearCounts(); err != nil {
		return nil, fmt.Errorf("counting years: %w", err)
	}

	s.TopCited = topCited(papers)
	s.MostRecent = mostRecent(papers)
	return s, nil
}

func refOf(p *paper.Paper) PaperRef {
	return PaperRef{Title: p.Title, Year: p.Year, DOI: p.DOI, Citations: p.CitationCount}
}

func topCited(papers []paper.Paper) []PaperRef {
	var withCounts []paper.Paper
	for _, p := range papers {
		if p.CitationCount != nil {
			withCounts = append(withCounts, p)
		}
	}
	sort.SliceStable(withCounts, func(i, j int) bool {
		return *withCounts[i].CitationCount > *withCounts[j].CitationCount
	})
	return refs(withCounts)
}

func mostRecent(papers []paper.Paper) []PaperRef {
	var dated []paper.Paper
	for _, p := range papers {
		if p.HasYear() {
			dated = append(dated, p)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		if *dated[i].Year != *dated[j].Year {
			return *dated[i].Year > *dated[j].Year
		}
		return dated[i].Citations() > dated[j].Citations()
	})
	return refs(dated)
}

func refs(papers []paper.Paper) []PaperRef {
	if len(papers) > listedPapers {
		papers = papers[:listedPapers]
	}
	out := make([]PaperRef, 0, len(papers))
	for i := range papers {
		out = append(out, refOf(&papers[i]))
	}
	return out
}

// YearHistogram draws one '#' bar per year from the first to the last known
// year, scaled so the busiest year spans width characters.
func YearHistogram(years []storage.Count, width int) string {
	counts := map[int]int{}
	minYear, maxYear, maxCount := 0, 0, 0
	for _, c := range years {
		y, err := strconv.Atoi(c.Key)
		if err != nil || c.Count == 0 {
			continue
		}
		counts[y] = c.Count
		if minYear == 0 || y < minYear {
			minYear = y
		}
		if y > maxYear {
			maxYear = y
		}
		maxCount = max(maxCount, c.Count)
	}
	if len(counts) == 0 {
		return "  No year data available"
	}

	lines := make([]string, 0, maxYear-minYear+1)
	for y := minYear; y <= maxYear; y++ {
		n := counts[y]
		bar := strings.Repeat("#", n*width/maxCount)
		lines = append(lines, fmt.Sprintf("  %d | %s (%d)", y, bar, n))
	}
	return strings.Join(lines, "\n")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func yearOrQ(y *int) string {
	if y == nil {
		return "?"
	}
	return strconv.Itoa(*y)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// WriteText renders s as a plain text report.
func WriteText(w io.Writer, s *Stats) error {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "%s\n  LitScout Corpus Report\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Total papers: %s\n\n", humanize.Comma(int64(s.Total)))

	b.WriteString("Discovery methods:\n")
	for _, k := range sortedKeys(s.MethodCounts) {
		fmt.Fprintf(&b, "  %s: %d\n", k, s.MethodCounts[k])
	}
	b.WriteString("\nRetrieval status:\n")
	for _, k := range sortedKeys(s.StatusCounts) {
		fmt.Fprintf(&b, "  %s: %d\n", k, s.StatusCounts[k])
	}
	fmt.Fprintf(&b, "\n  Papers with PDF: %d\n", s.HasPDF)
	fmt.Fprintf(&b, "  Papers with XML: %d\n", s.HasXML)
	fmt.Fprintf(&b, "  Papers with extracted text: %d\n", s.HasTxt)
	fmt.Fprintf(&b, "  Awaiting manual retrieval: %d\n\n", s.NeedsManual)

	if len(s.SourceCounts) > 0 {
		b.WriteString("Fulltext sources:\n")
		for _, k := range sortedKeys(s.SourceCounts) {
			fmt.Fprintf(&b, "  %s: %d\n", k, s.SourceCounts[k])
		}
		b.WriteString("\n")
	}

	b.WriteString("Year distribution:\n")
	b.WriteString(YearHistogram(s.Years, histogramWidth))
	b.WriteString("\n\n")

	if len(s.TopVenues) > 0 {
		b.WriteString("Top venues:\n")
		for _, v := range s.TopVenues {
			fmt.Fprintf(&b, "  %s: %d\n", v.Key, v.Count)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Average citations per paper: %.1f\n\n", s.AvgCitations)

	if len(s.TopCited) > 0 {
		b.WriteString("Top cited papers:\n")
		for i, p := range s.TopCited[:min(10, len(s.TopCited))] {
			fmt.Fprintf(&b, "  %d. [%s] %s (%s)\n", i+1, humanize.Comma(int64(*p.Citations)), truncate(p.Title, 70), yearOrQ(p.Year))
		}
		b.WriteString("\n")
	}
	if len(s.MostRecent) > 0 {
		b.WriteString("Most recent papers:\n")
		for i, p := range s.MostRecent[:min(10, len(s.MostRecent))] {
			fmt.Fprintf(&b, "  %d. [%s] %s\n", i+1, yearOrQ(p.Year), truncate(p.Title, 70))
		}
		b.WriteString("\n")
	}
	if len(s.TagCounts) > 0 {
		b.WriteString("Tags:\n")
		for _, k := range sortedKeys(s.TagCounts) {
			fmt.Fprintf(&b, "  %s: %d\n", k, s.TagCounts[k])
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteMarkdown renders s as a markdown report.
func WriteMarkdown(w io.Writer, s *Stats) error {
	var b strings.Builder
	b.WriteString("# LitScout Corpus Report\n\n")
	fmt.Fprintf(&b, "**Total papers:** %d\n\n", s.Total)

	countTable(&b, "Discovery Methods", "Method", s.MethodCounts)
	countTable(&b, "Retrieval Status", "Status", s.StatusCounts)
	fmt.Fprintf(&b, "- Papers with PDF: %d\n", s.HasPDF)
	fmt.Fprintf(&b, "- Papers with XML: %d\n", s.HasXML)
	fmt.Fprintf(&b, "- Papers with extracted text: %d\n", s.HasTxt)
	fmt.Fprintf(&b, "- Awaiting manual retrieval: %d\n\n", s.NeedsManual)

	b.WriteString("## Year Distribution\n\n```\n")
	b.WriteString(YearHistogram(s.Years, histogramWidth))
	b.WriteString("\n```\n\n")

	if len(s.TopVenues) > 0 {
		b.WriteString("## Top Venues\n\n| Venue | Count |\n|-------|-------|\n")
		for _, v := range s.TopVenues {
			fmt.Fprintf(&b, "| %s | %d |\n", v.Key, v.Count)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "**Average citations per paper:** %.1f\n\n", s.AvgCitations)

	if len(s.TopCited) > 0 {
		b.WriteString("## Top Cited Papers\n\n")
		for i, p := range s.TopCited {
			link := ""
			if p.DOI != "" {
				link = fmt.Sprintf(" ([DOI](https://doi.org/%s))", p.DOI)
			}
			fmt.Fprintf(&b, "%d. **[%d citations]** %s (%s)%s\n", i+1, *p.Citations, p.Title, yearOrQ(p.Year), link)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func countTable(b *strings.Builder, heading, column string, counts map[string]int) {
	fmt.Fprintf(b, "## %s\n\n| %s | Count |\n|%s|-------|\n", heading, column, strings.Repeat("-", len(column)+2))
	for _, k := range sortedKeys(counts) {
		fmt.Fprintf(b, "| %s | %d |\n", k, counts[k])
	}
	b.WriteString("\n")
}
