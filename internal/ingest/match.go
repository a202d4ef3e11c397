package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/matsen/litscout/internal/dedup"
	"github.com/matsen/litscout/internal/ident"
	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/pdf"
)

// Match thresholds on the 0-100 similarity scale.
const (
	metadataTitleThreshold = 85
	firstPageThreshold     = 90
	minMetadataTitleLen    = 6

	// firstPageMaxRunes bounds the page text scored by PartialRatio. Titles
	// sit near the top of the first page.
	firstPageMaxRunes = 3000
)

// Match methods.
const (
	MethodFilename      = "filename"
	MethodPDFDOI        = "pdf_doi"
	MethodPDFMetadata   = "pdf_metadata"
	MethodFirstPageText = "first_page_text"
)

// Match is the paper an inbox file was matched to.
type Match struct {
	Paper  *paper.Paper
	Method string
	Score  float64
}

// String describes how the match was made.
func (m *Match) String() string {
	if m.Method == MethodFilename || m.Method == MethodPDFDOI {
		return m.Method
	}
	return fmt.Sprintf("%s (score=%.0f)", m.Method, m.Score)
}

// candidates are the papers title matching considers: those flagged for
// manual retrieval, or every paper when none is flagged.
func candidates(all []paper.Paper) []paper.Paper {
	var manual []paper.Paper
	for _, p := range all {
		if p.NeedsManualRetrieval {
			manual = append(manual, p)
		}
	}
	if len(manual) > 0 {
		return manual
	}
	return all
}

func byDOI(doi string, papers []paper.Paper) *paper.Paper {
	if doi == "" {
		return nil
	}
	for i := range papers {
		if papers[i].DOI != "" && ident.NormalizeDOI(papers[i].DOI) == doi {
			return &papers[i]
		}
	}
	return nil
}

// MatchFilename matches a DOI embedded in the file name.
func MatchFilename(name string, all []paper.Paper) *Match {
	if p := byDOI(ident.ExtractDOIFromString(name), all); p != nil {
		return &Match{Paper: p, Method: MethodFilename, Score: 100}
	}
	return nil
}

// MatchDOI matches a DOI printed in the document.
func MatchDOI(doc *pdf.Document, all []paper.Paper) *Match {
	if p := byDOI(doc.DOI(), all); p != nil {
		return &Match{Paper: p, Method: MethodPDFDOI, Score: 100}
	}
	return nil
}

// MatchMetadataTitle compares the document's Title metadata against paper
// titles. Returns the best score even when it is below the threshold.
func MatchMetadataTitle(title string, papers []paper.Paper) (*Match, float64) {
	if len([]rune(title)) < minMetadataTitleLen {
		return nil, 0
	}
	title = strings.ToLower(title)
	var best *paper.Paper
	bestScore := 0.0
	for i := range papers {
		if s := dedup.Ratio(title, strings.ToLower(papers[i].Title)); s > bestScore {
			best, bestScore = &papers[i], s
		}
	}
	if bestScore > metadataTitleThreshold {
		return &Match{Paper: best, Method: MethodPDFMetadata, Score: bestScore}, bestScore
	}
	return nil, bestScore
}

// MatchFirstPage looks for a paper title inside the first page text, first
// verbatim and then by partial similarity.
func MatchFirstPage(text string, papers []paper.Paper) (*Match, float64) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil, 0
	}
	head := text
	if r := []rune(text); len(r) > firstPageMaxRunes {
		head = string(r[:firstPageMaxRunes])
	}
	words := wordSet(head)

	var best *paper.Paper
	bestScore := 0.0
	for i := range papers {
		title := strings.ToLower(strings.TrimSpace(papers[i].Title))
		if title == "" {
			continue
		}
		if strings.Contains(text, title) {
			return &Match{Paper: &papers[i], Method: MethodFirstPageText, Score: 100}, 100
		}
		if !sharesMostWords(title, words) {
			continue
		}
		if s := dedup.PartialRatio(title, head); s > bestScore {
			best, bestScore = &papers[i], s
		}
	}
	if bestScore > firstPageThreshold {
		return &Match{Paper: best, Method: MethodFirstPageText, Score: bestScore}, bestScore
	}
	return nil, bestScore
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range splitWords(s) {
		set[w] = true
	}
	return set
}

// sharesMostWords reports whether at least half of title's words occur in
// words. A title failing this cannot reach firstPageThreshold in practice.
func sharesMostWords(title string, words map[string]bool) bool {
	tw := splitWords(title)
	hits := 0
	for _, w := range tw {
		if words[w] {
			hits++
		}
	}
	return len(tw) > 0 && 2*hits >= len(tw)
}

// Closest returns the candidate title most similar to the file name, for
// reporting unmatched files.
func Closest(name string, papers []paper.Paper) (string, float64) {
	name = strings.ToLower(name)
	title, best := "", 0.0
	for _, p := range papers {
		if s := dedup.Ratio(name, strings.ToLower(p.Title)); s > best {
			title, best = p.Title, s
		}
	}
	return title, best
}
