package extract

import (
	"fmt"
	"strings"

	"github.com/matsen/litscout/internal/paper"
)

// sectionOrder is the reading order of output sections; the rest follow in
// document order.
var sectionOrder = []string{
	"abstract", "introduction", "background", "methods", "materials",
	"results", "discussion", "conclusion", "conclusions",
	"acknowledgments", "references",
}

// Format renders p and its sections as LLM-ready text with a metadata
// header. A banner notes truncation when shown < total.
func Format(p *paper.Paper, secs Sections, total, shown int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n", p.Title)
	if len(p.Authors) > 0 {
		names := make([]string, len(p.Authors))
		for i, a := range p.Authors {
			names[i] = a.Name
		}
		fmt.Fprintf(&b, "AUTHORS: %s\n", strings.Join(names, ", "))
	}
	if p.HasYear() {
		fmt.Fprintf(&b, "YEAR: %d\n", *p.Year)
	}
	if p.DOI != "" {
		fmt.Fprintf(&b, "DOI: %s\n", p.DOI)
	}
	if src := p.SourceName(); src != "" {
		fmt.Fprintf(&b, "SOURCE: %s\n", src)
	}
	b.WriteString("\n")

	if total > 0 && shown > 0 && total > shown {
		fmt.Fprintf(&b, "[TRUNCATED: full text is ~%d tokens, showing ~%d tokens from priority sections]\n\n", total, shown)
	}

	var ordered Sections
	for _, pref := range sectionOrder {
		for _, sec := range secs {
			if strings.Contains(strings.ToLower(sec.Key), pref) && !ordered.has(sec.Key) {
				ordered = append(ordered, sec)
			}
		}
	}
	for _, sec := range secs {
		if !ordered.has(sec.Key) {
			ordered = append(ordered, sec)
		}
	}

	for _, sec := range ordered {
		label := strings.ReplaceAll(strings.ToUpper(sec.Key), "_", " ")
		fmt.Fprintf(&b, "--- %s ---\n%s\n\n", label, sec.Text)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
