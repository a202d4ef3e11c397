// Package export renders stored papers as BibTeX.
package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/matsen/litscout/internal/paper"
)

// ToBibTeX renders one paper under the given cite key.
func ToBibTeX(p *paper.Paper, key string) string {
	entryType := determineEntryType(p)
	var b strings.Builder

	fmt.Fprintf(&b, "@%s{%s,\n", entryType, key)

	if len(p.Authors) > 0 {
		fmt.Fprintf(&b, "  author = {%s},\n", formatAuthors(p.Authors))
	}

	fmt.Fprintf(&b, "  title = {%s},\n", escapeLatex(p.Title))

	if venue := p.VenueName(); venue != "" {
		fieldName := "journal"
		if entryType == "inproceedings" {
			fieldName = "booktitle"
		}
		fmt.Fprintf(&b, "  %s = {%s},\n", fieldName, escapeLatex(venue))
	}

	if p.HasYear() {
		fmt.Fprintf(&b, "  year = {%d},\n", *p.Year)
	}
	if p.DOI != "" {
		fmt.Fprintf(&b, "  doi = {%s},\n", p.DOI)
	}
	if p.PMID != "" {
		fmt.Fprintf(&b, "  pmid = {%s},\n", p.PMID)
	}
	if p.ArXivID != "" {
		fmt.Fprintf(&b, "  eprint = {%s},\n  archiveprefix = {arXiv},\n", p.ArXivID)
	}
	if p.Abstract != "" {
		fmt.Fprintf(&b, "  abstract = {%s},\n", escapeLatex(p.Abstract))
	}

	b.WriteString("}\n")
	return b.String()
}

// ToBibTeXList renders papers with cite keys made unique across the list.
func ToBibTeXList(papers []paper.Paper) string {
	keys := NewKeys()
	entries := make([]string, 0, len(papers))
	for i := range papers {
		entries = append(entries, ToBibTeX(&papers[i], keys.Assign(&papers[i])))
	}
	return strings.Join(entries, "\n")
}

func determineEntryType(p *paper.Paper) string {
	venue := strings.ToLower(p.VenueName())

	// Preprints
	if strings.Contains(venue, "arxiv") ||
		strings.Contains(venue, "biorxiv") ||
		strings.Contains(venue, "medrxiv") {
		return "article"
	}

	if strings.Contains(venue, "proceedings") ||
		strings.Contains(venue, "conference") ||
		strings.Contains(venue, "workshop") ||
		strings.Contains(venue, "symposium") {
		return "inproceedings"
	}

	return "article"
}

// formatAuthors formats authors in BibTeX style: "Last, First and Last, First"
func formatAuthors(authors []paper.Author) string {
	formatted := make([]string, 0, len(authors))
	for _, a := range authors {
		first, last := splitAuthorName(a.Name)
		if last == "" {
			continue
		}
		if first != "" {
			formatted = append(formatted, last+", "+first)
		} else {
			formatted = append(formatted, last)
		}
	}
	return strings.Join(formatted, " and ")
}

var nameSuffixes = map[string]bool{"jr": true, "jr.": true, "sr": true, "sr.": true, "ii": true, "iii": true, "iv": true}

// splitAuthorName splits a display name into given names and surname,
// keeping a generational suffix with the surname.
func splitAuthorName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch {
	case len(parts) == 0:
		return "", ""
	case len(parts) == 1:
		return "", parts[0]
	case len(parts) > 2 && nameSuffixes[strings.ToLower(parts[len(parts)-1])]:
		return strings.Join(parts[:len(parts)-2], " "), parts[len(parts)-2] + " " + parts[len(parts)-1]
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

var latexReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"~", `\textasciitilde{}`,
	"^", `\textasciicircum{}`,
)

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	return latexReplacer.Replace(s)
}

// CiteKey builds LastYear-xx from the first author's surname, the year
// and the initials of the first two significant title words. It is not
// unique; see Keys.
func CiteKey(p *paper.Paper) string {
	lastName := "Unknown"
	if len(p.Authors) > 0 {
		_, last := splitAuthorName(p.Authors[0].Name)
		if s := sanitizeForCiteKey(last); s != "" {
			lastName = s
		}
	}
	year := "9999"
	if p.HasYear() {
		year = p.YearString()
	}
	return lastName + year + "-" + titleSuffix(p.Title)
}

func sanitizeForCiteKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true,
	"in": true, "on": true, "for": true, "to": true, "with": true,
}

func titleSuffix(title string) string {
	var suffix []rune
	for _, word := range strings.Fields(strings.ToLower(title)) {
		if stopWords[word] {
			continue
		}
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				suffix = append(suffix, r)
				break
			}
		}
		if len(suffix) == 2 {
			break
		}
	}
	for len(suffix) < 2 {
		suffix = append(suffix, 'x')
	}
	return string(suffix)
}

// Keys hands out cite keys, appending -2, -3 and so on to repeats.
type Keys struct {
	used map[string]bool
}

// NewKeys returns a key set seeded with keys already taken.
func NewKeys(taken ...string) *Keys {
	k := &Keys{used: make(map[string]bool, len(taken))}
	for _, key := range taken {
		k.used[key] = true
	}
	return k
}

// Assign returns a cite key for p that has not been handed out before.
func (k *Keys) Assign(p *paper.Paper) string {
	base := CiteKey(p)
	key := base
	for n := 2; k.used[key]; n++ {
		key = fmt.Sprintf("%s-%d", base, n)
	}
	k.used[key] = true
	return key
}
