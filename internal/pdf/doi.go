package pdf

import (
	"regexp"
	"strings"

	"github.com/matsen/litscout/internal/ident"
)

// DOIPages is how many leading pages are searched for a DOI.
const DOIPages = 3

// 10.<registrant>/<suffix>, stopping at characters that never appear in
// printed DOIs.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// FindDOI returns the first plausible DOI in text, normalized, or "".
func FindDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return ident.NormalizeDOI(match)
		}
	}
	return ""
}

// isValidDOI performs basic validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	return slashIdx != -1 && slashIdx < len(doi)-1
}

// ExtractDOI returns the first DOI printed on the first DOIPages pages of
// the PDF at path, or "" when there is none.
func ExtractDOI(path string) (string, error) {
	doc, err := Open(path)
	if err != nil {
		return "", err
	}
	defer doc.Close()
	return doc.DOI(), nil
}

// DOI searches the leading pages of d for a DOI.
func (d *Document) DOI() string {
	for i := 1; i <= min(DOIPages, d.NumPage()); i++ {
		if doi := FindDOI(d.PageText(i)); doi != "" {
			return doi
		}
	}
	return ""
}

// GuessTitle returns the first substantial line of the first page that
// does not look like a running header. Best effort.
func (d *Document) GuessTitle() string {
	for _, line := range strings.Split(d.PageText(1), "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !isHeaderLine(line) {
			return line
		}
	}
	return ""
}

// isHeaderLine checks if a line is likely a header/footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"),
		strings.Contains(lower, "copyright"),
		strings.Contains(lower, "volume") && strings.Contains(lower, "issue"),
		strings.Contains(lower, "article") && strings.Contains(lower, "published"):
		return true
	}
	return false
}
