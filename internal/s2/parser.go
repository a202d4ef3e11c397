package s2

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matsen/litscout/internal/ident"
)

// Identifier prefixes understood by the Semantic Scholar graph API.
var identifierPrefixes = []string{
	"DOI:",
	"ARXIV:",
	"PMID:",
	"PMCID:",
	"CorpusId:",
	"URL:",
	"MAG:",
	"ACL:",
}

// s2IDPattern matches a 40-character hex string (raw S2 paper ID).
var s2IDPattern = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// PaperIdentifier is a parsed paper reference.
type PaperIdentifier struct {
	Type  string // "S2", "DOI", "PMID", ... or "UNKNOWN"
	Value string
}

// ParsePaperID parses a paper identifier string. Supported forms:
//   - s2:<id> and raw 40-character S2 paper IDs
//   - pmid:<id>, as stored on PubMed-sourced records
//   - bare DOIs (10.xxxx/...) and resolver URLs
//   - API prefixes such as DOI:10.1038/nature12373, ARXIV:2106.15928, CorpusId:215416146
func ParsePaperID(id string) PaperIdentifier {
	id = strings.TrimSpace(id)

	if v, ok := ident.StripPrefix(id, "s2:"); ok {
		return PaperIdentifier{Type: "S2", Value: v}
	}
	if v, ok := ident.StripPrefix(id, "pmid:"); ok {
		return PaperIdentifier{Type: "PMID", Value: v}
	}

	for _, prefix := range identifierPrefixes {
		if strings.HasPrefix(strings.ToUpper(id), strings.ToUpper(prefix)) {
			return PaperIdentifier{
				Type:  strings.TrimSuffix(prefix, ":"),
				Value: id[len(prefix):],
			}
		}
	}

	if s2IDPattern.MatchString(id) {
		return PaperIdentifier{Type: "S2", Value: id}
	}
	if doi := ident.NormalizeDOI(id); strings.HasPrefix(doi, "10.") {
		return PaperIdentifier{Type: "DOI", Value: doi}
	}
	return PaperIdentifier{Type: "UNKNOWN", Value: id}
}

// APIID renders the identifier as a path segment for the graph API.
func (p PaperIdentifier) APIID() (string, error) {
	switch p.Type {
	case "S2":
		return p.Value, nil
	case "UNKNOWN":
		return "", fmt.Errorf("cannot resolve %q for Semantic Scholar", p.Value)
	}
	return p.Type + ":" + p.Value, nil
}
