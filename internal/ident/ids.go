package ident

import "strings"

// NormalizePMCID returns a PubMed Central id in its "PMC<digits>" form.
// Bare numeric ids gain the prefix; "" stays "".
func NormalizePMCID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		return ""
	}
	if len(id) >= 3 && strings.EqualFold(id[:3], "pmc") {
		return "PMC" + id[3:]
	}
	return "PMC" + id
}

// PMCIDNumber returns the numeric part of a PubMed Central id.
func PMCIDNumber(pmcid string) string {
	return strings.TrimPrefix(NormalizePMCID(pmcid), "PMC")
}

// StripPrefix removes a source qualifier such as "s2:" from a paper_id.
// The boolean reports whether the prefix was present.
func StripPrefix(paperID, prefix string) (string, bool) {
	if strings.HasPrefix(paperID, prefix) {
		return paperID[len(prefix):], true
	}
	return paperID, false
}
