// Package ident canonicalizes paper identifiers and derives file names from them.
package ident

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/matsen/litscout/internal/paper"
)

// resolverPrefixes are stripped from the front of a DOI.
var resolverPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
}

// doiInStringPattern matches a DOI embedded in arbitrary text, including the
// sanitized form where the prefix/suffix separator became an underscore.
var doiInStringPattern = regexp.MustCompile(`10\.\d{4,9}[/_]\S+`)

var fileExtPattern = regexp.MustCompile(`(?i)\.(pdf|xml|txt|html)$`)

// NormalizeDOI strips resolver URL prefixes, lowercases and trims a DOI.
// Returns "" for empty input. Prefixes are stripped until none remains, so
// NormalizeDOI(NormalizeDOI(x)) == NormalizeDOI(x) for every x.
func NormalizeDOI(raw string) string {
	doi := strings.ToLower(strings.TrimSpace(raw))
	for stripped := true; stripped; {
		stripped = false
		for _, prefix := range resolverPrefixes {
			if strings.HasPrefix(doi, prefix) {
				doi = strings.TrimSpace(doi[len(prefix):])
				stripped = true
				break
			}
		}
	}
	return doi
}

// PathEscapeDOI escapes each slash-separated segment of doi for use in a
// URL path. Slashes are kept; characters such as '#', '?' and '<' found in
// older SICI-style DOIs are percent-encoded.
func PathEscapeDOI(doi string) string {
	segs := strings.Split(doi, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}

// ExtractDOIFromString finds a DOI inside s (typically a file name).
//
// When the match contains no "/" but does contain "_", the first "_" is
// taken to be the prefix/suffix separator. That guess is wrong for DOIs
// whose suffix itself contains an underscore ahead of the real separator;
// it is kept as a best-effort inverse of SanitizeForFilename.
func ExtractDOIFromString(s string) string {
	doi := doiInStringPattern.FindString(s)
	if doi == "" {
		return ""
	}
	doi = fileExtPattern.ReplaceAllString(doi, "")
	doi = strings.TrimRight(doi, ".,;")
	if !strings.Contains(doi, "/") && strings.Contains(doi, "_") {
		doi = strings.Replace(doi, "_", "/", 1)
	}
	return NormalizeDOI(doi)
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"<", "",
	">", "",
	":", "",
	`"`, "",
	"|", "",
	"?", "",
	"*", "",
	`\`, "",
)

// SanitizeForFilename turns an identifier into a safe file name component.
func SanitizeForFilename(id string) string {
	return filenameReplacer.Replace(id)
}

// FileStem is the base file name used for every artifact derived from p:
// its sanitized DOI, or its paper_id with ":" replaced when there is no DOI.
func FileStem(p *paper.Paper) string {
	if p.DOI != "" {
		return SanitizeForFilename(p.DOI)
	}
	return SanitizeForFilename(strings.ReplaceAll(p.PaperID, ":", "_"))
}
