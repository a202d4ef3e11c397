package openalex

import (
	"strings"

	"github.com/matsen/litscout/internal/ident"
	"github.com/matsen/litscout/internal/paper"
)

// SourceName is recorded as the provenance of mapped papers.
const SourceName = "openalex"

// maxConcepts is how many concepts become fields of study.
const maxConcepts = 5

// shortID returns the last path segment of an OpenAlex URL id.
func shortID(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// MapWorkToPaper converts a Work to a canonical paper. It returns false
// when the work lacks an id or a title.
func MapWorkToPaper(w *Work, method paper.DiscoveryMethod, query string) (paper.Paper, bool) {
	if w.ID == "" || w.Title == "" {
		return paper.Paper{}, false
	}

	p := paper.Paper{
		PaperID:          "oalex:" + shortID(w.ID),
		DOI:              ident.NormalizeDOI(w.DOI),
		Title:            w.Title,
		Year:             w.PublicationYear,
		CitationCount:    w.CitedByCount,
		IsOpenAccess:     paper.Bool(w.OpenAccess.IsOA),
		OpenAccessPDFURL: w.OpenAccess.OAURL,
		Source:           SourceName,
		DiscoveryMethod:  method,
		DiscoveryQuery:   query,
		DiscoveryDate:    paper.Today(),
	}
	if w.IDs.PMID != "" {
		p.PMID = shortID(w.IDs.PMID)
	}
	if w.IDs.PMCID != "" {
		p.PMCID = ident.NormalizePMCID(shortID(w.IDs.PMCID))
	}
	if len(w.AbstractInvertedIndex) > 0 {
		p.Abstract = ident.ReconstructAbstract(w.AbstractInvertedIndex)
	}
	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		p.JournalName = w.PrimaryLocation.Source.DisplayName
		p.Venue = p.JournalName
	}

	for _, a := range w.Authorships {
		if a.Author.DisplayName == "" {
			continue
		}
		author := paper.Author{Name: a.Author.DisplayName}
		if a.Author.ID != "" {
			author.AuthorID = "oalex:" + shortID(a.Author.ID)
		}
		p.Authors = append(p.Authors, author)
	}
	for _, c := range w.Concepts {
		if len(p.FieldsOfStudy) == maxConcepts {
			break
		}
		if c.DisplayName != "" {
			p.FieldsOfStudy = append(p.FieldsOfStudy, c.DisplayName)
		}
	}

	p.Normalize()
	return p, true
}
