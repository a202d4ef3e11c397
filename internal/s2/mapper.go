package s2

import (
	"slices"

	"github.com/matsen/litscout/internal/ident"
	"github.com/matsen/litscout/internal/paper"
)

// SourceName is recorded as the provenance of mapped papers.
const SourceName = "semantic_scholar"

// MapS2ToPaper converts an S2Paper to a canonical paper. It returns false
// when the record lacks an id or a title.
func MapS2ToPaper(sp *S2Paper, method paper.DiscoveryMethod, query string) (paper.Paper, bool) {
	if sp == nil || sp.PaperID == "" || sp.Title == "" {
		return paper.Paper{}, false
	}

	p := paper.Paper{
		PaperID:                  "s2:" + sp.PaperID,
		DOI:                      ident.NormalizeDOI(sp.ExternalIDs.DOI),
		PMID:                     sp.ExternalIDs.PubMed,
		PMCID:                    ident.NormalizePMCID(sp.ExternalIDs.PubMedCentral),
		ArXivID:                  sp.ExternalIDs.ArXiv,
		Title:                    sp.Title,
		Authors:                  mapAuthors(sp),
		Year:                     sp.Year,
		Venue:                    sp.Venue,
		CitationCount:            sp.CitationCount,
		InfluentialCitationCount: sp.InfluentialCitationCount,
		Abstract:                 sp.Abstract,
		FieldsOfStudy:            slices.Clone(sp.FieldsOfStudy),
		IsOpenAccess:             sp.IsOpenAccess,
		Source:                   SourceName,
		DiscoveryMethod:          method,
		DiscoveryQuery:           query,
		DiscoveryDate:            paper.Today(),
	}
	if sp.Journal != nil {
		p.JournalName = sp.Journal.Name
	}
	if sp.TLDR != nil {
		p.TLDR = sp.TLDR.Text
	}
	if sp.OpenAccessPDF != nil {
		p.OpenAccessPDFURL = sp.OpenAccessPDF.URL
	}
	p.Normalize()
	return p, true
}

func mapAuthors(sp *S2Paper) []paper.Author {
	authors := make([]paper.Author, 0, len(sp.Authors))
	for _, a := range sp.Authors {
		if a.Name == "" {
			continue
		}
		author := paper.Author{Name: a.Name}
		if a.AuthorID != "" {
			author.AuthorID = "s2:" + a.AuthorID
		}
		authors = append(authors, author)
	}
	return authors
}

func mapAll(raw []*S2Paper, method paper.DiscoveryMethod, query string, limit int) []paper.Paper {
	var out []paper.Paper
	for _, sp := range raw {
		if limit > 0 && len(out) >= limit {
			break
		}
		if p, ok := MapS2ToPaper(sp, method, query); ok {
			out = append(out, p)
		}
	}
	return out
}
