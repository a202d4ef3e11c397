package pubmed

import (
	"strconv"
	"strings"

	"github.com/matsen/litscout/internal/ident"
	"github.com/matsen/litscout/internal/paper"
)

// SourceName is recorded as the provenance of mapped papers.
const SourceName = "pubmed"

// MapArticleToPaper converts an efetch article to a canonical paper. It
// returns false when the article lacks a PMID or a title.
func MapArticleToPaper(a *Article, query string) (paper.Paper, bool) {
	mc := &a.Citation
	pmid := strings.TrimSpace(mc.PMID)
	title := string(mc.Article.Title)
	if pmid == "" || title == "" {
		return paper.Paper{}, false
	}

	art := &mc.Article
	p := paper.Paper{
		PaperID:         "pmid:" + pmid,
		PMID:            pmid,
		Title:           title,
		Abstract:        abstractOf(art.Abstract.Texts),
		JournalName:     strings.TrimSpace(art.Journal.Title),
		Venue:           strings.TrimSpace(art.Journal.ISOAbbreviation),
		Year:            yearOf(art.Journal.PubDate.Year, art.Journal.PubDate.MedlineDate),
		Source:          SourceName,
		DiscoveryMethod: paper.KeywordSearch,
		DiscoveryQuery:  query,
		DiscoveryDate:   paper.Today(),
	}
	if p.Venue == "" {
		p.Venue = p.JournalName
	}

	for _, au := range art.Authors {
		last := strings.TrimSpace(au.LastName)
		if last == "" {
			continue
		}
		name := last
		if fore := strings.TrimSpace(au.ForeName); fore != "" {
			name = fore + " " + last
		}
		p.Authors = append(p.Authors, paper.Author{Name: name})
	}

	for _, id := range a.ArticleIDs {
		v := strings.TrimSpace(id.Value)
		if v == "" {
			continue
		}
		switch id.IDType {
		case "doi":
			p.DOI = ident.NormalizeDOI(v)
		case "pmc":
			p.PMCID = ident.NormalizePMCID(v)
		}
	}

	p.Normalize()
	return p, true
}

// abstractOf joins abstract sections with spaces, prefixing labelled ones
// with "Label: ".
func abstractOf(texts []abstractText) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if t.Label != "" {
			parts = append(parts, t.Label+": "+t.Text)
		} else {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, " ")
}

// yearOf reads PubDate/Year, falling back to the leading year of a
// MedlineDate such as "2023 Jan-Feb".
func yearOf(year, medlineDate string) *int {
	if y, err := strconv.Atoi(strings.TrimSpace(year)); err == nil {
		return paper.Int(y)
	}
	if strings.TrimSpace(year) != "" {
		return nil
	}
	md := strings.TrimSpace(medlineDate)
	if len(md) < 4 {
		return nil
	}
	if y, err := strconv.Atoi(md[:4]); err == nil {
		return paper.Int(y)
	}
	return nil
}
