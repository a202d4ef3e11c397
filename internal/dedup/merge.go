package dedup

import (
	"slices"

	"github.com/matsen/litscout/internal/paper"
)

// Merge fills the gaps in existing from incoming. Identity and every set
// scalar of existing are kept; a list is taken from incoming only when the
// existing list is empty. Neither argument is modified.
func Merge(existing, incoming paper.Paper) paper.Paper {
	out := existing
	out.Authors = slices.Clone(existing.Authors)
	out.FieldsOfStudy = slices.Clone(existing.FieldsOfStudy)
	out.Tags = slices.Clone(existing.Tags)

	fillString(&out.DOI, incoming.DOI)
	fillString(&out.PMID, incoming.PMID)
	fillString(&out.PMCID, incoming.PMCID)
	fillString(&out.ArXivID, incoming.ArXivID)
	fillString(&out.Title, incoming.Title)
	fillString(&out.Venue, incoming.Venue)
	fillString(&out.JournalName, incoming.JournalName)
	fillString(&out.Abstract, incoming.Abstract)
	fillString(&out.TLDR, incoming.TLDR)
	fillString(&out.OpenAccessPDFURL, incoming.OpenAccessPDFURL)
	fillString(&out.Source, incoming.Source)
	fillString(&out.DiscoveryQuery, incoming.DiscoveryQuery)
	fillString(&out.DiscoveryDate, incoming.DiscoveryDate)
	fillString(&out.SeedPaperID, incoming.SeedPaperID)
	fillString(&out.FulltextPDFPath, incoming.FulltextPDFPath)
	fillString(&out.FulltextXMLPath, incoming.FulltextXMLPath)
	fillString(&out.FulltextTxtPath, incoming.FulltextTxtPath)

	if out.FulltextSource == "" {
		out.FulltextSource = incoming.FulltextSource
	}

	out.Year = fillPtr(existing.Year, incoming.Year)
	out.CitationCount = fillPtr(existing.CitationCount, incoming.CitationCount)
	out.InfluentialCitationCount = fillPtr(existing.InfluentialCitationCount, incoming.InfluentialCitationCount)
	out.IsOpenAccess = fillPtr(existing.IsOpenAccess, incoming.IsOpenAccess)

	if len(out.Authors) == 0 && len(incoming.Authors) > 0 {
		out.Authors = slices.Clone(incoming.Authors)
	}
	if len(out.FieldsOfStudy) == 0 && len(incoming.FieldsOfStudy) > 0 {
		out.FieldsOfStudy = slices.Clone(incoming.FieldsOfStudy)
	}
	if len(out.Tags) == 0 && len(incoming.Tags) > 0 {
		out.Tags = slices.Clone(incoming.Tags)
	}
	return out
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// fillPtr returns a copy of whichever pointer is set, preferring existing.
func fillPtr[T any](existing, incoming *T) *T {
	src := existing
	if src == nil {
		src = incoming
	}
	if src == nil {
		return nil
	}
	v := *src
	return &v
}
