// Package dedup decides whether an incoming paper is already represented,
// using exact identifier matches and fuzzy title comparison.
package dedup

import (
	"github.com/matsen/litscout/internal/ident"
	"github.com/matsen/litscout/internal/paper"
)

// TitleMatchThreshold is the Ratio a title pair must exceed to be a duplicate.
const TitleMatchThreshold = 92.0

type titleYear struct {
	title string
	year  int // 0 when unknown
	pos   int
}

// Index holds every identity signal of the papers added so far.
// Title lookups are linear in the number of titles added.
type Index struct {
	dois     map[string]int
	pmids    map[string]int
	paperIDs map[string]int
	titles   []titleYear
	added    int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		dois:     make(map[string]int),
		pmids:    make(map[string]int),
		paperIDs: make(map[string]int),
	}
}

// NewIndexFrom returns an index pre-populated with papers.
func NewIndexFrom(papers []paper.Paper) *Index {
	idx := NewIndex()
	for i := range papers {
		idx.Add(&papers[i])
	}
	return idx
}

// Add registers p's DOI, PMID, paper_id and (title, year) pair under the
// next position, counting from zero.
func (x *Index) Add(p *paper.Paper) {
	pos := x.added
	x.added++
	if doi := ident.NormalizeDOI(p.DOI); doi != "" {
		x.dois[doi] = pos
	}
	if p.PMID != "" {
		x.pmids[p.PMID] = pos
	}
	x.paperIDs[p.PaperID] = pos
	if p.Title != "" {
		x.titles = append(x.titles, titleYear{title: NormalizeTitle(p.Title), year: knownYear(p), pos: pos})
	}
}

// Len returns the number of distinct paper_ids registered.
func (x *Index) Len() int {
	return len(x.paperIDs)
}

// IsDuplicate reports whether p matches anything already added.
func (x *Index) IsDuplicate(p *paper.Paper) bool {
	_, ok := x.Lookup(p)
	return ok
}

// Lookup returns the position of the added paper p duplicates. Checks run
// in order DOI, PMID, paper_id, fuzzy title, stopping at the first hit.
func (x *Index) Lookup(p *paper.Paper) (int, bool) {
	if doi := ident.NormalizeDOI(p.DOI); doi != "" {
		if pos, ok := x.dois[doi]; ok {
			return pos, true
		}
	}
	if p.PMID != "" {
		if pos, ok := x.pmids[p.PMID]; ok {
			return pos, true
		}
	}
	if pos, ok := x.paperIDs[p.PaperID]; ok {
		return pos, true
	}
	if p.Title == "" {
		return 0, false
	}

	title, year := NormalizeTitle(p.Title), knownYear(p)
	for _, existing := range x.titles {
		if year != 0 && existing.year != 0 && year != existing.year {
			continue
		}
		if Ratio(title, existing.title) > TitleMatchThreshold {
			return existing.pos, true
		}
	}
	return 0, false
}

func knownYear(p *paper.Paper) int {
	if !p.HasYear() {
		return 0
	}
	return *p.Year
}
