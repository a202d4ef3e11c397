package dedup

import (
	"testing"

	"github.com/matsen/litscout/internal/paper"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Deep Learning: A Review!", "deep learning a review"},
		{"  Multiple   spaces\tand\ttabs ", "multiple spaces and tabs"},
		{"COVID-19 & SARS-CoV-2", "covid19 sarscov2"},
		{"snake_case kept", "snake_case kept"},
		{"Ångström façade", "ångström façade"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 100},
		{"abc", "abc", 100},
		{"abc", "", 0},
		{"abcd", "abce", 75},
		{"paper about cats", "paper about dogs", 81.25},
	}
	for _, tt := range tests {
		if got := Ratio(tt.a, tt.b); got != tt.want {
			t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPartialRatio(t *testing.T) {
	if got := PartialRatio("cat", "the cat sat"); got != 100 {
		t.Errorf("PartialRatio substring = %v, want 100", got)
	}
	if got := PartialRatio("the cat sat", "cat"); got != 100 {
		t.Errorf("PartialRatio argument order should not matter, got %v", got)
	}
	if got := PartialRatio("xyz", "abcdef"); got != 0 {
		t.Errorf("PartialRatio disjoint = %v, want 0", got)
	}
	if got := PartialRatio("", "abc"); got != 0 {
		t.Errorf("PartialRatio empty = %v, want 0", got)
	}
}

func newPaper(id, doi, pmid, title string, year int) *paper.Paper {
	p := &paper.Paper{PaperID: id, DOI: doi, PMID: pmid, Title: title}
	if year != 0 {
		p.Year = paper.Int(year)
	}
	return p
}

func TestIsDuplicate_DOICaseInsensitive(t *testing.T) {
	idx := NewIndex()
	idx.Add(newPaper("s2:1", "10.1234/ABC", "", "First", 2020))

	if !idx.IsDuplicate(newPaper("oalex:W1", "https://doi.org/10.1234/abc", "", "Unrelated", 2001)) {
		t.Error("same DOI with different case/prefix should be duplicate")
	}

	// And the other way round.
	idx2 := NewIndex()
	idx2.Add(newPaper("oalex:W1", "https://doi.org/10.1234/abc", "", "Unrelated", 2001))
	if !idx2.IsDuplicate(newPaper("s2:1", "10.1234/ABC", "", "First", 2020)) {
		t.Error("DOI match should be symmetric")
	}
}

func TestIsDuplicate_PMIDAndPaperID(t *testing.T) {
	idx := NewIndex()
	idx.Add(newPaper("pmid:42", "", "42", "Something", 2020))

	if !idx.IsDuplicate(newPaper("s2:9", "", "42", "Other", 2011)) {
		t.Error("same PMID should be duplicate")
	}
	if !idx.IsDuplicate(newPaper("pmid:42", "", "", "Completely different", 1999)) {
		t.Error("same paper_id should be duplicate")
	}
}

func TestIsDuplicate_FuzzyTitle(t *testing.T) {
	idx := NewIndex()
	idx.Add(newPaper("s2:1", "", "", "A Survey of Graph Neural Networks for Drug Discovery", 2021))

	if !idx.IsDuplicate(newPaper("oalex:W2", "", "", "A survey of graph neural networks for drug discovery.", 2021)) {
		t.Error("near-identical title with same year should be duplicate")
	}
	if !idx.IsDuplicate(newPaper("oalex:W3", "", "", "A Survey of Graph Neural Networks for Drug Discovery", 0)) {
		t.Error("unknown year should not block a title match")
	}
	if idx.IsDuplicate(newPaper("oalex:W4", "", "", "A Survey of Graph Neural Networks for Drug Discovery", 2022)) {
		t.Error("differing known years must never match by title")
	}
}

func TestIsDuplicate_ZeroYearIsUnknown(t *testing.T) {
	idx := NewIndex()
	zero := newPaper("s2:1", "", "", "Antibody affinity maturation in germinal centers", 0)
	zero.Year = paper.Int(0)
	idx.Add(zero)

	if !idx.IsDuplicate(newPaper("oalex:W1", "", "", "Antibody affinity maturation in germinal centers", 2019)) {
		t.Error("a stored year of 0 should not block a title match")
	}

	idx2 := NewIndex()
	idx2.Add(newPaper("s2:2", "", "", "Antibody affinity maturation in germinal centers", 2019))
	incoming := newPaper("oalex:W2", "", "", "Antibody affinity maturation in germinal centers", 0)
	incoming.Year = paper.Int(0)
	if !idx2.IsDuplicate(incoming) {
		t.Error("an incoming year of 0 should not block a title match")
	}
}

func TestIsDuplicate_CatsVersusDogs(t *testing.T) {
	idx := NewIndex()
	idx.Add(newPaper("s2:1", "", "", "Paper about cats", 2023))
	if idx.IsDuplicate(newPaper("s2:2", "", "", "Paper about dogs", 2023)) {
		t.Error("cats and dogs titles should not be duplicates")
	}
}

func TestIsDuplicate_NoTitle(t *testing.T) {
	idx := NewIndex()
	idx.Add(newPaper("s2:1", "", "", "", 2023))
	if idx.IsDuplicate(newPaper("s2:2", "", "", "", 2023)) {
		t.Error("papers without titles must not match by title")
	}
}

func TestNewIndexFrom(t *testing.T) {
	papers := []paper.Paper{
		*newPaper("s2:1", "10.1/a", "", "A", 2020),
		*newPaper("s2:2", "10.1/b", "", "B", 2020),
	}
	idx := NewIndexFrom(papers)
	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", idx.Len())
	}
	if !idx.IsDuplicate(newPaper("x:1", "10.1/B", "", "", 0)) {
		t.Error("expected DOI duplicate")
	}
}

func TestLookup_ReturnsPosition(t *testing.T) {
	idx := NewIndexFrom([]paper.Paper{
		*newPaper("s2:1", "10.1/a", "", "Single cell atlas of the human lung", 2020),
		*newPaper("s2:2", "", "42", "Bacterial persistence under antibiotic stress", 2021),
	})

	tests := []struct {
		name    string
		p       *paper.Paper
		wantPos int
		wantOK  bool
	}{
		{"doi", newPaper("x:1", "10.1/A", "", "", 0), 0, true},
		{"pmid", newPaper("x:2", "", "42", "", 0), 1, true},
		{"paper id", newPaper("s2:2", "", "", "", 0), 1, true},
		{"title", newPaper("x:3", "", "", "Bacterial persistence under antibiotic stress.", 2021), 1, true},
		{"none", newPaper("x:4", "", "", "Something else entirely", 2021), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, ok := idx.Lookup(tt.p)
			if ok != tt.wantOK || pos != tt.wantPos {
				t.Errorf("Lookup() = (%d, %v), want (%d, %v)", pos, ok, tt.wantPos, tt.wantOK)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	existing := paper.Paper{
		PaperID:       "s2:1",
		DOI:           "10.1/a",
		Title:         "Original",
		CitationCount: paper.Int(5),
		Tags:          []string{},
		FieldsOfStudy: []string{"Biology"},
	}
	incoming := paper.Paper{
		PaperID:       "oalex:W1",
		DOI:           "10.1/other",
		PMID:          "77",
		Title:         "Replacement",
		Year:          paper.Int(2020),
		CitationCount: paper.Int(50),
		Abstract:      "abs",
		Tags:          []string{"seed"},
		FieldsOfStudy: []string{"Medicine"},
		Authors:       []paper.Author{{Name: "A. Author"}},
	}

	got := Merge(existing, incoming)

	if got.PaperID != "s2:1" || got.DOI != "10.1/a" || got.Title != "Original" {
		t.Errorf("identity/title overwritten: %+v", got)
	}
	if got.PMID != "77" || got.Abstract != "abs" {
		t.Errorf("empty scalars not filled: pmid=%q abstract=%q", got.PMID, got.Abstract)
	}
	if got.Year == nil || *got.Year != 2020 {
		t.Errorf("Year = %v, want 2020", got.Year)
	}
	if *got.CitationCount != 5 {
		t.Errorf("CitationCount = %d, want 5 (existing kept)", *got.CitationCount)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "seed" {
		t.Errorf("Tags = %v, want [seed] (empty list replaced)", got.Tags)
	}
	if len(got.FieldsOfStudy) != 1 || got.FieldsOfStudy[0] != "Biology" {
		t.Errorf("FieldsOfStudy = %v, want [Biology] (no union)", got.FieldsOfStudy)
	}
	if len(got.Authors) != 1 {
		t.Errorf("Authors = %v, want incoming authors", got.Authors)
	}

	// Inputs are untouched.
	if existing.PMID != "" || existing.Year != nil {
		t.Error("Merge modified existing")
	}
	got.Tags[0] = "changed"
	if incoming.Tags[0] != "seed" {
		t.Error("Merge result aliases incoming slices")
	}
}
