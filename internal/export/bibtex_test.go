package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/litscout/internal/paper"
)

func TestToBibTeX_BasicArticle(t *testing.T) {
	p := paper.Paper{
		DOI:   "10.1234/test",
		Title: "Test Paper Title",
		Authors: []paper.Author{
			{Name: "John Smith"},
			{Name: "Jane Q. Doe"},
		},
		Abstract:    "This is the abstract",
		JournalName: "Nature",
		Year:        paper.Int(2026),
		PMID:        "123",
	}

	got := ToBibTeX(&p, "Smith2026-tp")

	for _, want := range []string{
		"@article{Smith2026-tp,",
		`author = {Smith, John and Doe, Jane Q.}`,
		`title = {Test Paper Title}`,
		`journal = {Nature}`,
		`year = {2026}`,
		`doi = {10.1234/test}`,
		`pmid = {123}`,
		`abstract = {This is the abstract}`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ToBibTeX() should contain %q, got:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "}\n") {
		t.Errorf("ToBibTeX() should end with }, got:\n%s", got)
	}
}

func TestToBibTeX_Inproceedings(t *testing.T) {
	p := paper.Paper{
		Title:   "A Conference Paper",
		Authors: []paper.Author{{Name: "Alice Brown"}},
		Venue:   "Proceedings of ICML 2026",
		Year:    paper.Int(2026),
	}

	got := ToBibTeX(&p, "Brown2026-cp")
	if !strings.HasPrefix(got, "@inproceedings{Brown2026-cp,") {
		t.Errorf("ToBibTeX() should use inproceedings, got:\n%s", got)
	}
	if !strings.Contains(got, `booktitle = {Proceedings of ICML 2026}`) {
		t.Errorf("ToBibTeX() conference paper should use booktitle, got:\n%s", got)
	}
}

func TestToBibTeX_OptionalFields(t *testing.T) {
	p := paper.Paper{Title: "Minimal Paper", ArXivID: "2401.00001"}

	got := ToBibTeX(&p, "Minimal")
	for _, absent := range []string{"author =", "journal =", "year =", "doi =", "abstract ="} {
		if strings.Contains(got, absent) {
			t.Errorf("ToBibTeX() should omit %q, got:\n%s", absent, got)
		}
	}
	if !strings.Contains(got, "eprint = {2401.00001},\n  archiveprefix = {arXiv},") {
		t.Errorf("ToBibTeX() should carry the arXiv eprint, got:\n%s", got)
	}
}

func TestDetermineEntryType(t *testing.T) {
	tests := []struct {
		venue string
		want  string
	}{
		{"Nature", "article"},
		{"bioRxiv", "article"},
		{"arXiv", "article"},
		{"medRxiv", "article"},
		{"Proceedings of NeurIPS", "inproceedings"},
		{"International Conference on Machine Learning", "inproceedings"},
		{"Workshop on AI Safety", "inproceedings"},
		{"Symposium on Theory of Computing", "inproceedings"},
		{"", "article"},
	}

	for _, tt := range tests {
		t.Run(tt.venue, func(t *testing.T) {
			p := paper.Paper{Venue: tt.venue}
			if got := determineEntryType(&p); got != tt.want {
				t.Errorf("determineEntryType(%q) = %q, want %q", tt.venue, got, tt.want)
			}
		})
	}
}

func TestSplitAuthorName(t *testing.T) {
	tests := []struct {
		name      string
		wantFirst string
		wantLast  string
	}{
		{"John Smith", "John", "Smith"},
		{"Jane Q. Doe", "Jane Q.", "Doe"},
		{"Martin Luther King Jr.", "Martin Luther", "King Jr."},
		{"Madonna", "", "Madonna"},
		{"  ", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := splitAuthorName(tt.name)
			if first != tt.wantFirst || last != tt.wantLast {
				t.Errorf("splitAuthorName(%q) = (%q, %q), want (%q, %q)", tt.name, first, last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestFormatAuthors(t *testing.T) {
	authors := []paper.Author{{Name: "John Smith"}, {Name: ""}, {Name: "WHO"}}
	if got, want := formatAuthors(authors), "Smith, John and WHO"; got != want {
		t.Errorf("formatAuthors() = %q, want %q", got, want)
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain text", "plain text"},
		{"100% effective", `100\% effective`},
		{"A & B", `A \& B`},
		{"$100 price", `\$100 price`},
		{"section #1", `section \#1`},
		{"under_score", `under\_score`},
		{"{braces}", `\{braces\}`},
		{"test~tilde", `test\textasciitilde{}tilde`},
		{"x^2", `x\textasciicircum{}2`},
		{`a\b`, `a\textbackslash{}b`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapeLatex(tt.input); got != tt.want {
				t.Errorf("escapeLatex(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCiteKey(t *testing.T) {
	tests := []struct {
		name string
		p    paper.Paper
		want string
	}{
		{
			name: "standard",
			p:    paper.Paper{Title: "The Structure of Proteins", Authors: []paper.Author{{Name: "Linus Pauling"}}, Year: paper.Int(1951)},
			want: "Pauling1951-sp",
		},
		{
			name: "no authors or year",
			p:    paper.Paper{Title: "Anonymous"},
			want: "Unknown9999-ax",
		},
		{
			name: "punctuation in surname and title",
			p:    paper.Paper{Title: "(Deep) learning", Authors: []paper.Author{{Name: "Ann O'Brien"}}, Year: paper.Int(2020)},
			want: "OBrien2020-dl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CiteKey(&tt.p); got != tt.want {
				t.Errorf("CiteKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToBibTeXList_UniqueKeys(t *testing.T) {
	p := paper.Paper{Title: "Same Title", Authors: []paper.Author{{Name: "A Smith"}}, Year: paper.Int(2020)}
	got := ToBibTeXList([]paper.Paper{p, p, p})

	for _, key := range []string{"{Smith2020-st,", "{Smith2020-st-2,", "{Smith2020-st-3,"} {
		if !strings.Contains(got, key) {
			t.Errorf("ToBibTeXList() missing key %s, got:\n%s", key, got)
		}
	}
	if n := strings.Count(got, "@article{"); n != 3 {
		t.Errorf("ToBibTeXList() entries = %d, want 3", n)
	}
}

func TestToBibTeXList_Empty(t *testing.T) {
	if got := ToBibTeXList(nil); got != "" {
		t.Errorf("ToBibTeXList(nil) = %q, want empty", got)
	}
}

func TestParseBibTeXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	content := `@article{Smith2020-st,
  title = {Same Title},
  doi = {https://doi.org/10.1/ABC},
}

@misc{Other2019-xx,
  DOI = "10.2/def",
}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	idx, err := ParseBibTeXFile(path)
	if err != nil {
		t.Fatalf("ParseBibTeXFile() error = %v", err)
	}
	if !idx.Keys["Smith2020-st"] || !idx.Keys["Other2019-xx"] {
		t.Errorf("Keys = %v", idx.Keys)
	}
	if idx.DOIs["10.1/abc"] != "Smith2020-st" || idx.DOIs["10.2/def"] != "Other2019-xx" {
		t.Errorf("DOIs = %v", idx.DOIs)
	}
}

func TestParseBibTeXFile_Missing(t *testing.T) {
	idx, err := ParseBibTeXFile(filepath.Join(t.TempDir(), "none.bib"))
	if err != nil {
		t.Fatalf("ParseBibTeXFile() error = %v", err)
	}
	if len(idx.Keys) != 0 {
		t.Errorf("Keys = %v, want empty", idx.Keys)
	}
}

func TestAppendNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	papers := []paper.Paper{
		{DOI: "10.1/abc", Title: "Same Title", Authors: []paper.Author{{Name: "A Smith"}}, Year: paper.Int(2020)},
		{Title: "Same Title", Authors: []paper.Author{{Name: "B Smith"}}, Year: paper.Int(2020)},
	}

	res, err := AppendNew(path, papers)
	if err != nil {
		t.Fatalf("AppendNew() error = %v", err)
	}
	if res.Added != 2 || res.Skipped != 0 {
		t.Errorf("first AppendNew() = %+v", res)
	}

	// Second run: the first matches by DOI, the second by cite key.
	res, err = AppendNew(path, papers)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 0 || res.Skipped != 2 {
		t.Errorf("second AppendNew() = %+v", res)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "@article{"); n != 2 {
		t.Errorf("file has %d entries, want 2:\n%s", n, data)
	}
}
