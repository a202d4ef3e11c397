package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/storage"
)

func buildStats(t *testing.T, papers ...paper.Paper) *Stats {
	t.Helper()
	dir := t.TempDir()
	store := storage.NewStore(filepath.Join(dir, "papers.jsonl"))
	if _, err := store.Append(papers); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	db, err := storage.OpenDB(filepath.Join(dir, "papers.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.RebuildFromStore(store); err != nil {
		t.Fatalf("RebuildFromStore() error = %v", err)
	}
	all, err := store.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	s, err := Build(all, db)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return s
}

func corpus() []paper.Paper {
	return []paper.Paper{
		{PaperID: "s2:1", Title: "Paper One", Year: paper.Int(2021), CitationCount: paper.Int(10), Venue: "Nature",
			FulltextStatus: paper.StatusRetrieved, FulltextPDFPath: "fulltext/pdf/a.pdf", FulltextSource: paper.SourceUnpaywall,
			Tags: []string{"seed"}},
		{PaperID: "s2:2", Title: "Completely different title", Year: paper.Int(2023), CitationCount: paper.Int(4), Venue: "Science",
			DiscoveryMethod: paper.CitationForward, NeedsManualRetrieval: true, FulltextStatus: paper.StatusFailed},
		{PaperID: "s2:3", Title: "Third work without a year", JournalName: "Nature", Tags: []string{"seed", "review"}},
	}
}

func TestBuild(t *testing.T) {
	s := buildStats(t, corpus()...)

	if s.Total != 3 {
		t.Errorf("Total = %d, want 3", s.Total)
	}
	if s.MethodCounts["keyword_search"] != 2 || s.MethodCounts["citation_forward"] != 1 {
		t.Errorf("MethodCounts = %v", s.MethodCounts)
	}
	if s.StatusCounts["not_attempted"] != 1 || s.StatusCounts["failed"] != 1 {
		t.Errorf("StatusCounts = %v", s.StatusCounts)
	}
	if s.SourceCounts["unpaywall"] != 1 || s.HasPDF != 1 || s.NeedsManual != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.TagCounts["seed"] != 2 || s.TagCounts["review"] != 1 {
		t.Errorf("TagCounts = %v", s.TagCounts)
	}
	if s.AvgCitations != 7 {
		t.Errorf("AvgCitations = %v, want 7", s.AvgCitations)
	}
	if len(s.TopVenues) != 2 || s.TopVenues[0] != (storage.Count{Key: "Nature", Count: 2}) {
		t.Errorf("TopVenues = %v", s.TopVenues)
	}
	if len(s.TopCited) != 2 || s.TopCited[0].Title != "Paper One" {
		t.Errorf("TopCited = %+v", s.TopCited)
	}
	if len(s.MostRecent) != 2 || s.MostRecent[0].Title != "Completely different title" {
		t.Errorf("MostRecent = %+v", s.MostRecent)
	}
}

func TestYearHistogram(t *testing.T) {
	got := YearHistogram([]storage.Count{{Key: "2020", Count: 4}, {Key: "2022", Count: 2}}, 40)
	want := strings.Join([]string{
		"  2020 | " + strings.Repeat("#", 40) + " (4)",
		"  2021 |  (0)",
		"  2022 | " + strings.Repeat("#", 20) + " (2)",
	}, "\n")
	if got != want {
		t.Errorf("YearHistogram() =\n%s\nwant\n%s", got, want)
	}
	if got := YearHistogram(nil, 40); got != "  No year data available" {
		t.Errorf("YearHistogram(nil) = %q", got)
	}
}

func TestWriteText(t *testing.T) {
	s := buildStats(t, corpus()...)
	var buf bytes.Buffer
	if err := WriteText(&buf, s); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Total papers: 3", "Nature: 2", "Average citations per paper: 7.0", "  seed: 2", "1. [10] Paper One (2021)"} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteMarkdown(t *testing.T) {
	s := buildStats(t, corpus()...)
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, s); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"# LitScout Corpus Report", "**Total papers:** 3", "| Method | Count |\n|--------|-------|", "| Nature | 2 |"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown report missing %q:\n%s", want, out)
		}
	}
}

func TestStatsJSON(t *testing.T) {
	s := buildStats(t, corpus()[0])
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["total"] != float64(1) {
		t.Errorf("total = %v", decoded["total"])
	}
}

func TestManualListMarkdown_Empty(t *testing.T) {
	got := ManualListMarkdown(nil, time.Now())
	if !strings.Contains(got, "No papers currently need manual retrieval.") {
		t.Errorf("empty list = %q", got)
	}
}

func TestSortManual(t *testing.T) {
	papers := []paper.Paper{
		{PaperID: "a", CitationCount: paper.Int(5)},
		{PaperID: "b", CitationCount: paper.Int(50)},
		{PaperID: "c", Tags: []string{"seed"}},
		{PaperID: "d", CitationCount: paper.Int(50)},
	}
	SortManual(papers)
	var ids []string
	for _, p := range papers {
		ids = append(ids, p.PaperID)
	}
	if got := strings.Join(ids, ""); got != "cbda" {
		t.Errorf("order = %s, want cbda", got)
	}
}

func TestWriteManualList(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewStore(filepath.Join(dir, "papers.jsonl"))
	_, err := store.Append([]paper.Paper{
		{PaperID: "s2:1", DOI: "10.1/x", Title: "Needs a library", Venue: "Cell", CitationCount: paper.Int(3),
			DiscoveryQuery: "antibodies", NeedsManualRetrieval: true,
			Authors: []paper.Author{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}}},
		{PaperID: "s2:2", Title: "Already have this one"},
	})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "manual_retrieval_list.md")
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	n, err := WriteManualList(store, path, now)
	if err != nil {
		t.Fatalf("WriteManualList() error = %v", err)
	}
	if n != 1 {
		t.Errorf("listed %d, want 1", n)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, want := range []string{
		"Generated: 2025-01-02T03:04:05Z",
		"Total: 1 papers",
		"### 1. Needs a library (n.d.)",
		"- **Authors:** A, B, C, et al.",
		"- **Publisher link:** https://doi.org/10.1/x",
		"- **Why it matters:** Discovered via keyword_search",
		"- **Suggested filename:** `10.1_x.pdf`",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("manual list missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Already have this one") {
		t.Error("manual list includes a paper not flagged for manual retrieval")
	}
}
