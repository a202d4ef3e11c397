package s2

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/matsen/litscout/internal/apiclient"
	"github.com/matsen/litscout/internal/paper"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...apiclient.Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	base := []apiclient.Option{
		apiclient.WithBaseURL(srv.URL),
		apiclient.WithRateLimit(rate.Inf),
		apiclient.WithRetry(1, 0),
	}
	return NewClient(append(base, opts...)...)
}

const samplePaper = `{
	"paperId": "abc123",
	"externalIds": {"DOI": "10.1234/ABC", "PubMed": "111", "PubMedCentral": "999", "CorpusId": 42},
	"title": "Sample Paper",
	"abstract": "An abstract.",
	"year": 2021,
	"venue": "Nature",
	"journal": {"name": "Nature Medicine"},
	"citationCount": 12,
	"influentialCitationCount": 3,
	"isOpenAccess": true,
	"openAccessPdf": {"url": "https://example.org/a.pdf"},
	"fieldsOfStudy": ["Biology"],
	"tldr": {"text": "Short."},
	"authors": [{"authorId": "77", "name": "Ada Lovelace"}, {"authorId": null, "name": "Anon"}]
}`

func TestSearch_MapsFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graph/v1/paper/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("query") != "sepsis" || q.Get("year") != "2015-2020" || q.Get("fieldsOfStudy") != "Medicine,Biology" {
			t.Errorf("query params = %v", q)
		}
		if q.Get("minCitationCount") != "5" {
			t.Errorf("minCitationCount = %q", q.Get("minCitationCount"))
		}
		if !strings.Contains(q.Get("fields"), "tldr") {
			t.Error("search should request tldr")
		}
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		fmt.Fprintf(w, `{"total": 1, "offset": 0, "data": [%s, {"paperId": "nope", "title": ""}]}`, samplePaper)
	}, apiclient.WithAPIKey("secret"))

	papers, err := c.Search(context.Background(), paper.Query{
		Text: "sepsis", YearFrom: 2015, YearTo: 2020, MinCitations: 5, MaxResults: 10,
		FieldsOfStudy: []string{"Medicine", "Biology"},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("Search() returned %d papers, want 1 (untitled dropped)", len(papers))
	}

	p := papers[0]
	checks := []struct{ name, got, want string }{
		{"PaperID", p.PaperID, "s2:abc123"},
		{"DOI", p.DOI, "10.1234/abc"},
		{"PMID", p.PMID, "111"},
		{"PMCID", p.PMCID, "PMC999"},
		{"JournalName", p.JournalName, "Nature Medicine"},
		{"TLDR", p.TLDR, "Short."},
		{"OpenAccessPDFURL", p.OpenAccessPDFURL, "https://example.org/a.pdf"},
		{"Source", p.Source, "semantic_scholar"},
		{"DiscoveryQuery", p.DiscoveryQuery, "sepsis"},
		{"Author0", p.Authors[0].AuthorID, "s2:77"},
		{"Author1", p.Authors[1].AuthorID, ""},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
	if p.DiscoveryMethod != paper.KeywordSearch {
		t.Errorf("DiscoveryMethod = %q", p.DiscoveryMethod)
	}
	if p.Citations() != 12 || p.InfluentialCitations() != 3 {
		t.Errorf("citations = %d/%d", p.Citations(), p.InfluentialCitations())
	}
}

func TestSearch_Paginates(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit > MaxSearchPage {
			t.Errorf("limit = %d exceeds page size", limit)
		}
		var items []string
		for i := 0; i < limit; i++ {
			items = append(items, fmt.Sprintf(`{"paperId":"p%d","title":"T%d"}`, offset+i, offset+i))
		}
		fmt.Fprintf(w, `{"offset": %d, "next": %d, "data": [%s]}`, offset, offset+limit, strings.Join(items, ","))
	})

	papers, err := c.Search(context.Background(), paper.Query{Text: "x", MaxResults: 150})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(papers) != 150 {
		t.Errorf("Search() returned %d papers, want 150", len(papers))
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if papers[149].PaperID != "s2:p149" {
		t.Errorf("last paper = %s", papers[149].PaperID)
	}
}

func TestForward(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graph/v1/paper/seed1/citations" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if strings.Contains(r.URL.Query().Get("fields"), "tldr") {
			t.Error("citation endpoint must not request tldr")
		}
		if r.URL.Query().Get("limit") != "1000" {
			t.Errorf("limit = %q, want capped 1000", r.URL.Query().Get("limit"))
		}
		fmt.Fprintf(w, `{"data": [{"citingPaper": %s}, {"citingPaper": null}]}`, samplePaper)
	})

	papers, err := c.Forward(context.Background(), "s2:seed1", 5000)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("Forward() returned %d papers, want 1", len(papers))
	}
	if papers[0].DiscoveryMethod != paper.CitationForward {
		t.Errorf("DiscoveryMethod = %q", papers[0].DiscoveryMethod)
	}
}

func TestBackward_ByDOI(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graph/v1/paper/DOI:10.1/xyz/references" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprintf(w, `{"data": [{"citedPaper": %s}]}`, samplePaper)
	})

	papers, err := c.Backward(context.Background(), "10.1/XYZ", 10)
	if err != nil {
		t.Fatalf("Backward() error = %v", err)
	}
	if len(papers) != 1 || papers[0].DiscoveryMethod != paper.CitationBackward {
		t.Errorf("Backward() = %+v", papers)
	}
}

func TestForward_UnresolvableID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if _, err := c.Forward(context.Background(), "oalex:W123", 10); err == nil {
		t.Error("Forward() should fail for an OpenAlex id")
	}
}

func TestRecommend(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recommendations/v1/papers/forpaper/a1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "500" {
			t.Errorf("limit = %q, want capped 500", r.URL.Query().Get("limit"))
		}
		fmt.Fprintf(w, `{"recommendedPapers": [%s]}`, samplePaper)
	})

	papers, err := c.Recommend(context.Background(), []string{"s2:a1", "s2:b2"}, 900)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("Recommend() returned %d papers", len(papers))
	}
	if papers[0].DiscoveryMethod != paper.Recommendation || papers[0].DiscoveryQuery != "s2:a1,s2:b2" {
		t.Errorf("paper = %+v", papers[0])
	}
}

func TestSearch_NotFoundIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if _, err := c.Search(context.Background(), paper.Query{Text: "x"}); err == nil {
		t.Error("Search() should fail on server error")
	}
}
