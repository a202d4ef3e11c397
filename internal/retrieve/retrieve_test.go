package retrieve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matsen/litscout/internal/config"
	"github.com/matsen/litscout/internal/fsutil"
	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/storage"
	"github.com/matsen/litscout/internal/unpaywall"
)

const fakePDF = "%PDF-1.4\nfake body\n%%EOF\n"

type rewriteHost struct {
	target *url.URL
}

// RoundTrip keeps the original request on the response so relative links
// resolve against the URL the caller asked for.
func (rh rewriteHost) RoundTrip(r *http.Request) (*http.Response, error) {
	out := r.Clone(r.Context())
	out.URL.Scheme = rh.target.Scheme
	out.URL.Host = rh.target.Host
	resp, err := http.DefaultTransport.RoundTrip(out)
	if resp != nil {
		resp.Request = r
	}
	return resp, err
}

type fakeOA struct {
	res   *unpaywall.Result
	err   error
	calls int
}

func (f *fakeOA) Lookup(ctx context.Context, doi string) (*unpaywall.Result, error) {
	f.calls++
	return f.res, f.err
}

type fakePMC struct {
	pmcid      string
	bioc       []byte
	fetchCalls int
}

func (f *fakePMC) PMIDToPMCID(ctx context.Context, pmid string) (string, error) {
	return f.pmcid, nil
}

func (f *fakePMC) FetchBioC(ctx context.Context, pmcid string) ([]byte, error) {
	f.fetchCalls++
	return f.bioc, nil
}

// fileServer serves a fixed PDF at /ok.pdf, HTML at /paywall, and 404s
// elsewhere, recording every requested path.
func fileServer(t *testing.T, extra map[string]http.HandlerFunc) (*http.Client, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if h, ok := extra[r.URL.Path]; ok {
			h(w, r)
			return
		}
		switch r.URL.Path {
		case "/ok.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte(fakePDF))
		case "/paywall":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html>sign in</html>"))
		case "/notpdf":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write([]byte("GIF89a not a pdf"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Transport: rewriteHost{target}}, &paths
}

func newTestRetriever(t *testing.T, hc *http.Client, papers ...paper.Paper) *Retriever {
	t.Helper()
	cfg := config.Default()
	cfg.Dir = t.TempDir()
	store := storage.NewStore(cfg.PapersPath())
	if len(papers) > 0 {
		if _, err := store.Append(papers); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	r := New(cfg, store, storage.NewLogs(cfg.Dir), nil, nil, nil)
	r.Downloader = NewDownloader(hc)
	r.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func mustGet(t *testing.T, r *Retriever, id string) *paper.Paper {
	t.Helper()
	p, err := r.Store.Get(id)
	if err != nil || p == nil {
		t.Fatalf("Get(%s) = %v, %v", id, p, err)
	}
	return p
}

func TestRun_FirstSuccessWins(t *testing.T) {
	hc, paths := fileServer(t, nil)
	r := newTestRetriever(t, hc, paper.Paper{
		PaperID:          "s2:1",
		DOI:              "10.1/abc",
		Title:            "Antibody repertoires",
		OpenAccessPDFURL: "https://cdn.example.org/ok.pdf",
	})
	oa := &fakeOA{res: &unpaywall.Result{PDFURL: "https://oa.example.org/ok.pdf"}}
	r.Unpaywall = oa

	sum, err := r.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Selected != 1 || sum.Retrieved != 1 || sum.Failed != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if oa.calls != 0 {
		t.Errorf("Unpaywall called %d times after an earlier success", oa.calls)
	}
	if len(*paths) != 1 {
		t.Errorf("requests = %v, want one", *paths)
	}

	p := mustGet(t, r, "s2:1")
	if p.FulltextStatus != paper.StatusRetrieved {
		t.Errorf("status = %s, want retrieved", p.FulltextStatus)
	}
	if p.FulltextPDFPath != "fulltext/pdf/10.1_abc.pdf" {
		t.Errorf("pdf path = %q", p.FulltextPDFPath)
	}
	if p.FulltextSource != paper.SourceSemanticScholar {
		t.Errorf("source = %s", p.FulltextSource)
	}
	if p.NeedsManualRetrieval {
		t.Error("needs_manual_retrieval should be false")
	}

	dest := r.Config.Abs(p.FulltextPDFPath)
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != fakePDF {
		t.Fatalf("stored PDF = %q, %v", data, err)
	}
	sumHex, err := fsutil.Checksum(dest)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := r.Logs.ReadRetrieval()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Status != paper.AttemptSuccess || e.Checksum != sumHex || e.FileSizeBytes != int64(len(fakePDF)) {
		t.Errorf("log entry = %+v", e)
	}
	if e.FilePath != p.FulltextPDFPath || e.FormatAttempted != paper.FormatPDF {
		t.Errorf("log entry = %+v", e)
	}
}

func TestRun_PaywallContinuesChainThenFails(t *testing.T) {
	hc, paths := fileServer(t, nil)
	r := newTestRetriever(t, hc, paper.Paper{
		PaperID:          "s2:2",
		DOI:              "10.1101/2020.01.01.000001",
		Title:            "Preprint with paywalled copy",
		OpenAccessPDFURL: "https://publisher.example.org/paywall",
		CitationCount:    paper.Int(7),
	})
	r.Unpaywall = &fakeOA{res: &unpaywall.Result{PDFURL: "https://oa.example.org/missing"}}

	sum, err := r.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Failed != 1 || sum.Retrieved != 0 || sum.ManualPending != 1 {
		t.Errorf("summary = %+v", sum)
	}

	want := []string{"/paywall", "/missing", "/content/10.1101/2020.01.01.000001v1.full.pdf"}
	if strings.Join(*paths, " ") != strings.Join(want, " ") {
		t.Errorf("requests = %v, want %v", *paths, want)
	}

	entries, err := r.Logs.ReadRetrieval()
	if err != nil {
		t.Fatal(err)
	}
	var statuses []string
	for _, e := range entries {
		statuses = append(statuses, e.SourceAttempted+"="+e.Status)
	}
	wantStatuses := "semantic_scholar=failed_paywall unpaywall=failed biorxiv=failed"
	if strings.Join(statuses, " ") != wantStatuses {
		t.Errorf("log = %v, want %s", statuses, wantStatuses)
	}
	if entries[0].Error != "HTML response (likely paywall)" {
		t.Errorf("paywall error = %q", entries[0].Error)
	}

	p := mustGet(t, r, "s2:2")
	if p.FulltextStatus != paper.StatusFailed || !p.NeedsManualRetrieval {
		t.Errorf("status = %s, needs_manual = %v", p.FulltextStatus, p.NeedsManualRetrieval)
	}
	if _, err := os.Stat(filepath.Join(r.Config.PDFDir(), "10.1101_2020.01.01.000001.pdf")); !os.IsNotExist(err) {
		t.Errorf("failed download left a file behind: %v", err)
	}

	list, err := os.ReadFile(r.Config.ManualListPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(list), "Preprint with paywalled copy") {
		t.Errorf("manual list missing paper:\n%s", list)
	}
}

func TestRun_NotPDFIsRejected(t *testing.T) {
	hc, _ := fileServer(t, nil)
	r := newTestRetriever(t, hc, paper.Paper{
		PaperID: "s2:3",
		Title:   "Disguised image",
		ArXivID: "2101.00001",
	}, paper.Paper{
		PaperID:          "s2:4",
		Title:            "Something else entirely",
		OpenAccessPDFURL: "https://cdn.example.org/notpdf",
	})

	if _, err := r.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	entries, err := r.Logs.ReadRetrieval()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(entries))
	}
	if entries[0].URLAttempted != "https://arxiv.org/pdf/2101.00001" || entries[0].Error != "HTTP 404" {
		t.Errorf("arxiv entry = %+v", entries[0])
	}
	if entries[1].Error != "not_pdf" {
		t.Errorf("error = %q, want not_pdf", entries[1].Error)
	}
	leftovers, _ := filepath.Glob(filepath.Join(r.Config.PDFDir(), "*"))
	if len(leftovers) != 0 {
		t.Errorf("pdf dir not empty: %v", leftovers)
	}
}

func TestRun_PublisherLandingPage(t *testing.T) {
	hc, _ := fileServer(t, map[string]http.HandlerFunc{
		"/landing": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><head><meta name="citation_pdf_url" content="/ok.pdf"></head></html>`))
		},
	})
	r := newTestRetriever(t, hc, paper.Paper{PaperID: "s2:5", DOI: "10.5/x", Title: "Landing page paper"})
	r.Unpaywall = &fakeOA{res: &unpaywall.Result{IsOA: true, LandingPageURL: "https://journal.example.org/landing"}}

	sum, err := r.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Retrieved != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	p := mustGet(t, r, "s2:5")
	if p.FulltextSource != paper.SourcePublisherOA {
		t.Errorf("source = %s, want publisher_oa", p.FulltextSource)
	}
	entries, _ := r.Logs.ReadRetrieval()
	last := entries[len(entries)-1]
	if last.URLAttempted != "https://journal.example.org/ok.pdf" {
		t.Errorf("resolved url = %q", last.URLAttempted)
	}
}

func TestRun_UnpaywallLookupFailureIsLogged(t *testing.T) {
	hc, _ := fileServer(t, nil)
	r := newTestRetriever(t, hc, paper.Paper{PaperID: "s2:6", DOI: "10.6/y", Title: "Lookup failure"})
	oa := &fakeOA{err: errors.New("boom")}
	r.Unpaywall = oa

	if _, err := r.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if oa.calls != 1 {
		t.Errorf("lookups = %d, want 1", oa.calls)
	}
	entries, _ := r.Logs.ReadRetrieval()
	if len(entries) != 1 || entries[0].SourceAttempted != "unpaywall" || !strings.Contains(entries[0].Error, "boom") {
		t.Errorf("log = %+v", entries)
	}
}

func TestRun_StructuredChain(t *testing.T) {
	hc, _ := fileServer(t, nil)
	r := newTestRetriever(t, hc, paper.Paper{PaperID: "pmid:42", PMID: "42", Title: "Structured only"})
	pmc := &fakePMC{pmcid: "PMC9", bioc: []byte(`[{"documents":[]}]`)}
	r.PubMed = pmc

	sum, err := r.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Retrieved != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	p := mustGet(t, r, "pmid:42")
	if p.FulltextXMLPath != "fulltext/xml/PMC9.json" || p.PMCID != "PMC9" {
		t.Errorf("xml path = %q, pmcid = %q", p.FulltextXMLPath, p.PMCID)
	}
	if p.FulltextSource != paper.SourcePMCBioC || p.FulltextPDFPath != "" {
		t.Errorf("source = %s, pdf = %q", p.FulltextSource, p.FulltextPDFPath)
	}
	data, err := os.ReadFile(r.Config.Abs(p.FulltextXMLPath))
	if err != nil || string(data) != string(pmc.bioc) {
		t.Errorf("stored BioC = %q, %v", data, err)
	}
}

func TestRun_BioCUnavailable(t *testing.T) {
	hc, _ := fileServer(t, nil)
	r := newTestRetriever(t, hc, paper.Paper{PaperID: "pmid:43", PMCID: "PMC10", Title: "No BioC"})
	r.PubMed = &fakePMC{}

	if _, err := r.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	entries, _ := r.Logs.ReadRetrieval()
	if len(entries) != 1 || entries[0].Error != "BioC not available" || entries[0].FormatAttempted != paper.FormatXML {
		t.Errorf("log = %+v", entries)
	}
	if p := mustGet(t, r, "pmid:43"); p.FulltextStatus != paper.StatusFailed {
		t.Errorf("status = %s, want failed", p.FulltextStatus)
	}
}

func TestRun_SkipsStructuredWhenSingleFormat(t *testing.T) {
	hc, _ := fileServer(t, nil)
	r := newTestRetriever(t, hc, paper.Paper{
		PaperID:          "s2:7",
		PMCID:            "PMC11",
		Title:            "PDF is enough",
		OpenAccessPDFURL: "https://cdn.example.org/ok.pdf",
	})
	r.Config.Retrieval.RetrieveBothFormats = false
	pmc := &fakePMC{bioc: []byte(`[]`)}
	r.PubMed = pmc

	if _, err := r.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if pmc.fetchCalls != 0 {
		t.Errorf("FetchBioC called %d times", pmc.fetchCalls)
	}
}

func TestRun_ChainOnlyUsesListedSources(t *testing.T) {
	hc, paths := fileServer(t, nil)
	r := newTestRetriever(t, hc, paper.Paper{
		PaperID:          "s2:8",
		Title:            "Arxiv only",
		ArXivID:          "2101.00002",
		OpenAccessPDFURL: "https://cdn.example.org/ok.pdf",
	})
	r.Config.Retrieval.FallbackChain = []string{"arxiv"}

	if _, err := r.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(*paths) != 1 || (*paths)[0] != "/pdf/2101.00002" {
		t.Errorf("requests = %v", *paths)
	}
}

func TestSelect(t *testing.T) {
	r := newTestRetriever(t, nil,
		paper.Paper{PaperID: "s2:a", Title: "Never attempted", Tags: []string{"x"}},
		paper.Paper{PaperID: "s2:b", Title: "Previously failed", FulltextStatus: paper.StatusFailed},
		paper.Paper{PaperID: "s2:c", Title: "Waiting on a human", FulltextStatus: paper.StatusManualPending},
		paper.Paper{PaperID: "s2:d", Title: "Already retrieved", FulltextStatus: paper.StatusRetrieved},
	)

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"default", Options{}, "s2:a"},
		{"retry failed", Options{RetryFailed: true}, "s2:a s2:b"},
		{"retry manual", Options{RetryManualPending: true}, "s2:a s2:c"},
		{"tag", Options{Tag: "y", RetryFailed: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Select(tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, p := range got {
				ids = append(ids, p.PaperID)
			}
			if strings.Join(ids, " ") != tt.want {
				t.Errorf("Select() = %v, want %q", ids, tt.want)
			}
		})
	}
}

func TestRun_DryRun(t *testing.T) {
	hc, paths := fileServer(t, nil)
	r := newTestRetriever(t, hc, paper.Paper{
		PaperID:          "s2:9",
		Title:            "Dry run paper",
		OpenAccessPDFURL: "https://cdn.example.org/ok.pdf",
	})

	sum, err := r.Run(context.Background(), Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !sum.DryRun || sum.Selected != 1 || len(sum.Papers) != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(*paths) != 0 {
		t.Errorf("dry run made requests: %v", *paths)
	}
	if _, err := os.Stat(r.Config.RetrievalLogPath()); !os.IsNotExist(err) {
		t.Error("dry run wrote the retrieval log")
	}
	if _, err := os.Stat(r.Config.ManualListPath()); !os.IsNotExist(err) {
		t.Error("dry run wrote the manual list")
	}
	if p := mustGet(t, r, "s2:9"); p.FulltextStatus != paper.StatusNotAttempted {
		t.Errorf("status = %s", p.FulltextStatus)
	}
}

func TestRun_UpdateManualListOnly(t *testing.T) {
	r := newTestRetriever(t, nil,
		paper.Paper{PaperID: "s2:m", Title: "Flagged for a human", NeedsManualRetrieval: true},
	)
	sum, err := r.Run(context.Background(), Options{UpdateManualListOnly: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.ManualPending != 1 || sum.Selected != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if _, err := os.Stat(r.Config.ManualListPath()); err != nil {
		t.Errorf("manual list not written: %v", err)
	}
}

func TestRun_CanceledContextStops(t *testing.T) {
	hc, paths := fileServer(t, nil)
	r := newTestRetriever(t, hc, paper.Paper{
		PaperID:          "s2:10",
		Title:            "Never reached",
		OpenAccessPDFURL: "https://cdn.example.org/ok.pdf",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(*paths) != 0 {
		t.Errorf("requests = %v", *paths)
	}
}
