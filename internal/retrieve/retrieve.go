// Package retrieve acquires full text for stored papers through a
// prioritized chain of open access sources, logging every attempt.
package retrieve

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/config"
	"github.com/matsen/litscout/internal/fsutil"
	"github.com/matsen/litscout/internal/ident"
	"github.com/matsen/litscout/internal/logger"
	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/pubmed"
	"github.com/matsen/litscout/internal/report"
	"github.com/matsen/litscout/internal/storage"
	"github.com/matsen/litscout/internal/unpaywall"
)

// Deterministic preprint PDF locations.
const (
	BioRxivDOIPrefix = "10.1101/"
	bioRxivPDFURL    = "https://www.biorxiv.org/content/%sv1.full.pdf"
	arXivPDFURL      = "https://arxiv.org/pdf/%s"
)

// pdfOrder is the fixed priority of the PDF chain.
var pdfOrder = []paper.FulltextSource{
	paper.SourceSemanticScholar,
	paper.SourceUnpaywall,
	paper.SourceBioRxiv,
	paper.SourceArXiv,
	paper.SourcePublisherOA,
}

// OALookup finds open access locations by DOI.
type OALookup interface {
	Lookup(ctx context.Context, doi string) (*unpaywall.Result, error)
}

// FullTextSource resolves PMC ids and serves BioC documents.
type FullTextSource interface {
	PMIDToPMCID(ctx context.Context, pmid string) (string, error)
	FetchBioC(ctx context.Context, pmcid string) ([]byte, error)
}

// Options selects the papers a run processes.
type Options struct {
	Tag                  string
	RetryFailed          bool
	RetryManualPending   bool
	DryRun               bool
	UpdateManualListOnly bool
}

// PaperResult is the outcome for one paper.
type PaperResult struct {
	PaperID string               `json:"paper_id"`
	Title   string               `json:"title"`
	Status  paper.FulltextStatus `json:"status,omitempty"`
	PDFPath string               `json:"pdf_path,omitempty"`
	XMLPath string               `json:"xml_path,omitempty"`
	Source  paper.FulltextSource `json:"source,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// Summary reports a retrieval run.
type Summary struct {
	Selected      int           `json:"selected"`
	Retrieved     int           `json:"retrieved"`
	Failed        int           `json:"failed"`
	UpdateErrors  int           `json:"update_errors"`
	ManualPending int           `json:"manual_pending"`
	DryRun        bool          `json:"dry_run"`
	Papers        []PaperResult `json:"papers"`
}

// Retriever runs the fallback chain. Unpaywall and PubMed may be nil, which
// disables the steps that need them.
type Retriever struct {
	Config     *config.Config
	Store      *storage.Store
	Logs       *storage.Logs
	Unpaywall  OALookup
	PubMed     FullTextSource
	Downloader *Downloader
	Log        *zap.Logger
	Now        func() time.Time
}

// New returns a retriever for the project in cfg.
func New(cfg *config.Config, store *storage.Store, logs *storage.Logs, oa OALookup, pm FullTextSource, log *zap.Logger) *Retriever {
	return &Retriever{
		Config:     cfg,
		Store:      store,
		Logs:       logs,
		Unpaywall:  oa,
		PubMed:     pm,
		Downloader: NewDownloader(nil),
		Log:        log,
	}
}

func (r *Retriever) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Retriever) enabled() map[paper.FulltextSource]bool {
	m := make(map[paper.FulltextSource]bool)
	for _, s := range r.Config.Retrieval.FallbackChain {
		m[paper.FulltextSource(strings.TrimSpace(s))] = true
	}
	return m
}

// Select returns the papers a run with opts would process.
func (r *Retriever) Select(opts Options) ([]paper.Paper, error) {
	var filter storage.Filter
	if opts.Tag != "" {
		filter.Tags = []string{opts.Tag}
	}
	all, err := r.Store.Load(filter)
	if err != nil {
		return nil, err
	}
	var out []paper.Paper
	for _, p := range all {
		switch {
		case p.FulltextStatus == paper.StatusNotAttempted,
			opts.RetryFailed && p.FulltextStatus == paper.StatusFailed,
			opts.RetryManualPending && p.FulltextStatus == paper.StatusManualPending:
			out = append(out, p)
		}
	}
	return out, nil
}

// Run retrieves full text for every selected paper, then regenerates the
// manual retrieval list. Per-paper failures are counted, never returned.
func (r *Retriever) Run(ctx context.Context, opts Options) (*Summary, error) {
	log := logger.OrNop(r.Log)
	sum := &Summary{DryRun: opts.DryRun}

	if opts.UpdateManualListOnly {
		n, err := r.writeManualList()
		sum.ManualPending = n
		return sum, err
	}

	selected, err := r.Select(opts)
	if err != nil {
		return nil, fmt.Errorf("selecting papers: %w", err)
	}
	sum.Selected = len(selected)

	if opts.DryRun {
		for _, p := range selected {
			sum.Papers = append(sum.Papers, PaperResult{PaperID: p.PaperID, Title: p.Title})
		}
		return sum, nil
	}

	var runErr error
	for i := range selected {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		res := r.retrievePaper(ctx, &selected[i])
		if res.Status == paper.StatusRetrieved {
			sum.Retrieved++
		} else {
			sum.Failed++
		}
		if res.Error != "" {
			sum.UpdateErrors++
		}
		sum.Papers = append(sum.Papers, res)
	}

	n, err := r.writeManualList()
	if err != nil {
		log.Warn("regenerating manual retrieval list", zap.Error(err))
	}
	sum.ManualPending = n

	log.Info("retrieval complete",
		zap.Int("retrieved", sum.Retrieved),
		zap.Int("failed", sum.Failed),
		zap.Int("manual_pending", sum.ManualPending))
	return sum, runErr
}

func (r *Retriever) writeManualList() (int, error) {
	return report.WriteManualList(r.Store, r.Config.ManualListPath(), r.now())
}

// retrievePaper runs both chains for p and records the outcome on the
// store. Error is set only when the store update fails.
func (r *Retriever) retrievePaper(ctx context.Context, p *paper.Paper) PaperResult {
	log := logger.OrNop(r.Log)
	enabled := r.enabled()
	res := PaperResult{PaperID: p.PaperID, Title: p.Title}
	fields := storage.Fields{}

	pdfPath, pdfSource := r.tryPDF(ctx, p, enabled)
	if enabled[paper.SourcePMCBioC] && (pdfPath == "" || r.Config.Retrieval.RetrieveBothFormats) {
		xmlPath, pmcid := r.tryStructured(ctx, p)
		res.XMLPath = xmlPath
		if pmcid != "" && p.PMCID == "" {
			fields["pmcid"] = pmcid
		}
	}
	res.PDFPath = pdfPath

	if pdfPath != "" || res.XMLPath != "" {
		res.Status = paper.StatusRetrieved
		res.Source = paper.SourcePMCBioC
		if pdfPath != "" {
			res.Source = pdfSource
			fields[paper.FieldFulltextPDFPath] = pdfPath
		}
		if res.XMLPath != "" {
			fields[paper.FieldFulltextXMLPath] = res.XMLPath
		}
		fields[paper.FieldFulltextSource] = res.Source
		fields[paper.FieldNeedsManualRetrieval] = false
	} else {
		res.Status = paper.StatusFailed
		fields[paper.FieldNeedsManualRetrieval] = true
	}
	fields[paper.FieldFulltextStatus] = res.Status

	if _, err := r.Store.Update(p.PaperID, fields); err != nil {
		log.Warn("updating paper", zap.String("paper_id", p.PaperID), zap.Error(err))
		res.Error = err.Error()
	}
	return res
}

// tryPDF walks the PDF chain and returns the stored path and source of the
// first successful download.
func (r *Retriever) tryPDF(ctx context.Context, p *paper.Paper, enabled map[paper.FulltextSource]bool) (string, paper.FulltextSource) {
	dest := filepath.Join(r.Config.PDFDir(), ident.FileStem(p)+".pdf")
	tried := make(map[string]bool)
	var oa *unpaywall.Result
	oaLooked := false

	lookup := func() *unpaywall.Result {
		if oaLooked || r.Unpaywall == nil || p.DOI == "" {
			return oa
		}
		oaLooked = true
		res, err := r.Unpaywall.Lookup(ctx, p.DOI)
		if err != nil {
			r.logAttempt(p, paper.FormatPDF, paper.SourceUnpaywall, "", Outcome{
				Status: paper.AttemptFailed,
				Error:  "lookup failed: " + err.Error(),
			}, "")
			return nil
		}
		oa = res
		return oa
	}

	attempt := func(src paper.FulltextSource, url string) bool {
		if url == "" || tried[url] {
			return false
		}
		tried[url] = true
		out := r.Downloader.Download(ctx, url, dest)
		rel := ""
		if out.OK() {
			rel = r.Config.Rel(dest)
		}
		r.logAttempt(p, paper.FormatPDF, src, url, out, rel)
		return out.OK()
	}

	for _, src := range pdfOrder {
		if !enabled[src] {
			continue
		}
		ok := false
		switch src {
		case paper.SourceSemanticScholar:
			ok = attempt(src, p.OpenAccessPDFURL)
		case paper.SourceUnpaywall:
			if res := lookup(); res != nil {
				ok = attempt(src, res.PDFURL)
			}
		case paper.SourceBioRxiv:
			if strings.HasPrefix(p.DOI, BioRxivDOIPrefix) {
				ok = attempt(src, fmt.Sprintf(bioRxivPDFURL, p.DOI))
			}
		case paper.SourceArXiv:
			if p.ArXivID != "" {
				ok = attempt(src, fmt.Sprintf(arXivPDFURL, p.ArXivID))
			}
		case paper.SourcePublisherOA:
			ok = r.tryLandingPage(ctx, p, lookup(), attempt)
		}
		if ok {
			return r.Config.Rel(dest), src
		}
	}
	return "", ""
}

// tryLandingPage follows the citation_pdf_url of the Unpaywall landing page.
func (r *Retriever) tryLandingPage(ctx context.Context, p *paper.Paper, oa *unpaywall.Result, attempt func(paper.FulltextSource, string) bool) bool {
	if oa == nil || oa.LandingPageURL == "" {
		return false
	}
	link, err := r.Downloader.FindPDFLink(ctx, oa.LandingPageURL)
	if err != nil || link == "" {
		msg := "no citation_pdf_url on landing page"
		if err != nil {
			msg = "landing page: " + err.Error()
		}
		r.logAttempt(p, paper.FormatPDF, paper.SourcePublisherOA, oa.LandingPageURL,
			Outcome{Status: paper.AttemptFailed, Error: msg}, "")
		return false
	}
	return attempt(paper.SourcePublisherOA, link)
}

// tryStructured fetches the BioC document for p. It returns the stored path
// on success and the PMCID it used, which may have been resolved from the
// PMID.
func (r *Retriever) tryStructured(ctx context.Context, p *paper.Paper) (string, string) {
	if r.PubMed == nil {
		return "", ""
	}
	log := logger.OrNop(r.Log)

	pmcid := p.PMCID
	if pmcid == "" && p.PMID != "" {
		id, err := r.PubMed.PMIDToPMCID(ctx, p.PMID)
		if err != nil {
			log.Warn("PMID to PMCID conversion failed", zap.String("pmid", p.PMID), zap.Error(err))
		}
		pmcid = id
	}
	if pmcid == "" {
		return "", ""
	}

	url := pubmed.BioCURLFor(pmcid)
	data, err := r.PubMed.FetchBioC(ctx, pmcid)
	if err != nil || data == nil {
		msg := "BioC not available"
		if err != nil {
			msg += ": " + err.Error()
		}
		r.logAttempt(p, paper.FormatXML, paper.SourcePMCBioC, url, Outcome{Status: paper.AttemptFailed, Error: msg}, "")
		return "", pmcid
	}

	dest := filepath.Join(r.Config.XMLDir(), ident.SanitizeForFilename(pmcid)+".json")
	h := fsutil.NewHash()
	err = fsutil.WriteAtomic(dest, func(w io.Writer) error {
		_, err := io.MultiWriter(w, h).Write(data)
		return err
	})
	if err != nil {
		r.logAttempt(p, paper.FormatXML, paper.SourcePMCBioC, url, Outcome{Status: paper.AttemptFailed, Error: err.Error()}, "")
		return "", pmcid
	}

	rel := r.Config.Rel(dest)
	r.logAttempt(p, paper.FormatXML, paper.SourcePMCBioC, url, Outcome{
		Status:      paper.AttemptSuccess,
		ContentType: "application/json",
		Size:        int64(len(data)),
		Checksum:    fsutil.HexSum(h),
	}, rel)
	return rel, pmcid
}

func (r *Retriever) logAttempt(p *paper.Paper, format string, src paper.FulltextSource, url string, out Outcome, filePath string) {
	entry := paper.RetrievalLogEntry{
		DOI:             p.DOI,
		PaperID:         p.PaperID,
		Timestamp:       paper.Now(),
		FormatAttempted: format,
		SourceAttempted: string(src),
		URLAttempted:    url,
		Status:          out.Status,
		FilePath:        filePath,
		FileSizeBytes:   out.Size,
		ContentType:     out.ContentType,
		Checksum:        out.Checksum,
		Error:           out.Error,
	}
	if err := r.Logs.AppendRetrieval(entry); err != nil {
		logger.OrNop(r.Log).Warn("writing retrieval log", zap.String("paper_id", p.PaperID), zap.Error(err))
	}
	logger.OrNop(r.Log).Debug("retrieval attempt",
		zap.String("paper_id", p.PaperID),
		zap.String("source", string(src)),
		zap.String("status", out.Status))
}
