// Package ingest matches manually downloaded PDFs in the inbox to stored
// papers and files them as manual retrievals.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/config"
	"github.com/matsen/litscout/internal/fsutil"
	"github.com/matsen/litscout/internal/ident"
	"github.com/matsen/litscout/internal/logger"
	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/pdf"
	"github.com/matsen/litscout/internal/report"
	"github.com/matsen/litscout/internal/storage"
)

// Options controls an ingest run.
type Options struct {
	DryRun bool
}

// FileResult is the outcome for one inbox file.
type FileResult struct {
	File         string  `json:"file"`
	Matched      bool    `json:"matched"`
	PaperID      string  `json:"paper_id,omitempty"`
	Title        string  `json:"title,omitempty"`
	Method       string  `json:"method,omitempty"`
	Score        float64 `json:"score,omitempty"`
	PDFPath      string  `json:"pdf_path,omitempty"`
	Pages        int     `json:"pages,omitempty"`
	Checksum     string  `json:"checksum,omitempty"`
	AlreadyFiled bool    `json:"already_filed,omitempty"`
	Closest      string  `json:"closest,omitempty"`
	ClosestScore float64 `json:"closest_score,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// Summary reports an ingest run.
type Summary struct {
	Ingested     int          `json:"ingested"`
	Unmatched    int          `json:"unmatched"`
	Errors       int          `json:"errors"`
	StillPending int          `json:"still_pending"`
	DryRun       bool         `json:"dry_run"`
	Files        []FileResult `json:"files"`
}

// Ingester files inbox PDFs for one project.
type Ingester struct {
	Config *config.Config
	Store  *storage.Store
	Logs   *storage.Logs
	Log    *zap.Logger
	Now    func() time.Time
}

// New returns an ingester for the project in cfg.
func New(cfg *config.Config, store *storage.Store, logs *storage.Logs, log *zap.Logger) *Ingester {
	return &Ingester{Config: cfg, Store: store, Logs: logs, Log: log}
}

func (in *Ingester) now() time.Time {
	if in.Now != nil {
		return in.Now()
	}
	return time.Now()
}

// InboxFiles lists the PDFs in the inbox, sorted by name.
func (in *Ingester) InboxFiles() ([]string, error) {
	entries, err := os.ReadDir(in.Config.InboxDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading inbox: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && isPDF(e.Name()) {
			files = append(files, filepath.Join(in.Config.InboxDir(), e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// Run matches and files every inbox PDF, then regenerates the manual
// retrieval list. Per-file failures are reported on the result.
func (in *Ingester) Run(ctx context.Context, opts Options) (*Summary, error) {
	log := logger.OrNop(in.Log)
	sum := &Summary{DryRun: opts.DryRun, Files: []FileResult{}}

	files, err := in.InboxFiles()
	if err != nil {
		return nil, err
	}
	all, err := in.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	pending := 0
	for _, p := range all {
		if p.NeedsManualRetrieval {
			pending++
		}
	}

	if len(files) == 0 {
		log.Info("no PDFs found in inbox")
		sum.StillPending = pending
		return sum, nil
	}
	log.Info("scanning inbox", zap.Int("pdfs", len(files)))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res := in.ingestFile(path, all, opts.DryRun)
		switch {
		case res.Error != "":
			sum.Errors++
		case res.Matched:
			sum.Ingested++
			if !opts.DryRun {
				markFiled(all, res.PaperID)
			}
		default:
			sum.Unmatched++
		}
		sum.Files = append(sum.Files, res)
	}

	if opts.DryRun {
		sum.StillPending = max(pending-sum.Ingested, 0)
	} else {
		n, err := report.WriteManualList(in.Store, in.Config.ManualListPath(), in.now())
		if err != nil {
			log.Warn("regenerating manual retrieval list", zap.Error(err))
		}
		sum.StillPending = n
	}

	log.Info("ingest complete",
		zap.Int("ingested", sum.Ingested),
		zap.Int("unmatched", sum.Unmatched),
		zap.Int("still_pending", sum.StillPending))
	return sum, nil
}

// Identify runs the match strategies against the file at path in order:
// file name DOI, printed DOI, metadata title, then first page text.
func (in *Ingester) Identify(path string, all []paper.Paper) (*Match, error) {
	if m := MatchFilename(filepath.Base(path), all); m != nil {
		return m, nil
	}

	doc, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	if m := MatchDOI(doc, all); m != nil {
		return m, nil
	}
	pool := candidates(all)
	if m, _ := MatchMetadataTitle(doc.MetadataTitle(), pool); m != nil {
		return m, nil
	}
	m, _ := MatchFirstPage(doc.PageText(1), pool)
	return m, nil
}

func (in *Ingester) ingestFile(path string, all []paper.Paper, dryRun bool) FileResult {
	log := logger.OrNop(in.Log)
	name := filepath.Base(path)
	res := FileResult{File: name}

	m, err := in.Identify(path, all)
	if err != nil {
		log.Warn("reading inbox PDF", zap.String("file", name), zap.Error(err))
	}
	if m == nil {
		res.Closest, res.ClosestScore = Closest(name, candidates(all))
		log.Warn("no confident match", zap.String("file", name), zap.String("closest", res.Closest))
		return res
	}

	p := m.Paper
	res.Matched = true
	res.PaperID, res.Title = p.PaperID, p.Title
	res.Method, res.Score = m.Method, m.Score
	log.Info("matched", zap.String("file", name), zap.String("paper_id", p.PaperID), zap.String("method", m.String()))

	dest := filepath.Join(in.Config.PDFDir(), ident.FileStem(p)+".pdf")
	res.PDFPath = in.Config.Rel(dest)
	if dryRun {
		return res
	}

	if err := in.file(path, dest, p, &res); err != nil {
		log.Warn("ingesting", zap.String("file", name), zap.Error(err))
		res.Error = err.Error()
		return res
	}
	return res
}

// markFiled updates the in-memory copy of a filed paper so later inbox
// files prefer other candidates.
func markFiled(all []paper.Paper, paperID string) {
	for i := range all {
		if all[i].PaperID == paperID {
			all[i].NeedsManualRetrieval = false
			all[i].FulltextStatus = paper.StatusManualRetrieved
			return
		}
	}
}

// file copies path to dest unless dest already holds the same bytes,
// records the retrieval, and moves path to the processed directory.
func (in *Ingester) file(path, dest string, p *paper.Paper, res *FileResult) error {
	log := logger.OrNop(in.Log)

	sum, err := fsutil.Checksum(path)
	if err != nil {
		return err
	}
	res.Checksum = sum

	if existing, err := fsutil.Checksum(dest); err == nil && existing == sum {
		res.AlreadyFiled = true
	} else if err := fsutil.CopyFile(path, dest); err != nil {
		return fmt.Errorf("copying to %s: %w", res.PDFPath, err)
	}

	if n, err := pdf.PageCount(dest); err != nil {
		log.Warn("counting pages", zap.String("file", res.PDFPath), zap.Error(err))
	} else {
		res.Pages = n
	}

	found, err := in.Store.Update(p.PaperID, storage.Fields{
		paper.FieldFulltextPDFPath:      res.PDFPath,
		paper.FieldFulltextStatus:       paper.StatusManualRetrieved,
		paper.FieldFulltextSource:       paper.SourceManual,
		paper.FieldNeedsManualRetrieval: false,
	})
	if err != nil {
		return fmt.Errorf("updating %s: %w", p.PaperID, err)
	}
	if !found {
		return fmt.Errorf("paper %s no longer in store", p.PaperID)
	}

	info, err := os.Stat(dest)
	size := int64(0)
	if err == nil {
		size = info.Size()
	}
	if err := in.Logs.AppendRetrieval(paper.RetrievalLogEntry{
		DOI:             p.DOI,
		PaperID:         p.PaperID,
		Timestamp:       paper.Now(),
		FormatAttempted: paper.FormatPDF,
		SourceAttempted: string(paper.SourceManual),
		Status:          paper.AttemptSuccess,
		FilePath:        res.PDFPath,
		FileSizeBytes:   size,
		ContentType:     "application/pdf",
		Checksum:        sum,
	}); err != nil {
		log.Warn("writing retrieval log", zap.Error(err))
	}

	processed := filepath.Join(in.Config.ProcessedDir(), filepath.Base(path))
	if err := fsutil.MoveFile(path, processed); err != nil {
		return fmt.Errorf("moving to processed: %w", err)
	}
	return nil
}
