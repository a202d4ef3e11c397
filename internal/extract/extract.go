// Package extract turns retrieved full text into truncated, LLM-ready plain
// text files.
package extract

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/config"
	"github.com/matsen/litscout/internal/fsutil"
	"github.com/matsen/litscout/internal/ident"
	"github.com/matsen/litscout/internal/logger"
	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/pdf"
	"github.com/matsen/litscout/internal/storage"
)

// Options selects papers and the token budget.
type Options struct {
	DOI       string // only this paper; re-extracts even if done before
	Status    paper.FulltextStatus
	MaxTokens int // 0 uses the configured budget
}

// Result is the outcome for one paper.
type Result struct {
	PaperID     string `json:"paper_id"`
	TxtPath     string `json:"txt_path,omitempty"`
	TotalTokens int    `json:"total_tokens,omitempty"`
	ShownTokens int    `json:"shown_tokens,omitempty"`
	Skipped     bool   `json:"skipped,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Summary reports an extraction run.
type Summary struct {
	Extracted int      `json:"extracted"`
	Skipped   int      `json:"skipped"`
	Errors    int      `json:"errors"`
	Papers    []Result `json:"papers"`
}

// Extractor writes fulltext/txt files for one project.
type Extractor struct {
	Config *config.Config
	Store  *storage.Store
	Log    *zap.Logger
}

// New returns an extractor for the project in cfg.
func New(cfg *config.Config, store *storage.Store, log *zap.Logger) *Extractor {
	return &Extractor{Config: cfg, Store: store, Log: log}
}

// Select returns the papers a run with opts would process: those with a
// PDF or BioC file, matching the filters, not yet extracted unless a DOI
// is given.
func (e *Extractor) Select(opts Options) ([]paper.Paper, error) {
	all, err := e.Store.Load(storage.Filter{Status: opts.Status})
	if err != nil {
		return nil, err
	}
	doi := ident.NormalizeDOI(opts.DOI)
	var out []paper.Paper
	for _, p := range all {
		switch {
		case doi != "" && ident.NormalizeDOI(p.DOI) != doi:
		case doi == "" && p.FulltextTxtPath != "":
		case p.FulltextPDFPath == "" && p.FulltextXMLPath == "":
		default:
			out = append(out, p)
		}
	}
	return out, nil
}

// Run extracts every selected paper. Per-paper failures are counted.
func (e *Extractor) Run(ctx context.Context, opts Options) (*Summary, error) {
	log := logger.OrNop(e.Log)
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = e.Config.Extraction.MaxTokensPerDoc
	}

	papers, err := e.Select(opts)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Papers: []Result{}}
	for i := range papers {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res := e.extractOne(&papers[i], maxTokens)
		switch {
		case res.Error != "":
			sum.Errors++
			log.Warn("extraction failed", zap.String("paper_id", res.PaperID), zap.String("error", res.Error))
		case res.Skipped:
			sum.Skipped++
		default:
			sum.Extracted++
		}
		sum.Papers = append(sum.Papers, res)
	}

	log.Info("extraction complete",
		zap.Int("extracted", sum.Extracted),
		zap.Int("skipped", sum.Skipped),
		zap.Int("errors", sum.Errors))
	return sum, nil
}

// Sections loads the text of p, preferring BioC sections over PDF text.
func (e *Extractor) Sections(p *paper.Paper) Sections {
	log := logger.OrNop(e.Log)
	if p.FulltextXMLPath != "" {
		data, err := os.ReadFile(e.Config.Abs(p.FulltextXMLPath))
		if err == nil {
			secs, err := ParseBioC(data)
			if err != nil {
				log.Warn("parsing BioC", zap.String("paper_id", p.PaperID), zap.Error(err))
			}
			if len(secs) > 0 {
				return secs
			}
		}
	}
	if p.FulltextPDFPath != "" {
		path := e.Config.Abs(p.FulltextPDFPath)
		if _, err := os.Stat(path); err == nil {
			text, err := pdf.ExtractText(path, 0)
			if err != nil {
				log.Warn("reading PDF", zap.String("paper_id", p.PaperID), zap.Error(err))
			}
			if text != "" {
				return Sections{{Key: "body", Text: text}}
			}
		}
	}
	return nil
}

func (e *Extractor) extractOne(p *paper.Paper, maxTokens int) Result {
	res := Result{PaperID: p.PaperID}
	secs := e.Sections(p)
	if len(secs) == 0 {
		res.Skipped = true
		return res
	}

	kept, total, shown := Truncate(secs, maxTokens, e.Config.Extraction.PrioritySections)
	out := Format(p, kept, total, shown)

	dest := filepath.Join(e.Config.TxtDir(), ident.FileStem(p)+".txt")
	err := fsutil.WriteAtomic(dest, func(w io.Writer) error {
		_, err := io.WriteString(w, out)
		return err
	})
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.TxtPath = e.Config.Rel(dest)
	res.TotalTokens, res.ShownTokens = total, shown
	if _, err := e.Store.Update(p.PaperID, storage.Fields{paper.FieldFulltextTxtPath: res.TxtPath}); err != nil {
		res.Error = err.Error()
	}
	return res
}
