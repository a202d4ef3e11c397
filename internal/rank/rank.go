// Package rank scores the corpus bibliometrically, optionally blended with
// an LLM relevance judgement, and tags the top papers.
package rank

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/logger"
	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/score"
	"github.com/matsen/litscout/internal/storage"
)

// Bibliometric weights.
const (
	weightCitations   = 0.6
	weightRecency     = 0.3
	weightInfluential = 0.1
)

// Defaults for Options.
const (
	DefaultTop    = 20
	DefaultWeight = 0.5

	// neutralRelevance stands in for a failed oracle call.
	neutralRelevance = 0.5
)

// Oracle rates how relevant p is to a research focus, in [0, 1].
type Oracle interface {
	Relevance(ctx context.Context, p *paper.Paper, prompt string) (float64, error)
}

// Options controls a ranking run.
type Options struct {
	FilterTag    string
	FilterMethod paper.DiscoveryMethod
	Top          int
	Tag          string  // applied to the returned papers when set
	Prompt       string  // research focus for the oracle
	Weight       float64 // share of the oracle score in the combined score
}

// Scored is one ranked paper.
type Scored struct {
	Paper        paper.Paper `json:"paper"`
	Score        float64     `json:"score"`
	Bibliometric float64     `json:"bibliometric"`
	Relevance    *float64    `json:"relevance,omitempty"`
}

// Result is the outcome of a ranking run.
type Result struct {
	Considered int      `json:"considered"`
	Tagged     int      `json:"tagged"`
	Ranked     []Scored `json:"ranked"`
}

// Engine ranks the papers of a store. Oracle may be nil.
type Engine struct {
	Store  *storage.Store
	Oracle Oracle
	Log    *zap.Logger
}

// BibliometricScore blends citation count, recency and influence for p.
func BibliometricScore(p *paper.Paper, b score.Bounds) float64 {
	return weightCitations*b.CitationNorm(p) +
		weightRecency*b.Recency(p) +
		weightInfluential*score.InfluentialRatio(p)
}

// Run scores every paper matching the filters and returns the top
// opts.Top, highest first. Ties keep store order.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	log := logger.OrNop(e.Log)
	top := opts.Top
	if top <= 0 {
		top = DefaultTop
	}
	weight := min(max(opts.Weight, 0), 1)

	filter := storage.Filter{DiscoveryMethod: opts.FilterMethod}
	if opts.FilterTag != "" {
		filter.Tags = []string{opts.FilterTag}
	}
	papers, err := e.Store.Load(filter)
	if err != nil {
		return nil, err
	}
	res := &Result{Considered: len(papers), Ranked: []Scored{}}
	if len(papers) == 0 {
		log.Warn("no papers match the filters")
		return res, nil
	}

	useOracle := opts.Prompt != "" && e.Oracle != nil
	if opts.Prompt != "" && e.Oracle == nil {
		log.Warn("no relevance oracle configured, ranking bibliometrically")
	}

	b := score.NewBounds(papers)
	scored := make([]Scored, 0, len(papers))
	for i := range papers {
		p := &papers[i]
		s := Scored{Paper: *p, Bibliometric: BibliometricScore(p, b)}
		s.Score = s.Bibliometric
		if useOracle {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rel, err := e.Oracle.Relevance(ctx, p, opts.Prompt)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil, err
				}
				log.Warn("relevance scoring failed", zap.String("paper_id", p.PaperID), zap.Error(err))
				rel = neutralRelevance
			}
			s.Relevance = &rel
			s.Score = (1-weight)*s.Bibliometric + weight*rel
		}
		scored = append(scored, s)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > top {
		scored = scored[:top]
	}
	res.Ranked = scored

	if opts.Tag != "" {
		for i := range res.Ranked {
			p := &res.Ranked[i].Paper
			if !p.AddTag(opts.Tag) {
				continue
			}
			if _, err := e.Store.Update(p.PaperID, storage.Fields{paper.FieldTags: p.Tags}); err != nil {
				log.Warn("tagging paper", zap.String("paper_id", p.PaperID), zap.Error(err))
				continue
			}
			res.Tagged++
		}
		log.Info("tagged top papers", zap.String("tag", opts.Tag), zap.Int("count", res.Tagged))
	}
	return res, nil
}
