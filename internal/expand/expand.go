// Package expand grows the corpus by walking the citation graph outward
// from seed papers and admitting the best scored candidates.
package expand

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/ident"
	"github.com/matsen/litscout/internal/logger"
	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/score"
	"github.com/matsen/litscout/internal/source"
	"github.com/matsen/litscout/internal/storage"
)

// Defaults for Options fields left zero.
const (
	DefaultSeedTag       = "seed"
	DefaultMaxCandidates = 500

	// nextSeeds is how many top candidates seed the following depth.
	nextSeeds = 10
)

// Options configures an expansion run.
type Options struct {
	SeedTag       string
	SeedDOIs      []string // overrides SeedTag when set
	Strategy      Strategy
	Depth         int
	MinCitations  int
	MaxCandidates int
	DryRun        bool // score and report without writing
}

func (o *Options) setDefaults() {
	if o.SeedTag == "" {
		o.SeedTag = DefaultSeedTag
	}
	if o.Strategy == "" {
		o.Strategy = Both
	}
	if o.Depth <= 0 {
		o.Depth = 1
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
}

// DepthResult is the outcome of one depth.
type DepthResult struct {
	Depth           int         `json:"depth"`
	SeedCount       int         `json:"seed_count"`
	CandidatesFound int         `json:"candidates_found"`
	CandidatesKept  int         `json:"candidates_kept"`
	NewPapersAdded  int         `json:"new_papers_added"`
	Kept            []Candidate `json:"-"`
}

// Summary is the outcome of a run.
type Summary struct {
	RunID           string        `json:"run_id"`
	SeedCount       int           `json:"seed_count"`
	Strategy        Strategy      `json:"strategy"`
	DryRun          bool          `json:"dry_run"`
	CandidatesFound int           `json:"candidates_found"`
	NewPapersAdded  int           `json:"new_papers_added"`
	Depths          []DepthResult `json:"depths"`
}

// Engine runs expansions against the store. Walker serves forward and
// backward strategies, Recommender the recommend strategy.
type Engine struct {
	// Kind is the source serving Walker and Recommender. It decides which
	// stored ids can be sent upstream as is.
	Kind        source.Kind
	Walker      source.CitationWalker
	Recommender source.Recommender
	Store       *storage.Store
	Logs        *storage.Logs
	Log         *zap.Logger
}

// NewEngine returns an engine backed by the citation capabilities of kind
// in reg. It fails with source.ErrUnsupported when kind cannot serve
// strategy.
func NewEngine(reg *source.Registry, kind source.Kind, strategy Strategy, store *storage.Store, logs *storage.Logs, log *zap.Logger) (*Engine, error) {
	e := &Engine{Kind: kind, Store: store, Logs: logs, Log: log}
	if strategy == "" {
		strategy = Both
	}
	if strategy.forward() || strategy.backward() {
		w, err := reg.Walker(kind)
		if err != nil {
			return nil, err
		}
		e.Walker = w
	}
	if strategy.recommend() {
		r, err := reg.Recommender(kind)
		if err != nil {
			return nil, err
		}
		e.Recommender = r
	}
	return e, nil
}

// Run expands from the selected seeds for up to opts.Depth depths.
func (e *Engine) Run(ctx context.Context, opts Options) (*Summary, error) {
	opts.setDefaults()
	log := logger.OrNop(e.Log)

	if (opts.Strategy.forward() || opts.Strategy.backward()) && e.Walker == nil {
		return nil, fmt.Errorf("strategy %s needs citation walks: %w", opts.Strategy, source.ErrUnsupported)
	}
	if opts.Strategy.recommend() && e.Recommender == nil {
		return nil, fmt.Errorf("strategy %s needs recommendations: %w", opts.Strategy, source.ErrUnsupported)
	}

	seeds, err := e.selectSeeds(opts)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		RunID:     uuid.NewString(),
		SeedCount: len(seeds),
		Strategy:  opts.Strategy,
		DryRun:    opts.DryRun,
	}
	if len(seeds) == 0 {
		log.Warn("no seed papers found",
			zap.String("seed_tag", opts.SeedTag), zap.Strings("seed_dois", opts.SeedDOIs))
		return sum, nil
	}
	log.Info("expanding",
		zap.Int("seeds", len(seeds)),
		zap.String("strategy", string(opts.Strategy)),
		zap.Int("depth", opts.Depth))

	current := seeds
	for d := 1; d <= opts.Depth; d++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		candidates := e.discover(ctx, current, opts)
		dr := DepthResult{Depth: d, SeedCount: len(current), CandidatesFound: len(candidates)}

		if len(candidates) > 0 {
			rankCandidates(candidates, len(current))
			if len(candidates) > opts.MaxCandidates {
				candidates = candidates[:opts.MaxCandidates]
			}
			dr.Kept = candidates
			dr.CandidatesKept = len(candidates)

			if !opts.DryRun {
				papers := make([]paper.Paper, len(candidates))
				for i := range candidates {
					papers[i] = candidates[i].Paper
				}
				added, err := e.Store.Append(papers)
				if err != nil {
					return sum, fmt.Errorf("saving depth %d candidates: %w", d, err)
				}
				dr.NewPapersAdded = added
			}
		}

		sum.Depths = append(sum.Depths, dr)
		sum.CandidatesFound += dr.CandidatesFound
		sum.NewPapersAdded += dr.NewPapersAdded
		log.Info("expansion depth complete",
			zap.Int("depth", d),
			zap.Int("candidates", dr.CandidatesFound),
			zap.Int("kept", dr.CandidatesKept),
			zap.Int("new", dr.NewPapersAdded))

		if !opts.DryRun {
			if err := e.Logs.AppendExpansion(e.logEntry(sum.RunID, opts, dr)); err != nil {
				log.Warn("writing expansion log", zap.Error(err))
			}
		}

		if len(candidates) == 0 {
			break
		}
		next := make([]paper.Paper, 0, nextSeeds)
		for i := 0; i < len(candidates) && i < nextSeeds; i++ {
			next = append(next, candidates[i].Paper)
		}
		current = next
	}
	return sum, nil
}

func (e *Engine) selectSeeds(opts Options) ([]paper.Paper, error) {
	all, err := e.Store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading papers: %w", err)
	}
	var seeds []paper.Paper
	if len(opts.SeedDOIs) > 0 {
		want := make(map[string]bool, len(opts.SeedDOIs))
		for _, d := range opts.SeedDOIs {
			want[ident.NormalizeDOI(d)] = true
		}
		for _, p := range all {
			if p.DOI != "" && want[ident.NormalizeDOI(p.DOI)] {
				seeds = append(seeds, p)
			}
		}
		return seeds, nil
	}
	for _, p := range all {
		if p.HasTag(opts.SeedTag) {
			seeds = append(seeds, p)
		}
	}
	return seeds, nil
}

// discover calls the enabled adapters for every seed and aggregates the
// results by paper_id in discovery order. Each adapter call that returns a
// candidate counts as one connection.
func (e *Engine) discover(ctx context.Context, seeds []paper.Paper, opts Options) []Candidate {
	log := logger.OrNop(e.Log)
	var candidates []Candidate
	index := make(map[string]int)

	add := func(seed *paper.Paper, found []paper.Paper) {
		for _, p := range found {
			if i, ok := index[p.PaperID]; ok {
				candidates[i].Connections++
				continue
			}
			p.SeedPaperID = seed.PaperID
			index[p.PaperID] = len(candidates)
			candidates = append(candidates, Candidate{Paper: p, Connections: 1})
		}
	}

	for i := range seeds {
		seed := &seeds[i]
		id := lookupID(seed, e.Kind)

		if opts.Strategy.forward() {
			found, err := e.Walker.Forward(ctx, id, opts.MaxCandidates)
			if err != nil {
				log.Warn("forward citations failed", zap.String("paper_id", seed.PaperID), zap.Error(err))
			}
			add(seed, found)
		}
		if opts.Strategy.backward() {
			found, err := e.Walker.Backward(ctx, id, opts.MaxCandidates)
			if err != nil {
				log.Warn("backward references failed", zap.String("paper_id", seed.PaperID), zap.Error(err))
			}
			add(seed, found)
		}
		if opts.Strategy.recommend() {
			found, err := e.Recommender.Recommend(ctx, []string{id}, opts.MaxCandidates)
			if err != nil {
				log.Warn("recommendations failed", zap.String("paper_id", seed.PaperID), zap.Error(err))
			}
			add(seed, found)
		}
	}

	if opts.MinCitations > 0 {
		kept := candidates[:0]
		for _, c := range candidates {
			if c.Paper.Citations() >= opts.MinCitations {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}
	return candidates
}

// nativePrefix is the paper_id prefix each source resolves directly.
var nativePrefix = map[source.Kind]string{
	source.SemanticScholar: "s2:",
	source.OpenAlex:        "oalex:",
	source.PubMed:          "pmid:",
}

// lookupID picks the id kind is most likely to resolve: the paper's own id
// when it was minted by that source, otherwise the DOI when known.
func lookupID(p *paper.Paper, kind source.Kind) string {
	if prefix := nativePrefix[kind]; prefix != "" && strings.HasPrefix(p.PaperID, prefix) {
		return p.PaperID
	}
	if p.DOI != "" {
		return p.DOI
	}
	return p.PaperID
}

// rankCandidates scores candidates and sorts them best first, keeping
// discovery order among equal scores.
func rankCandidates(candidates []Candidate, seeds int) {
	papers := make([]paper.Paper, len(candidates))
	for i := range candidates {
		papers[i] = candidates[i].Paper
	}
	b := score.NewBounds(papers)
	for i := range candidates {
		candidates[i].Score = CompositeScore(&candidates[i], b, seeds)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}

func (e *Engine) logEntry(runID string, opts Options, dr DepthResult) paper.ExpansionLogEntry {
	entry := paper.ExpansionLogEntry{
		Timestamp:       paper.Now(),
		RunID:           runID,
		Depth:           dr.Depth,
		MaxDepth:        opts.Depth,
		SeedCount:       dr.SeedCount,
		SeedDOIs:        opts.SeedDOIs,
		Strategy:        string(opts.Strategy),
		CandidatesFound: dr.CandidatesFound,
		CandidatesKept:  dr.CandidatesKept,
		NewPapersAdded:  dr.NewPapersAdded,
	}
	if len(opts.SeedDOIs) == 0 {
		entry.SeedTag = opts.SeedTag
	}
	return entry
}
