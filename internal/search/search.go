// Package search runs a keyword query across several sources and adds the
// unique results to the paper store.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matsen/litscout/internal/dedup"
	"github.com/matsen/litscout/internal/logger"
	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/source"
	"github.com/matsen/litscout/internal/storage"
)

// Options describes one search run.
type Options struct {
	Query         string
	Sources       []source.Kind // defaults to Semantic Scholar
	YearFrom      int
	YearTo        int
	MinCitations  int
	MaxResults    int
	FieldsOfStudy []string
	Tag           string // applied to every unique result
}

// SourceResult is what one source contributed to a run.
type SourceResult struct {
	Source source.Kind `json:"source"`
	Found  int         `json:"found"`
	Error  string      `json:"error,omitempty"`
}

// Result summarizes a search run.
type Result struct {
	Log     paper.SearchLog `json:"log"`
	Sources []SourceResult  `json:"sources"`
	Papers  []paper.Paper   `json:"-"` // unique results, before the store append
}

// Runner executes searches against the registry's sources.
type Runner struct {
	Registry *source.Registry
	Store    *storage.Store
	Logs     *storage.Logs
	Log      *zap.Logger
}

// Run queries each source in turn, dedups the combined results, appends
// them to the store and writes a search log. A failing source is logged
// and skipped.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	log := logger.OrNop(r.Log)
	if strings.TrimSpace(opts.Query) == "" {
		return nil, errors.New("empty query")
	}
	kinds := opts.Sources
	if len(kinds) == 0 {
		kinds = []source.Kind{source.SemanticScholar}
	}

	q := paper.Query{
		Text:          opts.Query,
		YearFrom:      opts.YearFrom,
		YearTo:        opts.YearTo,
		MinCitations:  opts.MinCitations,
		MaxResults:    opts.MaxResults,
		FieldsOfStudy: opts.FieldsOfStudy,
	}

	res := &Result{}
	var all []paper.Paper
	for _, k := range kinds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sr := SourceResult{Source: k}
		s, err := r.Registry.Searcher(k)
		if err == nil {
			var found []paper.Paper
			found, err = s.Search(ctx, q)
			sr.Found = len(found)
			all = append(all, found...)
		}
		if err != nil {
			log.Warn("search failed", zap.String("source", string(k)), zap.Error(err))
			sr.Error = err.Error()
		} else {
			log.Info("source returned results", zap.String("source", string(k)), zap.Int("count", sr.Found))
		}
		res.Sources = append(res.Sources, sr)
	}

	// The first source to return a paper wins; later copies only fill
	// its gaps, e.g. a PMID from PubMed on a Semantic Scholar record.
	idx := dedup.NewIndex()
	for i := range all {
		p := all[i]
		if pos, dup := idx.Lookup(&p); dup {
			res.Papers[pos] = dedup.Merge(res.Papers[pos], p)
			continue
		}
		if opts.Tag != "" {
			p.AddTag(opts.Tag)
		}
		idx.Add(&p)
		res.Papers = append(res.Papers, p)
	}

	added, err := r.Store.Append(res.Papers)
	if err != nil {
		return nil, fmt.Errorf("saving results: %w", err)
	}

	sources := make([]string, len(kinds))
	for i, k := range kinds {
		sources[i] = string(k)
	}
	res.Log = paper.SearchLog{
		Timestamp:         paper.Now(),
		RunID:             uuid.NewString(),
		Query:             opts.Query,
		Sources:           sources,
		MinCitationCount:  opts.MinCitations,
		MaxResults:        opts.MaxResults,
		FieldsOfStudy:     opts.FieldsOfStudy,
		TotalResults:      len(all),
		NewPapersAdded:    added,
		DuplicatesSkipped: len(all) - added,
	}
	if q.HasYearRange() {
		res.Log.YearRange = []int{opts.YearFrom, opts.YearTo}
	}
	if err := r.Logs.AppendSearch(res.Log); err != nil {
		return nil, err
	}

	log.Info("search complete",
		zap.String("run_id", res.Log.RunID),
		zap.Int("total", len(all)),
		zap.Int("new", added))
	return res, nil
}
