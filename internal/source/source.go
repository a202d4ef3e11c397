// Package source names the upstream literature services and collects their
// capabilities in a Registry.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/litscout/internal/paper"
)

// Kind identifies an upstream literature service.
type Kind string

const (
	SemanticScholar Kind = "semantic_scholar"
	PubMed          Kind = "pubmed"
	OpenAlex        Kind = "openalex"
)

// AllKinds returns every known source in search order.
func AllKinds() []Kind {
	return []Kind{SemanticScholar, PubMed, OpenAlex}
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(s))
	switch k {
	case SemanticScholar, PubMed, OpenAlex:
		return k, nil
	}
	return "", fmt.Errorf("unknown source %q (valid: semantic_scholar, pubmed, openalex)", s)
}

// ParseKinds parses a comma-separated list, dropping repeats.
func ParseKinds(list string) ([]Kind, error) {
	var kinds []Kind
	seen := make(map[Kind]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, err := ParseKind(part)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return nil, errors.New("no sources given")
	}
	return kinds, nil
}

// ErrUnsupported is returned when a source lacks a requested capability.
var ErrUnsupported = errors.New("capability not supported by source")

// Searcher runs keyword searches.
type Searcher interface {
	Search(ctx context.Context, q paper.Query) ([]paper.Paper, error)
}

// CitationWalker follows the citation graph from one paper.
type CitationWalker interface {
	// Forward returns papers citing id.
	Forward(ctx context.Context, id string, limit int) ([]paper.Paper, error)
	// Backward returns papers id references.
	Backward(ctx context.Context, id string, limit int) ([]paper.Paper, error)
}

// Recommender suggests papers related to a set of ids.
type Recommender interface {
	Recommend(ctx context.Context, ids []string, limit int) ([]paper.Paper, error)
}

// Registry maps each Kind to the capabilities its client offers.
type Registry struct {
	searchers    map[Kind]Searcher
	walkers      map[Kind]CitationWalker
	recommenders map[Kind]Recommender
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		searchers:    make(map[Kind]Searcher),
		walkers:      make(map[Kind]CitationWalker),
		recommenders: make(map[Kind]Recommender),
	}
}

// Register adds s under k, along with any CitationWalker or Recommender
// methods it implements.
func (r *Registry) Register(k Kind, s Searcher) {
	r.searchers[k] = s
	if w, ok := s.(CitationWalker); ok {
		r.walkers[k] = w
	}
	if rec, ok := s.(Recommender); ok {
		r.recommenders[k] = rec
	}
}

// Searcher returns the searcher for k.
func (r *Registry) Searcher(k Kind) (Searcher, error) {
	if s, ok := r.searchers[k]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%s search: %w", k, ErrUnsupported)
}

// Walker returns the citation walker for k.
func (r *Registry) Walker(k Kind) (CitationWalker, error) {
	if w, ok := r.walkers[k]; ok {
		return w, nil
	}
	return nil, fmt.Errorf("%s citation walk: %w", k, ErrUnsupported)
}

// Recommender returns the recommender for k.
func (r *Registry) Recommender(k Kind) (Recommender, error) {
	if rec, ok := r.recommenders[k]; ok {
		return rec, nil
	}
	return nil, fmt.Errorf("%s recommendations: %w", k, ErrUnsupported)
}
