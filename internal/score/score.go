// Package score holds the normalized bibliometric signals shared by
// expansion and ranking. Every signal lies in [0, 1] and is computed
// relative to the set of papers being scored.
package score

import (
	"math"

	"github.com/matsen/litscout/internal/paper"
)

// Bounds are the set-wide extremes the signals are normalized against.
type Bounds struct {
	MaxLogCitations float64
	MinYear         int
	MaxYear         int
	HasYears        bool
}

// NewBounds computes the bounds over papers.
func NewBounds(papers []paper.Paper) Bounds {
	var b Bounds
	for i := range papers {
		p := &papers[i]
		if lc := logCitations(p); lc > b.MaxLogCitations {
			b.MaxLogCitations = lc
		}
		if !p.HasYear() {
			continue
		}
		y := *p.Year
		if !b.HasYears {
			b.MinYear, b.MaxYear, b.HasYears = y, y, true
			continue
		}
		b.MinYear = min(b.MinYear, y)
		b.MaxYear = max(b.MaxYear, y)
	}
	return b
}

func logCitations(p *paper.Paper) float64 {
	return math.Log(float64(p.Citations()) + 1)
}

// CitationNorm is ln(cc+1) over the largest ln(cc+1) in the set, or 0 when
// no paper is cited.
func (b Bounds) CitationNorm(p *paper.Paper) float64 {
	if b.MaxLogCitations <= 0 {
		return 0
	}
	return logCitations(p) / b.MaxLogCitations
}

// Recency places the year linearly between the oldest and newest known
// years. It is 0.5 when no year is known or all known years are equal; a
// paper with an unknown year otherwise scores as the oldest.
func (b Bounds) Recency(p *paper.Paper) float64 {
	if !b.HasYears || b.MaxYear == b.MinYear {
		return 0.5
	}
	year := b.MinYear
	if p.HasYear() {
		year = *p.Year
	}
	return float64(year-b.MinYear) / float64(b.MaxYear-b.MinYear)
}

// InfluentialRatio is icc/(cc+1), with unknown counts taken as 0.
func InfluentialRatio(p *paper.Paper) float64 {
	return float64(p.InfluentialCitations()) / float64(p.Citations()+1)
}
