package expand

import (
	"github.com/matsen/litscout/internal/paper"
	"github.com/matsen/litscout/internal/score"
)

// Composite score weights.
const (
	weightCitations   = 0.3
	weightSeedRatio   = 0.4
	weightRecency     = 0.2
	weightInfluential = 0.1
)

// Candidate is a paper discovered during one depth, with the number of
// discovery events that produced it.
type Candidate struct {
	Paper       paper.Paper `json:"paper"`
	Connections int         `json:"connections"`
	Score       float64     `json:"score"`
}

// CompositeScore blends citation count, seed connectivity, recency and
// influence for c. seeds is the number of seeds at this depth.
func CompositeScore(c *Candidate, b score.Bounds, seeds int) float64 {
	seedRatio := 0.0
	if seeds > 0 {
		seedRatio = float64(c.Connections) / float64(seeds)
	}
	return weightCitations*b.CitationNorm(&c.Paper) +
		weightSeedRatio*seedRatio +
		weightRecency*b.Recency(&c.Paper) +
		weightInfluential*score.InfluentialRatio(&c.Paper)
}
