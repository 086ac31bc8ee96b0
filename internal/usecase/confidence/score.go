// Package confidence derives answer confidence from retrieval quality.
package confidence

import "github.com/navseva/fundfaq/internal/domain/corpus"

// Scorer maps a retrieval result to a scalar in [0,1].
type Scorer struct {
	threshold float64
}

// New creates a scorer. Answers scoring below threshold get a
// verification caveat attached by the formatter.
func New(threshold float64) *Scorer {
	return &Scorer{threshold: threshold}
}

// Score is the top retrieved chunk's similarity clamped to [0,1], and 0
// when retrieval returned nothing.
func (s *Scorer) Score(retrieved []corpus.Scored) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	top := retrieved[0].Score
	if top < 0 {
		return 0
	}
	if top > 1 {
		return 1
	}
	return top
}

// Low reports whether a score falls below the caveat threshold.
func (s *Scorer) Low(score float64) bool {
	return score < s.threshold
}
