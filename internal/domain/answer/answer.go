// Package answer holds the only entity exposed across the system boundary.
package answer

import (
	"fmt"
	"time"

	"github.com/navseva/fundfaq/internal/domain"
)

// Source describes one chunk that backed an answer.
type Source struct {
	FundName   string
	ChunkType  string
	Similarity float64
}

// FinalAnswer is the fully populated result of a query. For a non-rejected
// answer, CitationLink and Timestamp are never empty.
type FinalAnswer struct {
	Answer          string
	Sources         []Source
	Confidence      float64
	CitationLink    string
	Timestamp       time.Time
	Rejected        bool
	RejectionReason string
}

// Validate enforces the output contract. A violation is a bug in the
// formatter, not a user error; callers treat it as fatal to the request.
func (a FinalAnswer) Validate() error {
	if a.Answer == "" {
		return fmt.Errorf("%w: empty answer text", domain.ErrAnswerInvariant)
	}
	if a.CitationLink == "" {
		return fmt.Errorf("%w: empty citation link", domain.ErrAnswerInvariant)
	}
	if a.Timestamp.IsZero() {
		return fmt.Errorf("%w: zero timestamp", domain.ErrAnswerInvariant)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("%w: confidence %f outside [0,1]", domain.ErrAnswerInvariant, a.Confidence)
	}
	if a.Rejected && a.RejectionReason == "" {
		return fmt.Errorf("%w: rejection without reason", domain.ErrAnswerInvariant)
	}
	return nil
}
