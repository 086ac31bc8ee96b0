package pipeline

import (
	"context"

	domanswer "github.com/navseva/fundfaq/internal/domain/answer"
	"github.com/navseva/fundfaq/internal/domain/corpus"
	"github.com/navseva/fundfaq/internal/domain/query"
)

// Classifier sorts raw question text into a category.
type Classifier interface {
	Classify(rawText string, funds []string) query.Classified
}

// Retriever ranks corpus chunks for a query.
type Retriever interface {
	Retrieve(ctx context.Context, queryText, fundHint string, topK int) ([]corpus.Scored, error)
}

// PromptBuilder assembles bounded generation prompts.
type PromptBuilder interface {
	Build(question string, retrieved []corpus.Scored) string
	BuildGreeting(question string) string
}

// Formatter enforces the output contract on generated drafts.
type Formatter interface {
	Rejection(category query.Category) domanswer.FinalAnswer
	Greeting(draft string) domanswer.FinalAnswer
	Format(draft string, retrieved []corpus.Scored, lowConfidence bool) domanswer.FinalAnswer
	Unavailable() domanswer.FinalAnswer
}

// Scorer derives confidence from retrieval quality.
type Scorer interface {
	Score(retrieved []corpus.Scored) float64
	Low(score float64) bool
}

// SnapshotProvider exposes the active corpus snapshot for the scheme list.
type SnapshotProvider interface {
	Snapshot() (*corpus.Snapshot, error)
}
