// Package retrieve ranks corpus chunks against a query by embedding
// similarity.
package retrieve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/navseva/fundfaq/internal/domain"
	"github.com/navseva/fundfaq/internal/domain/corpus"
)

// Service embeds a query and searches the active snapshot.
type Service struct {
	embedder Embedder
	index    SnapshotProvider
	strategy corpus.MatchStrategy
	logger   *zap.Logger
}

// New creates the retriever.
func New(embedder Embedder, index SnapshotProvider, strategy corpus.MatchStrategy, logger *zap.Logger) *Service {
	return &Service{
		embedder: embedder,
		index:    index,
		strategy: strategy,
		logger:   logger,
	}
}

// Retrieve returns up to topK chunks ranked by similarity, descending,
// deterministic for an unchanged corpus. A fund hint restricts candidates
// to matching schemes; a hint matching nothing falls back to the whole
// corpus. Embedding failures surface as ErrRetrievalUnavailable, never as
// a silently empty result.
func (s *Service) Retrieve(ctx context.Context, queryText, fundHint string, topK int) ([]corpus.Scored, error) {
	if topK < 1 {
		return nil, fmt.Errorf("top_k must be >= 1, got %d: %w", topK, domain.ErrInvalidQuery)
	}

	snap, err := s.index.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("corpus snapshot: %w", err)
	}

	res, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", err, domain.ErrRetrievalUnavailable)
	}

	scored := snap.Search(res.Embedding, fundHint, s.strategy, topK)

	s.logger.Debug("Retrieval done",
		zap.Int("candidates", snap.Len()),
		zap.Int("returned", len(scored)),
		zap.String("fund_hint", fundHint),
	)
	return scored, nil
}
