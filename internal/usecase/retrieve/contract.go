package retrieve

import (
	"context"

	"github.com/navseva/fundfaq/internal/domain"
	"github.com/navseva/fundfaq/internal/domain/corpus"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// SnapshotProvider hands out the active corpus snapshot.
type SnapshotProvider interface {
	Snapshot() (*corpus.Snapshot, error)
}
