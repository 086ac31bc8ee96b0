package health

import "context"

// CorpusReader reports the state of the active corpus snapshot.
type CorpusReader interface {
	Ready() bool
	ChunkCount() int
}

// CachePinger checks cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
