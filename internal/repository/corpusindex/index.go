// Package corpusindex builds and publishes the in-memory corpus snapshot.
package corpusindex

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/navseva/fundfaq/internal/domain"
	"github.com/navseva/fundfaq/internal/domain/corpus"
)

// Loader provides the ordered chunk records at build time.
type Loader interface {
	Load() ([]corpus.Chunk, error)
}

// Index owns the active corpus snapshot. Reads are lock-free; a rebuild
// constructs a fresh snapshot and swaps the pointer atomically.
type Index struct {
	source      Loader
	embedder    domain.Embedder
	snapshot    atomic.Pointer[corpus.Snapshot]
	chunksGauge prometheus.Gauge
	logger      *zap.Logger
}

// New creates an index. chunksGauge may be nil.
func New(source Loader, embedder domain.Embedder, chunksGauge prometheus.Gauge, logger *zap.Logger) *Index {
	return &Index{
		source:      source,
		embedder:    embedder,
		chunksGauge: chunksGauge,
		logger:      logger,
	}
}

// Snapshot returns the active snapshot, or ErrCorpusNotReady before the
// first successful build.
func (x *Index) Snapshot() (*corpus.Snapshot, error) {
	snap := x.snapshot.Load()
	if snap == nil {
		return nil, domain.ErrCorpusNotReady
	}
	return snap, nil
}

// Ready reports whether a snapshot has been published.
func (x *Index) Ready() bool { return x.snapshot.Load() != nil }

// ChunkCount returns the active snapshot's size, 0 before the first build.
func (x *Index) ChunkCount() int {
	if snap := x.snapshot.Load(); snap != nil {
		return snap.Len()
	}
	return 0
}

// Rebuild loads chunks from the source, embeds them, and publishes a new
// snapshot. In-flight requests keep reading the previous snapshot until
// the swap; a failed rebuild leaves the active snapshot untouched.
func (x *Index) Rebuild(ctx context.Context) error {
	start := time.Now()

	chunks, err := x.source.Load()
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	indexed, err := x.embedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}

	snap, err := corpus.NewSnapshot(indexed, time.Now())
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	x.snapshot.Store(snap)
	if x.chunksGauge != nil {
		x.chunksGauge.Set(float64(snap.Len()))
	}

	x.logger.Info("Corpus snapshot published",
		zap.Int("chunks", snap.Len()),
		zap.Int("dimensions", snap.Dim()),
		zap.Int("funds", len(snap.Funds())),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (x *Index) embedChunks(ctx context.Context, chunks []corpus.Chunk) ([]corpus.IndexedChunk, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var vectors [][]float32
	if be, ok := x.embedder.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("batch embed: %w", err)
		}
		vectors = res.Embeddings
	} else {
		res, err := domain.BatchFallback(ctx, x.embedder, texts)
		if err != nil {
			return nil, err
		}
		vectors = res.Embeddings
	}

	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	indexed := make([]corpus.IndexedChunk, len(chunks))
	for i := range chunks {
		indexed[i] = corpus.IndexedChunk{Chunk: chunks[i], Embedding: vectors[i]}
	}
	return indexed, nil
}
