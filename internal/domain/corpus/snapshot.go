package corpus

import (
	"fmt"
	"sort"
	"time"
)

// Scored pairs an indexed chunk with its similarity to a query.
type Scored struct {
	Chunk *IndexedChunk
	Score float64
}

// Snapshot is an immutable view of the indexed corpus. Built once, shared
// read-only by all concurrent requests; a rebuild produces a new Snapshot
// that is swapped in atomically, never mutated in place.
type Snapshot struct {
	chunks  []IndexedChunk
	dim     int
	builtAt time.Time
}

// NewSnapshot validates chunk embeddings and freezes them into a snapshot.
// All embeddings must share one dimensionality.
func NewSnapshot(chunks []IndexedChunk, builtAt time.Time) (*Snapshot, error) {
	dim := 0
	for i := range chunks {
		if err := chunks[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid chunk: %w", err)
		}
		n := len(chunks[i].Embedding)
		if n == 0 {
			return nil, fmt.Errorf("chunk %s: missing embedding", chunks[i].ID)
		}
		if dim == 0 {
			dim = n
		} else if n != dim {
			return nil, fmt.Errorf("chunk %s: embedding dim %d, index dim %d", chunks[i].ID, n, dim)
		}
	}

	frozen := make([]IndexedChunk, len(chunks))
	copy(frozen, chunks)
	return &Snapshot{chunks: frozen, dim: dim, builtAt: builtAt}, nil
}

// Len returns the number of indexed chunks.
func (s *Snapshot) Len() int { return len(s.chunks) }

// Dim returns the embedding dimensionality, 0 for an empty snapshot.
func (s *Snapshot) Dim() int { return s.dim }

// BuiltAt returns when the snapshot was constructed.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Funds returns the distinct scheme names in corpus order.
func (s *Snapshot) Funds() []string {
	seen := make(map[string]struct{})
	var funds []string
	for i := range s.chunks {
		name := s.chunks[i].FundName
		if name == "" {
			continue
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			funds = append(funds, name)
		}
	}
	return funds
}

// Search ranks chunks by cosine similarity to the query vector, descending,
// ties broken by corpus insertion order, truncated to topK.
//
// When fundHint is non-empty, candidates are restricted to schemes matched
// by the strategy; a hint that matches nothing falls back to the full
// corpus rather than starving the answer.
func (s *Snapshot) Search(vector []float32, fundHint string, strategy MatchStrategy, topK int) []Scored {
	if topK < 1 || len(s.chunks) == 0 {
		return nil
	}

	candidates := s.filterByFund(fundHint, strategy)
	if len(candidates) == 0 {
		candidates = s.all()
	}

	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Chunk: c, Score: Cosine(vector, c.Embedding)}
	}

	// Stable keeps insertion order on equal scores, so retrieval is
	// deterministic for an unchanged corpus.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

func (s *Snapshot) filterByFund(hint string, strategy MatchStrategy) []*IndexedChunk {
	if hint == "" {
		return s.all()
	}
	var out []*IndexedChunk
	for i := range s.chunks {
		if MatchFund(strategy, hint, s.chunks[i].FundName) {
			out = append(out, &s.chunks[i])
		}
	}
	return out
}

func (s *Snapshot) all() []*IndexedChunk {
	out := make([]*IndexedChunk, len(s.chunks))
	for i := range s.chunks {
		out[i] = &s.chunks[i]
	}
	return out
}
