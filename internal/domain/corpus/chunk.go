package corpus

import (
	"fmt"
	"time"
)

// ChunkType categorizes the factual content of a chunk.
type ChunkType string

const (
	// TypeFeesCharges covers expense ratios, exit loads and similar charges.
	TypeFeesCharges ChunkType = "fees_charges"
	// TypeRisk covers riskometer ratings and risk disclosures.
	TypeRisk ChunkType = "risk"
	// TypeObjective covers the scheme's investment objective and benchmark.
	TypeObjective ChunkType = "objective"
	// TypeProcedure covers how-to content such as statement downloads.
	TypeProcedure ChunkType = "procedure"
	// TypeOther covers everything else.
	TypeOther ChunkType = "other"
)

// ParseChunkType validates a raw chunk type string, defaulting unknown
// values to TypeOther so a corpus rebuild never fails on a new tag.
func ParseChunkType(raw string) ChunkType {
	switch ChunkType(raw) {
	case TypeFeesCharges, TypeRisk, TypeObjective, TypeProcedure, TypeOther:
		return ChunkType(raw)
	default:
		return TypeOther
	}
}

// Chunk is a unit of factual text extracted from an official source,
// tagged with provenance metadata. Immutable once indexed.
type Chunk struct {
	ID          string
	Text        string
	FundName    string
	Type        ChunkType
	SourceURL   string
	RetrievedAt time.Time
}

// Validate checks the fields required for indexing.
func (c Chunk) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("chunk id is required")
	}
	if c.Text == "" {
		return fmt.Errorf("chunk %s: text is required", c.ID)
	}
	if c.SourceURL == "" {
		return fmt.Errorf("chunk %s: source_url is required", c.ID)
	}
	return nil
}

// IndexedChunk pairs a chunk with its embedding. One embedding per chunk,
// computed once at snapshot build, never mutated.
type IndexedChunk struct {
	Chunk
	Embedding []float32
}
