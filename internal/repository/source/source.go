// Package source reads scraped chunk records from disk. Document
// acquisition itself (fetching and parsing fund PDFs and pages) happens
// outside this service; its output is a JSON file of chunk records in
// scrape order, which is the corpus insertion order.
package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/navseva/fundfaq/internal/domain/corpus"
)

const dateLayout = "2006-01-02"

// chunkRecord mirrors one scraped chunk on disk.
type chunkRecord struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	FundName    string `json:"fund_name"`
	ChunkType   string `json:"chunk_type"`
	SourceURL   string `json:"source_url"`
	RetrievedAt string `json:"retrieved_at"` // YYYY-MM-DD
}

// FileSource loads chunks from a JSON file.
type FileSource struct {
	path string
}

// New creates a file-backed corpus source.
func New(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads and validates all chunk records, preserving file order.
func (s *FileSource) Load() ([]corpus.Chunk, error) {
	data, err := os.ReadFile(filepath.Clean(s.path))
	if err != nil {
		return nil, fmt.Errorf("read corpus file %s: %w", s.path, err)
	}

	var records []chunkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse corpus file %s: %w", s.path, err)
	}

	chunks := make([]corpus.Chunk, 0, len(records))
	for i, rec := range records {
		chunk, err := rec.toDomain()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if err := chunk.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (r chunkRecord) toDomain() (corpus.Chunk, error) {
	retrievedAt, err := time.Parse(dateLayout, r.RetrievedAt)
	if err != nil {
		return corpus.Chunk{}, fmt.Errorf("chunk %s: bad retrieved_at %q: %w", r.ID, r.RetrievedAt, err)
	}
	return corpus.Chunk{
		ID:          r.ID,
		Text:        r.Text,
		FundName:    r.FundName,
		Type:        corpus.ParseChunkType(r.ChunkType),
		SourceURL:   r.SourceURL,
		RetrievedAt: retrievedAt,
	}, nil
}
