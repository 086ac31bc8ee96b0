package fundfaq

import "fmt"

// Source describes one corpus chunk that backed an answer.
type Source struct {
	FundName   string  `json:"fund_name"`
	ChunkType  string  `json:"chunk_type"`
	Similarity float64 `json:"similarity"`
}

// Answer is a fully populated server response to one question.
type Answer struct {
	Answer          string   `json:"answer"`
	Sources         []Source `json:"sources"`
	Confidence      float64  `json:"confidence"`
	CitationLink    string   `json:"citation_link"`
	Timestamp       string   `json:"timestamp"` // YYYY-MM-DD
	Rejected        bool     `json:"rejected"`
	RejectionReason *string  `json:"rejection_reason,omitempty"`
}

// ReindexResult reports a completed corpus rebuild.
type ReindexResult struct {
	Chunks int   `json:"chunks"`
	Funds  int   `json:"funds"`
	TookMs int64 `json:"took_ms"`
}

// Health is the aggregated server health report.
type Health struct {
	Status       string            `json:"status"` // "ok", "degraded", "error"
	Checks       map[string]string `json:"checks"`
	CorpusChunks int               `json:"corpus_chunks"`
	Version      string            `json:"version"`
}

type askRequest struct {
	Question string  `json:"question"`
	FundName *string `json:"fund_name,omitempty"`
	TopK     *int    `json:"top_k,omitempty"`
}

type fundsResponse struct {
	Funds []string `json:"funds"`
	Count int      `json:"count"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fundfaq: api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}
