package chi

import (
	"github.com/oapi-codegen/runtime/types"

	domanswer "github.com/navseva/fundfaq/internal/domain/answer"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeCorpusNotReady   = "corpus_not_ready"
	CodeProviderError    = "provider_error"
	CodeInternalError    = "internal_error"
)

// QueryRequest is the POST /v1/query body. FundName narrows retrieval to
// one scheme, overriding the hint extracted from the question.
type QueryRequest struct {
	Question string  `json:"question"`
	FundName *string `json:"fund_name,omitempty"`
	TopK     *int    `json:"top_k,omitempty"`
}

// SourceItem describes one chunk that backed an answer.
type SourceItem struct {
	FundName   string  `json:"fund_name"`
	ChunkType  string  `json:"chunk_type"`
	Similarity float64 `json:"similarity"`
}

// QueryResponse is the fully populated answer payload.
type QueryResponse struct {
	Answer          string       `json:"answer"`
	Sources         []SourceItem `json:"sources"`
	Confidence      float64      `json:"confidence"`
	CitationLink    string       `json:"citation_link"`
	Timestamp       types.Date   `json:"timestamp"`
	Rejected        bool         `json:"rejected"`
	RejectionReason *string      `json:"rejection_reason,omitempty"`
}

// FundsResponse lists the schemes known to the active corpus.
type FundsResponse struct {
	Funds []string `json:"funds"`
	Count int      `json:"count"`
}

// ReindexResponse reports a completed corpus rebuild.
type ReindexResponse struct {
	Chunks int   `json:"chunks"`
	Funds  int   `json:"funds"`
	TookMs int64 `json:"took_ms"`
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status       string            `json:"status"`
	Checks       map[string]string `json:"checks"`
	CorpusChunks int               `json:"corpus_chunks"`
	Version      string            `json:"version"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func answerToResponse(ans domanswer.FinalAnswer) QueryResponse {
	resp := QueryResponse{
		Answer:       ans.Answer,
		Sources:      make([]SourceItem, len(ans.Sources)),
		Confidence:   ans.Confidence,
		CitationLink: ans.CitationLink,
		Timestamp:    types.Date{Time: ans.Timestamp},
		Rejected:     ans.Rejected,
	}
	for i, src := range ans.Sources {
		resp.Sources[i] = SourceItem{
			FundName:   src.FundName,
			ChunkType:  src.ChunkType,
			Similarity: src.Similarity,
		}
	}
	if ans.RejectionReason != "" {
		reason := ans.RejectionReason
		resp.RejectionReason = &reason
	}
	return resp
}
