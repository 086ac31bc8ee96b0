package domain

import "errors"

var (
	// ErrCorpusNotReady signals that the corpus snapshot has not been built yet.
	ErrCorpusNotReady = errors.New("corpus not ready")
	// ErrEmbeddingUnavailable signals an embedding provider failure.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	// ErrGenerationUnavailable signals a generation provider failure.
	ErrGenerationUnavailable = errors.New("generation service unavailable")
	// ErrRetrievalUnavailable signals that retrieval could not be performed.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrAnswerInvariant signals an internally produced answer that violates
	// the output contract (missing citation or timestamp). Bug guard,
	// fatal to the request but never to the process.
	ErrAnswerInvariant = errors.New("answer invariant violation")
	// ErrInvalidQuery signals a malformed query request.
	ErrInvalidQuery = errors.New("invalid query")
)
