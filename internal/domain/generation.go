package domain

import "context"

// Generator is the text generation contract. The pipeline's single point of
// dependency on a non-deterministic external system; everything downstream
// of it is testable with a stub.
type Generator interface {
	Generate(ctx context.Context, prompt string) (GenerationResult, error)
}

// GenerationResult carries the raw generated text and token usage.
// The text is opaque until the answer formatter has validated it.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
