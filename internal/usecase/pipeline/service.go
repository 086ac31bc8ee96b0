// Package pipeline sequences classification, retrieval, generation and
// formatting into one answer per query.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/navseva/fundfaq/internal/domain"
	domanswer "github.com/navseva/fundfaq/internal/domain/answer"
	"github.com/navseva/fundfaq/internal/domain/corpus"
	"github.com/navseva/fundfaq/internal/domain/query"
	"github.com/navseva/fundfaq/internal/metrics"
)

// Config bounds the pipeline's external calls.
type Config struct {
	DefaultTopK     int
	MaxTopK         int
	MaxRetries      int           // extra attempts after the first failure
	RetryBackoff    time.Duration // doubled after each failed attempt
	RetrieveTimeout time.Duration
	GenerateTimeout time.Duration
}

// Service is the per-query orchestrator. Every query is an independent,
// stateless unit of work; the only shared state is the read-only corpus
// snapshot.
type Service struct {
	cfg        Config
	classifier Classifier
	retriever  Retriever
	builder    PromptBuilder
	generator  domain.Generator
	formatter  Formatter
	scorer     Scorer
	index      SnapshotProvider
	logger     *zap.Logger
}

// New wires the pipeline.
func New(
	cfg Config,
	classifier Classifier,
	retriever Retriever,
	builder PromptBuilder,
	generator domain.Generator,
	formatter Formatter,
	scorer Scorer,
	index SnapshotProvider,
	log *zap.Logger,
) *Service {
	return &Service{
		cfg:        cfg,
		classifier: classifier,
		retriever:  retriever,
		builder:    builder,
		generator:  generator,
		formatter:  formatter,
		scorer:     scorer,
		index:      index,
		logger:     log,
	}
}

// Ask answers one question. A non-empty fundName overrides the hint the
// classifier would extract from the question text. Internal failures never
// propagate: they become a generic try-again answer with zero confidence.
// The returned error is non-nil only when the formatter produced an answer
// violating the output contract, which is a bug, not a user condition.
func (s *Service) Ask(ctx context.Context, question, fundName string, topK int) (domanswer.FinalAnswer, error) {
	start := time.Now()
	log := s.logger
	topK = s.clampTopK(topK)

	classified := s.classifier.Classify(question, s.fundNames())
	if fundName != "" {
		classified.FundHint = fundName
	}

	var ans domanswer.FinalAnswer
	outcome := "answered"
	switch {
	case classified.Rejected():
		ans = s.formatter.Rejection(classified.Category)
		outcome = "rejected"
	case classified.Category == query.CategoryGreeting:
		ans = s.answerGreeting(ctx, question)
	default:
		ans, outcome = s.answerFactual(ctx, log, classified, topK)
	}

	metrics.QueriesTotal.WithLabelValues(string(classified.Category), outcome).Inc()
	log.Info("Query answered",
		zap.String("category", string(classified.Category)),
		zap.String("outcome", outcome),
		zap.Float64("confidence", ans.Confidence),
		zap.Bool("rejected", ans.Rejected),
		zap.Duration("took", time.Since(start)),
	)

	if err := ans.Validate(); err != nil {
		return domanswer.FinalAnswer{}, fmt.Errorf("final answer: %w", err)
	}
	return ans, nil
}

// answerFactual runs retrieval, generation and formatting, mapping any
// failure to the generic unavailable answer.
func (s *Service) answerFactual(ctx context.Context, log *zap.Logger, classified query.Classified, topK int) (domanswer.FinalAnswer, string) {
	var retrieved []corpus.Scored
	err := s.withRetry(ctx, func(callCtx context.Context) error {
		var rerr error
		retrieved, rerr = s.retriever.Retrieve(callCtx, classified.RawText, classified.FundHint, topK)
		return rerr
	}, s.cfg.RetrieveTimeout)
	if err != nil {
		log.Warn("Retrieval failed", zap.Error(err))
		return s.formatter.Unavailable(), "error"
	}

	score := s.scorer.Score(retrieved)
	prompt := s.builder.Build(classified.RawText, retrieved)

	var draft domain.GenerationResult
	err = s.withRetry(ctx, func(callCtx context.Context) error {
		var gerr error
		draft, gerr = s.generator.Generate(callCtx, prompt)
		return gerr
	}, s.cfg.GenerateTimeout)
	if err != nil {
		log.Warn("Generation failed", zap.Error(err))
		return s.formatter.Unavailable(), "error"
	}

	ans := s.formatter.Format(draft.Text, retrieved, s.scorer.Low(score))
	ans.Confidence = score
	return ans, "answered"
}

// answerGreeting generates a salutation; a provider failure falls back to
// the fixed greeting instead of the error answer.
func (s *Service) answerGreeting(ctx context.Context, question string) domanswer.FinalAnswer {
	var draft domain.GenerationResult
	err := s.withRetry(ctx, func(callCtx context.Context) error {
		var gerr error
		draft, gerr = s.generator.Generate(callCtx, s.builder.BuildGreeting(question))
		return gerr
	}, s.cfg.GenerateTimeout)
	if err != nil {
		return s.formatter.Greeting("")
	}
	return s.formatter.Greeting(draft.Text)
}

// withRetry runs fn with a per-attempt timeout, retrying transient
// failures with doubling backoff. Context cancellation stops retrying
// immediately.
func (s *Service) withRetry(ctx context.Context, fn func(context.Context) error, timeout time.Duration) error {
	backoff := s.cfg.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(ctx.Err(), lastErr)
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		lastErr = fn(callCtx)
		if cancel != nil {
			cancel()
		}
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

func (s *Service) clampTopK(topK int) int {
	if topK < 1 {
		return s.cfg.DefaultTopK
	}
	if topK > s.cfg.MaxTopK {
		return s.cfg.MaxTopK
	}
	return topK
}

// fundNames lists known schemes for hint extraction. An unbuilt corpus
// just means no hints, not a failure.
func (s *Service) fundNames() []string {
	snap, err := s.index.Snapshot()
	if err != nil {
		return nil
	}
	return snap.Funds()
}
