// Package answer turns raw generated text into the guaranteed output
// contract: performance claims stripped, at most three sentences, citation
// and timestamp always present.
package answer

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	domanswer "github.com/navseva/fundfaq/internal/domain/answer"
	"github.com/navseva/fundfaq/internal/domain/corpus"
	"github.com/navseva/fundfaq/internal/domain/query"
)

// Fixed user-facing texts.
const (
	piiRejectionText = "I appreciate you reaching out, but I cannot accept personal information like PAN, Aadhaar, account numbers, OTPs, emails, or phone numbers. Please do not share such information. I'm here to help with factual questions about mutual funds."

	opinionRejectionText = "Thank you for your question. I can only provide factual information about mutual funds and cannot provide investment advice, recommendations, or opinions. For educational resources on mutual fund investing, please see the linked material."

	outOfScopeRejectionText = "Thank you for your question. I can help with factual questions about mutual funds such as expense ratios, exit loads, minimum SIP amounts, lock-in periods, riskometer ratings, benchmarks, and statement downloads. Please ask about any of these topics."

	factsheetRedirectText = "For performance details, please refer to the official factsheet of the scheme."

	noInformationText = "The requested information is not available in the official sources right now. Please try rephrasing your question about expense ratios, exit loads, SIP amounts, lock-in periods or statement downloads."

	greetingFallbackText = "Hello! How can I help you with information about mutual funds today?"

	lowConfidenceCaveat = "Please verify this with the official factsheet, as the available sources may not fully cover your question."

	tryAgainText = "Something went wrong while answering your question. Please try again later."
)

// Rejection reasons carried on the FinalAnswer.
const (
	reasonPII        = "personal information detected"
	reasonOpinion    = "investment advice or opinion requested"
	reasonOutOfScope = "question outside factual mutual fund topics"
)

// Return figures and fund comparisons are stripped sentence-wise.
var performanceClaimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)returns?\s+(of|are|is)\s+[0-9.]+%`),
	regexp.MustCompile(`(?i)[0-9.]+%\s+returns?`),
	regexp.MustCompile(`(?i)\boutperforms?\b`),
	regexp.MustCompile(`(?i)\bbetter\s+than\b`),
	regexp.MustCompile(`(?i)\bworse\s+than\b`),
	regexp.MustCompile(`(?i)compare\s+returns?`),
	regexp.MustCompile(`(?i)\bbest\s+performing\b`),
}

// Generated text admitting it found nothing gets replaced with the fixed
// no-information message.
var noInformationMarkers = []string{
	"does not contain", "not available", "couldn't find", "could not find",
	"no information", "not in context", "not found", "cannot find",
	"unable to find", "not provided", "no data", "insufficient information",
	"not enough information",
}

// Service formats final answers.
type Service struct {
	educationalLink string
	maxSentences    int
	logger          *zap.Logger
	now             func() time.Time
}

// New creates the formatter. educationalLink is the citation fallback used
// when no chunk backs the answer.
func New(educationalLink string, maxSentences int, logger *zap.Logger) *Service {
	return &Service{
		educationalLink: educationalLink,
		maxSentences:    maxSentences,
		logger:          logger,
		now:             time.Now,
	}
}

// Rejection produces the fixed refusal payload for a rejected category.
// Rejections are successful classifications, not errors.
func (s *Service) Rejection(category query.Category) domanswer.FinalAnswer {
	text, reason := outOfScopeRejectionText, reasonOutOfScope
	switch category {
	case query.CategoryPII:
		text, reason = piiRejectionText, reasonPII
	case query.CategoryOpinion:
		text, reason = opinionRejectionText, reasonOpinion
	}

	return domanswer.FinalAnswer{
		Answer:          joinSentences(splitSentences(text), s.maxSentences),
		CitationLink:    s.educationalLink,
		Timestamp:       s.now(),
		Rejected:        true,
		RejectionReason: reason,
	}
}

// Greeting formats a salutation response. Greetings carry the educational
// citation and the current date, never retrieval metadata.
func (s *Service) Greeting(draft string) domanswer.FinalAnswer {
	text := joinSentences(splitSentences(strings.TrimSpace(draft)), s.maxSentences)
	if text == "" {
		text = greetingFallbackText
	}
	return domanswer.FinalAnswer{
		Answer:       text,
		Confidence:   0.5,
		CitationLink: s.educationalLink,
		Timestamp:    s.now(),
	}
}

// Unavailable is the generic answer for internal failures. Callers never
// see raw errors; this is not a rejection.
func (s *Service) Unavailable() domanswer.FinalAnswer {
	return domanswer.FinalAnswer{
		Answer:       tryAgainText,
		CitationLink: s.educationalLink,
		Timestamp:    s.now(),
	}
}

// Format applies the output contract to a generated draft, in order:
// performance-claim stripping, sentence limit, citation attachment,
// timestamp attachment, emptiness guard. lowConfidence reserves the last
// sentence slot for a verification caveat.
func (s *Service) Format(draft string, retrieved []corpus.Scored, lowConfidence bool) domanswer.FinalAnswer {
	out := domanswer.FinalAnswer{
		Sources:      toSources(retrieved),
		CitationLink: s.citationLink(retrieved),
		Timestamp:    s.timestamp(retrieved),
	}

	sentences := splitSentences(strings.TrimSpace(draft))
	kept := sentences[:0:0]
	for _, sent := range sentences {
		if !isPerformanceClaim(sent) {
			kept = append(kept, sent)
		}
	}
	stripped := len(kept) < len(sentences)

	switch {
	case len(kept) == 0 && stripped:
		out.Answer = factsheetRedirectText
		return out
	case len(kept) == 0 || indicatesNoInformation(draft):
		out.Answer = noInformationText
		out.CitationLink = s.educationalLink
		out.Timestamp = s.now()
		return out
	}

	limit := s.maxSentences
	if lowConfidence {
		limit--
	}
	if limit < 1 {
		limit = 1
	}
	out.Answer = joinSentences(kept, limit)
	if lowConfidence {
		out.Answer += " " + lowConfidenceCaveat
	}
	return out
}

// citationLink picks the highest-similarity chunk's source, falling back
// to the educational link so the citation is never empty.
func (s *Service) citationLink(retrieved []corpus.Scored) string {
	for _, sc := range retrieved {
		if sc.Chunk.SourceURL != "" {
			return sc.Chunk.SourceURL
		}
	}
	return s.educationalLink
}

// timestamp is the most recent retrieval date among the chunks used, or
// the current time when nothing backed the answer.
func (s *Service) timestamp(retrieved []corpus.Scored) time.Time {
	var latest time.Time
	for _, sc := range retrieved {
		if sc.Chunk.RetrievedAt.After(latest) {
			latest = sc.Chunk.RetrievedAt
		}
	}
	if latest.IsZero() {
		return s.now()
	}
	return latest
}

func toSources(retrieved []corpus.Scored) []domanswer.Source {
	if len(retrieved) == 0 {
		return nil
	}
	sources := make([]domanswer.Source, len(retrieved))
	for i, sc := range retrieved {
		sources[i] = domanswer.Source{
			FundName:   sc.Chunk.FundName,
			ChunkType:  string(sc.Chunk.Type),
			Similarity: sc.Score,
		}
	}
	return sources
}

func isPerformanceClaim(sentence string) bool {
	for _, re := range performanceClaimPatterns {
		if re.MatchString(sentence) {
			return true
		}
	}
	return false
}

func indicatesNoInformation(draft string) bool {
	lower := strings.ToLower(draft)
	for _, marker := range noInformationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
