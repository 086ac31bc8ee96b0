// Package classify sorts incoming questions into safety and scope
// categories before any external call is made.
package classify

import (
	"strings"

	"go.uber.org/zap"

	"github.com/navseva/fundfaq/internal/domain/corpus"
	"github.com/navseva/fundfaq/internal/domain/query"
)

// Service applies an ordered rule chain to raw question text. First match
// wins; the ordering is a contract because one question can trigger
// several categories.
type Service struct {
	strategy corpus.MatchStrategy
	logger   *zap.Logger
}

// New creates the classifier. strategy controls fund-name hint matching.
func New(strategy corpus.MatchStrategy, logger *zap.Logger) *Service {
	return &Service{strategy: strategy, logger: logger}
}

// Classify never fails: input that matches no rule defaults to out of
// scope. funds is the known scheme list used for hint extraction; it may
// be empty.
func (s *Service) Classify(rawText string, funds []string) query.Classified {
	lower := strings.ToLower(strings.TrimSpace(rawText))
	tokens := tokenize(lower)

	classified := query.Classified{RawText: rawText}

	switch {
	case len(detectPII(rawText)) > 0:
		classified.Category = query.CategoryPII
	case isOpinion(lower):
		classified.Category = query.CategoryOpinion
	case isPerformance(lower):
		classified.Category = query.CategoryPerformance
	case isGreeting(lower, tokens):
		classified.Category = query.CategoryGreeting
	case isFactual(lower, tokens):
		classified.Category = query.CategoryFactual
	default:
		classified.Category = query.CategoryOutOfScope
	}

	if classified.Category == query.CategoryFactual || classified.Category == query.CategoryPerformance {
		classified.FundHint = s.resolveFundHint(tokens, funds)
	}

	s.logger.Debug("Query classified",
		zap.String("category", string(classified.Category)),
		zap.String("fund_hint", classified.FundHint),
	)
	return classified
}

// resolveFundHint finds the scheme the question names and returns its
// canonical name, so downstream filtering can match it exactly. The
// question's longest contiguous run of fund-name vocabulary is taken as
// the hint phrase and resolved against the scheme list.
func (s *Service) resolveFundHint(tokens []string, funds []string) string {
	if len(funds) == 0 || len(tokens) == 0 {
		return ""
	}

	vocab := make(map[string]struct{})
	for _, fund := range funds {
		for _, tok := range strings.Fields(strings.ToLower(fund)) {
			vocab[tok] = struct{}{}
		}
	}

	phrase := longestVocabRun(tokens, vocab)
	if phrase == "" {
		return ""
	}

	best := ""
	bestCoverage := 0.0
	for _, fund := range funds {
		if !corpus.MatchFund(s.strategy, phrase, fund) {
			continue
		}
		if cov := tokenCoverage(phrase, fund); cov > bestCoverage {
			best = fund
			bestCoverage = cov
		}
	}
	return best
}

// longestVocabRun returns the longest contiguous token sequence drawn
// entirely from the fund-name vocabulary.
func longestVocabRun(tokens []string, vocab map[string]struct{}) string {
	var best, current []string
	for _, tok := range tokens {
		if _, ok := vocab[tok]; ok {
			current = append(current, tok)
			if len(current) > len(best) {
				best = current
			}
			continue
		}
		current = nil
	}
	return strings.Join(best, " ")
}

// tokenCoverage measures how much of the scheme name the hint phrase
// accounts for, used to rank candidates when several schemes match.
func tokenCoverage(phrase, fundName string) float64 {
	phraseTokens := make(map[string]struct{})
	for _, tok := range strings.Fields(phrase) {
		phraseTokens[tok] = struct{}{}
	}

	fundTokens := strings.Fields(strings.ToLower(fundName))
	if len(fundTokens) == 0 {
		return 0
	}
	matched := 0
	for _, tok := range fundTokens {
		if _, ok := phraseTokens[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(fundTokens))
}
