package classify

import (
	"regexp"
	"strings"
)

// Personal identifier patterns. Any match forces the PII category no
// matter what else the question contains.
var piiPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"pan", regexp.MustCompile(`(?i)\b[A-Z]{5}[0-9]{4}[A-Z]\b`)},
	{"aadhaar", regexp.MustCompile(`\b[0-9]{4}\s?[0-9]{4}\s?[0-9]{4}\b`)},
	{"account_number", regexp.MustCompile(`\b\d{9,18}\b`)},
	{"otp", regexp.MustCompile(`(?i)\b\d{4,6}\b[^\n]*\botp\b|\botp\b[^\n]*\b\d{4,6}\b`)},
	{"email", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"phone", regexp.MustCompile(`\b[6-9]\d{9}\b|\+91[6-9]\d{9}\b`)},
}

// Advice and recommendation requests.
var opinionKeywords = []string{
	"should i", "should we", "is it good", "is it bad", "good for me",
	"recommend", "advice", "advise", "opinion", "suggest",
	"best fund", "worst fund", "worth it", "worth investing",
	"good investment", "bad investment",
}

// Return figures and fund comparisons.
var performanceKeywords = []string{
	"best performing", "top performing", "performance", "cagr", "outperform",
}

var performancePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\breturns?\b`),
	regexp.MustCompile(`compare\s+\w*\s*funds?`),
	regexp.MustCompile(`compare\s+returns?`),
	regexp.MustCompile(`which\s.*\b(better|best|worse)\b`),
	regexp.MustCompile(`\b(better|worse)\s+than\b`),
	regexp.MustCompile(`\bprofit\b|\bgains?\b|\bloss\b`),
}

// Phrasings that look like advice requests but ask for facts.
var opinionExclusions = []string{
	"how to download", "download statements", "download capital",
	"description of", "overview of", "meaning of", "what is the meaning",
}

var greetingPhrases = []string{
	"good morning", "good afternoon", "good evening", "good night",
	"thank you", "see you", "how are you",
}

// Single-word greetings are matched token-wise so "hi" does not fire
// inside words like "this".
var greetingTokens = map[string]struct{}{
	"hello": {}, "hi": {}, "hey": {}, "greetings": {}, "namaste": {},
	"namaskar": {}, "thanks": {}, "bye": {}, "goodbye": {},
}

// Recognized factual topics. Multi-word phrases are substring matched;
// single tokens are matched word-wise so "nav" does not fire inside
// unrelated words.
var factualPhrases = []string{
	"expense ratio", "exit load", "entry load", "minimum sip", "sip amount",
	"lock-in", "lock in", "fund manager", "launch date",
	"investment objective", "net asset value", "assets under management",
	"mutual fund", "direct plan", "regular plan", "growth option",
	"dividend option", "tax saver", "capital gains", "capital-gains",
	"systematic investment plan", "systematic transfer plan",
	"systematic withdrawal plan", "lump sum", "lumpsum",
	"asset management company", "large cap", "mid cap", "small cap",
	"flexi cap", "multi cap", "equity fund", "debt fund", "hybrid fund",
	"how to download",
}

var factualTokens = map[string]struct{}{
	"nav": {}, "aum": {}, "sip": {}, "elss": {}, "riskometer": {},
	"benchmark": {}, "statement": {}, "statements": {}, "factsheet": {},
	"objective": {}, "redemption": {}, "amc": {}, "sebi": {}, "amfi": {},
	"stp": {}, "swp": {},
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// detectPII returns the kinds of personal identifiers found in the text.
func detectPII(text string) []string {
	var kinds []string
	for _, p := range piiPatterns {
		if p.re.MatchString(text) {
			kinds = append(kinds, p.kind)
		}
	}
	return kinds
}

func isOpinion(lower string) bool {
	if containsAny(lower, opinionExclusions) {
		return false
	}
	return containsAny(lower, opinionKeywords)
}

func isPerformance(lower string) bool {
	if containsAny(lower, opinionExclusions) {
		return false
	}
	return containsAny(lower, performanceKeywords) || matchesAny(lower, performancePatterns)
}

func isFactual(lower string, tokens []string) bool {
	if containsAny(lower, factualPhrases) {
		return true
	}
	for _, tok := range tokens {
		if _, ok := factualTokens[tok]; ok {
			return true
		}
	}
	return false
}

func isGreeting(lower string, tokens []string) bool {
	found := containsAny(lower, greetingPhrases)
	if !found {
		for _, tok := range tokens {
			if _, ok := greetingTokens[tok]; ok {
				found = true
				break
			}
		}
	}
	if !found {
		return false
	}
	// A greeting bolted onto a real question is handled as the question.
	return !isFactual(lower, tokens)
}

// tokenize lowercases and splits the question, trimming punctuation off
// each word.
func tokenize(lower string) []string {
	fields := strings.Fields(lower)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.Trim(f, ".,!?;:\"'()[]")
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
