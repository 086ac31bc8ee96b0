package corpus

import "strings"

// MatchStrategy selects how a fund-name hint is matched against scheme names.
type MatchStrategy string

const (
	// MatchExact requires the hint to be a case-insensitive substring of the
	// scheme name.
	MatchExact MatchStrategy = "exact"
	// MatchFuzzy accepts a scheme when at least 60% of the hint's
	// significant tokens appear in the scheme name, so "HDFC ELSS Fund"
	// matches "HDFC ELSS Tax Saver Fund".
	MatchFuzzy MatchStrategy = "fuzzy"
)

// fuzzyThreshold is the minimum token-overlap ratio for MatchFuzzy.
const fuzzyThreshold = 0.6

// stopTokens are ignored when comparing fund names token-wise.
var stopTokens = map[string]struct{}{
	"the": {}, "fund": {}, "mutual": {},
}

// MatchFund reports whether hint names the given scheme under the strategy.
// Unknown strategies fall back to MatchExact.
func MatchFund(strategy MatchStrategy, hint, fundName string) bool {
	if hint == "" || fundName == "" {
		return false
	}
	h := strings.ToLower(hint)
	f := strings.ToLower(fundName)

	if strings.Contains(f, h) {
		return true
	}
	if strategy != MatchFuzzy {
		return false
	}

	hintTokens := significantTokens(h)
	if len(hintTokens) == 0 {
		return false
	}
	fundTokens := make(map[string]struct{})
	for _, tok := range significantTokens(f) {
		fundTokens[tok] = struct{}{}
	}

	matched := 0
	for _, tok := range hintTokens {
		if _, ok := fundTokens[tok]; ok {
			matched++
		}
	}
	return float64(matched)/float64(len(hintTokens)) >= fuzzyThreshold
}

func significantTokens(s string) []string {
	var out []string
	for _, tok := range strings.Fields(s) {
		if _, skip := stopTokens[tok]; !skip {
			out = append(out, tok)
		}
	}
	return out
}
