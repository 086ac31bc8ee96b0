package answer

import (
	"strings"
	"unicode"
)

// sentenceTerminators also cover the Devanagari danda for Hindi text.
func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '।'
}

var abbreviations = map[string]struct{}{
	"rs": {}, "no": {}, "vs": {}, "approx": {}, "i.e": {}, "e.g": {},
	"mr": {}, "mrs": {}, "dr": {},
}

// splitSentences breaks text on sentence terminators while keeping
// decimals (0.75%), single-letter initials and common abbreviations
// intact.
func splitSentences(text string) []string {
	var sentences []string
	var cur []rune

	runes := []rune(text)
	for i, r := range runes {
		cur = append(cur, r)
		if !isTerminator(r) {
			continue
		}
		if r == '.' {
			if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
				continue
			}
			if endsWithAbbreviation(cur) {
				continue
			}
		}
		if s := strings.TrimSpace(string(cur)); s != "" {
			sentences = append(sentences, s)
		}
		cur = nil
	}
	if s := strings.TrimSpace(string(cur)); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func endsWithAbbreviation(cur []rune) bool {
	s := strings.TrimSuffix(string(cur), ".")
	idx := strings.LastIndexFunc(s, unicode.IsSpace)
	word := strings.ToLower(s[idx+1:])
	if word == "" {
		return false
	}
	if len([]rune(word)) == 1 && unicode.IsLetter([]rune(word)[0]) {
		return true
	}
	_, ok := abbreviations[word]
	return ok
}

// joinSentences concatenates at most max sentences and guarantees a
// closing terminator.
func joinSentences(sentences []string, max int) string {
	if len(sentences) > max {
		sentences = sentences[:max]
	}
	out := strings.Join(sentences, " ")
	if out == "" {
		return out
	}
	if !isTerminator([]rune(out)[len([]rune(out))-1]) {
		out += "."
	}
	return out
}
