package matching

import "strings"

// MaxTokens bounds the number of tokens kept from a single text.
const MaxTokens = 1500

// minTokenLength is exclusive: tokens must be longer than this.
const minTokenLength = 2

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "you": {}, "are": {}, "our": {},
	"will": {}, "this": {}, "that": {}, "from": {}, "have": {}, "has": {},
	"your": {}, "was": {}, "were": {}, "been": {}, "they": {}, "their": {},
	"them": {}, "who": {}, "what": {}, "which": {}, "when": {}, "where": {},
	"how": {}, "all": {}, "any": {}, "can": {}, "not": {}, "but": {}, "its": {},
	"into": {}, "about": {}, "also": {},
}

// IsStopword reports whether the lowercase token is filtered out by Tokenize.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// Tokenize lowercases text, breaks it on every character outside
// [a-z0-9+#.-], and returns the first MaxTokens tokens longer than two
// characters that are not stopwords, in scan order.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	cleaned := strings.Map(func(r rune) rune {
		if isTokenRune(r) {
			return r
		}
		return ' '
	}, lowered)

	tokens := make([]string, 0, 64)
	for _, field := range strings.Fields(cleaned) {
		if len(field) <= minTokenLength {
			continue
		}
		if IsStopword(field) {
			continue
		}
		tokens = append(tokens, field)
		if len(tokens) == MaxTokens {
			break
		}
	}
	return tokens
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '+', r == '#', r == '.', r == '-':
		return true
	default:
		return false
	}
}
