package search

import (
	"strings"
	"unicode"
)

// stopwords are ignored when a query has other tokens to match on.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about an and are as at be been but by can could do does did
		for from get got had has have how i if in into is it its me my no not of on or our should
		so that the their them then there these they this to us was we were what when where which
		who why will with would you your`) {
		stopwords[w] = struct{}{}
	}
}

// IsStopword reports whether a normalized token is ignored during token
// matching.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// Tokenize splits normalized text into letter/digit runs. Hyphens and
// apostrophes are dropped so "wi-fi" and "wifi" produce the same token;
// every other non-alphanumeric rune separates tokens.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '\'' || r == '’':
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// contentTokens removes stopwords and duplicates, keeping first-seen order.
// If every token is a stopword the deduplicated tokens are returned instead.
func contentTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	var content, all []string
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		all = append(all, tok)
		if !IsStopword(tok) {
			content = append(content, tok)
		}
	}
	if len(content) == 0 {
		return all
	}
	return content
}
