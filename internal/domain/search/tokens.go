package search

import (
	"strings"
	"unicode"
)

// Tokenize lowercases the query and splits it into alphanumeric tokens.
func Tokenize(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// MatchesAllTokens reports whether every token occurs as a substring in
// at least one of the fields (case-insensitive). Used to confirm that a
// semantic neighbor actually mentions what was asked for.
func MatchesAllTokens(tokens []string, fields ...string) bool {
	if len(tokens) == 0 {
		return true
	}
	lowered := make([]string, len(fields))
	for i, f := range fields {
		lowered[i] = strings.ToLower(f)
	}
	for _, tok := range tokens {
		found := false
		for _, f := range lowered {
			if strings.Contains(f, tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
