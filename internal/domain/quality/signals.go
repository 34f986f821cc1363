// Package quality derives content signals from skill documents and turns
// them into deterministic accept/reject decisions.
package quality

import (
	"strings"
	"unicode"
)

// templateMarkers are boilerplate fragments left behind by skill templates
// and low-effort generators.
var templateMarkers = []string{
	"lorem ipsum",
	"[insert",
	"{{",
	"your text here",
	"your skill here",
	"<placeholder>",
	"tbd",
	"coming soon",
}

// genericSummaries are throwaway summaries that carry no information.
var genericSummaries = map[string]bool{
	"a skill":        true,
	"my skill":       true,
	"a useful skill": true,
	"test":           true,
	"test skill":     true,
	"skill":          true,
	"does stuff":     true,
}

// Signals is the signal set derived from a document body and summary.
// It is a pure function of its input text.
type Signals struct {
	BodyLength         int
	WordCount          int
	UniqueWordRatio    float64
	HeadingCount       int
	BulletCount        int
	TemplateMarkerHits int
	GenericSummary     bool
	NonLatinCharCount  int
}

// ExtractSignals computes Signals from the document body and summary.
func ExtractSignals(body, summary string) Signals {
	sig := Signals{BodyLength: len(body)}

	words := splitWords(body)
	sig.WordCount = len(words)
	if len(words) > 0 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		sig.UniqueWordRatio = float64(len(unique)) / float64(len(words))
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			sig.HeadingCount++
		case isBulletLine(trimmed):
			sig.BulletCount++
		}
	}

	lowerBody := strings.ToLower(body)
	for _, marker := range templateMarkers {
		sig.TemplateMarkerHits += strings.Count(lowerBody, marker)
	}

	sig.GenericSummary = genericSummaries[strings.ToLower(strings.TrimSpace(summary))] ||
		len(strings.TrimSpace(summary)) < 8

	for _, r := range body {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			sig.NonLatinCharCount++
		}
	}

	return sig
}

// splitWords lowercases and splits on non-alphanumeric runes.
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isBulletLine(line string) bool {
	if len(line) < 2 {
		return false
	}
	if (line[0] == '-' || line[0] == '*' || line[0] == '+') && line[1] == ' ' {
		return true
	}
	// Numbered list: "1. ", "12. "
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	return i > 0 && i+1 < len(line) && line[i] == '.' && line[i+1] == ' '
}
