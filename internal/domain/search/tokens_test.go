package search

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("Remind me about PDF-forms, v2!")
	want := []string{"remind", "me", "about", "pdf", "forms", "v2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}

	if got := Tokenize("   "); len(got) != 0 {
		t.Errorf("whitespace-only query produced tokens: %v", got)
	}
}

func TestMatchesAllTokens(t *testing.T) {
	fields := []string{"PDF Form Filler", "pdf-form-filler", "Fills PDF forms from JSON data"}

	if !MatchesAllTokens([]string{"pdf", "form"}, fields...) {
		t.Error("expected match when every token appears")
	}
	if MatchesAllTokens([]string{"pdf", "spreadsheet"}, fields...) {
		t.Error("one missing token must fail the match")
	}
	// Substring match: "fill" is inside "Filler".
	if !MatchesAllTokens([]string{"fill"}, fields...) {
		t.Error("substring token should match")
	}
	// Tokens may be satisfied by different fields.
	if !MatchesAllTokens([]string{"filler", "json"}, fields...) {
		t.Error("tokens spread across fields should match")
	}
	if !MatchesAllTokens(nil, fields...) {
		t.Error("no tokens must match everything")
	}
	if MatchesAllTokens([]string{"pdf"}) {
		t.Error("no fields cannot satisfy a token")
	}
}
