package quality

import (
	"strings"
	"testing"

	"github.com/skillforge/registry/internal/domain/trust"
)

func substantialBody() string {
	var b strings.Builder
	b.WriteString("# Deploy Helper\n\n")
	b.WriteString("## Overview\n\n")
	words := []string{
		"deploys", "services", "through", "staged", "rollouts", "with",
		"automatic", "verification", "between", "phases", "and", "instant",
		"rollback", "when", "error", "budgets", "are", "exceeded", "during",
		"canary", "analysis", "windows", "using", "configurable", "metrics",
	}
	for i := 0; i < 15; i++ {
		for _, w := range words {
			b.WriteString(w)
			b.WriteString(strings.Repeat("x", i%3))
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n## Usage\n\n- install the binary\n- configure targets\n- run deploy\n")
	return b.String()
}

func TestExtractSignals_CountsStructure(t *testing.T) {
	body := "# Title\n\n## Section\n\nsome words here\n\n- first\n- second\n1. third\n"
	sig := ExtractSignals(body, "a summary")

	if sig.HeadingCount != 2 {
		t.Errorf("HeadingCount = %d, want 2", sig.HeadingCount)
	}
	if sig.BulletCount != 3 {
		t.Errorf("BulletCount = %d, want 3", sig.BulletCount)
	}
	if sig.WordCount == 0 {
		t.Error("WordCount should be positive")
	}
}

func TestFingerprint_NormalizesFormatting(t *testing.T) {
	base := Fingerprint("Deploy Helper rolls out services in stages.")
	reformatted := Fingerprint("  deploy   HELPER, rolls-out services...\nin stages!  ")
	if base != reformatted {
		t.Error("casing, punctuation, and whitespace must not change the fingerprint")
	}

	other := Fingerprint("Deploy Helper rolls back services in stages.")
	if base == other {
		t.Error("different content must not collide")
	}
}

func TestExtractSignals_TemplateMarkers(t *testing.T) {
	sig := ExtractSignals("Lorem ipsum dolor sit amet. [Insert description here]. TBD", "my skill")
	if sig.TemplateMarkerHits < 2 {
		t.Errorf("TemplateMarkerHits = %d, want >= 2", sig.TemplateMarkerHits)
	}
}

func TestExtractSignals_GenericSummary(t *testing.T) {
	if sig := ExtractSignals("body", "my skill"); !sig.GenericSummary {
		t.Error("expected generic summary detection")
	}
	if sig := ExtractSignals("body", "deploys services with canary analysis"); sig.GenericSummary {
		t.Error("specific summary flagged as generic")
	}
}

func TestEvaluate_AcceptsSubstantialContent(t *testing.T) {
	sig := ExtractSignals(substantialBody(), "staged rollout deploy helper")
	d := Evaluate(sig, trust.Low, 0)
	if !d.Accept {
		t.Fatalf("substantial content rejected: score %.1f, reason %q", d.Score, d.Reason)
	}
}

func TestEvaluate_RejectsThinContent(t *testing.T) {
	sig := ExtractSignals("short", "my skill")
	d := Evaluate(sig, trust.Low, 0)
	if d.Accept {
		t.Fatalf("thin content accepted with score %.1f", d.Score)
	}
	if d.Reason == "" {
		t.Error("rejection must carry a reason")
	}
}

func TestEvaluate_TierLowersBar(t *testing.T) {
	// Middling content: enough words but repetitive.
	body := strings.Repeat("deploy the service and check the service then deploy again ", 20)
	sig := ExtractSignals(body, "deploy checker")

	low := Evaluate(sig, trust.Low, 0)
	trusted := Evaluate(sig, trust.Trusted, 0)
	if low.Score != trusted.Score {
		t.Fatalf("score must not depend on tier: %v vs %v", low.Score, trusted.Score)
	}
	if low.Accept && !trusted.Accept {
		t.Error("trusted bar must never be stricter than low")
	}
}

func TestEvaluate_SimilarRecentRaisesBar(t *testing.T) {
	sig := ExtractSignals(substantialBody(), "staged rollout deploy helper")
	base := Evaluate(sig, trust.Low, 0)
	flooded := Evaluate(sig, trust.Low, 100)

	if base.Score != flooded.Score {
		t.Fatalf("similar count must not change the score itself")
	}
	// The bar rise is capped, so good content still passes even under a
	// flood; what must hold is monotonicity of acceptance.
	if !base.Accept && flooded.Accept {
		t.Error("a flood of near-duplicates must never make acceptance easier")
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	sig := ExtractSignals(substantialBody(), "staged rollout deploy helper")
	a := Evaluate(sig, trust.Medium, 2)
	b := Evaluate(sig, trust.Medium, 2)
	if a != b {
		t.Errorf("identical inputs produced %+v and %+v", a, b)
	}
}

func TestEvaluate_ScoreBounds(t *testing.T) {
	cases := map[string]Signals{
		"zero":     {},
		"negative": {TemplateMarkerHits: 50, GenericSummary: true, NonLatinCharCount: 1000, BodyLength: 10},
		"maxed":    {WordCount: 10000, UniqueWordRatio: 1, HeadingCount: 50, BulletCount: 100, BodyLength: 50000},
	}
	for name, sig := range cases {
		d := Evaluate(sig, trust.Low, 0)
		if d.Score < 0 || d.Score > 100 {
			t.Errorf("%s: score %.1f outside [0,100]", name, d.Score)
		}
	}
}
