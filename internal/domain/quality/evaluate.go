package quality

import (
	"fmt"

	"github.com/skillforge/registry/internal/domain/trust"
)

// Decision is the outcome of evaluating one document.
type Decision struct {
	Accept bool
	Score  float64
	Reason string
}

// Score component weights. The total reachable score is 100.
const (
	diversityWeight = 35.0
	lengthWeight    = 35.0
	structureWeight = 30.0

	templateMarkerPenalty = 8.0
	genericSummaryPenalty = 10.0
	nonLatinPenalty       = 15.0

	// fullLengthWords is the word count at which the length component maxes out.
	fullLengthWords = 300

	// similarPenaltyStep raises the acceptance bar per near-duplicate seen in
	// the recent window; capped so a burst cannot push the bar past 100.
	similarPenaltyStep = 5.0
	similarPenaltyCap  = 25.0
)

// acceptanceBar returns the minimum score required per trust tier. Low-trust
// submitters are held to a stricter bar; abuse skews heavily toward
// first-time accounts.
func acceptanceBar(tier trust.Tier) float64 {
	switch tier {
	case trust.Trusted:
		return 25
	case trust.Medium:
		return 35
	default:
		return 45
	}
}

// Evaluate scores the signal set and decides acceptance. Deterministic for
// identical (signals, tier, similarRecentCount) inputs.
func Evaluate(sig Signals, tier trust.Tier, similarRecentCount int) Decision {
	score := diversityWeight * sig.UniqueWordRatio

	lengthRatio := float64(sig.WordCount) / fullLengthWords
	if lengthRatio > 1 {
		lengthRatio = 1
	}
	score += lengthWeight * lengthRatio

	structure := float64(min(sig.HeadingCount, 5))*3 + float64(min(sig.BulletCount, 15))
	if structure > structureWeight {
		structure = structureWeight
	}
	score += structure

	score -= templateMarkerPenalty * float64(sig.TemplateMarkerHits)
	if sig.GenericSummary {
		score -= genericSummaryPenalty
	}
	if sig.WordCount > 0 && float64(sig.NonLatinCharCount) > 0.5*float64(sig.BodyLength) {
		score -= nonLatinPenalty
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	bar := acceptanceBar(tier)
	if similarRecentCount > 0 {
		penalty := similarPenaltyStep * float64(similarRecentCount)
		if penalty > similarPenaltyCap {
			penalty = similarPenaltyCap
		}
		bar += penalty
	}

	if score >= bar {
		return Decision{Accept: true, Score: score, Reason: "ok"}
	}
	return Decision{Accept: false, Score: score, Reason: rejectionReason(sig, similarRecentCount)}
}

// rejectionReason names the dominant negative signal for the audit trail.
func rejectionReason(sig Signals, similarRecentCount int) string {
	switch {
	case sig.TemplateMarkerHits > 0:
		return fmt.Sprintf("templated boilerplate (%d markers)", sig.TemplateMarkerHits)
	case similarRecentCount > 0:
		return fmt.Sprintf("near-duplicate burst (%d similar recent submissions)", similarRecentCount)
	case sig.WordCount < 50:
		return fmt.Sprintf("body too short (%d words)", sig.WordCount)
	case sig.UniqueWordRatio < 0.3:
		return "low word diversity"
	case sig.GenericSummary:
		return "generic summary"
	default:
		return "insufficient quality score"
	}
}
