// Package trust derives coarse reputation tiers from account history.
package trust

import "time"

// Tier is a reputation bucket used to modulate moderation strictness.
type Tier string

const (
	// Low is a new account with no publish history.
	Low Tier = "low"
	// Medium is an account with some age or prior activity.
	Medium Tier = "medium"
	// Trusted is an established account with a publish track record.
	Trusted Tier = "trusted"
)

const (
	mediumMinAge  = 14 * 24 * time.Hour
	trustedMinAge = 90 * 24 * time.Hour

	trustedMinSkills = 3
)

// TierFor derives the trust tier from account age and prior published skill
// count. Monotonic: more age or more activity never lowers the tier.
func TierFor(accountAge time.Duration, priorSkillCount int) Tier {
	if accountAge >= trustedMinAge && priorSkillCount >= trustedMinSkills {
		return Trusted
	}
	if accountAge >= mediumMinAge || priorSkillCount >= 1 {
		return Medium
	}
	return Low
}
