// Package visibility defines the moderation visibility states of embedding
// records and the allow-list used to parse them from storage.
package visibility

import "fmt"

// State is the moderation visibility of a published embedding record.
type State string

const (
	// Pending awaits moderation and is excluded from discovery.
	Pending State = "pending"
	// Latest is the current version of a published skill.
	Latest State = "latest"
	// LatestApproved is the current version with an explicit approval badge.
	LatestApproved State = "latest_approved"
	// Superseded is an older version replaced by a republish.
	Superseded State = "superseded"
	// Removed belongs to a soft-deleted or rejected skill.
	Removed State = "removed"
)

// Searchable lists the states eligible for discovery.
func Searchable() []State {
	return []State{Latest, LatestApproved}
}

// Parse validates a stored state string against the allow-list.
func Parse(s string) (State, error) {
	switch State(s) {
	case Pending, Latest, LatestApproved, Superseded, Removed:
		return State(s), nil
	}
	return "", fmt.Errorf("unknown visibility state %q", s)
}
