// Package audit defines the append-only moderation audit entry.
package audit

import "time"

// Action enumerates auditable moderation actions.
type Action string

const (
	// ActionQualityReject records a sweep or publish-time rejection.
	ActionQualityReject Action = "quality_reject"
	// ActionBanNominated records an owner queued for manual ban review.
	ActionBanNominated Action = "ban_nominated"
	// ActionSlugReclaimed records an admin slug reclaim.
	ActionSlugReclaimed Action = "slug_reclaimed"
	// ActionOwnershipTransferred records an in-place skill ownership transfer.
	ActionOwnershipTransferred Action = "ownership_transferred"
)

// Entry is one append-only audit record. Entries are never updated or
// deleted; idempotence checks read them back by (owner, action).
type Entry struct {
	ID        string
	Action    Action
	SubjectID string // skill or slug the action applies to
	OwnerID   string
	Actor     string // "system" for sweeps, admin key label otherwise
	Detail    string
	At        time.Time
}
