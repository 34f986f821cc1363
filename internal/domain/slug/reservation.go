// Package slug models temporary reservations of deleted or reclaimed slugs.
package slug

import "time"

// Reservation is one entry in a slug's reservation history.
// Invariant (enforced by the ledger): at most one reservation per slug has
// ReleasedAt unset at any time.
type Reservation struct {
	Slug      string
	OwnerID   string
	Reason    string
	DeletedAt time.Time
	ExpiresAt time.Time
	// ReleasedAt is zero while the reservation is active.
	ReleasedAt time.Time
}

// Active reports whether the reservation is still held.
func (r *Reservation) Active() bool { return r.ReleasedAt.IsZero() }

// Expired reports whether the hold window has lapsed at now.
func (r *Reservation) Expired(now time.Time) bool { return !now.Before(r.ExpiresAt) }

// Released returns a copy marked released at now.
func (r *Reservation) Released(now time.Time) Reservation {
	c := *r
	c.ReleasedAt = now
	return c
}

// Extended returns a copy with the hold window refreshed. The original
// reason is kept unless a new one is supplied.
func (r *Reservation) Extended(now time.Time, ttl time.Duration, reason string) Reservation {
	c := *r
	c.DeletedAt = now
	c.ExpiresAt = now.Add(ttl)
	if reason != "" {
		c.Reason = reason
	}
	return c
}

// Reclaimed returns a copy re-pointed at a rightful owner with a fresh
// hold window.
func (r *Reservation) Reclaimed(newOwnerID string, now time.Time, ttl time.Duration) Reservation {
	c := *r
	c.OwnerID = newOwnerID
	c.DeletedAt = now
	c.ExpiresAt = now.Add(ttl)
	c.Reason = "admin_reclaim"
	return c
}
