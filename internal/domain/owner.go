package domain

import "time"

// OwnerProfile is the minimal account record the registry keeps about a
// publisher. Accounts live in an external identity system; this profile
// only carries what trust tiering needs.
type OwnerProfile struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
