package slugledger

import (
	"context"

	domslug "github.com/skillforge/registry/internal/domain/slug"
)

// ReservationStore persists per-slug reservation histories.
type ReservationStore interface {
	Get(ctx context.Context, slug string) ([]domslug.Reservation, error)
	// Update applies fn to the history under an optimistic transaction;
	// an error from fn aborts without a write and is surfaced unchanged.
	Update(ctx context.Context, slug string, fn func(current []domslug.Reservation) ([]domslug.Reservation, error)) error
}
