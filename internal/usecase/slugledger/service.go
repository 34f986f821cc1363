// Package slugledger enforces the reservation rules that keep deleted
// and reclaimed slugs from being sniped before their hold expires.
package slugledger

import (
	"context"
	"time"

	"github.com/skillforge/registry/internal/domain"
	domslug "github.com/skillforge/registry/internal/domain/slug"
)

// Service maintains per-slug reservation ledgers. All mutations collapse
// the history to at most one active reservation before applying their
// own rule, so a ledger damaged by older writes self-heals on touch.
type Service struct {
	store ReservationStore
	ttl   time.Duration
	now   func() time.Time
}

// New creates a slug ledger service with the given hold duration.
func New(store ReservationStore, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl, now: time.Now}
}

// EnsureAvailable checks whether ownerID may take the slug. A live hold
// by another owner fails with SlugReservedError; the owner's own hold and
// any expired hold are released so the publish can proceed.
func (s *Service) EnsureAvailable(ctx context.Context, slug, ownerID string) error {
	now := s.now()
	return s.store.Update(ctx, slug, func(current []domslug.Reservation) ([]domslug.Reservation, error) {
		history, active := collapse(current, now)
		if active == nil {
			return history, nil
		}
		if active.OwnerID != ownerID {
			return nil, &domain.SlugReservedError{
				Slug:      slug,
				OwnerID:   active.OwnerID,
				ExpiresAt: active.ExpiresAt,
			}
		}
		// The holder is publishing the slug back; the hold has served
		// its purpose.
		return release(history, now), nil
	})
}

// Reserve places a hold on the slug for ownerID. A repeat hold by the
// same owner extends the existing entry in place; any other active
// reservation is replaced.
func (s *Service) Reserve(ctx context.Context, slug, ownerID, reason string) error {
	now := s.now()
	return s.store.Update(ctx, slug, func(current []domslug.Reservation) ([]domslug.Reservation, error) {
		history, active := collapse(current, now)
		if active != nil && active.OwnerID == ownerID {
			history[len(history)-1] = active.Extended(now, s.ttl, reason)
			return history, nil
		}
		history = release(history, now)
		return append(history, domslug.Reservation{
			Slug:      slug,
			OwnerID:   ownerID,
			Reason:    reason,
			DeletedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}), nil
	})
}

// Reclaim re-points the slug's hold at a rightful owner with a fresh
// window. With no active hold a new admin reservation is created.
func (s *Service) Reclaim(ctx context.Context, slug, newOwnerID string) (domslug.Reservation, error) {
	now := s.now()
	var out domslug.Reservation
	err := s.store.Update(ctx, slug, func(current []domslug.Reservation) ([]domslug.Reservation, error) {
		history, active := collapse(current, now)
		if active != nil {
			reclaimed := active.Reclaimed(newOwnerID, now, s.ttl)
			history[len(history)-1] = reclaimed
			out = reclaimed
			return history, nil
		}
		res := domslug.Reservation{Slug: slug, OwnerID: newOwnerID, DeletedAt: now}
		out = res.Reclaimed(newOwnerID, now, s.ttl)
		return append(history, out), nil
	})
	if err != nil {
		return domslug.Reservation{}, err
	}
	return out, nil
}

// Holder returns the active, unexpired reservation for the slug, if any.
// Read-only; expired entries are ignored, not rewritten.
func (s *Service) Holder(ctx context.Context, slug string) (domslug.Reservation, bool, error) {
	history, err := s.store.Get(ctx, slug)
	if err != nil {
		return domslug.Reservation{}, false, err
	}
	now := s.now()
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Active() && !history[i].Expired(now) {
			return history[i], true, nil
		}
	}
	return domslug.Reservation{}, false, nil
}

// collapse releases expired and duplicate active entries, leaving at most
// one active reservation (the newest unexpired one), which sits at the
// end of the returned history.
func collapse(current []domslug.Reservation, now time.Time) ([]domslug.Reservation, *domslug.Reservation) {
	history := make([]domslug.Reservation, len(current))
	copy(history, current)

	keep := -1
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].Active() {
			continue
		}
		if history[i].Expired(now) || keep >= 0 {
			history[i] = history[i].Released(now)
			continue
		}
		keep = i
	}
	if keep < 0 {
		return history, nil
	}
	// Move the surviving entry to the end so callers can update it in place.
	active := history[keep]
	history = append(append(history[:keep], history[keep+1:]...), active)
	return history, &history[len(history)-1]
}

// release marks every remaining active entry released.
func release(history []domslug.Reservation, now time.Time) []domslug.Reservation {
	for i := range history {
		if history[i].Active() {
			history[i] = history[i].Released(now)
		}
	}
	return history
}
