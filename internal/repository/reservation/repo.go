// Package reservation persists each slug's reservation history as a
// single JSON document mutated through optimistic transactions.
package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/skillforge/registry/internal/db"
	"github.com/skillforge/registry/internal/domain"
	domslug "github.com/skillforge/registry/internal/domain/slug"
)

const keyPrefix = domain.KeyPrefix + "slugres:"

// Store is the subset of db.Store this repository needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Tx(ctx context.Context, key string, update db.TxUpdate) error
}

type Repo struct {
	store Store
}

func New(store Store) *Repo {
	return &Repo{store: store}
}

type reservationDTO struct {
	Slug       string `json:"slug"`
	OwnerID    string `json:"owner_id"`
	Reason     string `json:"reason,omitempty"`
	DeletedAt  int64  `json:"deleted_at"`
	ExpiresAt  int64  `json:"expires_at"`
	ReleasedAt int64  `json:"released_at,omitempty"` // 0 while active
}

// Get loads the full reservation history of a slug, oldest first. A slug
// with no history yields an empty slice.
func (r *Repo) Get(ctx context.Context, slug string) ([]domslug.Reservation, error) {
	raw, err := r.store.Get(ctx, keyPrefix+slug)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load reservations for %s: %w", slug, err)
	}
	return decode(slug, raw)
}

// Update applies fn to the slug's reservation history under an optimistic
// transaction. An error from fn aborts without a write and is surfaced
// unchanged, so ledger rules like SlugReservedError pass through intact.
func (r *Repo) Update(ctx context.Context, slug string, fn func(current []domslug.Reservation) ([]domslug.Reservation, error)) error {
	return r.store.Tx(ctx, keyPrefix+slug, func(current []byte) ([]byte, time.Duration, error) {
		var history []domslug.Reservation
		if current != nil {
			var err error
			history, err = decode(slug, current)
			if err != nil {
				return nil, 0, err
			}
		}

		updated, err := fn(history)
		if err != nil {
			return nil, 0, err
		}

		next, err := encode(updated)
		if err != nil {
			return nil, 0, fmt.Errorf("encode reservations for %s: %w", slug, err)
		}
		return next, 0, nil
	})
}

func decode(slug string, raw []byte) ([]domslug.Reservation, error) {
	var dtos []reservationDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, fmt.Errorf("decode reservations for %s: %w", slug, err)
	}
	out := make([]domslug.Reservation, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, domslug.Reservation{
			Slug:       d.Slug,
			OwnerID:    d.OwnerID,
			Reason:     d.Reason,
			DeletedAt:  fromMillis(d.DeletedAt),
			ExpiresAt:  fromMillis(d.ExpiresAt),
			ReleasedAt: fromMillis(d.ReleasedAt),
		})
	}
	return out, nil
}

func encode(history []domslug.Reservation) ([]byte, error) {
	dtos := make([]reservationDTO, 0, len(history))
	for _, h := range history {
		dtos = append(dtos, reservationDTO{
			Slug:       h.Slug,
			OwnerID:    h.OwnerID,
			Reason:     h.Reason,
			DeletedAt:  toMillis(h.DeletedAt),
			ExpiresAt:  toMillis(h.ExpiresAt),
			ReleasedAt: toMillis(h.ReleasedAt),
		})
	}
	return json.Marshal(dtos)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
