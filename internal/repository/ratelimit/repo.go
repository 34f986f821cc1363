// Package ratelimit persists fixed-window counters with optimistic
// read-modify-write so concurrent requests never double-spend a slot.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/skillforge/registry/internal/db"
	"github.com/skillforge/registry/internal/domain"
	domrl "github.com/skillforge/registry/internal/domain/ratelimit"
)

const keyPrefix = domain.KeyPrefix + "rl:"

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

// Probe reads the current counter without consuming a slot. ok is false
// when no counter exists for the scope.
func (r *Repo) Probe(ctx context.Context, scope string) (domrl.Window, bool, error) {
	raw, err := r.store.Get(ctx, keyPrefix+scope)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domrl.Window{}, false, nil
		}
		return domrl.Window{}, false, fmt.Errorf("probe window %s: %w", scope, err)
	}
	var w domrl.Window
	if err := json.Unmarshal(raw, &w); err != nil {
		return domrl.Window{}, false, fmt.Errorf("decode window %s: %w", scope, err)
	}
	return w, true, nil
}

// Consume atomically spends one slot in the window starting at
// windowStart. A counter from an earlier window is reset. When the window
// is already full it returns domain.ErrRateLimited without writing; a
// concurrent update surfaces as db.ErrTxConflict for the caller to map.
func (r *Repo) Consume(ctx context.Context, scope string, windowStart, limit int64, ttl time.Duration) (domrl.Window, error) {
	var result domrl.Window

	err := r.store.Tx(ctx, keyPrefix+scope, func(current []byte) ([]byte, time.Duration, error) {
		w := domrl.Window{Start: windowStart}
		if current != nil {
			if err := json.Unmarshal(current, &w); err != nil {
				return nil, 0, fmt.Errorf("decode window %s: %w", scope, err)
			}
			if w.Start != windowStart {
				w = domrl.Window{Start: windowStart}
			}
		}
		if w.Count >= limit {
			return nil, 0, domain.ErrRateLimited
		}
		w.Count++
		result = w

		next, err := json.Marshal(w)
		if err != nil {
			return nil, 0, fmt.Errorf("encode window %s: %w", scope, err)
		}
		return next, ttl, nil
	})
	if err != nil {
		return domrl.Window{}, err
	}
	return result, nil
}
