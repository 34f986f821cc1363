// Package fingerprint tracks recently seen content fingerprints per
// owner so the quality gate can spot near-duplicate submission bursts.
package fingerprint

import (
	"context"
	"fmt"
	"time"

	"github.com/skillforge/registry/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "fp:"

// recentWindow bounds how long a submission counts toward the owner's
// near-duplicate tally.
const recentWindow = 24 * time.Hour

// Store is the subset of db.Store this repository needs.
type Store interface {
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

type Repo struct {
	store Store
}

func New(store Store) *Repo {
	return &Repo{store: store}
}

// Observe records one sighting of the fingerprint for the owner and
// returns how many times it had been seen before within the window.
func (r *Repo) Observe(ctx context.Context, ownerID, fingerprint string) (int, error) {
	key := keyPrefix + ownerID + ":" + fingerprint
	n, err := r.store.IncrBy(ctx, key, 1)
	if err != nil {
		return 0, fmt.Errorf("record fingerprint for owner %s: %w", ownerID, err)
	}
	// NX keeps the window anchored at the first sighting.
	if err := r.store.Expire(ctx, key, recentWindow, true); err != nil {
		return 0, fmt.Errorf("expire fingerprint for owner %s: %w", ownerID, err)
	}
	return int(n - 1), nil
}
