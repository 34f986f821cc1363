// Package owner keeps the minimal publisher profiles trust tiering reads.
package owner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/skillforge/registry/internal/db"
	"github.com/skillforge/registry/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "owner:"

// Store is the subset of db.Store this repository needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
}

type Repo struct {
	store Store
}

func New(store Store) *Repo {
	return &Repo{store: store}
}

// Get loads a publisher profile. Unknown owners return domain.ErrNotFound;
// callers treat them as brand-new accounts.
func (r *Repo) Get(ctx context.Context, id string) (domain.OwnerProfile, error) {
	raw, err := r.store.Get(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.OwnerProfile{}, domain.ErrNotFound
		}
		return domain.OwnerProfile{}, fmt.Errorf("load owner %s: %w", id, err)
	}
	var p domain.OwnerProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.OwnerProfile{}, fmt.Errorf("decode owner %s: %w", id, err)
	}
	return p, nil
}

// Put upserts a publisher profile.
func (r *Repo) Put(ctx context.Context, p domain.OwnerProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode owner %s: %w", p.ID, err)
	}
	if err := r.store.Set(ctx, keyPrefix+p.ID, raw); err != nil {
		return fmt.Errorf("store owner %s: %w", p.ID, err)
	}
	return nil
}

// IncrRejections bumps the owner's lifetime quality rejection counter and
// returns the new total. The counter feeds ban nomination.
func (r *Repo) IncrRejections(ctx context.Context, id string) (int64, error) {
	n, err := r.store.IncrBy(ctx, keyPrefix+id+":rejections", 1)
	if err != nil {
		return 0, fmt.Errorf("count rejection for owner %s: %w", id, err)
	}
	return n, nil
}
