// Package blob stores version document bodies by content reference.
package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/skillforge/registry/internal/db"
	"github.com/skillforge/registry/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "blob:"

// Store is the subset of db.Store this repository needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type Repo struct {
	store Store
}

func New(store Store) *Repo {
	return &Repo{store: store}
}

// Put stores a document body under its reference. References are unique
// per version, so overwrites only happen on retried publishes.
func (r *Repo) Put(ctx context.Context, ref string, body []byte) error {
	if err := r.store.Set(ctx, keyPrefix+ref, body); err != nil {
		return fmt.Errorf("store blob %s: %w", ref, err)
	}
	return nil
}

// Get loads a document body by reference.
func (r *Repo) Get(ctx context.Context, ref string) ([]byte, error) {
	raw, err := r.store.Get(ctx, keyPrefix+ref)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrBlobNotFound
		}
		return nil, fmt.Errorf("load blob %s: %w", ref, err)
	}
	return raw, nil
}
