// Package audit persists append-only moderation records plus dedupe
// markers so sweeps stay idempotent across restarts.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skillforge/registry/internal/domain"
	domaudit "github.com/skillforge/registry/internal/domain/audit"
)

const (
	keyPrefix    = domain.KeyPrefix + "audit:"
	markerPrefix = domain.KeyPrefix + "audit:mark:"
)

// Store is the subset of db.Store this repository needs.
type Store interface {
	Set(ctx context.Context, key string, value []byte) error
	Exists(ctx context.Context, key string) (bool, error)
}

type Repo struct {
	store Store
}

func New(store Store) *Repo {
	return &Repo{store: store}
}

type entryDTO struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	SubjectID string `json:"subject_id"`
	OwnerID   string `json:"owner_id"`
	Actor     string `json:"actor"`
	Detail    string `json:"detail,omitempty"`
	At        int64  `json:"at"`
}

// Append writes the entry and its (action, owner) dedupe marker. Entries
// are never updated or deleted.
func (r *Repo) Append(ctx context.Context, e domaudit.Entry) error {
	raw, err := json.Marshal(entryDTO{
		ID:        e.ID,
		Action:    string(e.Action),
		SubjectID: e.SubjectID,
		OwnerID:   e.OwnerID,
		Actor:     e.Actor,
		Detail:    e.Detail,
		At:        e.At.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode audit entry %s: %w", e.ID, err)
	}
	if err := r.store.Set(ctx, keyPrefix+e.ID, raw); err != nil {
		return fmt.Errorf("store audit entry %s: %w", e.ID, err)
	}
	if err := r.store.Set(ctx, markerKey(e.Action, e.OwnerID), []byte("1")); err != nil {
		return fmt.Errorf("store audit marker for %s: %w", e.OwnerID, err)
	}
	return nil
}

// Has reports whether an entry with the given action was ever recorded
// for the owner.
func (r *Repo) Has(ctx context.Context, action domaudit.Action, ownerID string) (bool, error) {
	ok, err := r.store.Exists(ctx, markerKey(action, ownerID))
	if err != nil {
		return false, fmt.Errorf("probe audit marker for %s: %w", ownerID, err)
	}
	return ok, nil
}

func markerKey(action domaudit.Action, ownerID string) string {
	return markerPrefix + string(action) + ":" + ownerID
}
