package ratelimit

import (
	"context"
	"time"

	domrl "github.com/skillforge/registry/internal/domain/ratelimit"
)

// Counter is the persistence contract for fixed-window counters.
type Counter interface {
	// Probe reads the counter without consuming a slot.
	Probe(ctx context.Context, scope string) (domrl.Window, bool, error)
	// Consume spends one slot; domain.ErrRateLimited when the window is
	// full, db.ErrTxConflict on a concurrent update.
	Consume(ctx context.Context, scope string, windowStart, limit int64, ttl time.Duration) (domrl.Window, error)
}
