// Package ratelimit models fixed-window request limiting scopes and
// decisions. Counter state lives in the store; this package is pure types
// and window arithmetic.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Class partitions limits by the kind of work a request performs.
type Class string

const (
	// ClassRead covers search and record reads.
	ClassRead Class = "read"
	// ClassWrite covers publish, delete, and admin mutations.
	ClassWrite Class = "write"
	// ClassDownload covers document blob downloads.
	ClassDownload Class = "download"
)

// UnknownIP is the shared scope for clients whose address cannot be
// resolved from trusted forwarding headers. Intentionally more contended
// than per-address scopes.
const UnknownIP = "unknown"

// IPScope derives the scope key for a client address.
func IPScope(addr string) string {
	if addr == "" {
		addr = UnknownIP
	}
	return "ip:" + addr
}

// TokenScope derives the scope key for a bearer credential. The token is
// hashed so raw credentials never reach the store.
func TokenScope(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "key:" + hex.EncodeToString(sum[:])
}

// Window is the persisted counter state for one scope (one fixed window).
type Window struct {
	Start int64 `json:"window_start"` // unix millis, snapped to a window boundary
	Count int64 `json:"count"`
}

// WindowStart snaps now to the enclosing fixed-window boundary.
func WindowStart(now time.Time, window time.Duration) int64 {
	ms := now.UnixMilli()
	return ms - ms%window.Milliseconds()
}

// Decision is the outcome of a rate limit check for one request.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// RetryAfter returns the client retry hint in whole seconds, floored at 1.
func (d Decision) RetryAfter(now time.Time) int64 {
	secs := int64((d.ResetAt.Sub(now) + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// MoreRestrictive picks the outcome that constrains the client harder:
// a denial beats an allowance, then fewer remaining requests wins.
func MoreRestrictive(a, b Decision) Decision {
	if a.Allowed != b.Allowed {
		if a.Allowed {
			return b
		}
		return a
	}
	if b.Remaining < a.Remaining {
		return b
	}
	return a
}
