// Package ratelimit enforces fixed-window request limits across two
// scopes at once: the client address and the presented credential.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/skillforge/registry/internal/db"
	"github.com/skillforge/registry/internal/domain"
	domrl "github.com/skillforge/registry/internal/domain/ratelimit"
)

// ClassLimits holds per-request-class limits for one scope kind.
type ClassLimits struct {
	Read     int64
	Write    int64
	Download int64
}

func (l ClassLimits) limit(class domrl.Class) int64 {
	switch class {
	case domrl.ClassWrite:
		return l.Write
	case domrl.ClassDownload:
		return l.Download
	default:
		return l.Read
	}
}

// Limits configures the limiter. Key limits are higher than IP limits:
// a credential identifies one tenant, an address may front many.
type Limits struct {
	Window time.Duration
	IP     ClassLimits
	Key    ClassLimits
}

// Request identifies one incoming request for limiting purposes.
type Request struct {
	IPAddr string // resolved client address, "" when unresolvable
	Token  string // bearer credential, "" when anonymous
	Class  domrl.Class
}

// Service coordinates probe-then-consume across both scopes.
type Service struct {
	counter Counter
	limits  Limits
	now     func() time.Time
}

// New creates a rate limit service.
func New(counter Counter, limits Limits) *Service {
	return &Service{counter: counter, limits: limits, now: time.Now}
}

type scopeCheck struct {
	scope string
	limit int64
}

// Allow decides whether the request may proceed. Both scopes are probed
// read-only first; only when neither would deny does it consume a slot
// in each, so a denied request never spends the other scope's budget. A
// concurrent-update conflict during consume is treated as a denial
// rather than retried: under contention the conservative answer is the
// correct one.
func (s *Service) Allow(ctx context.Context, req Request) (domrl.Decision, error) {
	now := s.now()
	windowStart := domrl.WindowStart(now, s.limits.Window)
	resetAt := time.UnixMilli(windowStart + s.limits.Window.Milliseconds())

	checks := []scopeCheck{
		{scope: classScope(domrl.IPScope(req.IPAddr), req.Class), limit: s.limits.IP.limit(req.Class)},
	}
	if req.Token != "" {
		checks = append(checks, scopeCheck{
			scope: classScope(domrl.TokenScope(req.Token), req.Class),
			limit: s.limits.Key.limit(req.Class),
		})
	}

	for _, c := range checks {
		w, ok, err := s.counter.Probe(ctx, c.scope)
		if err != nil {
			return domrl.Decision{}, err
		}
		if ok && w.Start == windowStart && w.Count >= c.limit {
			return denial(c.limit, resetAt), nil
		}
	}

	decision := domrl.Decision{Allowed: true, Limit: checks[0].limit, Remaining: checks[0].limit, ResetAt: resetAt}
	first := true
	for _, c := range checks {
		// Counters expire shortly after their window closes; two windows
		// keeps them probeable for the whole following window.
		w, err := s.counter.Consume(ctx, c.scope, windowStart, c.limit, 2*s.limits.Window)
		if err != nil {
			if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, db.ErrTxConflict) {
				return denial(c.limit, resetAt), nil
			}
			return domrl.Decision{}, err
		}

		d := domrl.Decision{
			Allowed:   true,
			Limit:     c.limit,
			Remaining: c.limit - w.Count,
			ResetAt:   resetAt,
		}
		if first {
			decision = d
			first = false
		} else {
			decision = domrl.MoreRestrictive(decision, d)
		}
	}
	return decision, nil
}

// classScope partitions a scope's counter per request class so that, for
// example, a burst of downloads cannot starve reads from the same address.
func classScope(scope string, class domrl.Class) string {
	return scope + ":" + string(class)
}

func denial(limit int64, resetAt time.Time) domrl.Decision {
	return domrl.Decision{Allowed: false, Limit: limit, Remaining: 0, ResetAt: resetAt}
}
