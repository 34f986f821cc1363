package chi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	domrl "github.com/skillforge/registry/internal/domain/ratelimit"
	"github.com/skillforge/registry/internal/metrics"
	ratelimituc "github.com/skillforge/registry/internal/usecase/ratelimit"
)

// ownerHeader carries the caller's account ID, set by the identity proxy
// in front of the registry.
const ownerHeader = "X-Registry-Owner"

type ctxKey int

const actorKey ctxKey = iota

// timeNow is swapped in tests.
var timeNow = time.Now

// ownerID extracts the caller's account ID from the request.
func ownerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(ownerHeader))
}

// bearerToken extracts the bearer credential, "" when absent.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return auth[len(prefix):]
}

// clientIP resolves the client address. Forwarding headers are only
// believed when the direct peer is a trusted proxy; anything else keeps
// the peer address, and an unparseable peer collapses to the shared
// unknown scope.
func clientIP(r *http.Request, trustedProxies map[string]bool) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if net.ParseIP(peer) == nil {
		return ""
	}
	if !trustedProxies[peer] {
		return peer
	}

	fwd := r.Header.Get("X-Forwarded-For")
	if fwd == "" {
		return peer
	}
	// The proxy appends the real client last.
	parts := strings.Split(fwd, ",")
	candidate := strings.TrimSpace(parts[len(parts)-1])
	if net.ParseIP(candidate) == nil {
		return ""
	}
	return candidate
}

// AdminAuthMiddleware restricts a subtree to configured admin keys and
// stores an actor label for audit trails. With no keys configured the
// subtree is unreachable rather than open.
func AdminAuthMiddleware(adminKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]bool, len(adminKeys))
	for _, k := range adminKeys {
		if k != "" {
			validKeys[k] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
				return
			}
			if !validKeys[token] {
				writeError(w, http.StatusForbidden, codeForbidden, "admin access required")
				return
			}
			ctx := context.WithValue(r.Context(), actorKey, actorLabel(token))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// actorLabel derives a stable, non-reversible audit label for an admin key.
func actorLabel(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "admin:" + hex.EncodeToString(sum[:])[:8]
}

// actorFromContext returns the audit actor set by AdminAuthMiddleware.
func actorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey).(string); ok {
		return v
	}
	return "admin"
}

// RateLimitMiddleware enforces the fixed-window limiter for one request
// class. Every response carries the window state; denials add a retry
// hint. A limiter backend failure fails open: availability of the API
// outranks strict counting during a store outage.
func RateLimitMiddleware(
	limiter *ratelimituc.Service, class domrl.Class,
	trustedProxies []string, logger *zap.Logger,
) func(http.Handler) http.Handler {
	trusted := make(map[string]bool, len(trustedProxies))
	for _, p := range trustedProxies {
		trusted[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := limiter.Allow(r.Context(), ratelimituc.Request{
				IPAddr: clientIP(r, trusted),
				Token:  bearerToken(r),
				Class:  class,
			})
			if err != nil {
				logger.Warn("Rate limiter unavailable, allowing request",
					zap.String("class", string(class)),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, decision)
			if !decision.Allowed {
				metrics.RateLimitDecisionsTotal.WithLabelValues(string(class), "denied").Inc()
				retryAfter := strconv.FormatInt(decision.RetryAfter(timeNow()), 10)
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
				return
			}

			metrics.RateLimitDecisionsTotal.WithLabelValues(string(class), "allowed").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, d domrl.Decision) {
	limit := strconv.FormatInt(d.Limit, 10)
	remaining := strconv.FormatInt(d.Remaining, 10)
	reset := strconv.FormatInt(d.ResetAt.Unix(), 10)

	h := w.Header()
	h.Set("X-RateLimit-Limit", limit)
	h.Set("X-RateLimit-Remaining", remaining)
	h.Set("X-RateLimit-Reset", reset)
	// Draft standard names alongside the X- forms.
	h.Set("RateLimit-Limit", limit)
	h.Set("RateLimit-Remaining", remaining)
	h.Set("RateLimit-Reset", reset)
}
