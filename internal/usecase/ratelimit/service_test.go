package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skillforge/registry/internal/db"
	"github.com/skillforge/registry/internal/domain"
	domrl "github.com/skillforge/registry/internal/domain/ratelimit"
)

// --- Mocks ---

type memCounter struct {
	windows    map[string]domrl.Window
	probeErr   error
	consumeErr map[string]error // per-scope failure injection
	probes     []string
	consumes   []string
}

func newMemCounter() *memCounter {
	return &memCounter{
		windows:    make(map[string]domrl.Window),
		consumeErr: make(map[string]error),
	}
}

func (m *memCounter) Probe(ctx context.Context, scope string) (domrl.Window, bool, error) {
	m.probes = append(m.probes, scope)
	if m.probeErr != nil {
		return domrl.Window{}, false, m.probeErr
	}
	w, ok := m.windows[scope]
	return w, ok, nil
}

func (m *memCounter) Consume(ctx context.Context, scope string, windowStart, limit int64, ttl time.Duration) (domrl.Window, error) {
	m.consumes = append(m.consumes, scope)
	if err := m.consumeErr[scope]; err != nil {
		return domrl.Window{}, err
	}
	w := m.windows[scope]
	if w.Start != windowStart {
		w = domrl.Window{Start: windowStart}
	}
	if w.Count >= limit {
		return domrl.Window{}, domain.ErrRateLimited
	}
	w.Count++
	m.windows[scope] = w
	return w, nil
}

// --- Helpers ---

func testLimits() Limits {
	return Limits{
		Window: time.Minute,
		IP:     ClassLimits{Read: 3, Write: 2, Download: 1},
		Key:    ClassLimits{Read: 10, Write: 5, Download: 3},
	}
}

func fixedClock(svc *Service, at time.Time) {
	svc.now = func() time.Time { return at }
}

// --- Tests ---

func TestAllow_CountsDownThenDenies(t *testing.T) {
	counter := newMemCounter()
	svc := New(counter, testLimits())
	fixedClock(svc, time.UnixMilli(60_000))

	req := Request{IPAddr: "10.0.0.1", Class: domrl.ClassRead}
	for i := int64(1); i <= 3; i++ {
		d, err := svc.Allow(context.Background(), req)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("request %d denied early", i)
		}
		if d.Remaining != 3-i {
			t.Errorf("request %d: Remaining = %d, want %d", i, d.Remaining, 3-i)
		}
	}

	d, err := svc.Allow(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatal("fourth request should be denied")
	}
	if d.Remaining != 0 || d.Limit != 3 {
		t.Errorf("denial = %+v, want remaining 0 of limit 3", d)
	}
}

func TestAllow_DenialConsumesNothing(t *testing.T) {
	counter := newMemCounter()
	svc := New(counter, testLimits())
	now := time.UnixMilli(60_000)
	fixedClock(svc, now)

	// IP scope already full for this window.
	start := domrl.WindowStart(now, time.Minute)
	counter.windows[classScope(domrl.IPScope("10.0.0.1"), domrl.ClassRead)] = domrl.Window{Start: start, Count: 3}

	req := Request{IPAddr: "10.0.0.1", Token: "sk-abc", Class: domrl.ClassRead}
	d, err := svc.Allow(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected denial from the full IP scope")
	}
	if len(counter.consumes) != 0 {
		t.Errorf("denied request consumed from scopes %v", counter.consumes)
	}
	if w := counter.windows[classScope(domrl.TokenScope("sk-abc"), domrl.ClassRead)]; w.Count != 0 {
		t.Errorf("key scope count = %d, want untouched", w.Count)
	}
}

func TestAllow_ReportsMostRestrictiveScope(t *testing.T) {
	counter := newMemCounter()
	svc := New(counter, testLimits())
	now := time.UnixMilli(60_000)
	fixedClock(svc, now)

	// IP read limit is 3, key read limit is 10: after one shared request the
	// IP scope has less headroom and must drive the reported numbers.
	req := Request{IPAddr: "10.0.0.1", Token: "sk-abc", Class: domrl.ClassRead}
	if _, err := svc.Allow(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, err := svc.Allow(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Fatal("second request should pass")
	}
	if d.Limit != 3 || d.Remaining != 1 {
		t.Errorf("decision = %+v, want the IP scope's limit 3 remaining 1", d)
	}
}

func TestAllow_AnonymousUsesOnlyIPScope(t *testing.T) {
	counter := newMemCounter()
	svc := New(counter, testLimits())
	fixedClock(svc, time.UnixMilli(60_000))

	req := Request{IPAddr: "10.0.0.1", Class: domrl.ClassWrite}
	if _, err := svc.Allow(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counter.consumes) != 1 {
		t.Fatalf("consumed scopes %v, want only the IP scope", counter.consumes)
	}
	if counter.consumes[0] != classScope(domrl.IPScope("10.0.0.1"), domrl.ClassWrite) {
		t.Errorf("consumed %q", counter.consumes[0])
	}
}

func TestAllow_UnresolvableAddressSharesScope(t *testing.T) {
	counter := newMemCounter()
	svc := New(counter, testLimits())
	fixedClock(svc, time.UnixMilli(60_000))

	req := Request{IPAddr: "", Class: domrl.ClassDownload}
	if _, err := svc.Allow(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w := counter.windows[classScope(domrl.IPScope(""), domrl.ClassDownload)]; w.Count != 1 {
		t.Errorf("shared unknown scope count = %d, want 1", w.Count)
	}
}

func TestAllow_StaleWindowResets(t *testing.T) {
	counter := newMemCounter()
	svc := New(counter, testLimits())
	fixedClock(svc, time.UnixMilli(120_000))

	// A full counter from the previous window must not deny.
	counter.windows[classScope(domrl.IPScope("10.0.0.1"), domrl.ClassRead)] = domrl.Window{Start: 60_000, Count: 3}

	d, err := svc.Allow(context.Background(), Request{IPAddr: "10.0.0.1", Class: domrl.ClassRead})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Fatal("stale window should reset, not deny")
	}
	if d.Remaining != 2 {
		t.Errorf("Remaining = %d, want 2 after reset", d.Remaining)
	}
}

func TestAllow_ConflictBecomesDenial(t *testing.T) {
	counter := newMemCounter()
	counter.consumeErr[classScope(domrl.IPScope("10.0.0.1"), domrl.ClassRead)] = db.ErrTxConflict
	svc := New(counter, testLimits())
	fixedClock(svc, time.UnixMilli(60_000))

	d, err := svc.Allow(context.Background(), Request{IPAddr: "10.0.0.1", Class: domrl.ClassRead})
	if err != nil {
		t.Fatalf("conflict must map to a denial, not an error: %v", err)
	}
	if d.Allowed {
		t.Fatal("conflict should deny")
	}
	if d.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", d.Remaining)
	}
}

func TestAllow_BackendErrorSurfaces(t *testing.T) {
	counter := newMemCounter()
	counter.probeErr = errors.New("store down")
	svc := New(counter, testLimits())
	fixedClock(svc, time.UnixMilli(60_000))

	_, err := svc.Allow(context.Background(), Request{IPAddr: "10.0.0.1", Class: domrl.ClassRead})
	if err == nil {
		t.Fatal("backend failure must surface so the caller can fail open")
	}
}

func TestAllow_ClassesAreIndependent(t *testing.T) {
	counter := newMemCounter()
	svc := New(counter, testLimits())
	fixedClock(svc, time.UnixMilli(60_000))

	// Saturate the write class (limit 2), then a read must still pass.
	writeReq := Request{IPAddr: "10.0.0.1", Class: domrl.ClassWrite}
	for i := 0; i < 2; i++ {
		if d, err := svc.Allow(context.Background(), writeReq); err != nil || !d.Allowed {
			t.Fatalf("write %d: %+v, %v", i, d, err)
		}
	}
	if d, err := svc.Allow(context.Background(), writeReq); err != nil || d.Allowed {
		t.Fatalf("third write should be denied: %+v, %v", d, err)
	}

	d, err := svc.Allow(context.Background(), Request{IPAddr: "10.0.0.1", Class: domrl.ClassRead})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("read should be unaffected by the saturated write class")
	}
}
