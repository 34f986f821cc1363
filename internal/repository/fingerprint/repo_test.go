package fingerprint

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockStore struct {
	counts  map[string]int64
	ttls    map[string]time.Duration
	incrErr error
}

func newMockStore() *mockStore {
	return &mockStore{counts: make(map[string]int64), ttls: make(map[string]time.Duration)}
}

func (m *mockStore) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	m.counts[key] += val
	return m.counts[key], nil
}

func (m *mockStore) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	if _, set := m.ttls[key]; set && nx {
		return nil
	}
	m.ttls[key] = ttl
	return nil
}

// --- Tests ---

func TestObserve_CountsPriorSightings(t *testing.T) {
	store := newMockStore()
	repo := New(store)

	for want := 0; want < 3; want++ {
		prior, err := repo.Observe(context.Background(), "owner-1", "abc123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prior != want {
			t.Errorf("prior sightings = %d, want %d", prior, want)
		}
	}
}

func TestObserve_ScopedPerOwnerAndFingerprint(t *testing.T) {
	store := newMockStore()
	repo := New(store)

	if _, err := repo.Observe(context.Background(), "owner-1", "abc123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prior, err := repo.Observe(context.Background(), "owner-2", "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prior != 0 {
		t.Errorf("another owner's tally = %d, want 0", prior)
	}

	prior, err = repo.Observe(context.Background(), "owner-1", "def456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prior != 0 {
		t.Errorf("another fingerprint's tally = %d, want 0", prior)
	}
}

func TestObserve_SetsWindowTTL(t *testing.T) {
	store := newMockStore()
	repo := New(store)

	if _, err := repo.Observe(context.Background(), "owner-1", "abc123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ttl, ok := store.ttls[keyPrefix+"owner-1:abc123"]
	if !ok {
		t.Fatal("expected a TTL on the fingerprint key")
	}
	if ttl != recentWindow {
		t.Errorf("ttl = %v, want %v", ttl, recentWindow)
	}
}

func TestObserve_StoreError(t *testing.T) {
	store := newMockStore()
	store.incrErr = errors.New("connection reset")
	repo := New(store)

	if _, err := repo.Observe(context.Background(), "owner-1", "abc123"); err == nil {
		t.Fatal("expected error to surface")
	}
}
