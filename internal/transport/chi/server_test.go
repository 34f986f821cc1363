package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/skillforge/registry/internal/domain"
	domaudit "github.com/skillforge/registry/internal/domain/audit"
	domquality "github.com/skillforge/registry/internal/domain/quality"
	domskill "github.com/skillforge/registry/internal/domain/skill"
	domslug "github.com/skillforge/registry/internal/domain/slug"
	"github.com/skillforge/registry/internal/domain/visibility"
	"github.com/skillforge/registry/internal/scheduler"
	healthuc "github.com/skillforge/registry/internal/usecase/health"
	qualityuc "github.com/skillforge/registry/internal/usecase/quality"
	searchuc "github.com/skillforge/registry/internal/usecase/search"
	skilluc "github.com/skillforge/registry/internal/usecase/skill"
)

// --- Mocks ---

// stubBackend fakes every storage and provider dependency behind the API
// so handler tests exercise the real usecase wiring.
type stubBackend struct {
	skills     map[string]domskill.Skill
	blobs      map[string][]byte
	embeddings []domain.CandidateEmbedding
	owners     map[string]domain.OwnerProfile
	rejections map[string]int64
	audits     []domaudit.Entry
	ledger     map[string]domslug.Reservation
	ledgerErr  error
	tasks      []scheduler.Task
	prints     map[string]int
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		skills:     make(map[string]domskill.Skill),
		blobs:      make(map[string][]byte),
		owners:     make(map[string]domain.OwnerProfile),
		rejections: make(map[string]int64),
		ledger:     make(map[string]domslug.Reservation),
		prints:     make(map[string]int),
	}
}

func (b *stubBackend) Observe(ctx context.Context, ownerID, fingerprint string) (int, error) {
	key := ownerID + ":" + fingerprint
	prior := b.prints[key]
	b.prints[key] = prior + 1
	return prior, nil
}

func (b *stubBackend) GetBySlug(ctx context.Context, slug string) (domskill.Skill, error) {
	s, ok := b.skills[slug]
	if !ok {
		return domskill.Skill{}, domain.ErrSkillNotFound
	}
	return s, nil
}

func (b *stubBackend) Save(ctx context.Context, s domskill.Skill) error {
	b.skills[s.Slug()] = s
	return nil
}

func (b *stubBackend) ListLive(ctx context.Context, cursor string, limit int) ([]domskill.Skill, string, error) {
	var out []domskill.Skill
	for _, s := range b.skills {
		if !s.Deleted() {
			out = append(out, s)
		}
	}
	return out, "", nil
}

func (b *stubBackend) CountLiveByOwner(ctx context.Context, ownerID string) (int, error) {
	n := 0
	for _, s := range b.skills {
		if !s.Deleted() && s.OwnerID() == ownerID {
			n++
		}
	}
	return n, nil
}

func (b *stubBackend) Put(ctx context.Context, ref string, body []byte) error {
	b.blobs[ref] = body
	return nil
}

func (b *stubBackend) Get(ctx context.Context, ref string) ([]byte, error) {
	body, ok := b.blobs[ref]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return body, nil
}

func isSearchable(s visibility.State) bool {
	return s == visibility.Latest || s == visibility.LatestApproved
}

func (b *stubBackend) Publish(ctx context.Context, emb domain.CandidateEmbedding) error {
	for i := range b.embeddings {
		if b.embeddings[i].SkillID == emb.SkillID && isSearchable(b.embeddings[i].Visibility) {
			b.embeddings[i].Visibility = visibility.Superseded
		}
	}
	b.embeddings = append(b.embeddings, emb)
	return nil
}

func (b *stubBackend) SetVisibilityBySkill(ctx context.Context, skillID string, vis visibility.State) error {
	for i := range b.embeddings {
		if b.embeddings[i].SkillID == skillID {
			b.embeddings[i].Visibility = vis
		}
	}
	return nil
}

func (b *stubBackend) SetOwnerBySkill(ctx context.Context, skillID, ownerID string) error {
	for i := range b.embeddings {
		if b.embeddings[i].SkillID == skillID {
			b.embeddings[i].OwnerID = ownerID
		}
	}
	return nil
}

func (b *stubBackend) Nearest(ctx context.Context, vector []float32, k int, highlightedOnly bool) ([]domain.Candidate, error) {
	var out []domain.Candidate
	for _, e := range b.embeddings {
		if !isSearchable(e.Visibility) {
			continue
		}
		if highlightedOnly && !e.Highlighted {
			continue
		}
		out = append(out, domain.Candidate{
			ID: e.ID, SkillID: e.SkillID, Slug: e.Slug, VersionID: e.VersionID, Score: 0.9,
		})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (b *stubBackend) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 3}, nil
}

func (b *stubBackend) HealthCheck(ctx context.Context) error { return nil }

func (b *stubBackend) Ping(ctx context.Context) error { return nil }

func (b *stubBackend) EnsureAvailable(ctx context.Context, slug, ownerID string) error {
	return b.ledgerErr
}

func (b *stubBackend) Reserve(ctx context.Context, slug, ownerID, reason string) error {
	b.ledger[slug] = domslug.Reservation{
		Slug: slug, OwnerID: ownerID, Reason: reason,
		DeletedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}
	return nil
}

func (b *stubBackend) Reclaim(ctx context.Context, slug, newOwnerID string) (domslug.Reservation, error) {
	res := domslug.Reservation{
		Slug: slug, OwnerID: newOwnerID, Reason: "admin_reclaim",
		DeletedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}
	b.ledger[slug] = res
	return res, nil
}

func (b *stubBackend) GetOwner(ctx context.Context, id string) (domain.OwnerProfile, error) {
	p, ok := b.owners[id]
	if !ok {
		return domain.OwnerProfile{}, domain.ErrNotFound
	}
	return p, nil
}

func (b *stubBackend) PutOwner(ctx context.Context, p domain.OwnerProfile) error {
	b.owners[p.ID] = p
	return nil
}

func (b *stubBackend) IncrRejections(ctx context.Context, id string) (int64, error) {
	b.rejections[id]++
	return b.rejections[id], nil
}

func (b *stubBackend) Append(ctx context.Context, e domaudit.Entry) error {
	b.audits = append(b.audits, e)
	return nil
}

func (b *stubBackend) Has(ctx context.Context, action domaudit.Action, ownerID string) (bool, error) {
	for _, e := range b.audits {
		if e.Action == action && e.OwnerID == ownerID {
			return true, nil
		}
	}
	return false, nil
}

func (b *stubBackend) Submit(t scheduler.Task) error {
	b.tasks = append(b.tasks, t)
	return nil
}

// ownerAdapter narrows stubBackend to the owner store contracts, whose
// Get collides with the blob store's.
type ownerAdapter struct{ b *stubBackend }

func (a ownerAdapter) Get(ctx context.Context, id string) (domain.OwnerProfile, error) {
	return a.b.GetOwner(ctx, id)
}

func (a ownerAdapter) Put(ctx context.Context, p domain.OwnerProfile) error {
	return a.b.PutOwner(ctx, p)
}

func (a ownerAdapter) IncrRejections(ctx context.Context, id string) (int64, error) {
	return a.b.IncrRejections(ctx, id)
}

// stubGate accepts or rejects everything.
type stubGate struct{ decision domquality.Decision }

func (g *stubGate) Evaluate(ctx context.Context, ownerID, body, summary string, similarRecent int) (domquality.Decision, error) {
	return g.decision, nil
}

// --- Helpers ---

type apiFixture struct {
	backend *stubBackend
	gate    *stubGate
	router  http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	backend := newStubBackend()
	gate := &stubGate{decision: domquality.Decision{Accept: true, Score: 80, Reason: "ok"}}
	owners := ownerAdapter{b: backend}
	logger := zap.NewNop()

	skillSvc := skilluc.New(backend, backend, backend, backend, backend, gate, backend, owners, backend, logger)
	searchSvc := searchuc.New(backend, backend, backend)
	qualitySvc := qualityuc.New(backend, owners, backend, backend, backend, backend,
		qualityuc.Config{SweepPageSize: 10, SweepItemsPerSec: 10_000, NominationThreshold: 3}, logger)
	healthSvc := healthuc.New(backend, backend)

	server := NewServer(searchSvc, skillSvc, qualitySvc, healthSvc, logger)
	router := server.Routes(RouterConfig{
		AdminKeys: []string{"admin-key-1"},
		Limiter:   testLimiter(newMemCounter(), 1000),
	})
	return &apiFixture{backend: backend, gate: gate, router: router}
}

func (f *apiFixture) do(t *testing.T, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.RemoteAddr = "203.0.113.9:4711"
	if owner != "" {
		r.Header.Set("X-Registry-Owner", owner)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func publishBody(slug, semver string) string {
	req := publishRequest{
		Slug:        slug,
		DisplayName: "PDF Filler",
		Summary:     "fills pdf forms from structured data",
		Semver:      semver,
		Body:        "# PDF Filler\n\nFills pdf forms.",
	}
	raw, _ := json.Marshal(req)
	return string(raw)
}

// --- Tests ---

func TestAPI_PublishAndGet(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/skills", "owner-1", publishBody("pdf-filler", "1.0.0"))
	if w.Code != http.StatusCreated {
		t.Fatalf("publish status = %d, body %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/api/v1/skills/pdf-filler" {
		t.Errorf("Location = %q", loc)
	}

	w = f.do(t, http.MethodGet, "/api/v1/skills/pdf-filler", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var resp skillResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Slug != "pdf-filler" || resp.OwnerID != "owner-1" {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Versions) != 1 || resp.Versions[0].Semver != "1.0.0" {
		t.Errorf("versions = %+v", resp.Versions)
	}
}

func TestAPI_PublishRequiresOwner(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodPost, "/api/v1/skills", "", publishBody("pdf-filler", "1.0.0"))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAPI_PublishQualityRejected(t *testing.T) {
	f := newAPIFixture(t)
	f.gate.decision = domquality.Decision{Accept: false, Score: 10, Reason: "body too short (2 words)"}

	w := f.do(t, http.MethodPost, "/api/v1/skills", "owner-1", publishBody("pdf-filler", "1.0.0"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["code"] != codeQualityRejected {
		t.Errorf("code = %v", resp["code"])
	}
	if resp["score"] != 10.0 || resp["reason"] != "body too short (2 words)" {
		t.Errorf("verdict = %v / %v", resp["score"], resp["reason"])
	}
}

func TestAPI_PublishReservedSlug(t *testing.T) {
	f := newAPIFixture(t)
	f.backend.ledgerErr = &domain.SlugReservedError{
		Slug: "pdf-filler", OwnerID: "owner-1", ExpiresAt: time.Now().Add(time.Hour),
	}

	w := f.do(t, http.MethodPost, "/api/v1/skills", "owner-2", publishBody("pdf-filler", "1.0.0"))
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["code"] != codeSlugReserved || resp["expires_at"] == nil {
		t.Errorf("response = %v", resp)
	}
}

func TestAPI_SlugConflict(t *testing.T) {
	f := newAPIFixture(t)
	if w := f.do(t, http.MethodPost, "/api/v1/skills", "owner-1", publishBody("pdf-filler", "1.0.0")); w.Code != http.StatusCreated {
		t.Fatalf("setup publish failed: %d", w.Code)
	}

	w := f.do(t, http.MethodPost, "/api/v1/skills", "owner-2", publishBody("pdf-filler", "1.0.0"))
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != codeSlugTaken {
		t.Errorf("code = %q, want %q", resp.Code, codeSlugTaken)
	}
}

func TestAPI_GetUnknownSkill(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/api/v1/skills/ghost", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAPI_Search(t *testing.T) {
	f := newAPIFixture(t)
	if w := f.do(t, http.MethodPost, "/api/v1/skills", "owner-1", publishBody("pdf-filler", "1.0.0")); w.Code != http.StatusCreated {
		t.Fatalf("setup publish failed: %d", w.Code)
	}

	w := f.do(t, http.MethodGet, "/api/v1/skills/search", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q: status = %d, want 400", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/v1/skills/search?q=pdf+forms", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || resp.Items[0].Slug != "pdf-filler" {
		t.Errorf("response = %+v", resp)
	}

	w = f.do(t, http.MethodGet, "/api/v1/skills/search?q=pdf&limit=nope", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", w.Code)
	}
}

func TestAPI_DownloadAndDelete(t *testing.T) {
	f := newAPIFixture(t)
	if w := f.do(t, http.MethodPost, "/api/v1/skills", "owner-1", publishBody("pdf-filler", "1.0.0")); w.Code != http.StatusCreated {
		t.Fatalf("setup publish failed: %d", w.Code)
	}

	w := f.do(t, http.MethodGet, "/api/v1/skills/pdf-filler/download", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("X-Skill-Version") != "1.0.0" {
		t.Errorf("X-Skill-Version = %q", w.Header().Get("X-Skill-Version"))
	}
	if !strings.Contains(w.Body.String(), "Fills pdf forms") {
		t.Error("download body mismatch")
	}

	if w := f.do(t, http.MethodDelete, "/api/v1/skills/pdf-filler", "owner-2", ""); w.Code != http.StatusForbidden {
		t.Errorf("foreign delete status = %d, want 403", w.Code)
	}
	if w := f.do(t, http.MethodDelete, "/api/v1/skills/pdf-filler", "owner-1", ""); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/v1/skills/pdf-filler", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("deleted skill status = %d, want 404", w.Code)
	}
}

func TestAPI_AdminEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/admin/quality/sweep", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated sweep status = %d, want 401", w.Code)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/admin/quality/sweep", strings.NewReader(""))
	r.RemoteAddr = "203.0.113.9:4711"
	r.Header.Set("Authorization", "Bearer admin-key-1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("sweep status = %d, want 202", rec.Code)
	}
	if len(f.backend.tasks) != 1 {
		t.Errorf("queued tasks = %d, want 1", len(f.backend.tasks))
	}

	body := `{"owner_id":"rightful-owner"}`
	r = httptest.NewRequest(http.MethodPost, "/api/v1/admin/skills/pdf-filler/reclaim", strings.NewReader(body))
	r.RemoteAddr = "203.0.113.9:4711"
	r.Header.Set("Authorization", "Bearer admin-key-1")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("reclaim status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp reservationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OwnerID != "rightful-owner" || resp.Reason != "admin_reclaim" {
		t.Errorf("reservation = %+v", resp)
	}
}

func TestAPI_Health(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}
