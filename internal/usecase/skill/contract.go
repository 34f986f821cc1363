package skill

import (
	"context"

	"github.com/skillforge/registry/internal/domain"
	domaudit "github.com/skillforge/registry/internal/domain/audit"
	domquality "github.com/skillforge/registry/internal/domain/quality"
	domskill "github.com/skillforge/registry/internal/domain/skill"
	domslug "github.com/skillforge/registry/internal/domain/slug"
	"github.com/skillforge/registry/internal/domain/visibility"
)

// SkillStore persists skill aggregates.
type SkillStore interface {
	GetBySlug(ctx context.Context, slug string) (domskill.Skill, error)
	Save(ctx context.Context, s domskill.Skill) error
}

// BlobStore persists version document bodies.
type BlobStore interface {
	Put(ctx context.Context, ref string, body []byte) error
	Get(ctx context.Context, ref string) ([]byte, error)
}

// EmbeddingStore maintains the discovery records derived from publishes.
type EmbeddingStore interface {
	Publish(ctx context.Context, emb domain.CandidateEmbedding) error
	SetVisibilityBySkill(ctx context.Context, skillID string, vis visibility.State) error
	SetOwnerBySkill(ctx context.Context, skillID, ownerID string) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Ledger guards slug reuse through reservations.
type Ledger interface {
	EnsureAvailable(ctx context.Context, slug, ownerID string) error
	Reserve(ctx context.Context, slug, ownerID, reason string) error
	Reclaim(ctx context.Context, slug, newOwnerID string) (domslug.Reservation, error)
}

// QualityGate scores submitted content.
type QualityGate interface {
	Evaluate(ctx context.Context, ownerID, body, summary string, similarRecent int) (domquality.Decision, error)
}

// FingerprintStore counts recent near-duplicate submissions per owner.
type FingerprintStore interface {
	Observe(ctx context.Context, ownerID, fingerprint string) (int, error)
}

// OwnerStore reads and creates publisher profiles.
type OwnerStore interface {
	Get(ctx context.Context, id string) (domain.OwnerProfile, error)
	Put(ctx context.Context, p domain.OwnerProfile) error
}

// AuditLog appends moderation records.
type AuditLog interface {
	Append(ctx context.Context, e domaudit.Entry) error
}
