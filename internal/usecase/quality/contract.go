package quality

import (
	"context"

	"github.com/skillforge/registry/internal/domain"
	domaudit "github.com/skillforge/registry/internal/domain/audit"
	"github.com/skillforge/registry/internal/domain/skill"
	"github.com/skillforge/registry/internal/domain/visibility"
	"github.com/skillforge/registry/internal/scheduler"
)

// SkillStore reads and rewrites skill aggregates for the sweep.
type SkillStore interface {
	GetBySlug(ctx context.Context, slug string) (skill.Skill, error)
	Save(ctx context.Context, s skill.Skill) error
	ListLive(ctx context.Context, cursor string, limit int) ([]skill.Skill, string, error)
	CountLiveByOwner(ctx context.Context, ownerID string) (int, error)
}

// OwnerStore reads publisher profiles and tracks rejection counts.
type OwnerStore interface {
	Get(ctx context.Context, id string) (domain.OwnerProfile, error)
	IncrRejections(ctx context.Context, id string) (int64, error)
}

// BlobReader loads version document bodies.
type BlobReader interface {
	Get(ctx context.Context, ref string) ([]byte, error)
}

// EmbeddingHider pulls a skill's embedding records out of discovery.
type EmbeddingHider interface {
	SetVisibilityBySkill(ctx context.Context, skillID string, vis visibility.State) error
}

// AuditLog appends moderation records and answers idempotence probes.
type AuditLog interface {
	Append(ctx context.Context, e domaudit.Entry) error
	Has(ctx context.Context, action domaudit.Action, ownerID string) (bool, error)
}

// TaskScheduler queues the next sweep page.
type TaskScheduler interface {
	Submit(t scheduler.Task) error
}
