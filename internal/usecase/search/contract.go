package search

import (
	"context"

	"github.com/skillforge/registry/internal/domain"
	"github.com/skillforge/registry/internal/domain/skill"
)

// CandidateSearcher runs nearest-neighbor queries over searchable
// embedding records.
type CandidateSearcher interface {
	Nearest(ctx context.Context, vector []float32, k int, highlightedOnly bool) ([]domain.Candidate, error)
}

// SkillReader hydrates candidates into full aggregates.
type SkillReader interface {
	GetBySlug(ctx context.Context, slug string) (skill.Skill, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
