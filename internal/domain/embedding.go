package domain

import "github.com/skillforge/registry/internal/domain/visibility"

// KeyPrefix namespaces every key the registry writes to the store.
const KeyPrefix = "skillreg:"

// EmbeddingResult is the outcome of an embedding provider call.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// CandidateEmbedding is a stored, immutable embedding record for one
// published skill version. A republish writes a new record and marks the
// previous one superseded; records are never physically removed.
type CandidateEmbedding struct {
	ID          string
	SkillID     string
	Slug        string
	VersionID   string
	OwnerID     string
	Highlighted bool
	Vector      []float32
	Visibility  visibility.State
}

// Candidate is a nearest-neighbor hit before hydration.
type Candidate struct {
	ID        string
	SkillID   string
	Slug      string
	VersionID string
	Score     float64
}
