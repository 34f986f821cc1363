// Package embedding persists candidate embeddings as FT-indexed hash
// records and answers KNN queries over the searchable subset.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/skillforge/registry/internal/db"
	"github.com/skillforge/registry/internal/domain"
	"github.com/skillforge/registry/internal/domain/visibility"
)

const (
	keyPrefix = domain.KeyPrefix + "emb:"
	indexName = domain.KeyPrefix + "emb:idx"

	fieldSkillID    = "skill_id"
	fieldSlug       = "slug"
	fieldVersionID  = "version_id"
	fieldOwnerID    = "owner_id"
	fieldVisibility = "visibility"
	fieldHighlight  = "highlighted"
	fieldVector     = "vector"
)

// listPageSize bounds per-skill embedding listings; version history per
// skill is far smaller in practice.
const listPageSize = 1000

// Store is the subset of db.Store this repository needs.
type Store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
}

type Repo struct {
	store Store
}

func New(store Store) *Repo {
	return &Repo{store: store}
}

// EnsureIndex creates the embedding index when it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, dim, m, efConstruct int) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("probe embedding index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     indexName,
		Prefixes: []string{keyPrefix},
		Fields: []db.IndexField{
			{Name: fieldSkillID, Type: db.IndexFieldTag},
			{Name: fieldOwnerID, Type: db.IndexFieldTag},
			{Name: fieldVisibility, Type: db.IndexFieldTag},
			{Name: fieldHighlight, Type: db.IndexFieldTag},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorDim:         dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           m,
				VectorEFConstruct: efConstruct,
			},
		},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create embedding index: %w", err)
	}
	return nil
}

// Publish stores the embedding for a new version and marks every
// previously searchable embedding of the same skill as superseded.
// Superseded records stay in place so older versions remain auditable.
func (r *Repo) Publish(ctx context.Context, emb domain.CandidateEmbedding) error {
	prev, err := r.keysBySkill(ctx, emb.SkillID, true)
	if err != nil {
		return err
	}
	if len(prev) > 0 {
		err := r.setFieldOnKeys(ctx, prev, fieldVisibility, string(visibility.Superseded))
		if err != nil {
			return fmt.Errorf("supersede embeddings for skill %s: %w", emb.SkillID, err)
		}
	}

	fields := map[string]string{
		fieldSkillID:    emb.SkillID,
		fieldSlug:       emb.Slug,
		fieldVersionID:  emb.VersionID,
		fieldOwnerID:    emb.OwnerID,
		fieldVisibility: string(emb.Visibility),
		fieldHighlight:  boolTag(emb.Highlighted),
		fieldVector:     vectorToBytes(emb.Vector),
	}
	if err := r.store.HSet(ctx, keyPrefix+emb.ID, fields); err != nil {
		return fmt.Errorf("store embedding %s: %w", emb.ID, err)
	}
	return nil
}

// Nearest runs a KNN query over searchable embeddings. With
// highlightedOnly set the candidate pool narrows to highlighted skills.
func (r *Repo) Nearest(ctx context.Context, vector []float32, k int, highlightedOnly bool) ([]domain.Candidate, error) {
	prefilter := searchablePrefilter()
	if highlightedOnly {
		prefilter += " @" + fieldHighlight + ":{1}"
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Prefilter:    prefilter,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldSkillID, fieldSlug, fieldVersionID},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	out := make([]domain.Candidate, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, domain.Candidate{
			ID:        strings.TrimPrefix(e.Key, keyPrefix),
			SkillID:   e.Fields[fieldSkillID],
			Slug:      e.Fields[fieldSlug],
			VersionID: e.Fields[fieldVersionID],
			Score:     e.Score,
		})
	}
	return out, nil
}

// SetVisibilityBySkill rewrites the visibility tag on every embedding
// record belonging to the skill.
func (r *Repo) SetVisibilityBySkill(ctx context.Context, skillID string, vis visibility.State) error {
	keys, err := r.keysBySkill(ctx, skillID, false)
	if err != nil {
		return err
	}
	if err := r.setFieldOnKeys(ctx, keys, fieldVisibility, string(vis)); err != nil {
		return fmt.Errorf("set visibility for skill %s: %w", skillID, err)
	}
	return nil
}

// SetOwnerBySkill re-homes every embedding record of the skill to a new
// owner, used by ownership transfer.
func (r *Repo) SetOwnerBySkill(ctx context.Context, skillID, ownerID string) error {
	keys, err := r.keysBySkill(ctx, skillID, false)
	if err != nil {
		return err
	}
	if err := r.setFieldOnKeys(ctx, keys, fieldOwnerID, ownerID); err != nil {
		return fmt.Errorf("set owner for skill %s: %w", skillID, err)
	}
	return nil
}

func (r *Repo) setFieldOnKeys(ctx context.Context, keys []string, field, value string) error {
	if len(keys) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, db.HashSetItem{Key: k, Fields: map[string]string{field: value}})
	}
	return r.store.HSetMulti(ctx, items)
}

func (r *Repo) keysBySkill(ctx context.Context, skillID string, searchableOnly bool) ([]string, error) {
	query := "@" + fieldSkillID + ":{" + escapeTag(skillID) + "}"
	if searchableOnly {
		query += " " + searchablePrefilter()
	}
	res, err := r.store.SearchList(ctx, indexName, query, 0, listPageSize, []string{fieldSkillID})
	if err != nil {
		return nil, fmt.Errorf("list embeddings for skill %s: %w", skillID, err)
	}
	keys := make([]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		keys = append(keys, e.Key)
	}
	return keys, nil
}

func searchablePrefilter() string {
	states := visibility.Searchable()
	parts := make([]string, 0, len(states))
	for _, s := range states {
		parts = append(parts, string(s))
	}
	return "@" + fieldVisibility + ":{" + strings.Join(parts, "|") + "}"
}

func boolTag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
