// Package skill persists skill aggregates as hash records keyed by slug,
// with an FT index for owner counts and sweep pagination.
package skill

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/skillforge/registry/internal/db"
	"github.com/skillforge/registry/internal/domain"
	domskill "github.com/skillforge/registry/internal/domain/skill"
)

const (
	keyPrefix = domain.KeyPrefix + "skill:"
	indexName = domain.KeyPrefix + "skill:idx"
)

// tagEscaper matches the embedding repository's FT TAG escaping.
var tagEscaper = escapeReplacer()

// Store is the subset of db.Store this repository needs.
type Store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

type Repo struct {
	store Store
}

func New(store Store) *Repo {
	return &Repo{store: store}
}

// EnsureIndex creates the skill index when it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("probe skill index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     indexName,
		Prefixes: []string{keyPrefix},
		Fields: []db.IndexField{
			{Name: fieldID, Type: db.IndexFieldTag},
			{Name: fieldOwnerID, Type: db.IndexFieldTag},
			{Name: fieldDeletedAt, Type: db.IndexFieldNumeric},
		},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create skill index: %w", err)
	}
	return nil
}

// GetBySlug loads a skill aggregate by its slug.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (domskill.Skill, error) {
	fields, err := r.store.HGetAll(ctx, keyPrefix+slug)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domskill.Skill{}, domain.ErrSkillNotFound
		}
		return domskill.Skill{}, fmt.Errorf("load skill %s: %w", slug, err)
	}
	if len(fields) == 0 || fields[fieldID] == "" {
		return domskill.Skill{}, domain.ErrSkillNotFound
	}
	s, err := parseHashFields(fields)
	if err != nil {
		return domskill.Skill{}, fmt.Errorf("parse skill %s: %w", slug, err)
	}
	return s, nil
}

// Exists reports whether any record, live or soft-deleted, holds the slug.
func (r *Repo) Exists(ctx context.Context, slug string) (bool, error) {
	ok, err := r.store.Exists(ctx, keyPrefix+slug)
	if err != nil {
		return false, fmt.Errorf("probe skill %s: %w", slug, err)
	}
	return ok, nil
}

// Save upserts the whole aggregate.
func (r *Repo) Save(ctx context.Context, s domskill.Skill) error {
	fields, err := buildHashFields(s)
	if err != nil {
		return fmt.Errorf("encode skill %s: %w", s.Slug(), err)
	}
	if err := r.store.HSet(ctx, keyPrefix+s.Slug(), fields); err != nil {
		return fmt.Errorf("store skill %s: %w", s.Slug(), err)
	}
	return nil
}

// ListLive pages through live skills ordered by the index, for the
// quality sweep. cursor is an opaque offset, "" to start; the returned
// cursor is "" when the page was the last one.
func (r *Repo) ListLive(ctx context.Context, cursor string, limit int) ([]domskill.Skill, string, error) {
	offset := 0
	if cursor != "" {
		v, err := strconv.Atoi(cursor)
		if err != nil || v < 0 {
			return nil, "", fmt.Errorf("%w: bad cursor %q", domain.ErrInvalidInput, cursor)
		}
		offset = v
	}

	res, err := r.store.SearchList(ctx, indexName, "@"+fieldDeletedAt+":[0 0]", offset, limit, nil)
	if err != nil {
		return nil, "", fmt.Errorf("list live skills: %w", err)
	}

	skills := make([]domskill.Skill, 0, len(res.Entries))
	for _, e := range res.Entries {
		s, err := parseHashFields(e.Fields)
		if err != nil {
			return nil, "", fmt.Errorf("parse skill %s: %w", e.Key, err)
		}
		skills = append(skills, s)
	}

	next := ""
	if offset+len(skills) < res.Total {
		next = strconv.Itoa(offset + len(skills))
	}
	return skills, next, nil
}

// CountLiveByOwner counts the owner's live skills.
func (r *Repo) CountLiveByOwner(ctx context.Context, ownerID string) (int, error) {
	query := "@" + fieldOwnerID + ":{" + tagEscaper.Replace(ownerID) + "} @" + fieldDeletedAt + ":[0 0]"
	n, err := r.store.SearchCount(ctx, indexName, query)
	if err != nil {
		return 0, fmt.Errorf("count skills for owner %s: %w", ownerID, err)
	}
	return n, nil
}
