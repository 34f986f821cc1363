// Package search defines the discovery result type.
package search

import "github.com/skillforge/registry/internal/domain/skill"

// Result is a single confirmed search hit. The score is the raw vector
// similarity of the surviving candidate, not of the full candidate pool.
type Result struct {
	item    skill.Skill
	version skill.Version
	score   float64
}

// NewResult creates a search result.
func NewResult(item skill.Skill, version skill.Version, score float64) Result {
	return Result{item: item, version: version, score: score}
}

// Item returns the matched skill.
func (r *Result) Item() skill.Skill { return r.item }

// Version returns the matched version.
func (r *Result) Version() skill.Version { return r.version }

// Score returns the vector similarity score.
func (r *Result) Score() float64 { return r.score }
