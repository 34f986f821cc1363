// Package search resolves free-text queries to published skills by
// combining vector similarity with exact-token confirmation.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/skillforge/registry/internal/domain"
	domsearch "github.com/skillforge/registry/internal/domain/search"
	"github.com/skillforge/registry/internal/domain/skill"
	"github.com/skillforge/registry/internal/metrics"
)

const (
	// minWindow is the smallest candidate pool fetched per round; small
	// limits still need enough neighbors to survive confirmation.
	minWindow = 50
	// maxWindowFactor and maxWindowCap bound the widest pool.
	maxWindowFactor = 10
	maxWindowCap    = 1000
	// maxRounds bounds widening so a query with no confirmable match
	// terminates instead of scanning the whole index.
	maxRounds = 4

	// hydrateConcurrency bounds parallel aggregate loads per round.
	hydrateConcurrency = 8

	// DefaultLimit and MaxLimit bound the requested result count.
	DefaultLimit = 10
	MaxLimit     = 50
)

// Service resolves discovery queries.
type Service struct {
	candidates CandidateSearcher
	skills     SkillReader
	embed      Embedder
}

// New creates a search service.
func New(candidates CandidateSearcher, skills SkillReader, embed Embedder) *Service {
	return &Service{candidates: candidates, skills: skills, embed: embed}
}

// Resolve embeds the query, fetches a nearest-neighbor window, hydrates
// the hits, and keeps only those whose name, slug, or summary mentions
// every query token. When too few hits survive confirmation the window
// widens and the round repeats, up to a fixed cap.
func (s *Service) Resolve(
	ctx context.Context, query string, limit int, highlightedOnly bool,
) ([]domsearch.Result, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	tokens := domsearch.Tokenize(query)
	// A query with no extractable tokens can never be confirmed against
	// any candidate, so skip the embedding round trip entirely.
	if len(tokens) == 0 {
		return nil, nil
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	window := limit * 3
	if window < minWindow {
		window = minWindow
	}
	maxWindow := limit * maxWindowFactor
	if maxWindow > maxWindowCap {
		maxWindow = maxWindowCap
	}
	if maxWindow < window {
		maxWindow = window
	}

	var confirmed []domsearch.Result
	rounds := 0
	for round := 0; round < maxRounds; round++ {
		rounds = round + 1
		candidates, err := s.candidates.Nearest(ctx, embResult.Embedding, window, highlightedOnly)
		if err != nil {
			return nil, err
		}

		confirmed, err = s.hydrateAndConfirm(ctx, candidates, tokens)
		if err != nil {
			return nil, err
		}

		// Stop when satisfied, when the index is exhausted, or when the
		// window cannot grow further.
		if len(confirmed) >= limit || len(candidates) < window || window >= maxWindow {
			break
		}
		window *= 2
		if window > maxWindow {
			window = maxWindow
		}
	}
	metrics.SearchRoundsTotal.WithLabelValues(strconv.Itoa(rounds)).Inc()

	sort.SliceStable(confirmed, func(i, j int) bool {
		return confirmed[i].Score() > confirmed[j].Score()
	})
	if len(confirmed) > limit {
		confirmed = confirmed[:limit]
	}
	return confirmed, nil
}

// hydrateAndConfirm loads candidate aggregates in parallel and filters to
// live skills whose text confirms every query token. Candidates whose
// record vanished mid-flight are skipped, not errors.
func (s *Service) hydrateAndConfirm(
	ctx context.Context, candidates []domain.Candidate, tokens []string,
) ([]domsearch.Result, error) {
	results := make([]domsearch.Result, 0, len(candidates))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		// A widened window can return superseded siblings of a slug
		// already hydrated this round.
		if seen[c.Slug] {
			continue
		}
		seen[c.Slug] = true

		g.Go(func() error {
			item, err := s.skills.GetBySlug(gctx, c.Slug)
			if err != nil {
				if errors.Is(err, domain.ErrSkillNotFound) {
					return nil
				}
				return err
			}
			if item.Deleted() {
				return nil
			}
			version, ok := item.Version(c.VersionID)
			if !ok {
				return nil
			}
			if !s.confirms(&item, tokens) {
				return nil
			}

			mu.Lock()
			results = append(results, domsearch.NewResult(item, version, c.Score))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hydrate candidates: %w", err)
	}
	return results, nil
}

func (s *Service) confirms(item *skill.Skill, tokens []string) bool {
	return domsearch.MatchesAllTokens(tokens, item.DisplayName(), item.Slug(), item.Summary())
}
