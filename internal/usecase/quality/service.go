// Package quality gates publishes and periodically re-evaluates the live
// catalog, rejecting low-effort content and nominating repeat offenders
// for manual review.
package quality

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/skillforge/registry/internal/domain"
	domaudit "github.com/skillforge/registry/internal/domain/audit"
	domquality "github.com/skillforge/registry/internal/domain/quality"
	"github.com/skillforge/registry/internal/domain/skill"
	"github.com/skillforge/registry/internal/domain/trust"
	"github.com/skillforge/registry/internal/domain/visibility"
	"github.com/skillforge/registry/internal/metrics"
	"github.com/skillforge/registry/internal/scheduler"
)

// TaskSweep is the scheduler task name for catalog sweep pages.
const TaskSweep = "quality_sweep"

// SweepActor labels audit entries written by the sweep.
const SweepActor = "system"

// Config tunes sweep pace and ban nomination.
type Config struct {
	SweepPageSize       int
	SweepItemsPerSec    float64
	NominationThreshold int64
}

// Service evaluates content quality at publish time and during sweeps.
type Service struct {
	skills     SkillStore
	owners     OwnerStore
	blobs      BlobReader
	embeddings EmbeddingHider
	audit      AuditLog
	tasks      TaskScheduler
	cfg        Config
	pace       *rate.Limiter
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a quality service.
func New(
	skills SkillStore, owners OwnerStore, blobs BlobReader,
	embeddings EmbeddingHider, audit AuditLog, tasks TaskScheduler,
	cfg Config, logger *zap.Logger,
) *Service {
	return &Service{
		skills:     skills,
		owners:     owners,
		blobs:      blobs,
		embeddings: embeddings,
		audit:      audit,
		tasks:      tasks,
		cfg:        cfg,
		pace:       rate.NewLimiter(rate.Limit(cfg.SweepItemsPerSec), 1),
		logger:     logger,
		now:        time.Now,
	}
}

// TierFor derives the owner's trust tier from profile age and live skill
// count. Unknown owners are brand-new accounts.
func (s *Service) TierFor(ctx context.Context, ownerID string) (trust.Tier, error) {
	age := time.Duration(0)
	profile, err := s.owners.Get(ctx, ownerID)
	switch {
	case err == nil:
		age = s.now().Sub(profile.CreatedAt)
	case errors.Is(err, domain.ErrNotFound):
		// first contact, zero age
	default:
		return "", err
	}

	prior, err := s.skills.CountLiveByOwner(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return trust.TierFor(age, prior), nil
}

// Evaluate scores a document against the owner's tier. similarRecent is
// the number of near-duplicate submissions seen recently for this owner;
// it raises the acceptance bar.
func (s *Service) Evaluate(
	ctx context.Context, ownerID, body, summary string, similarRecent int,
) (domquality.Decision, error) {
	tier, err := s.TierFor(ctx, ownerID)
	if err != nil {
		return domquality.Decision{}, fmt.Errorf("derive trust tier: %w", err)
	}
	sig := domquality.ExtractSignals(body, summary)
	return domquality.Evaluate(sig, tier, similarRecent), nil
}

// StartSweep queues a catalog sweep from the beginning. The sweep runs
// page by page on the scheduler; this returns immediately.
func (s *Service) StartSweep() error {
	if err := s.tasks.Submit(scheduler.Task{Name: TaskSweep}); err != nil {
		return fmt.Errorf("queue sweep: %w", err)
	}
	return nil
}

// RunSweepPage re-evaluates one page of live skills and queues the next
// page when one exists. Safe to re-run on the same cursor: already
// swept-away skills are skipped and ban nominations deduplicate through
// the audit log.
func (s *Service) RunSweepPage(ctx context.Context, cursor string) error {
	page, next, err := s.skills.ListLive(ctx, cursor, s.cfg.SweepPageSize)
	if err != nil {
		return fmt.Errorf("sweep page %q: %w", cursor, err)
	}

	for i := range page {
		if err := s.pace.Wait(ctx); err != nil {
			return fmt.Errorf("sweep pacing: %w", err)
		}
		if err := s.sweepOne(ctx, &page[i]); err != nil {
			// One bad record must not stall the whole catalog.
			s.logger.Warn("Sweep skipped skill",
				zap.String("slug", page[i].Slug()),
				zap.Error(err),
			)
		}
	}

	if next != "" {
		if err := s.tasks.Submit(scheduler.Task{Name: TaskSweep, Cursor: next}); err != nil {
			return fmt.Errorf("queue next sweep page: %w", err)
		}
	} else {
		s.logger.Info("Quality sweep finished", zap.String("last_cursor", cursor))
	}
	return nil
}

func (s *Service) sweepOne(ctx context.Context, item *skill.Skill) error {
	// Re-read: the listing snapshot may predate a concurrent delete.
	current, err := s.skills.GetBySlug(ctx, item.Slug())
	if err != nil {
		if errors.Is(err, domain.ErrSkillNotFound) {
			return nil
		}
		return err
	}
	if current.Deleted() {
		return nil
	}
	version, ok := current.LatestVersion()
	if !ok {
		return nil
	}

	body, err := s.blobs.Get(ctx, version.BlobRef())
	if err != nil {
		return fmt.Errorf("load body: %w", err)
	}

	decision, err := s.Evaluate(ctx, current.OwnerID(), string(body), current.Summary(), 0)
	if err != nil {
		return err
	}
	if decision.Accept {
		return nil
	}
	return s.reject(ctx, &current, decision)
}

// reject soft-deletes the skill, hides its embeddings, and records the
// rejection. Crossing the nomination threshold queues the owner for ban
// review exactly once.
func (s *Service) reject(ctx context.Context, current *skill.Skill, decision domquality.Decision) error {
	now := s.now()

	if err := s.skills.Save(ctx, current.SoftDeleted(now)); err != nil {
		return fmt.Errorf("soft-delete: %w", err)
	}
	if err := s.embeddings.SetVisibilityBySkill(ctx, current.ID(), visibility.Removed); err != nil {
		return fmt.Errorf("hide embeddings: %w", err)
	}
	err := s.audit.Append(ctx, domaudit.Entry{
		ID:        uuid.NewString(),
		Action:    domaudit.ActionQualityReject,
		SubjectID: current.ID(),
		OwnerID:   current.OwnerID(),
		Actor:     SweepActor,
		Detail:    decision.Reason,
		At:        now,
	})
	if err != nil {
		return fmt.Errorf("audit rejection: %w", err)
	}

	metrics.SweepRejectionsTotal.Inc()
	s.logger.Info("Sweep rejected skill",
		zap.String("slug", current.Slug()),
		zap.String("owner_id", current.OwnerID()),
		zap.Float64("score", decision.Score),
		zap.String("reason", decision.Reason),
	)

	total, err := s.owners.IncrRejections(ctx, current.OwnerID())
	if err != nil {
		return err
	}
	if total < s.cfg.NominationThreshold {
		return nil
	}
	return s.nominateOwner(ctx, current.OwnerID(), total, now)
}

func (s *Service) nominateOwner(ctx context.Context, ownerID string, total int64, now time.Time) error {
	already, err := s.audit.Has(ctx, domaudit.ActionBanNominated, ownerID)
	if err != nil {
		return err
	}
	if already {
		return nil
	}
	err = s.audit.Append(ctx, domaudit.Entry{
		ID:      uuid.NewString(),
		Action:  domaudit.ActionBanNominated,
		OwnerID: ownerID,
		Actor:   SweepActor,
		Detail:  fmt.Sprintf("%d quality rejections", total),
		At:      now,
	})
	if err != nil {
		return fmt.Errorf("audit ban nomination: %w", err)
	}
	s.logger.Warn("Owner nominated for ban review",
		zap.String("owner_id", ownerID),
		zap.Int64("rejections", total),
	)
	return nil
}
