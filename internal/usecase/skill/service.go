// Package skill orchestrates the publish, delete, download, and admin
// reclaim flows across storage, moderation, and discovery.
package skill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/registry/internal/domain"
	domaudit "github.com/skillforge/registry/internal/domain/audit"
	domquality "github.com/skillforge/registry/internal/domain/quality"
	domskill "github.com/skillforge/registry/internal/domain/skill"
	domslug "github.com/skillforge/registry/internal/domain/slug"
	"github.com/skillforge/registry/internal/domain/visibility"
)

// embedBodyLimit caps how much of the document body feeds the embedding.
// Discovery keys on the opening of a document; whole-body embeddings of
// long documents dilute the signal and waste provider tokens.
const embedBodyLimit = 4096

// reasonOwnerDelete marks ledger reservations created by owner deletes.
const reasonOwnerDelete = "owner_delete"

// PublishInput carries one publish request.
type PublishInput struct {
	Slug        string
	DisplayName string
	Summary     string
	OwnerID     string
	Semver      string
	Changelog   string
	Body        []byte
}

// Service orchestrates skill lifecycle operations.
type Service struct {
	skills     SkillStore
	blobs      BlobStore
	embeddings EmbeddingStore
	embed      Embedder
	ledger     Ledger
	gate       QualityGate
	prints     FingerprintStore
	owners     OwnerStore
	audit      AuditLog
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a skill service.
func New(
	skills SkillStore, blobs BlobStore, embeddings EmbeddingStore,
	embed Embedder, ledger Ledger, gate QualityGate, prints FingerprintStore,
	owners OwnerStore, audit AuditLog, logger *zap.Logger,
) *Service {
	return &Service{
		skills:     skills,
		blobs:      blobs,
		embeddings: embeddings,
		embed:      embed,
		ledger:     ledger,
		gate:       gate,
		prints:     prints,
		owners:     owners,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
	}
}

// Publish creates a skill or adds a version to an existing one. The slug
// must be free or held by the publisher; content must clear the quality
// gate for the publisher's trust tier.
func (s *Service) Publish(ctx context.Context, in PublishInput) (domskill.Skill, error) {
	if err := domskill.ValidateSlug(in.Slug); err != nil {
		return domskill.Skill{}, fmt.Errorf("%w: %w", domain.ErrInvalidSlug, err)
	}
	if in.OwnerID == "" {
		return domskill.Skill{}, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	now := s.now()

	existing, err := s.skills.GetBySlug(ctx, in.Slug)
	found := err == nil
	if err != nil && !errors.Is(err, domain.ErrSkillNotFound) {
		return domskill.Skill{}, err
	}
	if found && !existing.Deleted() && existing.OwnerID() != in.OwnerID {
		return domskill.Skill{}, domain.ErrSlugTaken
	}

	if err := s.ledger.EnsureAvailable(ctx, in.Slug, in.OwnerID); err != nil {
		return domskill.Skill{}, err
	}
	if err := s.ensureOwner(ctx, in.OwnerID, now); err != nil {
		return domskill.Skill{}, err
	}

	// Count the submission toward the owner's near-duplicate tally
	// before scoring; repeat junk tightens its own gate.
	similarRecent, err := s.prints.Observe(ctx, in.OwnerID, domquality.Fingerprint(string(in.Body)))
	if err != nil {
		return domskill.Skill{}, fmt.Errorf("near-duplicate check: %w", err)
	}

	decision, err := s.gate.Evaluate(ctx, in.OwnerID, string(in.Body), in.Summary, similarRecent)
	if err != nil {
		return domskill.Skill{}, fmt.Errorf("quality gate: %w", err)
	}
	if !decision.Accept {
		err := s.audit.Append(ctx, domaudit.Entry{
			ID:        uuid.NewString(),
			Action:    domaudit.ActionQualityReject,
			SubjectID: in.Slug,
			OwnerID:   in.OwnerID,
			Actor:     "system",
			Detail:    decision.Reason,
			At:        now,
		})
		if err != nil {
			return domskill.Skill{}, fmt.Errorf("audit rejection: %w", err)
		}
		return domskill.Skill{}, &domain.QualityRejectedError{Score: decision.Score, Reason: decision.Reason}
	}

	embResult, err := s.embed.Embed(ctx, embedText(in))
	if err != nil {
		return domskill.Skill{}, fmt.Errorf("vectorize document: %w", err)
	}

	version, err := domskill.NewVersion(uuid.NewString(), in.Semver, in.Changelog, uuid.NewString(), now)
	if err != nil {
		return domskill.Skill{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := s.blobs.Put(ctx, version.BlobRef(), in.Body); err != nil {
		return domskill.Skill{}, err
	}

	agg, err := s.buildAggregate(in, &existing, found, now)
	if err != nil {
		return domskill.Skill{}, err
	}
	agg = agg.WithVersion(version)
	if err := s.skills.Save(ctx, agg); err != nil {
		return domskill.Skill{}, err
	}

	err = s.embeddings.Publish(ctx, domain.CandidateEmbedding{
		ID:          uuid.NewString(),
		SkillID:     agg.ID(),
		Slug:        agg.Slug(),
		VersionID:   version.ID(),
		OwnerID:     agg.OwnerID(),
		Highlighted: agg.Highlighted(),
		Vector:      embResult.Embedding,
		Visibility:  visibility.Latest,
	})
	if err != nil {
		return domskill.Skill{}, err
	}

	s.logger.Info("Skill published",
		zap.String("slug", agg.Slug()),
		zap.String("owner_id", agg.OwnerID()),
		zap.String("semver", version.Semver()),
		zap.Int("embedding_tokens", embResult.TotalTokens),
	)
	return agg, nil
}

// buildAggregate reuses the stored record when one exists so version
// history and the skill ID survive deletes and ownership changes.
func (s *Service) buildAggregate(in PublishInput, existing *domskill.Skill, found bool, now time.Time) (domskill.Skill, error) {
	if !found {
		agg, err := domskill.New(uuid.NewString(), in.Slug, in.DisplayName, in.Summary, in.OwnerID, now)
		if err != nil {
			return domskill.Skill{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		return agg, nil
	}
	agg := existing.WithMetadata(in.DisplayName, in.Summary)
	if agg.Deleted() {
		agg = agg.Restored()
	}
	if agg.OwnerID() != in.OwnerID {
		// The previous owner's hold lapsed; the record re-homes instead
		// of being recreated.
		agg = agg.WithOwner(in.OwnerID)
	}
	return agg, nil
}

// Get returns a live skill by slug. Soft-deleted skills read as missing.
func (s *Service) Get(ctx context.Context, slug string) (domskill.Skill, error) {
	item, err := s.skills.GetBySlug(ctx, slug)
	if err != nil {
		return domskill.Skill{}, err
	}
	if item.Deleted() {
		return domskill.Skill{}, domain.ErrSkillNotFound
	}
	return item, nil
}

// Download returns the latest version's document body.
func (s *Service) Download(ctx context.Context, slug string) ([]byte, domskill.Version, error) {
	item, err := s.Get(ctx, slug)
	if err != nil {
		return nil, domskill.Version{}, err
	}
	version, ok := item.LatestVersion()
	if !ok {
		return nil, domskill.Version{}, domain.ErrVersionNotFound
	}
	body, err := s.blobs.Get(ctx, version.BlobRef())
	if err != nil {
		return nil, domskill.Version{}, err
	}
	return body, version, nil
}

// Delete soft-deletes the caller's skill, hides its discovery records,
// and reserves the slug for the owner.
func (s *Service) Delete(ctx context.Context, slug, ownerID string) error {
	item, err := s.Get(ctx, slug)
	if err != nil {
		return err
	}
	if item.OwnerID() != ownerID {
		return domain.ErrNotOwner
	}

	if err := s.skills.Save(ctx, item.SoftDeleted(s.now())); err != nil {
		return err
	}
	if err := s.embeddings.SetVisibilityBySkill(ctx, item.ID(), visibility.Removed); err != nil {
		return err
	}
	if err := s.ledger.Reserve(ctx, slug, ownerID, reasonOwnerDelete); err != nil {
		return err
	}

	s.logger.Info("Skill deleted",
		zap.String("slug", slug),
		zap.String("owner_id", ownerID),
	)
	return nil
}

// Reclaim re-points a slug's reservation at a rightful owner and, when a
// skill record exists under the slug, transfers its ownership in place.
// Admin-only; actor labels the audit trail.
func (s *Service) Reclaim(ctx context.Context, slug, newOwnerID, actor string) (domslug.Reservation, error) {
	if err := domskill.ValidateSlug(slug); err != nil {
		return domslug.Reservation{}, fmt.Errorf("%w: %w", domain.ErrInvalidSlug, err)
	}
	if newOwnerID == "" {
		return domslug.Reservation{}, fmt.Errorf("%w: new owner is required", domain.ErrInvalidInput)
	}
	now := s.now()

	res, err := s.ledger.Reclaim(ctx, slug, newOwnerID)
	if err != nil {
		return domslug.Reservation{}, err
	}
	err = s.audit.Append(ctx, domaudit.Entry{
		ID:        uuid.NewString(),
		Action:    domaudit.ActionSlugReclaimed,
		SubjectID: slug,
		OwnerID:   newOwnerID,
		Actor:     actor,
		At:        now,
	})
	if err != nil {
		return domslug.Reservation{}, fmt.Errorf("audit reclaim: %w", err)
	}

	item, err := s.skills.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrSkillNotFound) {
			return res, nil
		}
		return domslug.Reservation{}, err
	}
	if item.OwnerID() == newOwnerID {
		return res, nil
	}

	previousOwner := item.OwnerID()
	if err := s.skills.Save(ctx, item.WithOwner(newOwnerID)); err != nil {
		return domslug.Reservation{}, err
	}
	if err := s.embeddings.SetOwnerBySkill(ctx, item.ID(), newOwnerID); err != nil {
		return domslug.Reservation{}, err
	}
	err = s.audit.Append(ctx, domaudit.Entry{
		ID:        uuid.NewString(),
		Action:    domaudit.ActionOwnershipTransferred,
		SubjectID: item.ID(),
		OwnerID:   newOwnerID,
		Actor:     actor,
		Detail:    "from " + previousOwner,
		At:        now,
	})
	if err != nil {
		return domslug.Reservation{}, fmt.Errorf("audit transfer: %w", err)
	}

	s.logger.Info("Slug reclaimed",
		zap.String("slug", slug),
		zap.String("new_owner_id", newOwnerID),
		zap.String("previous_owner_id", previousOwner),
		zap.String("actor", actor),
	)
	return res, nil
}

func (s *Service) ensureOwner(ctx context.Context, ownerID string, now time.Time) error {
	_, err := s.owners.Get(ctx, ownerID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return s.owners.Put(ctx, domain.OwnerProfile{ID: ownerID, CreatedAt: now})
}

func embedText(in PublishInput) string {
	body := string(in.Body)
	if len(body) > embedBodyLimit {
		body = body[:embedBodyLimit]
	}
	var b strings.Builder
	b.WriteString(in.DisplayName)
	b.WriteString("\n")
	b.WriteString(in.Summary)
	b.WriteString("\n")
	b.WriteString(body)
	return b.String()
}
