package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrSkillNotFound signals a missing skill.
	ErrSkillNotFound = errors.New("skill not found")
	// ErrVersionNotFound signals a missing skill version.
	ErrVersionNotFound = errors.New("version not found")
	// ErrBlobNotFound signals a missing document blob.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrInvalidSlug signals a malformed slug.
	ErrInvalidSlug = errors.New("invalid slug")
	// ErrInvalidInput signals a malformed request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSlugTaken signals that a live skill already owns the slug.
	ErrSlugTaken = errors.New("slug already taken")
	// ErrSlugReserved signals that the slug is held by a reservation.
	ErrSlugReserved = errors.New("slug reserved")
	// ErrNotOwner signals an operation attempted by a non-owner.
	ErrNotOwner = errors.New("not the skill owner")

	// ErrRateLimited signals a rate limit denial.
	ErrRateLimited = errors.New("rate limited")
	// ErrQualityRejected signals a publish rejected by the quality gate.
	ErrQualityRejected = errors.New("content rejected by quality evaluation")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// SlugReservedError wraps ErrSlugReserved with the reservation details.
type SlugReservedError struct {
	Slug      string
	OwnerID   string
	ExpiresAt time.Time
}

func (e *SlugReservedError) Error() string {
	return fmt.Sprintf("%s: %q is reserved for its previous owner until %s",
		ErrSlugReserved.Error(), e.Slug, e.ExpiresAt.UTC().Format(time.RFC3339))
}

func (e *SlugReservedError) Unwrap() error { return ErrSlugReserved }

// QualityRejectedError wraps ErrQualityRejected with the evaluation outcome.
type QualityRejectedError struct {
	Score  float64
	Reason string
}

func (e *QualityRejectedError) Error() string {
	return fmt.Sprintf("%s: %s (score %.1f)", ErrQualityRejected.Error(), e.Reason, e.Score)
}

func (e *QualityRejectedError) Unwrap() error { return ErrQualityRejected }
