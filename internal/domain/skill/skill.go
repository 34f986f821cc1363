package skill

import (
	"fmt"
	"regexp"
	"time"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// reservedSlugs are path segments the router claims for itself.
var reservedSlugs = map[string]bool{"search": true, "admin": true, "health": true, "metrics": true}

// MaxSlugLen is the maximum slug length in bytes.
const MaxSlugLen = 64

// ValidateSlug checks slug format: lowercase alphanumeric words joined by
// single hyphens, 1-64 chars, not a reserved route segment.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	if len(slug) > MaxSlugLen {
		return fmt.Errorf("slug too long (max %d)", MaxSlugLen)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be lowercase alphanumeric words joined by hyphens")
	}
	if reservedSlugs[slug] {
		return fmt.Errorf("slug %q is reserved", slug)
	}
	return nil
}

// Skill is the skill aggregate (immutable value object).
type Skill struct {
	id              string
	slug            string
	displayName     string
	summary         string
	ownerID         string
	highlighted     bool
	latestVersionID string
	versions        []Version
	createdAt       int64 // unix millis
	deletedAt       int64 // 0 = live
}

// New validates and creates a Skill with no versions yet.
func New(id, slug, displayName, summary, ownerID string, now time.Time) (Skill, error) {
	if id == "" {
		return Skill{}, fmt.Errorf("skill ID is required")
	}
	if err := ValidateSlug(slug); err != nil {
		return Skill{}, err
	}
	if displayName == "" {
		return Skill{}, fmt.Errorf("display name is required")
	}
	if ownerID == "" {
		return Skill{}, fmt.Errorf("owner ID is required")
	}
	return Skill{
		id:          id,
		slug:        slug,
		displayName: displayName,
		summary:     summary,
		ownerID:     ownerID,
		createdAt:   now.UnixMilli(),
	}, nil
}

// Reconstruct creates a Skill without validation (storage hydration).
func Reconstruct(
	id, slug, displayName, summary, ownerID string,
	highlighted bool, latestVersionID string, versions []Version,
	createdAt, deletedAt int64,
) Skill {
	return Skill{
		id: id, slug: slug, displayName: displayName, summary: summary,
		ownerID: ownerID, highlighted: highlighted,
		latestVersionID: latestVersionID, versions: versions,
		createdAt: createdAt, deletedAt: deletedAt,
	}
}

// ID returns the skill identifier.
func (s *Skill) ID() string { return s.id }

// Slug returns the globally unique human-readable identifier.
func (s *Skill) Slug() string { return s.slug }

// DisplayName returns the display name.
func (s *Skill) DisplayName() string { return s.displayName }

// Summary returns the short description.
func (s *Skill) Summary() string { return s.summary }

// OwnerID returns the owning account ID.
func (s *Skill) OwnerID() string { return s.ownerID }

// Highlighted reports whether the skill carries the highlighted badge.
func (s *Skill) Highlighted() bool { return s.highlighted }

// LatestVersionID returns the current version ID ("" before first publish).
func (s *Skill) LatestVersionID() string { return s.latestVersionID }

// Versions returns the version history, oldest first.
func (s *Skill) Versions() []Version { return s.versions }

// CreatedAt returns the creation timestamp (unix millis).
func (s *Skill) CreatedAt() int64 { return s.createdAt }

// DeletedAt returns the soft-delete timestamp (unix millis, 0 = live).
func (s *Skill) DeletedAt() int64 { return s.deletedAt }

// Deleted reports whether the skill is soft-deleted.
func (s *Skill) Deleted() bool { return s.deletedAt != 0 }

// Version finds a version by ID.
func (s *Skill) Version(id string) (Version, bool) {
	for _, v := range s.versions {
		if v.ID() == id {
			return v, true
		}
	}
	return Version{}, false
}

// LatestVersion returns the current version.
func (s *Skill) LatestVersion() (Version, bool) {
	return s.Version(s.latestVersionID)
}

// WithVersion returns a copy with v appended and set as latest.
func (s *Skill) WithVersion(v Version) Skill {
	c := *s
	c.versions = append(append([]Version(nil), s.versions...), v)
	c.latestVersionID = v.ID()
	return c
}

// WithMetadata returns a copy with refreshed display name and summary,
// used when a republish updates the listing text.
func (s *Skill) WithMetadata(displayName, summary string) Skill {
	c := *s
	c.displayName = displayName
	c.summary = summary
	return c
}

// WithOwner returns a copy re-homed to a new owner. Version history is kept;
// ownership transfer never recreates the record.
func (s *Skill) WithOwner(ownerID string) Skill {
	c := *s
	c.ownerID = ownerID
	return c
}

// SoftDeleted returns a copy marked deleted at the given time.
func (s *Skill) SoftDeleted(now time.Time) Skill {
	c := *s
	c.deletedAt = now.UnixMilli()
	return c
}

// Restored returns a copy with the soft-delete mark cleared.
func (s *Skill) Restored() Skill {
	c := *s
	c.deletedAt = 0
	return c
}
