package skill

import (
	"fmt"
	"regexp"
	"time"
)

var semverRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Version is one published revision of a skill (immutable value object).
type Version struct {
	id        string
	semver    string
	changelog string
	blobRef   string
	createdAt int64 // unix millis
}

// NewVersion validates and creates a Version.
func NewVersion(id, semver, changelog, blobRef string, now time.Time) (Version, error) {
	if id == "" {
		return Version{}, fmt.Errorf("version ID is required")
	}
	if !semverRegex.MatchString(semver) {
		return Version{}, fmt.Errorf("version %q must be MAJOR.MINOR.PATCH", semver)
	}
	if blobRef == "" {
		return Version{}, fmt.Errorf("blob reference is required")
	}
	return Version{
		id: id, semver: semver, changelog: changelog,
		blobRef: blobRef, createdAt: now.UnixMilli(),
	}, nil
}

// ReconstructVersion creates a Version without validation (storage hydration).
func ReconstructVersion(id, semver, changelog, blobRef string, createdAt int64) Version {
	return Version{id: id, semver: semver, changelog: changelog, blobRef: blobRef, createdAt: createdAt}
}

// ID returns the version identifier.
func (v *Version) ID() string { return v.id }

// Semver returns the semantic version string.
func (v *Version) Semver() string { return v.semver }

// Changelog returns the changelog text.
func (v *Version) Changelog() string { return v.changelog }

// BlobRef returns the storage reference of the document body.
func (v *Version) BlobRef() string { return v.blobRef }

// CreatedAt returns the publish timestamp (unix millis).
func (v *Version) CreatedAt() int64 { return v.createdAt }
