package skill

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	domskill "github.com/skillforge/registry/internal/domain/skill"
)

func escapeReplacer() *strings.Replacer {
	return strings.NewReplacer(
		"-", "\\-", ".", "\\.", ":", "\\:", "{", "\\{", "}", "\\}",
		"|", "\\|", "@", "\\@", " ", "\\ ",
	)
}

const (
	fieldID              = "id"
	fieldSlug            = "slug"
	fieldDisplayName     = "display_name"
	fieldSummary         = "summary"
	fieldOwnerID         = "owner_id"
	fieldHighlighted     = "highlighted"
	fieldLatestVersionID = "latest_version_id"
	fieldVersions        = "versions"
	fieldCreatedAt       = "created_at"
	fieldDeletedAt       = "deleted_at"
)

type versionDTO struct {
	ID        string `json:"id"`
	Semver    string `json:"semver"`
	Changelog string `json:"changelog,omitempty"`
	BlobRef   string `json:"blob_ref"`
	CreatedAt int64  `json:"created_at"`
}

func buildHashFields(s domskill.Skill) (map[string]string, error) {
	dtos := make([]versionDTO, 0, len(s.Versions()))
	for _, v := range s.Versions() {
		dtos = append(dtos, versionDTO{
			ID:        v.ID(),
			Semver:    v.Semver(),
			Changelog: v.Changelog(),
			BlobRef:   v.BlobRef(),
			CreatedAt: v.CreatedAt(),
		})
	}
	versions, err := json.Marshal(dtos)
	if err != nil {
		return nil, fmt.Errorf("marshal versions: %w", err)
	}

	highlighted := "0"
	if s.Highlighted() {
		highlighted = "1"
	}
	return map[string]string{
		fieldID:              s.ID(),
		fieldSlug:            s.Slug(),
		fieldDisplayName:     s.DisplayName(),
		fieldSummary:         s.Summary(),
		fieldOwnerID:         s.OwnerID(),
		fieldHighlighted:     highlighted,
		fieldLatestVersionID: s.LatestVersionID(),
		fieldVersions:        string(versions),
		fieldCreatedAt:       strconv.FormatInt(s.CreatedAt(), 10),
		fieldDeletedAt:       strconv.FormatInt(s.DeletedAt(), 10),
	}, nil
}

func parseHashFields(fields map[string]string) (domskill.Skill, error) {
	var dtos []versionDTO
	if raw := fields[fieldVersions]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &dtos); err != nil {
			return domskill.Skill{}, fmt.Errorf("unmarshal versions: %w", err)
		}
	}
	versions := make([]domskill.Version, 0, len(dtos))
	for _, d := range dtos {
		versions = append(versions, domskill.ReconstructVersion(d.ID, d.Semver, d.Changelog, d.BlobRef, d.CreatedAt))
	}

	createdAt, err := parseMillis(fields[fieldCreatedAt])
	if err != nil {
		return domskill.Skill{}, fmt.Errorf("parse created_at: %w", err)
	}
	deletedAt, err := parseMillis(fields[fieldDeletedAt])
	if err != nil {
		return domskill.Skill{}, fmt.Errorf("parse deleted_at: %w", err)
	}

	return domskill.Reconstruct(
		fields[fieldID],
		fields[fieldSlug],
		fields[fieldDisplayName],
		fields[fieldSummary],
		fields[fieldOwnerID],
		fields[fieldHighlighted] == "1",
		fields[fieldLatestVersionID],
		versions,
		createdAt,
		deletedAt,
	), nil
}

func parseMillis(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
