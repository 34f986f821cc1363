package chi

import (
	"time"

	domsearch "github.com/skillforge/registry/internal/domain/search"
	domskill "github.com/skillforge/registry/internal/domain/skill"
	domslug "github.com/skillforge/registry/internal/domain/slug"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type publishRequest struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"display_name"`
	Summary     string `json:"summary"`
	Semver      string `json:"semver"`
	Changelog   string `json:"changelog,omitempty"`
	Body        string `json:"body"`
}

type versionResponse struct {
	ID        string    `json:"id"`
	Semver    string    `json:"semver"`
	Changelog string    `json:"changelog,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type skillResponse struct {
	ID            string            `json:"id"`
	Slug          string            `json:"slug"`
	DisplayName   string            `json:"display_name"`
	Summary       string            `json:"summary"`
	OwnerID       string            `json:"owner_id"`
	Highlighted   bool              `json:"highlighted"`
	LatestVersion *versionResponse  `json:"latest_version,omitempty"`
	Versions      []versionResponse `json:"versions,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

type searchResultItem struct {
	Slug        string  `json:"slug"`
	DisplayName string  `json:"display_name"`
	Summary     string  `json:"summary"`
	Semver      string  `json:"semver"`
	Highlighted bool    `json:"highlighted"`
	Score       float64 `json:"score"`
}

type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

type reclaimRequest struct {
	OwnerID string `json:"owner_id"`
}

type reservationResponse struct {
	Slug      string    `json:"slug"`
	OwnerID   string    `json:"owner_id"`
	Reason    string    `json:"reason,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func skillToDTO(s *domskill.Skill, includeVersions bool) skillResponse {
	resp := skillResponse{
		ID:          s.ID(),
		Slug:        s.Slug(),
		DisplayName: s.DisplayName(),
		Summary:     s.Summary(),
		OwnerID:     s.OwnerID(),
		Highlighted: s.Highlighted(),
		CreatedAt:   time.UnixMilli(s.CreatedAt()).UTC(),
	}
	if latest, ok := s.LatestVersion(); ok {
		v := versionToDTO(&latest)
		resp.LatestVersion = &v
	}
	if includeVersions {
		versions := s.Versions()
		resp.Versions = make([]versionResponse, len(versions))
		for i := range versions {
			resp.Versions[i] = versionToDTO(&versions[i])
		}
	}
	return resp
}

func versionToDTO(v *domskill.Version) versionResponse {
	return versionResponse{
		ID:        v.ID(),
		Semver:    v.Semver(),
		Changelog: v.Changelog(),
		CreatedAt: time.UnixMilli(v.CreatedAt()).UTC(),
	}
}

func searchResultToDTO(r *domsearch.Result) searchResultItem {
	item := r.Item()
	out := searchResultItem{
		Slug:        item.Slug(),
		DisplayName: item.DisplayName(),
		Summary:     item.Summary(),
		Highlighted: item.Highlighted(),
		Score:       r.Score(),
	}
	version := r.Version()
	out.Semver = version.Semver()
	return out
}

func reservationToDTO(res *domslug.Reservation) reservationResponse {
	return reservationResponse{
		Slug:      res.Slug,
		OwnerID:   res.OwnerID,
		Reason:    res.Reason,
		ExpiresAt: res.ExpiresAt.UTC(),
	}
}
