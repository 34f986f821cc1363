// Package chi exposes the registry over HTTP.
package chi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	domrl "github.com/skillforge/registry/internal/domain/ratelimit"
	healthuc "github.com/skillforge/registry/internal/usecase/health"
	qualityuc "github.com/skillforge/registry/internal/usecase/quality"
	ratelimituc "github.com/skillforge/registry/internal/usecase/ratelimit"
	searchuc "github.com/skillforge/registry/internal/usecase/search"
	skilluc "github.com/skillforge/registry/internal/usecase/skill"
)

// maxBodyBytes caps publish request bodies.
const maxBodyBytes = 1 << 20

// Server holds the HTTP handlers for the registry API.
type Server struct {
	search        *searchuc.Service
	skills        *skilluc.Service
	quality       *qualityuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	skills *skilluc.Service,
	quality *qualityuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		search:        search,
		skills:        skills,
		quality:       quality,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// RouterConfig carries the route-level policy settings.
type RouterConfig struct {
	AdminKeys      []string
	TrustedProxies []string
	Limiter        *ratelimituc.Service
}

// Routes mounts every endpoint with its rate limit class.
func (s *Server) Routes(cfg RouterConfig) chi.Router {
	read := RateLimitMiddleware(cfg.Limiter, domrl.ClassRead, cfg.TrustedProxies, s.logger)
	write := RateLimitMiddleware(cfg.Limiter, domrl.ClassWrite, cfg.TrustedProxies, s.logger)
	download := RateLimitMiddleware(cfg.Limiter, domrl.ClassDownload, cfg.TrustedProxies, s.logger)

	r := chi.NewRouter()
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(read).Get("/skills/search", s.SearchSkills)
		r.With(write).Post("/skills", s.PublishSkill)
		r.With(read).Get("/skills/{slug}", s.GetSkill)
		r.With(download).Get("/skills/{slug}/download", s.DownloadSkill)
		r.With(write).Delete("/skills/{slug}", s.DeleteSkill)

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminKeys))
			r.Use(write)
			r.Post("/skills/{slug}/reclaim", s.ReclaimSlug)
			r.Post("/quality/sweep", s.StartSweep)
		})
	})
	return r
}

// SearchSkills handles GET /api/v1/skills/search.
func (s *Server) SearchSkills(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query parameter q is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "limit must be a positive integer")
			return
		}
		limit = v
	}
	highlightedOnly := r.URL.Query().Get("highlighted") == "true"

	results, err := s.search.Resolve(r.Context(), query, limit, highlightedOnly)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(results))
	for i := range results {
		items[i] = searchResultToDTO(&results[i])
	}
	writeJSON(w, http.StatusOK, searchResponse{Items: items, Total: len(items)})
}

// PublishSkill handles POST /api/v1/skills.
func (s *Server) PublishSkill(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing "+ownerHeader+" header")
		return
	}

	var req publishRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Body == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "body is required")
		return
	}

	published, err := s.skills.Publish(r.Context(), skilluc.PublishInput{
		Slug:        req.Slug,
		DisplayName: req.DisplayName,
		Summary:     req.Summary,
		OwnerID:     owner,
		Semver:      req.Semver,
		Changelog:   req.Changelog,
		Body:        []byte(req.Body),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/skills/"+published.Slug())
	writeJSON(w, http.StatusCreated, skillToDTO(&published, false))
}

// GetSkill handles GET /api/v1/skills/{slug}.
func (s *Server) GetSkill(w http.ResponseWriter, r *http.Request) {
	item, err := s.skills.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, skillToDTO(&item, true))
}

// DownloadSkill handles GET /api/v1/skills/{slug}/download.
func (s *Server) DownloadSkill(w http.ResponseWriter, r *http.Request) {
	body, version, err := s.skills.Download(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("X-Skill-Version", version.Semver())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// DeleteSkill handles DELETE /api/v1/skills/{slug}.
func (s *Server) DeleteSkill(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing "+ownerHeader+" header")
		return
	}

	if err := s.skills.Delete(r.Context(), chi.URLParam(r, "slug"), owner); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReclaimSlug handles POST /api/v1/admin/skills/{slug}/reclaim.
func (s *Server) ReclaimSlug(w http.ResponseWriter, r *http.Request) {
	var req reclaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "owner_id is required")
		return
	}

	res, err := s.skills.Reclaim(r.Context(), chi.URLParam(r, "slug"), req.OwnerID, actorFromContext(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationToDTO(&res))
}

// StartSweep handles POST /api/v1/admin/quality/sweep.
func (s *Server) StartSweep(w http.ResponseWriter, r *http.Request) {
	if err := s.quality.StartSweep(); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sweep_started"})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}
