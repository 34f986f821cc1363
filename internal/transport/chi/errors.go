package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/skillforge/registry/internal/domain"
)

// Error codes returned in the response body.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUnauthorized     = "unauthorized"
	codeForbidden        = "forbidden"
	codeNotFound         = "not_found"
	codeSlugTaken        = "slug_taken"
	codeSlugReserved     = "slug_reserved"
	codeQualityRejected  = "quality_rejected"
	codeRateLimited      = "rate_limited"
	codeProviderError    = "embedding_provider_error"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrSkillNotFound,
		domain.ErrVersionNotFound,
		domain.ErrBlobNotFound,
		domain.ErrNotFound,
		domain.ErrInvalidSlug,
		domain.ErrInvalidInput,
		domain.ErrSlugTaken,
		domain.ErrSlugReserved,
		domain.ErrNotOwner,
		domain.ErrRateLimited,
		domain.ErrQualityRejected,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// slugReservedHandler handles reservation conflicts with holder details.
func slugReservedHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrSlugReserved) {
		return false
	}
	var sre *domain.SlugReservedError
	if errors.As(err, &sre) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":       codeSlugReserved,
			"message":    msg,
			"slug":       sre.Slug,
			"expires_at": sre.ExpiresAt.UTC().Format(time.RFC3339),
		})
		return true
	}
	writeError(w, http.StatusConflict, codeSlugReserved, msg)
	return true
}

// qualityRejectedHandler handles quality gate rejections with the verdict.
func qualityRejectedHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrQualityRejected) {
		return false
	}
	var qre *domain.QualityRejectedError
	if errors.As(err, &qre) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"code":    codeQualityRejected,
			"message": msg,
			"score":   qre.Score,
			"reason":  qre.Reason,
		})
		return true
	}
	writeError(w, http.StatusUnprocessableEntity, codeQualityRejected, msg)
	return true
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		slugReservedHandler,
		qualityRejectedHandler,
		sentinelHandler(domain.ErrSkillNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrVersionNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrBlobNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInvalidSlug, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrSlugTaken, http.StatusConflict, codeSlugTaken),
		sentinelHandler(domain.ErrNotOwner, http.StatusForbidden, codeForbidden),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
