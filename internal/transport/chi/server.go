// Package chi exposes the HTTP API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cadenza-app/cadenza/internal/domain"
	logpkg "github.com/cadenza-app/cadenza/internal/logger"
	healthuc "github.com/cadenza-app/cadenza/internal/usecase/health"
)

// Error codes returned in JSON error bodies.
const (
	codeBadRequest    = "bad_request"
	codeNotFound      = "not_found"
	codeGeneratorErr  = "generator_error"
	codeInternalError = "internal_error"
)

// LessonService generates listening activities and records feedback.
type LessonService interface {
	GenerateListening(ctx context.Context, req domain.ActivityRequest) (domain.ListeningActivity, string, error)
	RecordFeedback(ctx context.Context, id string, rating int, text string) error
}

// Resolver runs the score resolution chain.
type Resolver interface {
	Resolve(ctx context.Context, q domain.MatchQuery) (*domain.ResolvedScore, error)
}

// Server wires the HTTP handlers to the use case services. Handlers log
// through the request-scoped logger stored in the context by the logging
// middleware, so error lines carry the request id.
type Server struct {
	lessons  LessonService
	resolver Resolver
	health   *healthuc.Service
}

// NewServer creates an HTTP API server.
func NewServer(lessons LessonService, resolver Resolver, health *healthuc.Service) *Server {
	return &Server{lessons: lessons, resolver: resolver, health: health}
}

// Routes mounts all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/lessons/listening", s.generateListening)
	r.Post("/api/feedback", s.recordFeedback)
	r.Get("/api/scores/resolve", s.resolveScore)
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", s.metrics)
}

type listeningResponse struct {
	ActivityID string                   `json:"activity_id,omitempty"`
	Activity   domain.ListeningActivity `json:"activity"`
}

// generateListening handles POST /api/lessons/listening.
func (s *Server) generateListening(w http.ResponseWriter, r *http.Request) {
	var req domain.ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	activity, id, err := s.lessons.GenerateListening(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listeningResponse{ActivityID: id, Activity: activity})
}

type feedbackRequest struct {
	ActivityID string `json:"activity_id"`
	Rating     int    `json:"rating"`
	Text       string `json:"text,omitempty"`
}

// recordFeedback handles POST /api/feedback.
func (s *Server) recordFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ActivityID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "activity_id is required")
		return
	}

	if err := s.lessons.RecordFeedback(r.Context(), req.ActivityID, req.Rating, req.Text); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type resolveResponse struct {
	Found bool                  `json:"found"`
	Score *domain.ResolvedScore `json:"score,omitempty"`
}

// resolveScore handles GET /api/scores/resolve. A chain that comes up empty
// is a 404 with found=false, not an error.
func (s *Server) resolveScore(w http.ResponseWriter, r *http.Request) {
	q := domain.MatchQuery{
		Title:    r.URL.Query().Get("title"),
		Composer: r.URL.Query().Get("composer"),
	}

	rec, err := s.resolver.Resolve(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, resolveResponse{Found: false})
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{Found: true, Score: rec})
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// metrics handles GET /metrics.
func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidQuery,
		domain.ErrGeneratorError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)

	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, codeBadRequest, msg)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, msg)
	case errors.Is(err, domain.ErrGeneratorError):
		writeError(w, http.StatusBadGateway, codeGeneratorErr, msg)
	default:
		log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
