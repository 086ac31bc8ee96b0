// Package chi exposes the question answering pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/navseva/fundfaq/internal/domain"
	domanswer "github.com/navseva/fundfaq/internal/domain/answer"
	"github.com/navseva/fundfaq/internal/domain/corpus"
	logpkg "github.com/navseva/fundfaq/internal/logger"
	healthuc "github.com/navseva/fundfaq/internal/usecase/health"
	"github.com/navseva/fundfaq/internal/version"
)

const maxQuestionLength = 2000

// QueryService answers one question per call.
type QueryService interface {
	Ask(ctx context.Context, question, fundName string, topK int) (domanswer.FinalAnswer, error)
}

// HealthService aggregates component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// CorpusAdmin reads and rebuilds the corpus snapshot.
type CorpusAdmin interface {
	Snapshot() (*corpus.Snapshot, error)
	Rebuild(ctx context.Context) error
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	queries       QueryService
	health        HealthService
	index         CorpusAdmin
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(queries QueryService, health HealthService, index CorpusAdmin, logger *zap.Logger) *Server {
	s := &Server{
		queries: queries,
		health:  health,
		index:   index,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrCorpusNotReady, http.StatusServiceUnavailable, CodeCorpusNotReady),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrGenerationUnavailable, http.StatusBadGateway, CodeProviderError),
	}
	return s
}

// Routes mounts all endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", s.Query)
		r.Get("/funds", s.Funds)
		r.Post("/reindex", s.Reindex)
	})
}

// Query handles POST /v1/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "Question is required")
		return
	}
	if len(question) > maxQuestionLength {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "Question is too long")
		return
	}

	topK := 0
	if req.TopK != nil {
		if *req.TopK < 1 {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "top_k must be >= 1")
			return
		}
		topK = *req.TopK
	}

	fundName := ""
	if req.FundName != nil {
		fundName = strings.TrimSpace(*req.FundName)
	}

	ans, err := s.queries.Ask(r.Context(), question, fundName, topK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, answerToResponse(ans))
}

// Funds handles GET /v1/funds.
func (s *Server) Funds(w http.ResponseWriter, r *http.Request) {
	snap, err := s.index.Snapshot()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	funds := snap.Funds()
	writeJSON(w, http.StatusOK, FundsResponse{Funds: funds, Count: len(funds)})
}

// Reindex handles POST /v1/reindex. Rebuilds the corpus snapshot from the
// source file; in-flight queries keep the previous snapshot until the
// atomic swap.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := s.index.Rebuild(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	snap, err := s.index.Snapshot()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ReindexResponse{
		Chunks: snap.Len(),
		Funds:  len(snap.Funds()),
		TookMs: time.Since(start).Milliseconds(),
	})
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

	writeJSON(w, httpStatus, HealthResponse{
		Status:       string(report.Status),
		Checks:       checks,
		CorpusChunks: report.CorpusSize,
		Version:      version.Version,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client
// without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrCorpusNotReady,
		domain.ErrEmbeddingUnavailable,
		domain.ErrGenerationUnavailable,
		domain.ErrRetrievalUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler matching a single sentinel.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// handleDomainError logs with the request-scoped logger when the
// middleware installed one, so domain errors carry the request id.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return logpkg.FromContextOr(r.Context(), s.logger)
}
