// Package chi exposes the query orchestration service over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atlas-kb/docquery/internal/domain"
	healthuc "github.com/atlas-kb/docquery/internal/usecase/health"
	queryuc "github.com/atlas-kb/docquery/internal/usecase/query"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the query API.
type Server struct {
	query         *queryuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(query *queryuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		query:  query,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, "invalid_query"),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, "index_unavailable"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
	}
	return s
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/v1/query", s.HandleQuery)
	r.Get("/health", s.HandleHealth)
	r.Get("/metrics", s.Metrics)
}

// --- Wire types ---

type envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *apiError `json:"error,omitempty"`
	Timestamp string    `json:"timestamp"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type queryRequest struct {
	Query           string           `json:"query"`
	Filters         *filterRequest   `json:"filters,omitempty"`
	History         []domain.Message `json:"chatHistory,omitempty"`
	UseVectorSearch *bool            `json:"useVectorSearch,omitempty"`
	MaxResults      int              `json:"maxResults,omitempty"`
}

type filterRequest struct {
	DocumentTypes []string       `json:"documentTypes,omitempty"`
	Categories    []string       `json:"categories,omitempty"`
	Departments   []string       `json:"departments,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	DateRange     *dateRangeBody `json:"dateRange,omitempty"`
}

type dateRangeBody struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

type queryResponse struct {
	QueryID       string                 `json:"queryId"`
	Answer        string                 `json:"answer"`
	Sources       []domain.SourceSummary `json:"sources"`
	TotalHits     int                    `json:"totalHits"`
	QueryTimeMs   int64                  `json:"queryTime"`
	ExpandedQuery string                 `json:"expandedQuery,omitempty"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// --- Handlers ---

// HandleQuery handles POST /api/v1/query.
func (s *Server) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	// Vector search is opt-out, not opt-in.
	useVector := true
	if req.UseVectorSearch != nil {
		useVector = *req.UseVectorSearch
	}

	resp, err := s.query.Answer(r.Context(), queryuc.Request{
		Query:           req.Query,
		Filter:          filterFromRequest(req.Filters),
		History:         req.History,
		UseVectorSearch: useVector,
		MaxResults:      req.MaxResults,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sources := resp.Sources
	if sources == nil {
		sources = []domain.SourceSummary{}
	}

	writeData(w, http.StatusOK, queryResponse{
		QueryID:       resp.QueryID,
		Answer:        resp.Answer,
		Sources:       sources,
		TotalHits:     resp.TotalHits,
		QueryTimeMs:   resp.QueryTimeMs,
		ExpandedQuery: resp.ExpandedQuery,
	})
}

// HandleHealth handles GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeData(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Helpers ---

func filterFromRequest(f *filterRequest) domain.SearchFilter {
	if f == nil {
		return domain.SearchFilter{}
	}
	out := domain.SearchFilter{
		DocumentTypes: f.DocumentTypes,
		Categories:    f.Categories,
		Departments:   f.Departments,
		Tags:          f.Tags,
	}
	if f.DateRange != nil {
		out.DateRange = &domain.DateRange{Start: f.DateRange.Start, End: f.DateRange.End}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{
		Success:   status < http.StatusBadRequest,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{
		Success:   false,
		Error:     &apiError{Code: code, Message: message},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrIndexUnavailable,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationFailed,
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

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
