package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/proplens/rankd/internal/domain"
	"github.com/proplens/rankd/internal/domain/intent"
	"github.com/proplens/rankd/internal/domain/query"
	dorank "github.com/proplens/rankd/internal/domain/rank"
	"github.com/proplens/rankd/internal/repository/listing"
	healthuc "github.com/proplens/rankd/internal/usecase/health"
)

const maxUpsertBatch = 100

// Error codes returned in JSON error responses.
const (
	codeBadRequest           = "bad_request"
	codeValidationFailed     = "validation_failed"
	codeNotFound             = "not_found"
	codeRateLimited          = "rate_limited"
	codeEmbeddingProvider    = "embedding_provider_error"
	codeRetrievalUnavailable = "retrieval_unavailable"
	codeInternalError        = "internal_error"
	codeUnauthorized         = "unauthorized"
)

// Ranker runs the fusion and ranking pipeline (ISP consumer interface).
type Ranker interface {
	Search(ctx context.Context, q *query.Query, limit int) ([]dorank.Result, error)
}

// ListingWriter ingests listing records with precomputed vectors.
type ListingWriter interface {
	Upsert(ctx context.Context, records []listing.Record) error
}

// HealthService aggregates component health checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the ranking pipeline over HTTP.
type Server struct {
	ranker        Ranker
	listings      ListingWriter
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ranker Ranker,
	listings ListingWriter,
	health HealthService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ranker:   ranker,
		listings: listings,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidListing, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrTotalRetrievalFailure, http.StatusServiceUnavailable, codeRetrievalUnavailable),
	}
	return s
}

// Routes mounts all handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/search", s.SearchListings)
	r.Post("/v1/listings", s.UpsertListings)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type searchRequest struct {
	Query    string             `json:"query"`
	MustHave []string           `json:"must_have,omitempty"`
	Style    string             `json:"style,omitempty"`
	Filters  map[string]float64 `json:"filters,omitempty"`
	Intent   string             `json:"intent,omitempty"`
	Limit    int                `json:"limit,omitempty"`
}

type searchResultItem struct {
	ID          string             `json:"id"`
	Score       float64            `json:"score"`
	Boost       float64            `json:"boost"`
	MatchedTags []string           `json:"matched_tags,omitempty"`
	Breakdown   map[string]float64 `json:"breakdown,omitempty"`
}

type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

// SearchListings handles POST /v1/search.
func (s *Server) SearchListings(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Intent != "" && !intent.Intent(req.Intent).IsValid() {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("unknown intent %q", req.Intent))
		return
	}

	q, err := query.New(req.Query, req.MustHave, req.Style, req.Filters, intent.Intent(req.Intent))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	results, err := s.ranker.Search(r.Context(), &q, req.Limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(results))
	for i := range results {
		items[i] = resultToItem(&results[i])
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Items: items,
		Total: len(items),
	})
}

type upsertRequest struct {
	Listings []listing.Record `json:"listings"`
}

type upsertResponse struct {
	Upserted int `json:"upserted"`
}

// UpsertListings handles POST /v1/listings. Vectors are precomputed by the
// ingestion pipeline and arrive in the payload.
func (s *Server) UpsertListings(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Listings) == 0 || len(req.Listings) > maxUpsertBatch {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("listings count must be between 1 and %d", maxUpsertBatch))
		return
	}

	for i, rec := range req.Listings {
		if rec.ID == "" {
			writeError(w, http.StatusBadRequest, codeValidationFailed,
				fmt.Sprintf("listing %d has no id", i))
			return
		}
	}

	if err := s.listings.Upsert(r.Context(), req.Listings); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, upsertResponse{Upserted: len(req.Listings)})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
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

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func resultToItem(r *dorank.Result) searchResultItem {
	item := searchResultItem{
		ID:          r.DocID(),
		Score:       r.Score(),
		Boost:       r.Boost(),
		MatchedTags: r.MatchedTags(),
	}
	if len(r.Breakdown()) > 0 {
		breakdown := make(map[string]float64, len(r.Breakdown()))
		for strat, score := range r.Breakdown() {
			breakdown[string(strat)] = score
		}
		item.Breakdown = breakdown
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrInvalidListing,
		domain.ErrNotFound,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrTotalRetrievalFailure,
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
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
