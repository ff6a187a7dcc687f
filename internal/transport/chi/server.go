package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/qaindex/internal/domain"
	"github.com/kailas-cloud/qaindex/internal/domain/report"
	"github.com/kailas-cloud/qaindex/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/qaindex/internal/logger"
	"github.com/kailas-cloud/qaindex/internal/metrics"
	healthuc "github.com/kailas-cloud/qaindex/internal/usecase/health"
)

const maxRequestBody = 1 << 20

// Searcher runs raw query requests.
type Searcher interface {
	Handle(ctx context.Context, raw []byte) (any, error)
}

// Loader reloads the dataset into the collection.
type Loader interface {
	Load(ctx context.Context, path string) (report.Load, error)
}

// HealthChecker reports collaborator availability.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the query, stats and ingest pipelines over HTTP.
type Server struct {
	search      Searcher
	ingest      Loader
	health      HealthChecker
	datasetPath string
	logger      *zap.Logger

	ingestMu sync.Mutex // serializes reloads
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher, ingest Loader, health HealthChecker, datasetPath string, logger *zap.Logger,
) *Server {
	return &Server{
		search:      search,
		ingest:      ingest,
		health:      health,
		datasetPath: datasetPath,
		logger:      logger,
	}
}

// Router mounts the server routes behind the standard middleware chain.
func (s *Server) Router(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Post("/search", s.PostSearch)
	r.Get("/search", s.GetSearch)
	r.Get("/stats", s.GetStats)
	r.Post("/ingest", s.PostIngest)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, domain.ErrorResponse{Error: "route not found", Type: domain.KindInput.String()})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed,
			domain.ErrorResponse{Error: "method not allowed", Type: domain.KindInput.String()})
	})
	return r
}

// PostSearch handles POST /search. The body is a query request.
func (s *Server) PostSearch(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.handleError(w, r, domain.WithKind(domain.KindValidation,
			fmt.Errorf("%w: read body: %w", domain.ErrInvalidRequest, err)))
		return
	}
	s.run(w, r, raw)
}

// GetSearch handles GET /search?query=...&n_results=...&category_filter=...
func (s *Server) GetSearch(w http.ResponseWriter, r *http.Request) {
	raw, err := paramsFromQuery(r)
	if err != nil {
		s.handleError(w, r, domain.WithKind(domain.KindValidation, err))
		return
	}
	s.run(w, r, raw)
}

// GetStats handles GET /stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, []byte(`{"action":"stats"}`))
}

// PostIngest handles POST /ingest by reloading the configured dataset.
func (s *Server) PostIngest(w http.ResponseWriter, r *http.Request) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	summary, err := s.ingest.Load(r.Context(), s.datasetPath)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	rep := s.health.Check(r.Context())
	status := http.StatusOK
	if rep.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, raw []byte) {
	out, err := s.search.Handle(r.Context(), raw)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// paramsFromQuery converts the convenience query string into a request body.
func paramsFromQuery(r *http.Request) ([]byte, error) {
	q := r.URL.Query()
	query := q.Get("query")
	p := request.Params{Query: &query}

	if v := q.Get("n_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: n_results must be an integer", domain.ErrInvalidRequest)
		}
		p.NResults = &n
	}
	if v := q.Get("min_relevance"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: min_relevance must be a number", domain.ErrInvalidRequest)
		}
		p.MinRelevance = &f
	}
	if v := q.Get("category_filter"); v != "" {
		p.CategoryFilter = &v
	}
	if v := q.Get("confidence_filter"); v != "" {
		p.ConfidenceFilter = &v
	}
	p.BankingContextFilter = q["banking_context_filter"]

	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return raw, nil
}

// statusForKind maps a failure kind to its HTTP status.
func statusForKind(k domain.Kind) int {
	switch k {
	case domain.KindInput, domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindQuery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())

	kind := domain.KindOf(err)
	if kind == domain.KindUnknown {
		log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError,
			domain.ErrorResponse{Error: "internal error", Type: kind.String()})
		return
	}
	log.Warn("request failed", zap.String("type", kind.String()), zap.Error(err))
	writeError(w, statusForKind(kind), domain.NewErrorResponse(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, resp domain.ErrorResponse) {
	writeJSON(w, status, resp)
}
