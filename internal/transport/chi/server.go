package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/opsearch/internal/domain"
	domrec "github.com/kailas-cloud/opsearch/internal/domain/record"
	"github.com/kailas-cloud/opsearch/internal/domain/search/query"
	"github.com/kailas-cloud/opsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/opsearch/internal/logger"
	datasetuc "github.com/kailas-cloud/opsearch/internal/usecase/dataset"
	healthuc "github.com/kailas-cloud/opsearch/internal/usecase/health"
)

// relevanceKey is the result field carrying the score.
const relevanceKey = "relevance"

// Searcher executes validated search queries.
type Searcher interface {
	Execute(ctx context.Context, q query.Query) (result.Result, error)
}

// RecordReader serves record listing and lookup.
type RecordReader interface {
	Page(offset, limit int) ([]domrec.Record, int)
	Lookup(id string) (domrec.Record, bool)
}

// Reloader reloads the dataset on demand.
type Reloader interface {
	Load(ctx context.Context) (datasetuc.Report, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Pagination bounds GET /records.
type Pagination struct {
	DefaultLimit int
	MaxLimit     int
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the search HTTP API.
type Server struct {
	search        Searcher
	records       RecordReader
	reloader      Reloader
	health        HealthChecker
	defaults      query.Defaults
	pages         Pagination
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. reloader may be nil, then
// POST /admin/reload answers 501.
func NewServer(
	search Searcher,
	records RecordReader,
	reloader Reloader,
	health HealthChecker,
	defaults query.Defaults,
	pages Pagination,
	logger *zap.Logger,
) *Server {
	if pages.DefaultLimit <= 0 {
		pages.DefaultLimit = 20
	}
	if pages.MaxLimit < pages.DefaultLimit {
		pages.MaxLimit = max(100, pages.DefaultLimit)
	}
	s := &Server{
		search:   search,
		records:  records,
		reloader: reloader,
		health:   health,
		defaults: defaults,
		pages:    pages,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		queryErrorHandler(domain.ErrEmptyTerm, ErrorCodeEmptyTerm),
		queryErrorHandler(domain.ErrTermTooLong, ErrorCodeTermTooLong),
		queryErrorHandler(domain.ErrLimitOutOfRange, ErrorCodeLimitOutOfRange),
		queryErrorHandler(domain.ErrRelevanceOutOfRange, ErrorCodeRelevanceOutOfRange),
		queryErrorHandler(domain.ErrInvalidQuery, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrDatasetNotLoaded, http.StatusServiceUnavailable, ErrorCodeDatasetNotLoaded),
		sentinelHandler(domain.ErrReloadNotSupported, http.StatusNotImplemented, ErrorCodeReloadNotSupported),
	}
	return s
}

// Routes mounts the API handlers on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/search", s.Search)
	r.Get("/api/operadoras/busca", s.Search)
	r.Get("/records", s.ListRecords)
	r.Get("/records/{id}", s.GetRecord)
	r.Post("/admin/reload", s.Reload)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles GET /search?q=&limit=&min_relevance=.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var (
		term   *string
		limit  *int
		minRel *float64
	)
	if err := runtime.BindQueryParameter("form", true, false, "q", params, &term); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid parameter q")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", params, &limit); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "limit must be an integer")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "min_relevance", params, &minRel); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "min_relevance must be a number")
		return
	}

	// An explicit limit=0 is rejected rather than read as "use the default".
	if limit != nil && *limit == 0 {
		s.handleDomainError(r.Context(), w, domain.InvalidQuery(domain.ErrLimitOutOfRange, "limit must be positive, got 0"))
		return
	}

	q, err := s.defaults.New(deref(term), deref(limit), minRel)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	res, err := s.search.Execute(r.Context(), q)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResultToResponse(&res))
}

// ListRecords handles GET /records?offset=&limit=.
func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var offset, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "offset", params, &offset); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "offset must be an integer")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", params, &limit); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "limit must be an integer")
		return
	}

	off := deref(offset)
	if off < 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "offset must not be negative")
		return
	}
	lim := s.pages.DefaultLimit
	if limit != nil {
		lim = *limit
	}
	if lim <= 0 || lim > s.pages.MaxLimit {
		writeError(w, http.StatusBadRequest, ErrorCodeLimitOutOfRange, "limit out of range")
		return
	}

	page, total := s.records.Page(off, lim)
	items := make([]map[string]string, len(page))
	for i, rec := range page {
		items[i] = rec.Fields()
	}

	writeJSON(w, http.StatusOK, RecordPage{Items: items, Total: total, Offset: off, Limit: lim})
}

// GetRecord handles GET /records/{id}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := s.records.Lookup(id)
	if !ok {
		s.handleDomainError(r.Context(), w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec.Fields())
}

// Reload handles POST /admin/reload.
func (s *Server) Reload(w http.ResponseWriter, r *http.Request) {
	if s.reloader == nil {
		s.handleDomainError(r.Context(), w, domain.ErrReloadNotSupported)
		return
	}

	rep, err := s.reloader.Load(r.Context())
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReloadResponse{
		Source:     rep.Source,
		Records:    rep.Records,
		Version:    rep.Version,
		DurationMS: rep.Duration.Milliseconds(),
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
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:  message,
		Status: status,
		Code:   code,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrDatasetNotLoaded,
		domain.ErrReloadNotSupported,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// queryErrorHandler maps a query validation sentinel to 400. Validation
// messages only describe caller input, so they are returned verbatim.
func queryErrorHandler(sentinel error, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, http.StatusBadRequest, code, err.Error())
		return true
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContextOr(ctx, s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			if errors.Is(err, domain.ErrInvalidQuery) {
				log.Debug("invalid query", zap.Error(err))
			} else {
				log.Warn("domain error", zap.Error(err))
			}
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func searchResultToResponse(res *result.Result) SearchResponse {
	items := make([]map[string]any, 0, res.Total())
	for _, m := range res.Matches() {
		rec := m.Record()
		item := make(map[string]any, rec.Len()+1)
		for k, v := range rec.Fields() {
			item[k] = v
		}
		item[relevanceKey] = m.Relevance()
		items = append(items, item)
	}
	return SearchResponse{
		Results: items,
		Meta: SearchMeta{
			Total:        res.Total(),
			Term:         res.Term(),
			Limit:        res.Limit(),
			MinRelevance: res.MinRelevance(),
		},
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
