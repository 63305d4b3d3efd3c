package chi

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	ErrorCodeEmptyTerm           ErrorCode = "empty_term"
	ErrorCodeTermTooLong         ErrorCode = "term_too_long"
	ErrorCodeLimitOutOfRange     ErrorCode = "limit_out_of_range"
	ErrorCodeRelevanceOutOfRange ErrorCode = "relevance_out_of_range"
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeNotFound            ErrorCode = "not_found"
	ErrorCodeRateLimited         ErrorCode = "rate_limited"
	ErrorCodeDatasetNotLoaded    ErrorCode = "dataset_not_loaded"
	ErrorCodeReloadNotSupported  ErrorCode = "reload_not_supported"
	ErrorCodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string    `json:"error"`
	Status int       `json:"status"`
	Code   ErrorCode `json:"code"`
}

// SearchMeta echoes the effective query parameters.
type SearchMeta struct {
	Total        int     `json:"total"`
	Term         string  `json:"term"`
	Limit        int     `json:"limit"`
	MinRelevance float64 `json:"min_relevance"`
}

// SearchResponse is the body of GET /search. Each result carries the record
// fields plus a "relevance" key.
type SearchResponse struct {
	Results []map[string]any `json:"results"`
	Meta    SearchMeta       `json:"meta"`
}

// RecordPage is the body of GET /records.
type RecordPage struct {
	Items  []map[string]string `json:"items"`
	Total  int                 `json:"total"`
	Offset int                 `json:"offset"`
	Limit  int                 `json:"limit"`
}

// ReloadResponse is the body of POST /admin/reload.
type ReloadResponse struct {
	Source     string `json:"source"`
	Records    int    `json:"records"`
	Version    uint64 `json:"version"`
	DurationMS int64  `json:"duration_ms"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
