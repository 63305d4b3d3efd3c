package query

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/kailas-cloud/opsearch/internal/domain"
	"github.com/kailas-cloud/opsearch/internal/similarity"
)

// Default search parameters.
const (
	DefaultLimit        = 10
	DefaultMinRelevance = 0.5
)

// Defaults holds the values applied to omitted search parameters and the
// optional operator caps. A zero cap means unlimited.
type Defaults struct {
	Limit        int
	MinRelevance float64
	// MaxLimit clamps larger limits down to it.
	MaxLimit int
	// MaxTermLength rejects longer terms, counted in runes.
	MaxTermLength int
}

// StandardDefaults returns limit=10, min_relevance=0.5 and no caps.
func StandardDefaults() Defaults {
	return Defaults{Limit: DefaultLimit, MinRelevance: DefaultMinRelevance}
}

// Query is a validated search query.
type Query struct {
	term         string
	limit        int
	minRelevance float64
}

// New validates a query using StandardDefaults.
func New(term string, limit int, minRelevance *float64) (Query, error) {
	return StandardDefaults().New(term, limit, minRelevance)
}

// New validates and normalizes search parameters.
// limit == 0 and minRelevance == nil select the defaults. The term is echoed as given.
// A limit above MaxLimit is clamped, and Limit() reports the clamped value.
func (d Defaults) New(term string, limit int, minRelevance *float64) (Query, error) {
	if limit == 0 {
		limit = d.Limit
	}
	rel := d.MinRelevance
	if minRelevance != nil {
		rel = *minRelevance
	}

	q := Query{term: term, limit: limit, minRelevance: rel}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	if d.MaxTermLength > 0 {
		if n := utf8.RuneCountInString(term); n > d.MaxTermLength {
			return Query{}, domain.InvalidQuery(domain.ErrTermTooLong,
				fmt.Sprintf("max %d characters, got %d", d.MaxTermLength, n))
		}
	}
	if d.MaxLimit > 0 && q.limit > d.MaxLimit {
		q.limit = d.MaxLimit
	}
	return q, nil
}

// Validate checks the query invariants. The zero Query is invalid.
func (q *Query) Validate() error {
	if !similarity.HasTokens(q.term) {
		return domain.InvalidQuery(domain.ErrEmptyTerm, "")
	}
	if q.limit <= 0 {
		return domain.InvalidQuery(domain.ErrLimitOutOfRange,
			fmt.Sprintf("limit must be positive, got %d", q.limit))
	}
	if math.IsNaN(q.minRelevance) || q.minRelevance < 0 || q.minRelevance > 1 {
		return domain.InvalidQuery(domain.ErrRelevanceOutOfRange,
			fmt.Sprintf("min_relevance must be between 0 and 1, got %v", q.minRelevance))
	}
	return nil
}

// Term returns the search term as supplied by the caller.
func (q *Query) Term() string { return q.term }

// Limit returns the maximum number of matches.
func (q *Query) Limit() int { return q.limit }

// MinRelevance returns the inclusive relevance threshold.
func (q *Query) MinRelevance() float64 { return q.minRelevance }
