package result

import "github.com/kailas-cloud/opsearch/internal/domain/record"

// Match is a record paired with its relevance.
type Match struct {
	rec       record.Record
	relevance float64
}

// NewMatch creates a scored match.
func NewMatch(rec record.Record, relevance float64) Match {
	return Match{rec: rec, relevance: relevance}
}

// Record returns the matched record.
func (m *Match) Record() record.Record { return m.rec }

// Relevance returns the similarity score in [0, 1].
func (m *Match) Relevance() float64 { return m.relevance }

// Result is an ordered set of matches plus the query parameters that produced it.
type Result struct {
	matches      []Match
	term         string
	limit        int
	minRelevance float64
}

// Assemble wraps matches with the echoed query parameters.
// A nil slice is normalized to an empty one.
func Assemble(term string, limit int, minRelevance float64, matches []Match) Result {
	if matches == nil {
		matches = []Match{}
	}
	return Result{
		matches:      matches,
		term:         term,
		limit:        limit,
		minRelevance: minRelevance,
	}
}

// Matches returns the matches, highest relevance first.
func (r *Result) Matches() []Match { return r.matches }

// Total returns the number of matches returned.
func (r *Result) Total() int { return len(r.matches) }

// Term returns the original search term.
func (r *Result) Term() string { return r.term }

// Limit returns the limit applied.
func (r *Result) Limit() int { return r.limit }

// MinRelevance returns the threshold applied.
func (r *Result) MinRelevance() float64 { return r.minRelevance }
