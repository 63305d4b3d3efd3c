package search

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kailas-cloud/opsearch/internal/domain"
	domrec "github.com/kailas-cloud/opsearch/internal/domain/record"
	"github.com/kailas-cloud/opsearch/internal/domain/search/query"
	"github.com/kailas-cloud/opsearch/internal/domain/search/result"
	"github.com/kailas-cloud/opsearch/internal/metrics"
	"github.com/kailas-cloud/opsearch/internal/similarity"
)

const (
	// scanChunk is the number of records scored between context checks.
	scanChunk = 1024
	// DefaultParallelThreshold is the record count above which scoring fans out to the pool.
	DefaultParallelThreshold = 5000
)

// Service ranks records of the store against a free-text term.
type Service struct {
	records   RecordReader
	fields    []string
	pool      *ants.Pool
	threshold int
}

// Option configures the search service.
type Option func(*Service) error

// WithFields sets the searchable fields, in projection order.
func WithFields(fields ...string) Option {
	return func(s *Service) error {
		if len(fields) == 0 {
			return fmt.Errorf("search fields must not be empty")
		}
		s.fields = append([]string(nil), fields...)
		return nil
	}
}

// WithWorkers enables parallel scoring on a pool of n workers once the
// dataset has more than threshold records. n <= 1 keeps scoring sequential.
func WithWorkers(n, threshold int) Option {
	return func(s *Service) error {
		if s.pool != nil {
			s.pool.Release()
			s.pool = nil
		}
		if n <= 1 {
			return nil
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return fmt.Errorf("create scoring pool: %w", err)
		}
		s.pool = pool
		if threshold > 0 {
			s.threshold = threshold
		}
		return nil
	}
}

// New creates a search service reading from records.
func New(records RecordReader, opts ...Option) (*Service, error) {
	s := &Service{
		records:   records,
		fields:    domain.DefaultSearchFields(),
		threshold: DefaultParallelThreshold,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close releases the scoring pool, if any.
func (s *Service) Close() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Fields returns the searchable fields.
func (s *Service) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Execute validates q, scores every record and returns the best matches.
// Invalid queries fail before the store is read.
func (s *Service) Execute(ctx context.Context, q query.Query) (result.Result, error) {
	if err := q.Validate(); err != nil {
		metrics.SearchQueriesTotal.WithLabelValues("invalid").Inc()
		return result.Result{}, err
	}

	start := time.Now()
	records := s.records.AllRecords()

	scores, err := s.score(ctx, q.Term(), records)
	if err != nil {
		metrics.SearchQueriesTotal.WithLabelValues("canceled").Inc()
		return result.Result{}, fmt.Errorf("scan records: %w", err)
	}

	minRel := q.MinRelevance()
	matches := make([]result.Match, 0, min(q.Limit(), len(records)))
	for i, score := range scores {
		if score >= minRel {
			matches = append(matches, result.NewMatch(records[i], score))
		}
	}

	// Stable: equal scores keep store order.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Relevance() > matches[j].Relevance()
	})
	if len(matches) > q.Limit() {
		matches = matches[:q.Limit()]
	}

	metrics.SearchQueriesTotal.WithLabelValues("ok").Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchMatches.Observe(float64(len(matches)))
	metrics.SearchRecordsScanned.Add(float64(len(records)))

	return result.Assemble(q.Term(), q.Limit(), minRel, matches), nil
}

// score returns one relevance per record, index-aligned with records.
func (s *Service) score(ctx context.Context, term string, records []domrec.Record) ([]float64, error) {
	scores := make([]float64, len(records))
	if s.pool != nil && len(records) > s.threshold {
		return scores, s.scoreParallel(ctx, term, records, scores)
	}

	for lo := 0; lo < len(records); lo += scanChunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.scoreRange(term, records, scores, lo, min(lo+scanChunk, len(records)))
	}
	return scores, nil
}

func (s *Service) scoreParallel(ctx context.Context, term string, records []domrec.Record, scores []float64) error {
	chunk := max(scanChunk, (len(records)+s.pool.Cap()-1)/s.pool.Cap())

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
	}

	for lo := 0; lo < len(records); lo += chunk {
		hi := min(lo+chunk, len(records))
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}
			s.scoreRange(term, records, scores, lo, hi)
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit scoring task: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (s *Service) scoreRange(term string, records []domrec.Record, scores []float64, lo, hi int) {
	for i := lo; i < hi; i++ {
		scores[i] = similarity.TokenSet(term, domrec.Project(records[i], s.fields))
	}
}
