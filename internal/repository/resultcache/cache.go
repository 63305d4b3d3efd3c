// Package resultcache memoizes search results in a key-value store.
// Keys include the dataset version, so a reload orphans every cached entry
// and the TTL reclaims them.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/opsearch/internal/db"
	"github.com/kailas-cloud/opsearch/internal/domain"
	domrec "github.com/kailas-cloud/opsearch/internal/domain/record"
	"github.com/kailas-cloud/opsearch/internal/domain/search/query"
	"github.com/kailas-cloud/opsearch/internal/domain/search/result"
)

var cacheKeyPrefix = domain.KeyPrefix + "search:"

// DefaultTTL applies when New receives a non-positive ttl.
const DefaultTTL = 5 * time.Minute

type executor interface {
	Execute(ctx context.Context, q query.Query) (result.Result, error)
}

type versioner interface {
	Version() uint64
}

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedExecutor wraps a search executor with a read-through cache.
type CachedExecutor struct {
	inner      executor
	version    versioner
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner executor,
	version versioner,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedExecutor {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedExecutor{
		inner:      inner,
		version:    version,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Execute returns a cached result or runs the inner executor and caches its output.
// Invalid queries and failed executions are never cached.
func (c *CachedExecutor) Execute(ctx context.Context, q query.Query) (result.Result, error) {
	if err := q.Validate(); err != nil {
		return c.inner.Execute(ctx, q)
	}

	key := cacheKey(c.version.Version(), q)
	if res, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return res, nil
	}
	c.incCache("miss")

	res, err := c.inner.Execute(ctx, q)
	if err != nil {
		return result.Result{}, err
	}

	c.putToCache(ctx, key, res)
	return res, nil
}

func (c *CachedExecutor) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(version uint64, q query.Query) string {
	h := sha256.New()
	for _, part := range []string{
		strconv.FormatUint(version, 10),
		q.Term(),
		strconv.Itoa(q.Limit()),
		strconv.FormatFloat(q.MinRelevance(), 'g', -1, 64),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedExecutor) getFromCache(ctx context.Context, key string) (result.Result, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached result", zap.String("key", key), zap.Error(err))
		}
		return result.Result{}, false
	}
	if len(data) == 0 {
		return result.Result{}, false
	}

	res, err := decode(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached result", zap.String("key", key), zap.Error(err))
		return result.Result{}, false
	}
	return res, true
}

func (c *CachedExecutor) putToCache(ctx context.Context, key string, res result.Result) {
	data, err := encode(res)
	if err != nil {
		c.logger.Warn("Failed to encode result", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache result", zap.String("key", key), zap.Error(err))
	}
}

type cachedMatch struct {
	Fields    map[string]string `json:"f"`
	Relevance float64           `json:"r"`
}

type cachedResult struct {
	Term         string        `json:"term"`
	Limit        int           `json:"limit"`
	MinRelevance float64       `json:"min_relevance"`
	Matches      []cachedMatch `json:"matches"`
}

func encode(res result.Result) ([]byte, error) {
	out := cachedResult{
		Term:         res.Term(),
		Limit:        res.Limit(),
		MinRelevance: res.MinRelevance(),
		Matches:      make([]cachedMatch, 0, res.Total()),
	}
	for _, m := range res.Matches() {
		out.Matches = append(out.Matches, cachedMatch{
			Fields:    m.Record().Fields(),
			Relevance: m.Relevance(),
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return data, nil
}

func decode(data []byte) (result.Result, error) {
	var in cachedResult
	if err := json.Unmarshal(data, &in); err != nil {
		return result.Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	matches := make([]result.Match, 0, len(in.Matches))
	for _, m := range in.Matches {
		matches = append(matches, result.NewMatch(domrec.New(m.Fields), m.Relevance))
	}
	return result.Assemble(in.Term, in.Limit, in.MinRelevance, matches), nil
}
