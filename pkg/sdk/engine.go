package opsearch

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/opsearch/internal/db/redis"
	"github.com/kailas-cloud/opsearch/internal/domain"
	domrec "github.com/kailas-cloud/opsearch/internal/domain/record"
	"github.com/kailas-cloud/opsearch/internal/domain/search/query"
	"github.com/kailas-cloud/opsearch/internal/domain/search/result"
	reporec "github.com/kailas-cloud/opsearch/internal/repository/record"
	"github.com/kailas-cloud/opsearch/internal/repository/source/csvfile"
	"github.com/kailas-cloud/opsearch/internal/repository/source/redishash"
	datasetuc "github.com/kailas-cloud/opsearch/internal/usecase/dataset"
	searchuc "github.com/kailas-cloud/opsearch/internal/usecase/search"
	"github.com/kailas-cloud/opsearch/internal/similarity"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, replaced in tests.
type searchUseCase interface {
	Execute(ctx context.Context, q query.Query) (result.Result, error)
}

type datasetUseCase interface {
	Load(ctx context.Context) (datasetuc.Report, error)
}

// Match is one ranked record.
type Match struct {
	Fields    map[string]string
	Relevance float64
}

// Result holds the matches of a search, best first, and the effective parameters.
type Result struct {
	Matches      []Match
	Total        int
	Term         string
	Limit        int
	MinRelevance float64
}

// ReloadReport describes a completed dataset load.
type ReloadReport struct {
	Source   string
	Records  int
	Version  uint64
	Duration time.Duration
}

// Engine is the opsearch entry point.
type Engine struct {
	records  *reporec.Store
	dataset  datasetUseCase // nil for in-memory datasets
	search   searchUseCase
	closers  []func()
	defaults query.Defaults
	obs      *observer
}

// New builds an Engine and loads its dataset. Exactly one of WithRecords,
// WithCSV or WithRedis is required. ctx bounds the initial load.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	cfg := &engineConfig{idField: domain.FieldRegistration}
	for _, o := range opts {
		o.apply(cfg)
	}

	sources := 0
	for _, set := range []bool{cfg.records != nil, cfg.csvPath != "", cfg.redisAddr != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, errors.New("opsearch: exactly one dataset source required (WithRecords, WithCSV or WithRedis)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		records:  reporec.New(cfg.idField),
		defaults: defaultsFrom(cfg),
		obs:      obs,
	}

	svc, err := searchuc.New(e.records, searchOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("opsearch: %w", err)
	}
	e.search = svc
	e.closers = append(e.closers, svc.Close)

	if cfg.records != nil {
		recs := make([]domrec.Record, len(cfg.records))
		for i, fields := range cfg.records {
			recs[i] = domrec.New(fields)
		}
		e.records.Swap(recs, "memory")
		return e, nil
	}

	source, err := e.buildSource(ctx, cfg)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.dataset = datasetuc.New(source, e.records, zap.NewNop())

	if _, err := e.Reload(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func defaultsFrom(cfg *engineConfig) query.Defaults {
	d := query.StandardDefaults()
	if cfg.limit > 0 {
		d.Limit = cfg.limit
	}
	if cfg.minRel != nil {
		d.MinRelevance = *cfg.minRel
	}
	if cfg.maxLimit > 0 {
		d.MaxLimit = cfg.maxLimit
		d.Limit = min(d.Limit, d.MaxLimit)
	}
	if cfg.maxTermLength > 0 {
		d.MaxTermLength = cfg.maxTermLength
	}
	return d
}

func searchOptions(cfg *engineConfig) []searchuc.Option {
	var opts []searchuc.Option
	if cfg.fields != nil {
		opts = append(opts, searchuc.WithFields(cfg.fields...))
	}
	if cfg.workers > 1 {
		opts = append(opts, searchuc.WithWorkers(cfg.workers, cfg.threshold))
	}
	return opts
}

func (e *Engine) buildSource(ctx context.Context, cfg *engineConfig) (datasetuc.Source, error) {
	if cfg.csvPath != "" {
		delim := cfg.delimiter
		if delim == 0 {
			delim = csvfile.DefaultDelimiter
		}
		src, err := csvfile.New(csvfile.Config{Path: cfg.csvPath, Delimiter: delim, Encoding: cfg.encoding})
		if err != nil {
			return nil, fmt.Errorf("opsearch: %w", err)
		}
		return src, nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    []string{cfg.redisAddr},
		Password: cfg.redisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("opsearch: create redis store: %w", err)
	}
	e.closers = append(e.closers, store.Close)

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		return nil, fmt.Errorf("opsearch: redis not ready: %w", err)
	}
	return redishash.New(store, cfg.keyPattern, 0), nil
}

// Close releases the worker pool and any Redis connection.
func (e *Engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

// Search ranks every record against term. Invalid parameters return an
// error matching ErrInvalidQuery and one of the specific sentinels.
func (e *Engine) Search(ctx context.Context, term string, opts ...SearchOption) (res *Result, err error) {
	start := time.Now()
	defer func() { e.obs.observe("search", start, err, "term_len", utf8.RuneCountInString(term)) }()

	var p searchParams
	for _, o := range opts {
		o(&p)
	}

	q, err := e.defaults.New(term, p.limit, p.minRel)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out, err := e.search.Execute(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	e.obs.observeMatches(out.Total())
	return toResult(&out), nil
}

// Reload reads the dataset source again and swaps the snapshot atomically.
// On failure the previous snapshot keeps serving.
func (e *Engine) Reload(ctx context.Context) (rep ReloadReport, err error) {
	start := time.Now()
	defer func() { e.obs.observe("reload", start, err) }()

	if e.dataset == nil {
		return ReloadReport{}, fmt.Errorf("reload: %w", ErrReloadNotSupported)
	}

	r, err := e.dataset.Load(ctx)
	if err != nil {
		return ReloadReport{}, fmt.Errorf("reload: %w", err)
	}
	return ReloadReport{
		Source:   r.Source,
		Records:  r.Records,
		Version:  r.Version,
		Duration: r.Duration,
	}, nil
}

// Get returns the record whose id field equals id.
func (e *Engine) Get(id string) (map[string]string, error) {
	rec, ok := e.records.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	return rec.Fields(), nil
}

// Len returns the number of loaded records.
func (e *Engine) Len() int { return e.records.Len() }

// Ping reports ErrDatasetNotLoaded until a dataset has been loaded.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.records.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Score returns the token-set similarity of two strings in [0, 1].
func Score(query, candidate string) float64 {
	return similarity.TokenSet(query, candidate)
}

func toResult(r *result.Result) *Result {
	matches := make([]Match, 0, r.Total())
	for _, m := range r.Matches() {
		matches = append(matches, Match{Fields: m.Record().Fields(), Relevance: m.Relevance()})
	}
	return &Result{
		Matches:      matches,
		Total:        r.Total(),
		Term:         r.Term(),
		Limit:        r.Limit(),
		MinRelevance: r.MinRelevance(),
	}
}
