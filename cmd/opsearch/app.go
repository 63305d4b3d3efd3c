package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/opsearch/internal/config"
	dbRedis "github.com/kailas-cloud/opsearch/internal/db/redis"
	"github.com/kailas-cloud/opsearch/internal/domain/search/query"
	"github.com/kailas-cloud/opsearch/internal/domain/search/result"
	"github.com/kailas-cloud/opsearch/internal/metrics"
	reporec "github.com/kailas-cloud/opsearch/internal/repository/record"
	"github.com/kailas-cloud/opsearch/internal/repository/resultcache"
	"github.com/kailas-cloud/opsearch/internal/repository/source/csvfile"
	"github.com/kailas-cloud/opsearch/internal/repository/source/redishash"
	datasetuc "github.com/kailas-cloud/opsearch/internal/usecase/dataset"
	healthuc "github.com/kailas-cloud/opsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/opsearch/internal/usecase/search"
)

// executor runs validated queries; the search service or its cache decorator.
type executor interface {
	Execute(ctx context.Context, q query.Query) (result.Result, error)
}

// app is the composition root shared by serve and search.
type app struct {
	cfg      config.Config
	redis    *dbRedis.Store
	records  *reporec.Store
	dataset  *datasetuc.Service
	search   *searchuc.Service
	executor executor
	health   *healthuc.Service
	defaults query.Defaults
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		records: reporec.New(cfg.Dataset.IDField),
		defaults: query.Defaults{
			Limit:         cfg.Search.DefaultLimit,
			MinRelevance:  *cfg.Search.DefaultMinRelevance,
			MaxLimit:      cfg.Search.MaxLimit,
			MaxTermLength: cfg.Search.MaxTermLength,
		},
	}

	if cfg.UsesRedis() {
		store, err := connectRedis(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.redis = store
	}

	source, err := a.buildSource()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.dataset = datasetuc.New(source, a.records, logger)

	a.search, err = searchuc.New(a.records,
		searchuc.WithFields(cfg.Search.Fields...),
		searchuc.WithWorkers(cfg.Search.Workers, cfg.Search.ParallelThreshold),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create search service: %w", err)
	}
	a.executor = a.search

	// Pass a nil interface, not a typed nil pointer, when the cache is off.
	var cachePinger healthuc.Pinger
	if cfg.Cache.Enabled {
		a.executor = resultcache.New(a.search, a.records, a.redis,
			time.Duration(cfg.Cache.TTLSec)*time.Second, metrics.SearchCacheTotal, logger)
		cachePinger = a.redis
	}
	a.health = healthuc.New(a.records, cachePinger)

	return a, nil
}

func (a *app) buildSource() (datasetuc.Source, error) {
	switch a.cfg.Dataset.Source {
	case config.SourceRedis:
		return redishash.New(a.redis, a.cfg.Dataset.KeyPattern, 0), nil
	default:
		src, err := csvfile.New(csvfile.Config{
			Path:      a.cfg.Dataset.Path,
			Delimiter: a.cfg.DelimiterRune(),
			Encoding:  a.cfg.Dataset.Encoding,
		})
		if err != nil {
			return nil, fmt.Errorf("create csv source: %w", err)
		}
		return src, nil
	}
}

// Close releases the worker pool and the Redis connection.
func (a *app) Close() {
	if a.search != nil {
		a.search.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

func connectRedis(ctx context.Context, cfg config.Config, logger *zap.Logger) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("redis not ready: %w", err)
	}
	logger.Info("Connected to Redis", zap.Strings("addrs", cfg.Redis.Addrs))
	return store, nil
}
