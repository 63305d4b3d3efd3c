package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/opsearch/internal/config"
	logpkg "github.com/kailas-cloud/opsearch/internal/logger"
	"github.com/kailas-cloud/opsearch/internal/metrics"
	chiTransport "github.com/kailas-cloud/opsearch/internal/transport/chi"
	"github.com/kailas-cloud/opsearch/internal/version"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, cfg, err := flags.resolve()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if port > 0 {
				cfg.HTTP.Port = port
			}
			return runServe(cmd.Context(), env, cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port, overrides http.port")
	return cmd
}

func runServe(parent context.Context, env string, cfg config.Config) error {
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting opsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("dataset_source", cfg.Dataset.Source),
		zap.Bool("cache", cfg.Cache.Enabled),
	)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.RegisterSearchMetrics()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// Refuse to serve an empty index; a broken initial load is a deploy error.
	if _, err := a.dataset.Load(ctx); err != nil {
		return fmt.Errorf("initial dataset load: %w", err)
	}

	if cfg.Dataset.Watch && cfg.Dataset.Source == config.SourceCSV {
		go func() {
			debounce := time.Duration(cfg.Dataset.WatchDebounceMS) * time.Millisecond
			if err := a.dataset.Watch(ctx, cfg.Dataset.Path, debounce); err != nil {
				logger.Error("Dataset watcher stopped", zap.Error(err))
			}
		}()
	}

	server := chiTransport.NewServer(
		a.executor, a.records, a.dataset, a.health, a.defaults,
		chiTransport.Pagination{DefaultLimit: cfg.HTTP.DefaultPageSize, MaxLimit: cfg.HTTP.MaxPageSize},
		logger,
	)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:        cfg.Auth.APIKeys,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
