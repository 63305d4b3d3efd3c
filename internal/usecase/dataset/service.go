package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kailas-cloud/opsearch/internal/metrics"
)

// DefaultDebounce is the quiet period after the last file event before a reload.
const DefaultDebounce = 500 * time.Millisecond

// Report describes a completed load.
type Report struct {
	Source   string
	Records  int
	Version  uint64
	Duration time.Duration
}

// Service loads the dataset from its source into the record store.
type Service struct {
	source Source
	store  Store
	logger *zap.Logger

	mu sync.Mutex // serializes loads so versions follow load order
}

// New creates a dataset service.
func New(source Source, store Store, logger *zap.Logger) *Service {
	return &Service{source: source, store: store, logger: logger}
}

// Load reads the full source and swaps it in. On failure the active snapshot is kept.
func (s *Service) Load(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	records, err := s.source.Load(ctx)
	if err != nil {
		metrics.DatasetReloadsTotal.WithLabelValues("error").Inc()
		return Report{}, fmt.Errorf("load %s: %w", s.source.Name(), err)
	}

	snap := s.store.Swap(records, s.source.Name())
	rep := Report{
		Source:   snap.Source(),
		Records:  snap.Len(),
		Version:  snap.Version(),
		Duration: time.Since(start),
	}

	metrics.DatasetReloadsTotal.WithLabelValues("ok").Inc()
	metrics.DatasetRecords.Set(float64(rep.Records))
	metrics.DatasetLoadedTimestamp.Set(float64(snap.LoadedAt().Unix()))

	s.logger.Info("Dataset loaded",
		zap.String("source", rep.Source),
		zap.Int("records", rep.Records),
		zap.Uint64("version", rep.Version),
		zap.Duration("duration", rep.Duration),
	)
	return rep, nil
}

// Watch reloads the dataset whenever path changes, until ctx is done.
// The parent directory is watched so editors and atomic renames are seen.
func (s *Service) Watch(ctx context.Context, path string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	s.logger.Info("Watching dataset file", zap.String("path", target), zap.Duration("debounce", debounce))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, target) {
				continue
			}
			s.logger.Debug("Dataset file changed", zap.String("op", event.Op.String()))
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("File watcher error", zap.Error(err))

		case <-timer.C:
			if _, err := s.Load(ctx); err != nil {
				s.logger.Error("Dataset reload failed, keeping previous snapshot", zap.Error(err))
			}
		}
	}
}

func relevant(event fsnotify.Event, target string) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != target {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
