// Package redishash loads operator records stored as Redis hashes, one hash
// per record, and writes them back for seeding.
package redishash

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/opsearch/internal/db"
	domrec "github.com/kailas-cloud/opsearch/internal/domain/record"
)

const (
	// DefaultPattern matches the keys written by Save with the default prefix.
	DefaultPattern = "operadora:*"
	// DefaultBatchSize bounds the number of HGETALL/HSET commands per round-trip.
	DefaultBatchSize = 500
)

type hashStore interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
}

// Source reads every hash matching a key pattern.
type Source struct {
	store     hashStore
	pattern   string
	batchSize int
}

// New creates a hash source. Empty pattern and non-positive batch size fall back to defaults.
func New(store hashStore, pattern string, batchSize int) *Source {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Source{store: store, pattern: pattern, batchSize: batchSize}
}

// Name identifies the source in logs and snapshots.
func (s *Source) Name() string { return "redis:" + s.pattern }

// Load returns the records ordered by key, so repeated loads of unchanged
// data produce the same order. Hashes deleted between SCAN and HGETALL are skipped.
func (s *Source) Load(ctx context.Context) ([]domrec.Record, error) {
	keys, err := s.store.Scan(ctx, s.pattern)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.pattern, err)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	records := make([]domrec.Record, 0, len(keys))
	for lo := 0; lo < len(keys); lo += s.batchSize {
		batch := keys[lo:min(lo+s.batchSize, len(keys))]
		hashes, err := s.store.HGetAllMulti(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("fetch hashes: %w", err)
		}
		for _, h := range hashes {
			if len(h) == 0 {
				continue
			}
			records = append(records, domrec.New(h))
		}
	}
	return records, nil
}

// Save writes records as hashes keyed by the pattern prefix plus the value
// of idField. Records without an identifier are skipped. It returns the
// number of hashes written.
func (s *Source) Save(ctx context.Context, records []domrec.Record, idField string) (int, error) {
	prefix := strings.TrimSuffix(s.pattern, "*")
	if strings.ContainsAny(prefix, "*?[") {
		return 0, fmt.Errorf("pattern %q has no plain key prefix", s.pattern)
	}

	items := make([]db.HashSetItem, 0, s.batchSize)
	written := 0
	flush := func() error {
		if len(items) == 0 {
			return nil
		}
		if err := s.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("store hashes: %w", err)
		}
		written += len(items)
		items = items[:0]
		return nil
	}

	for _, r := range records {
		id := r.Value(idField)
		if id == "" || r.Len() == 0 {
			continue
		}
		items = append(items, db.HashSetItem{Key: prefix + id, Fields: r.Fields()})
		if len(items) == s.batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}
