package record

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/opsearch/internal/domain"
	domrec "github.com/kailas-cloud/opsearch/internal/domain/record"
)

// Snapshot is an immutable, fully loaded record collection.
type Snapshot struct {
	records  []domrec.Record
	byID     map[string]int
	version  uint64
	loadedAt time.Time
	source   string
}

// Records returns the records in load order. Callers must not modify the slice.
func (s *Snapshot) Records() []domrec.Record { return s.records }

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.records) }

// Version returns the snapshot sequence number (1 for the first load).
func (s *Snapshot) Version() uint64 { return s.version }

// LoadedAt returns when the snapshot was installed.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Source returns the name of the source the records came from.
func (s *Snapshot) Source() string { return s.source }

// Store holds the current snapshot. Reads are lock-free; Swap installs a new
// snapshot atomically and never mutates the previous one.
type Store struct {
	idField string
	current atomic.Pointer[Snapshot]
	seq     atomic.Uint64
}

// New creates an empty store. idField names the field used by Lookup; it may be empty.
func New(idField string) *Store {
	return &Store{idField: idField}
}

// Swap installs records as the current snapshot and returns it.
// The slice is copied; the first record wins on duplicate identifiers.
func (s *Store) Swap(records []domrec.Record, source string) *Snapshot {
	snap := &Snapshot{
		records:  slices.Clone(records),
		byID:     make(map[string]int, len(records)),
		version:  s.seq.Add(1),
		loadedAt: time.Now(),
		source:   source,
	}
	if snap.records == nil {
		snap.records = []domrec.Record{}
	}
	if s.idField != "" {
		for i, r := range snap.records {
			id := r.Value(s.idField)
			if id == "" {
				continue
			}
			if _, dup := snap.byID[id]; !dup {
				snap.byID[id] = i
			}
		}
	}
	s.current.Store(snap)
	return snap
}

// Snapshot returns the current snapshot, or nil before the first Swap.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// AllRecords returns every record of the current snapshot in stable order.
func (s *Store) AllRecords() []domrec.Record {
	snap := s.current.Load()
	if snap == nil {
		return nil
	}
	return snap.records
}

// Version returns the current snapshot version, 0 before the first Swap.
func (s *Store) Version() uint64 {
	snap := s.current.Load()
	if snap == nil {
		return 0
	}
	return snap.version
}

// Len returns the number of records currently loaded.
func (s *Store) Len() int {
	snap := s.current.Load()
	if snap == nil {
		return 0
	}
	return snap.Len()
}

// Lookup returns the record whose identifier field equals id.
func (s *Store) Lookup(id string) (domrec.Record, bool) {
	snap := s.current.Load()
	if snap == nil {
		return domrec.Record{}, false
	}
	i, ok := snap.byID[id]
	if !ok {
		return domrec.Record{}, false
	}
	return snap.records[i], true
}

// Page returns records [offset, offset+limit) and the total count.
// The page has no spare capacity, so appending to it never touches the snapshot.
func (s *Store) Page(offset, limit int) ([]domrec.Record, int) {
	snap := s.current.Load()
	if snap == nil {
		return []domrec.Record{}, 0
	}
	total := snap.Len()
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit >= 0 && offset+limit < total {
		end = offset + limit
	}
	return slices.Clip(snap.records[offset:end]), total
}

// Ping reports whether a snapshot is loaded.
func (s *Store) Ping(_ context.Context) error {
	if s.current.Load() == nil {
		return domain.ErrDatasetNotLoaded
	}
	return nil
}
