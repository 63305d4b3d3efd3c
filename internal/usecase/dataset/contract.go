package dataset

import (
	"context"

	domrec "github.com/kailas-cloud/opsearch/internal/domain/record"
	reporec "github.com/kailas-cloud/opsearch/internal/repository/record"
)

// Source produces a complete record collection.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]domrec.Record, error)
}

// Store installs a new snapshot atomically.
type Store interface {
	Swap(records []domrec.Record, source string) *reporec.Snapshot
}
