package search

import domrec "github.com/kailas-cloud/opsearch/internal/domain/record"

// RecordReader exposes the full record collection in stable order.
type RecordReader interface {
	AllRecords() []domrec.Record
}
