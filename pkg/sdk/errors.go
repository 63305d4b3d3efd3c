package opsearch

import "github.com/kailas-cloud/opsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery        = domain.ErrInvalidQuery
	ErrEmptyTerm           = domain.ErrEmptyTerm
	ErrTermTooLong         = domain.ErrTermTooLong
	ErrLimitOutOfRange     = domain.ErrLimitOutOfRange
	ErrRelevanceOutOfRange = domain.ErrRelevanceOutOfRange
	ErrNotFound            = domain.ErrNotFound
	ErrDatasetNotLoaded    = domain.ErrDatasetNotLoaded
	ErrReloadNotSupported  = domain.ErrReloadNotSupported
)
