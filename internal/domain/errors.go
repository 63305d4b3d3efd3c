package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals a search query rejected before scanning.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmptyTerm signals a missing or blank search term.
	ErrEmptyTerm = errors.New("search term is required")
	// ErrTermTooLong signals a search term above the accepted length.
	ErrTermTooLong = errors.New("search term too long")
	// ErrLimitOutOfRange signals a non-positive or oversized result limit.
	ErrLimitOutOfRange = errors.New("limit out of range")
	// ErrRelevanceOutOfRange signals a min relevance outside [0, 1].
	ErrRelevanceOutOfRange = errors.New("min relevance out of range")

	// ErrNotFound signals a missing record.
	ErrNotFound = errors.New("not found")
	// ErrDatasetNotLoaded signals that no record snapshot is available yet.
	ErrDatasetNotLoaded = errors.New("dataset not loaded")
	// ErrReloadNotSupported signals a dataset without a source to reload from.
	ErrReloadNotSupported = errors.New("reload not supported by source")
)

// InvalidQuery wraps a specific validation sentinel so that both
// errors.Is(err, ErrInvalidQuery) and errors.Is(err, sentinel) hold.
func InvalidQuery(sentinel error, detail string) error {
	if detail == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, sentinel)
	}
	return fmt.Errorf("%w: %w: %s", ErrInvalidQuery, sentinel, detail)
}
