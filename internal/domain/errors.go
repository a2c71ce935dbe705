package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when a (store, query) pair is not cached
	ErrCacheMiss = errors.New("cache miss")

	// ErrScraperFailure is returned when a store search fails; it is always
	// recovered locally and never surfaced as a request-level failure
	ErrScraperFailure = errors.New("store search failed")

	// ErrComparisonNotFound is returned when an override references an
	// unknown comparison id
	ErrComparisonNotFound = errors.New("comparison not found")

	// ErrUnknownItem is returned when an override references an item that is
	// not part of the comparison
	ErrUnknownItem = errors.New("item not part of comparison")

	// ErrUnknownStore is returned when a store id is not configured or not
	// part of the comparison
	ErrUnknownStore = errors.New("unknown store")

	// ErrUnknownProduct is returned when an override product is neither the
	// current selection nor one of the listed alternatives
	ErrUnknownProduct = errors.New("product not available for this match")

	// ErrNoStores is returned when no store can be evaluated at all
	ErrNoStores = errors.New("no stores configured")

	// ErrInvariantViolation indicates a core-logic bug (counts that fail to
	// reconcile, corrupted state); it is fatal and must not be swallowed
	ErrInvariantViolation = errors.New("internal invariant violation")
)
