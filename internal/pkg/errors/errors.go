package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCacheMiss marks an absent or unavailable cache entry. It never
	// escapes the tiered cache as a failure; callers fall through to the
	// next tier.
	ErrCacheMiss = errors.New("cache miss")
)
