package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrFetchFailed     = errors.New("platform fetch failed")
	ErrMalformedRecord = errors.New("malformed market record")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRateLimited     = errors.New("rate limited")
	ErrCycleInFlight   = errors.New("aggregation cycle already in flight")
	ErrLockHeld        = errors.New("lock already held")
	ErrContextDone     = errors.New("context cancelled")
)
