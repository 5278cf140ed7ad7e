package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidOrder  = errors.New("invalid order parameters")
	ErrSigningFailed = errors.New("signing failed")
	ErrWSDisconnect  = errors.New("websocket disconnected")
	ErrContextDone   = errors.New("context cancelled")
	ErrLockHeld      = errors.New("lock already held")

	// ErrStaleEvent is returned (and counted) when a market event's timestamp
	// is older than the router's staleness bound.
	ErrStaleEvent = errors.New("stale event")
	// ErrUnknownStrategy is returned when an allocation references a strategy
	// family that is not present in the registry.
	ErrUnknownStrategy = errors.New("unknown strategy family")
	// ErrPortfolioPaused is returned by the signal pipeline when the global
	// kill-switch is engaged.
	ErrPortfolioPaused = errors.New("portfolio paused")
	// ErrNoPrice is returned when a price lookup misses the cache.
	ErrNoPrice = errors.New("no price available")
)
