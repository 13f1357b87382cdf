package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for per-ride reservation locks.
type LockStoreInterface interface {
	AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error)
	ReleaseRideLock(ctx context.Context, rideID string) error
}

// CacheStoreInterface defines the interface for ride summary caching.
type CacheStoreInterface interface {
	GetRide(ctx context.Context, rideID string) (*CachedRide, error)
	SetRide(ctx context.Context, ride *CachedRide) error
	InvalidateRide(ctx context.Context, rideID string) error
}

// IndexStoreInterface defines the interface for the ride geo index.
type IndexStoreInterface interface {
	AddRide(ctx context.Context, rideID string, fromLon, fromLat, toLon, toLat float64) error
	FindCandidates(ctx context.Context, fromLon, fromLat, toLon, toLat, radiusMeters float64) ([]string, error)
	RemoveRide(ctx context.Context, rideID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
	_ IndexStoreInterface = (*IndexStore)(nil)
)
