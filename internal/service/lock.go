package service

import (
	"context"
	"log"
	"time"

	"carpool/internal/redis"
)

// rideLockTTL bounds how long the per-ride reservation lock can outlive a
// crashed holder.
const rideLockTTL = 10 * time.Second

// lockRide serializes reservation writes on one ride, including the
// cross-table duplicate checks that precede them. Returns ErrRideBusy when
// the lock is held. An unreachable lock store is logged and the caller
// proceeds without the lock; the conditional updates still hold the hard
// invariants. The returned release func is always safe to call.
func lockRide(ctx context.Context, store redis.LockStoreInterface, rideID string) (func(), error) {
	if store == nil {
		return func() {}, nil
	}

	acquired, err := store.AcquireRideLock(ctx, rideID, rideLockTTL)
	if err != nil {
		log.Printf("WARN: ride lock unavailable for ride %s: %v", rideID, err)
		return func() {}, nil
	}
	if !acquired {
		return nil, ErrRideBusy
	}

	return func() {
		if err := store.ReleaseRideLock(ctx, rideID); err != nil {
			log.Printf("WARN: failed to release ride lock for ride %s: %v", rideID, err)
		}
	}, nil
}
