package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles ride summary caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// RideCacheTTL is short because the seat counter changes with every
// reservation; stale entries are also invalidated explicitly.
const RideCacheTTL = 10 * time.Second

const rideCachePrefix = "cache:ride:"

// CachedRide is the read-path projection of a ride.
type CachedRide struct {
	ID             string  `json:"id"`
	DriverID       string  `json:"driver_id"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	Departure      string  `json:"departure"`
	TotalSeats     int     `json:"total_seats"`
	AvailableSeats int     `json:"available_seats"`
	PricePerSeat   float64 `json:"price_per_seat"`
	Status         string  `json:"status"`
}

// GetRide retrieves a ride from cache. A cache miss returns (nil, nil).
func (s *CacheStore) GetRide(ctx context.Context, rideID string) (*CachedRide, error) {
	key := rideCachePrefix + rideID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var ride CachedRide
	if err := json.Unmarshal(data, &ride); err != nil {
		return nil, err
	}
	return &ride, nil
}

// SetRide stores a ride in cache.
func (s *CacheStore) SetRide(ctx context.Context, ride *CachedRide) error {
	key := rideCachePrefix + ride.ID
	data, err := json.Marshal(ride)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, RideCacheTTL).Err()
}

// InvalidateRide removes a ride from cache. Called after every seat or
// status mutation.
func (s *CacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	key := rideCachePrefix + rideID
	return s.client.Del(ctx, key).Err()
}
