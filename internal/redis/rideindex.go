package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Geo index keys for ride endpoints. Two separate indexes because a search
// constrains origin and destination independently.
const (
	rideOriginKey      = "rides:origins"
	rideDestinationKey = "rides:destinations"
)

// IndexStore maintains a geospatial index of ride endpoints used to
// prefilter search candidates before the exact great-circle check.
type IndexStore struct {
	client *redis.Client
}

// NewIndexStore creates a new IndexStore.
func NewIndexStore(client *redis.Client) *IndexStore {
	return &IndexStore{client: client}
}

// AddRide indexes both endpoints of a ride using GEOADD.
func (s *IndexStore) AddRide(ctx context.Context, rideID string, fromLon, fromLat, toLon, toLat float64) error {
	if err := s.client.GeoAdd(ctx, rideOriginKey, &redis.GeoLocation{
		Name:      rideID,
		Longitude: fromLon,
		Latitude:  fromLat,
	}).Err(); err != nil {
		return err
	}

	return s.client.GeoAdd(ctx, rideDestinationKey, &redis.GeoLocation{
		Name:      rideID,
		Longitude: toLon,
		Latitude:  toLat,
	}).Err()
}

// FindCandidates returns ride IDs whose origin lies within radiusMeters of
// the query origin AND whose destination lies within radiusMeters of the
// query destination.
func (s *IndexStore) FindCandidates(ctx context.Context, fromLon, fromLat, toLon, toLat, radiusMeters float64) ([]string, error) {
	nearOrigin, err := s.geoRadius(ctx, rideOriginKey, fromLon, fromLat, radiusMeters)
	if err != nil {
		return nil, err
	}
	if len(nearOrigin) == 0 {
		return nil, nil
	}

	nearDestination, err := s.geoRadius(ctx, rideDestinationKey, toLon, toLat, radiusMeters)
	if err != nil {
		return nil, err
	}

	destSet := make(map[string]struct{}, len(nearDestination))
	for _, id := range nearDestination {
		destSet[id] = struct{}{}
	}

	var candidates []string
	for _, id := range nearOrigin {
		if _, ok := destSet[id]; ok {
			candidates = append(candidates, id)
		}
	}
	return candidates, nil
}

// RemoveRide drops a ride from both indexes, e.g. on cancellation.
func (s *IndexStore) RemoveRide(ctx context.Context, rideID string) error {
	if err := s.client.ZRem(ctx, rideOriginKey, rideID).Err(); err != nil {
		return err
	}
	return s.client.ZRem(ctx, rideDestinationKey, rideID).Err()
}

func (s *IndexStore) geoRadius(ctx context.Context, key string, lon, lat, radiusMeters float64) ([]string, error) {
	results, err := s.client.GeoRadius(ctx, key, lon, lat, &redis.GeoRadiusQuery{
		Radius: radiusMeters,
		Unit:   "m",
		Sort:   "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Name)
	}
	return ids, nil
}
