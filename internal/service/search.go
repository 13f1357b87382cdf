package service

import (
	"context"
	"math"
	"time"

	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

const (
	// DefaultSearchRadiusMeters bounds how far a ride endpoint may sit from
	// the requested endpoint.
	DefaultSearchRadiusMeters = 1000.0

	// DefaultSearchWindow bounds how far a ride departure may sit from the
	// requested departure, on either side.
	DefaultSearchWindow = 8 * time.Hour

	earthRadiusMeters = 6371000.0
)

// SearchService matches open rides against a passenger's route and schedule.
type SearchService struct {
	rideRepo   repository.RideRepository
	indexStore redis.IndexStoreInterface
}

// NewSearchService creates a new SearchService.
func NewSearchService(rideRepo repository.RideRepository, indexStore redis.IndexStoreInterface) *SearchService {
	return &SearchService{
		rideRepo:   rideRepo,
		indexStore: indexStore,
	}
}

// SearchRequest contains the parameters for a ride search.
type SearchRequest struct {
	Origin      domain.Point
	Destination domain.Point
	Date        string
	Time        string

	// RadiusMeters and Window override the defaults when positive.
	RadiusMeters float64
	Window       time.Duration
}

// Search finds open rides whose origin and destination both fall within the
// radius of the requested endpoints and whose departure lies inside the time
// window around the requested departure. Results come back ordered by
// departure time.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) ([]*domain.Ride, error) {
	if !isValidPoint(req.Origin) {
		return nil, ErrInvalidOrigin
	}
	if !isValidPoint(req.Destination) {
		return nil, ErrInvalidDestination
	}

	departure, err := ParseDeparture(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	radius := req.RadiusMeters
	if radius <= 0 {
		radius = DefaultSearchRadiusMeters
	}
	window := req.Window
	if window <= 0 {
		window = DefaultSearchWindow
	}

	rides, err := s.rideRepo.GetOpenWithin(ctx, departure.Add(-window), departure.Add(window))
	if err != nil {
		return nil, err
	}

	// The geo index, when available, narrows the window scan to rides whose
	// endpoints are plausibly in range. The exact filter below still decides.
	var candidates map[string]bool
	if s.indexStore != nil && len(rides) > 0 {
		ids, err := s.indexStore.FindCandidates(ctx,
			req.Origin.Lon, req.Origin.Lat,
			req.Destination.Lon, req.Destination.Lat,
			radius)
		if err == nil && ids != nil {
			candidates = make(map[string]bool, len(ids))
			for _, id := range ids {
				candidates[id] = true
			}
		}
	}

	matched := make([]*domain.Ride, 0, len(rides))
	for _, ride := range rides {
		if candidates != nil && !candidates[ride.ID] {
			continue
		}
		if HaversineDistance(req.Origin, ride.FromPoint) > radius {
			continue
		}
		if HaversineDistance(req.Destination, ride.ToPoint) > radius {
			continue
		}
		matched = append(matched, ride)
	}

	return matched, nil
}

// HaversineDistance returns the great-circle distance between two points
// in meters.
func HaversineDistance(a, b domain.Point) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLon := degreesToRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}
