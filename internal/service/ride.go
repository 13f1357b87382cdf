package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// RideService owns the ride inventory: publication, status transitions and
// the read path. Seat counters are only ever touched through the
// repository's conditional reserve/release operations.
type RideService struct {
	tx          TxManager
	rideRepo    repository.RideRepository
	bookingRepo repository.BookingRepository
	userRepo    repository.UserRepository
	cacheStore  redis.CacheStoreInterface
	indexStore  redis.IndexStoreInterface
	notifier    *NotificationService
}

// NewRideService creates a new RideService.
func NewRideService(
	tx TxManager,
	rideRepo repository.RideRepository,
	bookingRepo repository.BookingRepository,
	userRepo repository.UserRepository,
	cacheStore redis.CacheStoreInterface,
	indexStore redis.IndexStoreInterface,
	notifier *NotificationService,
) *RideService {
	return &RideService{
		tx:          tx,
		rideRepo:    rideRepo,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		cacheStore:  cacheStore,
		indexStore:  indexStore,
		notifier:    notifier,
	}
}

// CreateRideRequest contains the parameters for publishing a ride.
type CreateRideRequest struct {
	DriverID     string
	From         string
	To           string
	FromPoint    domain.Point
	ToPoint      domain.Point
	Date         string
	Time         string
	TotalSeats   int
	PricePerSeat float64
	Notes        string
}

// CreateRide publishes a new ride with a full seat inventory.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if req.From == "" || req.To == "" {
		return nil, ErrInvalidRouteLabel
	}
	if !isValidPoint(req.FromPoint) {
		return nil, ErrInvalidOrigin
	}
	if !isValidPoint(req.ToPoint) {
		return nil, ErrInvalidDestination
	}
	if req.TotalSeats < domain.MinSeats || req.TotalSeats > domain.MaxSeats {
		return nil, ErrInvalidSeatCount
	}
	if req.PricePerSeat < 0 {
		return nil, ErrInvalidPrice
	}

	departure, err := ParseDeparture(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	if !departure.After(time.Now()) {
		return nil, ErrDepartureInPast
	}

	driver, err := s.userRepo.GetByID(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if !driver.IsDriver() {
		return nil, ErrNotADriver
	}

	ride := &domain.Ride{
		ID:             uuid.New().String(),
		DriverID:       req.DriverID,
		From:           req.From,
		To:             req.To,
		FromPoint:      req.FromPoint,
		ToPoint:        req.ToPoint,
		Departure:      departure,
		TotalSeats:     req.TotalSeats,
		AvailableSeats: req.TotalSeats,
		PricePerSeat:   req.PricePerSeat,
		Vehicle:        driver.Driver.Vehicle(),
		Notes:          req.Notes,
		Status:         domain.RideStatusUpcoming,
		CreatedAt:      time.Now(),
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	if s.indexStore != nil {
		_ = s.indexStore.AddRide(ctx, ride.ID,
			ride.FromPoint.Lon, ride.FromPoint.Lat,
			ride.ToPoint.Lon, ride.ToPoint.Lat)
	}

	return ride, nil
}

// GetRide retrieves a ride by ID.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	return s.rideRepo.GetByID(ctx, rideID)
}

// RideSummary is the cached read-path projection of a ride.
type RideSummary struct {
	ID             string
	DriverID       string
	From           string
	To             string
	Departure      time.Time
	TotalSeats     int
	AvailableSeats int
	PricePerSeat   float64
	Status         domain.RideStatus
}

// GetRideSummary serves the hot read path through the ride cache.
func (s *RideService) GetRideSummary(ctx context.Context, rideID string) (*RideSummary, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetRide(ctx, rideID)
		if err == nil && cached != nil {
			if departure, perr := time.Parse(time.RFC3339, cached.Departure); perr == nil {
				return &RideSummary{
					ID:             cached.ID,
					DriverID:       cached.DriverID,
					From:           cached.From,
					To:             cached.To,
					Departure:      departure,
					TotalSeats:     cached.TotalSeats,
					AvailableSeats: cached.AvailableSeats,
					PricePerSeat:   cached.PricePerSeat,
					Status:         domain.RideStatus(cached.Status),
				}, nil
			}
		}
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetRide(ctx, &redis.CachedRide{
			ID:             ride.ID,
			DriverID:       ride.DriverID,
			From:           ride.From,
			To:             ride.To,
			Departure:      ride.Departure.Format(time.RFC3339),
			TotalSeats:     ride.TotalSeats,
			AvailableSeats: ride.AvailableSeats,
			PricePerSeat:   ride.PricePerSeat,
			Status:         string(ride.Status),
		})
	}

	return &RideSummary{
		ID:             ride.ID,
		DriverID:       ride.DriverID,
		From:           ride.From,
		To:             ride.To,
		Departure:      ride.Departure,
		TotalSeats:     ride.TotalSeats,
		AvailableSeats: ride.AvailableSeats,
		PricePerSeat:   ride.PricePerSeat,
		Status:         ride.Status,
	}, nil
}

// ListDriverRides retrieves all rides published by a driver.
func (s *RideService) ListDriverRides(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.rideRepo.GetByDriver(ctx, driverID)
}

// ListOpenRides retrieves all upcoming rides with free seats.
func (s *RideService) ListOpenRides(ctx context.Context) ([]*domain.Ride, error) {
	return s.rideRepo.GetOpen(ctx)
}

// StartRide moves an upcoming ride to in-progress. Driver only.
func (s *RideService) StartRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	ride, err := s.authorizedRide(ctx, rideID, driverID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusUpcoming {
		return nil, ErrRideNotUpcoming
	}

	if err := s.rideRepo.MarkStatus(ctx, rideID, domain.RideStatusInProgress, "", ""); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, ErrRideAlreadyFinal
		}
		return nil, err
	}

	s.invalidate(ctx, rideID)
	ride.Status = domain.RideStatusInProgress
	return ride, nil
}

// CompleteRide moves a ride to completed once its departure has passed.
// Seats stay consumed; earnings are final.
func (s *RideService) CompleteRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	ride, err := s.authorizedRide(ctx, rideID, driverID)
	if err != nil {
		return nil, err
	}
	if time.Now().Before(ride.Departure) {
		return nil, ErrRideNotDeparted
	}

	if err := s.rideRepo.MarkStatus(ctx, rideID, domain.RideStatusCompleted, "", ""); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, ErrRideAlreadyFinal
		}
		return nil, err
	}

	s.invalidate(ctx, rideID)
	ride.Status = domain.RideStatusCompleted
	return ride, nil
}

// CancelRideRequest contains the parameters for cancelling a ride.
type CancelRideRequest struct {
	RideID   string
	DriverID string
	Reason   string
}

// CancelRide cancels a ride and, in the same unit of work, cancels every
// active booking on it and returns the committed seats, so the inventory
// invariant holds on the cancelled ride too.
func (s *RideService) CancelRide(ctx context.Context, req CancelRideRequest) (*domain.Ride, error) {
	ride, err := s.authorizedRide(ctx, req.RideID, req.DriverID)
	if err != nil {
		return nil, err
	}

	var affected []*domain.Booking
	err = s.tx.WithinTx(ctx, func(r Repos) error {
		if err := r.Rides.MarkStatus(ctx, req.RideID, domain.RideStatusCancelled, req.Reason, req.DriverID); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return ErrRideAlreadyFinal
			}
			return err
		}

		bookings, err := r.Bookings.GetByRide(ctx, req.RideID)
		if err != nil {
			return err
		}

		for _, b := range bookings {
			if !b.Status.IsActive() {
				continue
			}
			rec := repository.BookingRecord{
				Status:       domain.BookingStatusCancelled,
				CancelReason: "ride cancelled by driver",
				CancelledBy:  domain.CancelledBySystem,
			}
			if err := r.Bookings.Transition(ctx, b.ID, []domain.BookingStatus{b.Status}, rec); err != nil {
				return err
			}
			if err := r.Rides.ReleaseSeats(ctx, req.RideID, b.SeatsBooked); err != nil {
				return err
			}
			affected = append(affected, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, req.RideID)
	if s.indexStore != nil {
		_ = s.indexStore.RemoveRide(ctx, req.RideID)
	}

	ride.Status = domain.RideStatusCancelled
	ride.CancelReason = req.Reason
	ride.CancelledBy = req.DriverID
	ride.CancelledAt = time.Now()

	if s.notifier != nil {
		passengerIDs := make([]string, 0, len(affected))
		for _, b := range affected {
			passengerIDs = append(passengerIDs, b.PassengerID)
		}
		_ = s.notifier.NotifyRideCancelled(ctx, ride, passengerIDs)
	}

	return ride, nil
}

func (s *RideService) authorizedRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != driverID {
		return nil, ErrNotRideDriver
	}
	return ride, nil
}

func (s *RideService) invalidate(ctx context.Context, rideID string) {
	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateRide(ctx, rideID)
	}
}

func isValidPoint(p domain.Point) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}
