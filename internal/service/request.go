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

// RequestService owns the request negotiation flow: passengers ask, drivers
// accept or decline, and an expiry sweep retires requests nobody answered.
// Acceptance is the only path from a request to seat inventory.
type RequestService struct {
	tx          TxManager
	requestRepo repository.RequestRepository
	rideRepo    repository.RideRepository
	bookingRepo repository.BookingRepository
	lockStore   redis.LockStoreInterface
	cacheStore  redis.CacheStoreInterface
	notifier    *NotificationService
}

// NewRequestService creates a new RequestService.
func NewRequestService(
	tx TxManager,
	requestRepo repository.RequestRepository,
	rideRepo repository.RideRepository,
	bookingRepo repository.BookingRepository,
	lockStore redis.LockStoreInterface,
	cacheStore redis.CacheStoreInterface,
	notifier *NotificationService,
) *RequestService {
	return &RequestService{
		tx:          tx,
		requestRepo: requestRepo,
		rideRepo:    rideRepo,
		bookingRepo: bookingRepo,
		lockStore:   lockStore,
		cacheStore:  cacheStore,
		notifier:    notifier,
	}
}

// CreateRequestRequest contains the parameters for creating a seat request.
type CreateRequestRequest struct {
	RideID      string
	PassengerID string
	Seats       int
	Message     string
}

// CreateRequest files a seat request against a ride. The request consumes
// no inventory; seats are only checked as a courtesy so obviously hopeless
// requests are rejected up front.
func (s *RequestService) CreateRequest(ctx context.Context, req CreateRequestRequest) (*domain.Request, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.PassengerID == "" {
		return nil, ErrInvalidPassengerID
	}
	if req.Seats < domain.MinSeats || req.Seats > domain.MaxSeats {
		return nil, ErrInvalidSeatCount
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusUpcoming {
		return nil, ErrRideNotUpcoming
	}
	if ride.DriverID == req.PassengerID {
		return nil, ErrOwnRide
	}
	if req.Seats > ride.AvailableSeats {
		return nil, ErrInsufficientSeats
	}

	// The ride lock spans both duplicate checks and the insert, so a
	// request cannot slip in beside a concurrent direct booking by the
	// same passenger.
	release, err := lockRide(ctx, s.lockStore, req.RideID)
	if err != nil {
		return nil, err
	}
	defer release()

	hasRequest, err := s.requestRepo.HasActiveByPassenger(ctx, req.RideID, req.PassengerID)
	if err != nil {
		return nil, err
	}
	hasBooking, err := s.bookingRepo.HasActiveByPassenger(ctx, req.RideID, req.PassengerID)
	if err != nil {
		return nil, err
	}
	if hasRequest || hasBooking {
		return nil, ErrDuplicateReservation
	}

	request := &domain.Request{
		ID:             uuid.New().String(),
		RideID:         ride.ID,
		PassengerID:    req.PassengerID,
		DriverID:       ride.DriverID,
		SeatsRequested: req.Seats,
		Message:        req.Message,
		RideInfo:       ride.Snapshot(),
		Status:         domain.RequestStatusPending,
		ExpiresAt:      ride.Departure.Add(-domain.RequestTTLBeforeDeparture),
		CreatedAt:      time.Now(),
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateReservation
		}
		return nil, err
	}

	if s.notifier != nil {
		_ = s.notifier.NotifyRequestCreated(ctx, request)
	}

	return request, nil
}

// AcceptRequest approves a pending request, reserves its seats and
// materializes a confirmed booking. The whole flow runs in one transaction:
// when the ride no longer has the seats, the request stays pending and
// nothing is written.
func (s *RequestService) AcceptRequest(ctx context.Context, requestID, driverID, response string) (*domain.Booking, error) {
	request, err := s.authorizedRequest(ctx, requestID, driverID)
	if err != nil {
		return nil, err
	}
	if request.Status != domain.RequestStatusPending {
		return nil, ErrRequestNotPending
	}
	if time.Now().After(request.ExpiresAt) {
		return nil, ErrRequestExpired
	}

	release, err := lockRide(ctx, s.lockStore, request.RideID)
	if err != nil {
		return nil, err
	}
	defer release()

	var booking *domain.Booking
	err = s.tx.WithinTx(ctx, func(r Repos) error {
		if err := r.Requests.Resolve(ctx, requestID, domain.RequestStatusAccepted, response); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return ErrRequestNotPending
			}
			return err
		}

		if err := r.Rides.ReserveSeats(ctx, request.RideID, request.SeatsRequested); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return s.reserveFailure(ctx, r, request.RideID)
			}
			return err
		}

		booking = &domain.Booking{
			ID:            uuid.New().String(),
			RideID:        request.RideID,
			PassengerID:   request.PassengerID,
			DriverID:      request.DriverID,
			SeatsBooked:   request.SeatsRequested,
			PricePerSeat:  request.RideInfo.PricePerSeat,
			TotalPrice:    request.TotalPrice(),
			Status:        domain.BookingStatusConfirmed,
			Message:       request.Message,
			RideInfo:      request.RideInfo,
			PaymentStatus: domain.PaymentStatusPending,
			ConfirmedAt:   time.Now(),
			CreatedAt:     time.Now(),
		}
		if err := r.Bookings.Create(ctx, booking); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateReservation
			}
			return err
		}

		return r.Requests.LinkBooking(ctx, requestID, booking.ID)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, request.RideID)

	if s.notifier != nil {
		request.Status = domain.RequestStatusAccepted
		request.BookingID = booking.ID
		_ = s.notifier.NotifyRequestResolved(ctx, request, EventRequestAccepted)
	}

	return booking, nil
}

// reserveFailure maps a failed seat reservation to the reason it failed.
func (s *RequestService) reserveFailure(ctx context.Context, r Repos, rideID string) error {
	ride, err := r.Rides.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.Status != domain.RideStatusUpcoming {
		return ErrRideNotUpcoming
	}
	return ErrInsufficientSeats
}

// DeclineRequest turns down a pending request.
func (s *RequestService) DeclineRequest(ctx context.Context, requestID, driverID, response string) (*domain.Request, error) {
	request, err := s.authorizedRequest(ctx, requestID, driverID)
	if err != nil {
		return nil, err
	}
	if request.Status != domain.RequestStatusPending {
		return nil, ErrRequestNotPending
	}

	if err := s.requestRepo.Resolve(ctx, requestID, domain.RequestStatusDeclined, response); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, ErrRequestNotPending
		}
		return nil, err
	}

	request.Status = domain.RequestStatusDeclined
	request.DriverResponse = response
	request.RespondedAt = time.Now()

	if s.notifier != nil {
		_ = s.notifier.NotifyRequestResolved(ctx, request, EventRequestDeclined)
	}

	return request, nil
}

// CancelRequest withdraws a pending request. Passenger only.
func (s *RequestService) CancelRequest(ctx context.Context, requestID, passengerID string) error {
	if requestID == "" {
		return ErrInvalidRequestID
	}
	if passengerID == "" {
		return ErrInvalidPassengerID
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.PassengerID != passengerID {
		return ErrNotRequestPassenger
	}
	if request.Status != domain.RequestStatusPending {
		return ErrRequestNotPending
	}

	if err := s.requestRepo.Delete(ctx, requestID); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return ErrRequestNotPending
		}
		return err
	}

	if s.notifier != nil {
		_ = s.notifier.NotifyRequestCancelled(ctx, request)
	}

	return nil
}

// MarkViewed flags a request as seen by its driver.
func (s *RequestService) MarkViewed(ctx context.Context, requestID, driverID string) error {
	if _, err := s.authorizedRequest(ctx, requestID, driverID); err != nil {
		return err
	}
	return s.requestRepo.MarkViewed(ctx, requestID)
}

// ExpireStale retires every pending request whose deadline has passed and
// notifies the affected passengers. Returns the number of requests expired.
func (s *RequestService) ExpireStale(ctx context.Context) (int, error) {
	expired, err := s.requestRepo.ExpirePending(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	if s.notifier != nil {
		for _, req := range expired {
			_ = s.notifier.NotifyRequestExpired(ctx, req)
		}
	}

	return len(expired), nil
}

// ListDriverRequests retrieves the pending requests addressed to a driver.
func (s *RequestService) ListDriverRequests(ctx context.Context, driverID string) ([]*domain.Request, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.requestRepo.GetPendingByDriver(ctx, driverID)
}

// ListPassengerRequests retrieves all requests created by a passenger.
func (s *RequestService) ListPassengerRequests(ctx context.Context, passengerID string) ([]*domain.Request, error) {
	if passengerID == "" {
		return nil, ErrInvalidPassengerID
	}
	return s.requestRepo.GetByPassenger(ctx, passengerID)
}

// PendingCount returns the driver's pending request count, for badges.
func (s *RequestService) PendingCount(ctx context.Context, driverID string) (int, error) {
	if driverID == "" {
		return 0, ErrInvalidDriverID
	}
	return s.requestRepo.CountPendingByDriver(ctx, driverID)
}

func (s *RequestService) authorizedRequest(ctx context.Context, requestID, driverID string) (*domain.Request, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.DriverID != driverID {
		return nil, ErrNotRideDriver
	}
	return request, nil
}

func (s *RequestService) invalidate(ctx context.Context, rideID string) {
	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateRide(ctx, rideID)
	}
}
