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

// BookingService owns the booking lifecycle: direct booking, cancellation,
// rejection, completion and mutual rating. Every transition that returns
// seats does so in the same transaction as the status change, and the
// conditional transition guarantees each booking releases at most once.
type BookingService struct {
	tx          TxManager
	bookingRepo repository.BookingRepository
	rideRepo    repository.RideRepository
	userRepo    repository.UserRepository
	requestRepo repository.RequestRepository
	lockStore   redis.LockStoreInterface
	cacheStore  redis.CacheStoreInterface
	notifier    *NotificationService
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	tx TxManager,
	bookingRepo repository.BookingRepository,
	rideRepo repository.RideRepository,
	userRepo repository.UserRepository,
	requestRepo repository.RequestRepository,
	lockStore redis.LockStoreInterface,
	cacheStore redis.CacheStoreInterface,
	notifier *NotificationService,
) *BookingService {
	return &BookingService{
		tx:          tx,
		bookingRepo: bookingRepo,
		rideRepo:    rideRepo,
		userRepo:    userRepo,
		requestRepo: requestRepo,
		lockStore:   lockStore,
		cacheStore:  cacheStore,
		notifier:    notifier,
	}
}

// CreateBookingRequest contains the parameters for a direct booking.
type CreateBookingRequest struct {
	RideID      string
	PassengerID string
	Seats       int
	Message     string
	PickupPoint string
	DropPoint   string
}

// CreateBooking books seats directly, without driver approval. Reservation
// and booking creation run in one transaction; when the conditional seat
// update finds too few seats, nothing is written.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
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

	// The ride lock spans the cross-table duplicate check and the insert,
	// so a direct booking cannot slip in beside a concurrent seat request
	// by the same passenger.
	release, err := lockRide(ctx, s.lockStore, req.RideID)
	if err != nil {
		return nil, err
	}
	defer release()

	hasRequest, err := s.requestRepo.HasActiveByPassenger(ctx, req.RideID, req.PassengerID)
	if err != nil {
		return nil, err
	}
	if hasRequest {
		return nil, ErrDuplicateReservation
	}

	var booking *domain.Booking
	err = s.tx.WithinTx(ctx, func(r Repos) error {
		if err := r.Rides.ReserveSeats(ctx, req.RideID, req.Seats); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				ride, gerr := r.Rides.GetByID(ctx, req.RideID)
				if gerr != nil {
					return gerr
				}
				if ride.Status != domain.RideStatusUpcoming {
					return ErrRideNotUpcoming
				}
				return ErrInsufficientSeats
			}
			return err
		}

		booking = &domain.Booking{
			ID:            uuid.New().String(),
			RideID:        ride.ID,
			PassengerID:   req.PassengerID,
			DriverID:      ride.DriverID,
			SeatsBooked:   req.Seats,
			PricePerSeat:  ride.PricePerSeat,
			TotalPrice:    ride.PricePerSeat * float64(req.Seats),
			Status:        domain.BookingStatusConfirmed,
			Message:       req.Message,
			RideInfo:      ride.Snapshot(),
			PickupPoint:   req.PickupPoint,
			DropPoint:     req.DropPoint,
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
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, req.RideID)

	if s.notifier != nil {
		_ = s.notifier.NotifyBookingCreated(ctx, booking)
	}

	return booking, nil
}

// GetBooking retrieves a booking visible to one of its parties.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	return s.partyBooking(ctx, bookingID, userID)
}

// ConfirmBooking moves a pending booking to confirmed. Driver only. Seats
// are already held, so confirmation touches no inventory.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	booking, err := s.partyBooking(ctx, bookingID, driverID)
	if err != nil {
		return nil, err
	}
	if booking.DriverID != driverID {
		return nil, ErrNotRideDriver
	}
	if booking.Status != domain.BookingStatusPending {
		return nil, ErrBookingNotPending
	}

	rec := repository.BookingRecord{Status: domain.BookingStatusConfirmed}
	if err := s.bookingRepo.Transition(ctx, bookingID, []domain.BookingStatus{domain.BookingStatusPending}, rec); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, ErrBookingNotPending
		}
		return nil, err
	}

	booking.Status = domain.BookingStatusConfirmed
	booking.ConfirmedAt = time.Now()
	return booking, nil
}

// RejectBooking turns down a pending booking and returns its seats.
// Driver only.
func (s *BookingService) RejectBooking(ctx context.Context, bookingID, driverID, reason string) (*domain.Booking, error) {
	booking, err := s.partyBooking(ctx, bookingID, driverID)
	if err != nil {
		return nil, err
	}
	if booking.DriverID != driverID {
		return nil, ErrNotRideDriver
	}
	if booking.Status != domain.BookingStatusPending {
		return nil, ErrBookingNotPending
	}

	err = s.tx.WithinTx(ctx, func(r Repos) error {
		rec := repository.BookingRecord{
			Status:       domain.BookingStatusRejected,
			CancelReason: reason,
			CancelledBy:  domain.CancelledByDriver,
		}
		if err := r.Bookings.Transition(ctx, bookingID, []domain.BookingStatus{domain.BookingStatusPending}, rec); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return ErrBookingNotPending
			}
			return err
		}
		return r.Rides.ReleaseSeats(ctx, booking.RideID, booking.SeatsBooked)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, booking.RideID)

	booking.Status = domain.BookingStatusRejected
	booking.CancelReason = reason
	booking.CancelledBy = domain.CancelledByDriver

	if s.notifier != nil {
		_ = s.notifier.NotifyBookingEnded(ctx, booking, EventBookingRejected, driverID)
	}

	return booking, nil
}

// CancelBooking cancels an active booking and returns its seats. Either
// party may cancel; the transition is conditional, so a second cancel of
// the same booking fails and releases nothing.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID, reason string) (*domain.Booking, error) {
	booking, err := s.partyBooking(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	if !booking.Status.IsActive() {
		return nil, ErrBookingNotActive
	}

	cancelledBy := domain.CancelledByPassenger
	if userID == booking.DriverID {
		cancelledBy = domain.CancelledByDriver
	}

	err = s.tx.WithinTx(ctx, func(r Repos) error {
		rec := repository.BookingRecord{
			Status:       domain.BookingStatusCancelled,
			CancelReason: reason,
			CancelledBy:  cancelledBy,
		}
		from := []domain.BookingStatus{domain.BookingStatusPending, domain.BookingStatusConfirmed}
		if err := r.Bookings.Transition(ctx, bookingID, from, rec); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return ErrBookingNotActive
			}
			return err
		}
		return r.Rides.ReleaseSeats(ctx, booking.RideID, booking.SeatsBooked)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, booking.RideID)

	booking.Status = domain.BookingStatusCancelled
	booking.CancelReason = reason
	booking.CancelledBy = cancelledBy
	booking.CancelledAt = time.Now()

	if s.notifier != nil {
		_ = s.notifier.NotifyBookingEnded(ctx, booking, EventBookingCancelled, userID)
	}

	return booking, nil
}

// CompleteBooking moves a confirmed booking to completed once the ride's
// departure has passed. Seats stay consumed.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	booking, err := s.partyBooking(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return nil, ErrBookingNotConfirmed
	}
	if time.Now().Before(booking.RideInfo.Departure) {
		return nil, ErrRideNotDeparted
	}

	rec := repository.BookingRecord{Status: domain.BookingStatusCompleted}
	if err := s.bookingRepo.Transition(ctx, bookingID, []domain.BookingStatus{domain.BookingStatusConfirmed}, rec); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, ErrBookingNotConfirmed
		}
		return nil, err
	}

	booking.Status = domain.BookingStatusCompleted
	booking.CompletedAt = time.Now()

	if s.notifier != nil {
		_ = s.notifier.NotifyBookingEnded(ctx, booking, EventBookingCompleted, userID)
	}

	return booking, nil
}

// RateBookingRequest contains the parameters for rating a booking party.
type RateBookingRequest struct {
	BookingID string
	RaterID   string
	Rating    int
	Review    string
}

// RateBooking records a one-shot rating between the booking's parties and
// folds it into the ratee's running average. The direction follows from
// who is rating: the passenger rates the driver and vice versa.
func (s *BookingService) RateBooking(ctx context.Context, req RateBookingRequest) (*domain.Booking, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}

	booking, err := s.partyBooking(ctx, req.BookingID, req.RaterID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusConfirmed && booking.Status != domain.BookingStatusCompleted {
		return nil, ErrBookingNotRatable
	}

	dir := repository.RatingByPassenger
	rateeID := booking.DriverID
	if req.RaterID == booking.DriverID {
		dir = repository.RatingByDriver
		rateeID = booking.PassengerID
	}
	if rateeID == req.RaterID {
		return nil, ErrSelfRating
	}

	err = s.tx.WithinTx(ctx, func(r Repos) error {
		if err := r.Bookings.SetRating(ctx, req.BookingID, dir, req.Rating, req.Review); err != nil {
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return ErrAlreadyRated
			}
			return err
		}
		return r.Users.ApplyRating(ctx, rateeID, req.Rating)
	})
	if err != nil {
		return nil, err
	}

	if dir == repository.RatingByPassenger {
		booking.Ratings.PassengerRatedDriver = true
		booking.Ratings.PassengerRating = req.Rating
		booking.Ratings.PassengerReview = req.Review
	} else {
		booking.Ratings.DriverRatedPassenger = true
		booking.Ratings.DriverRating = req.Rating
		booking.Ratings.DriverReview = req.Review
	}

	return booking, nil
}

// ListPassengerBookings retrieves all bookings made by a passenger.
func (s *BookingService) ListPassengerBookings(ctx context.Context, passengerID string) ([]*domain.Booking, error) {
	if passengerID == "" {
		return nil, ErrInvalidPassengerID
	}
	return s.bookingRepo.GetByPassenger(ctx, passengerID)
}

// ListRideBookings retrieves the bookings on a ride. Driver only.
func (s *BookingService) ListRideBookings(ctx context.Context, rideID, driverID string) ([]*domain.Booking, error) {
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

	return s.bookingRepo.GetByRide(ctx, rideID)
}

func (s *BookingService) partyBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if userID == "" {
		return nil, ErrInvalidPassengerID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PassengerID != userID && booking.DriverID != userID {
		return nil, ErrNotBookingParty
	}
	return booking, nil
}

func (s *BookingService) invalidate(ctx context.Context, rideID string) {
	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateRide(ctx, rideID)
	}
}
