package repository

import (
	"context"

	"carpool/internal/domain"
)

// RatingDirection selects which side of a booking's mutual rating is being
// written.
type RatingDirection string

const (
	RatingByPassenger RatingDirection = "passenger"
	RatingByDriver    RatingDirection = "driver"
)

// BookingRecord captures a booking state transition.
type BookingRecord struct {
	Status       domain.BookingStatus
	CancelReason string
	CancelledBy  domain.CancelledBy
}

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking. Returns ErrDuplicate when the
	// passenger already has an active booking on the ride.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetByPassenger retrieves all bookings made by a passenger, newest
	// first.
	GetByPassenger(ctx context.Context, passengerID string) ([]*domain.Booking, error)

	// GetByRide retrieves all bookings on a ride, newest first.
	GetByRide(ctx context.Context, rideID string) ([]*domain.Booking, error)

	// HasActiveByPassenger reports whether the passenger has a pending or
	// confirmed booking on the ride.
	HasActiveByPassenger(ctx context.Context, rideID, passengerID string) (bool, error)

	// Transition moves a booking from one of the allowed source statuses
	// to the target status recorded in rec, as a single conditional
	// update. Returns ErrNoRowsAffected when the booking was in none of
	// the source statuses; that guarantee is what makes seat release
	// exactly-once.
	Transition(ctx context.Context, id string, from []domain.BookingStatus, rec BookingRecord) error

	// SetRating flips the one-shot rating flag for the given direction and
	// stores the value and review. Returns ErrNoRowsAffected when that
	// direction was already rated.
	SetRating(ctx context.Context, id string, dir RatingDirection, rating int, review string) error
}
