package repository

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// RideRepository defines the persistence operations for rides. Seat
// counters are mutated only through ReserveSeats and ReleaseSeats, both of
// which must execute as single conditional updates so concurrent calls
// against the same ride serialize at the storage layer.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetByDriver retrieves all rides published by a driver, newest first.
	GetByDriver(ctx context.Context, driverID string) ([]*domain.Ride, error)

	// GetOpen retrieves upcoming rides with at least one available seat,
	// ordered by departure.
	GetOpen(ctx context.Context) ([]*domain.Ride, error)

	// GetOpenWithin retrieves upcoming rides with available seats whose
	// departure lies in [from, to], ordered by departure then ID.
	GetOpenWithin(ctx context.Context, from, to time.Time) ([]*domain.Ride, error)

	// ReserveSeats atomically decrements available seats by n and adds
	// n*pricePerSeat to earnings, provided the ride is upcoming and has at
	// least n seats free. Returns ErrNoRowsAffected when the guard fails.
	ReserveSeats(ctx context.Context, id string, n int) error

	// ReleaseSeats atomically returns n seats to the pool (capped at the
	// ride's total) and deducts the matching earnings (floored at zero).
	ReleaseSeats(ctx context.Context, id string, n int) error

	// MarkStatus transitions the ride to a new status unless it is already
	// terminal. Returns ErrNoRowsAffected when the ride was terminal.
	MarkStatus(ctx context.Context, id string, status domain.RideStatus, reason, by string) error
}
