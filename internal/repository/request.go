package repository

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// RequestRepository defines the persistence operations for seat requests.
// Status transitions are conditional updates guarded on the pending state
// so a race between accept, decline and the expiry sweep has exactly one
// winner.
type RequestRepository interface {
	// Create persists a new request. Returns ErrDuplicate when the
	// passenger already has a pending request on the ride.
	Create(ctx context.Context, req *domain.Request) error

	// GetByID retrieves a request by ID.
	GetByID(ctx context.Context, id string) (*domain.Request, error)

	// GetPendingByDriver retrieves pending requests addressed to a driver,
	// newest first.
	GetPendingByDriver(ctx context.Context, driverID string) ([]*domain.Request, error)

	// GetByPassenger retrieves all requests created by a passenger, newest
	// first.
	GetByPassenger(ctx context.Context, passengerID string) ([]*domain.Request, error)

	// CountPendingByDriver returns the number of pending requests for a
	// driver.
	CountPendingByDriver(ctx context.Context, driverID string) (int, error)

	// HasActiveByPassenger reports whether the passenger has a pending or
	// accepted request on the ride.
	HasActiveByPassenger(ctx context.Context, rideID, passengerID string) (bool, error)

	// Resolve transitions a pending request to a terminal status and
	// records the driver's response. Returns ErrNoRowsAffected when the
	// request was no longer pending.
	Resolve(ctx context.Context, id string, status domain.RequestStatus, driverResponse string) error

	// LinkBooking records the booking materialized from an accepted
	// request.
	LinkBooking(ctx context.Context, id, bookingID string) error

	// MarkViewed flags a request as seen by the driver. Idempotent.
	MarkViewed(ctx context.Context, id string) error

	// Delete removes a pending request (passenger cancellation). Returns
	// ErrNoRowsAffected when the request was not pending.
	Delete(ctx context.Context, id string) error

	// ExpirePending transitions every pending request whose deadline has
	// passed to expired and returns the affected requests.
	ExpirePending(ctx context.Context, now time.Time) ([]*domain.Request, error)
}
