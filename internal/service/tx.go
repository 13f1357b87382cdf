package service

import (
	"context"

	"carpool/internal/repository"
)

// Repos bundles the transaction-scoped repositories handed to a unit of
// work.
type Repos struct {
	Rides    repository.RideRepository
	Requests repository.RequestRepository
	Bookings repository.BookingRepository
	Users    repository.UserRepository
}

// TxManager runs a unit of work atomically: if fn returns an error, none of
// the writes it performed are retained.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
