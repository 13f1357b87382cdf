package postgres

import (
	"context"
	"database/sql"
	"time"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `id, driver_id, from_label, to_label, from_lon, from_lat, to_lon, to_lat,
		departure, total_seats, available_seats, price_per_seat, earnings,
		vehicle, notes, status, cancel_reason, cancelled_by, cancelled_at, created_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	var cancelledAt sql.NullTime
	if !ride.CancelledAt.IsZero() {
		cancelledAt = sql.NullTime{Time: ride.CancelledAt, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.DriverID,
		ride.From,
		ride.To,
		ride.FromPoint.Lon,
		ride.FromPoint.Lat,
		ride.ToPoint.Lon,
		ride.ToPoint.Lat,
		ride.Departure,
		ride.TotalSeats,
		ride.AvailableSeats,
		ride.PricePerSeat,
		ride.Earnings,
		ride.Vehicle,
		ride.Notes,
		ride.Status,
		nullString(ride.CancelReason),
		nullString(ride.CancelledBy),
		cancelledAt,
		ride.CreatedAt,
	)

	return translateError(err)
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return scanRide(r.q.QueryRowContext(ctx, query, id))
}

// GetByDriver retrieves all rides published by a driver, newest first.
func (r *RideRepository) GetByDriver(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 ORDER BY departure DESC`
	return r.queryRides(ctx, query, driverID)
}

// GetOpen retrieves upcoming rides with at least one available seat.
func (r *RideRepository) GetOpen(ctx context.Context) ([]*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + ` FROM rides
		WHERE status = 'upcoming' AND available_seats > 0
		ORDER BY departure ASC, id ASC
	`
	return r.queryRides(ctx, query)
}

// GetOpenWithin retrieves upcoming rides with available seats departing in
// [from, to], ordered by departure then ID for deterministic results.
func (r *RideRepository) GetOpenWithin(ctx context.Context, from, to time.Time) ([]*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + ` FROM rides
		WHERE status = 'upcoming' AND available_seats > 0
		  AND departure >= $1 AND departure <= $2
		ORDER BY departure ASC, id ASC
	`
	return r.queryRides(ctx, query, from, to)
}

// ReserveSeats decrements the seat counter and accrues earnings in a single
// guarded update; concurrent reservations against the same ride serialize
// on the row.
func (r *RideRepository) ReserveSeats(ctx context.Context, id string, n int) error {
	query := `
		UPDATE rides
		SET available_seats = available_seats - $2,
		    earnings = earnings + $2 * price_per_seat
		WHERE id = $1 AND status = 'upcoming' AND available_seats >= $2
	`
	return requireRows(r.q.ExecContext(ctx, query, id, n))
}

// ReleaseSeats returns seats to the pool, capped at the ride total, and
// deducts the matching earnings, floored at zero.
func (r *RideRepository) ReleaseSeats(ctx context.Context, id string, n int) error {
	query := `
		UPDATE rides
		SET available_seats = LEAST(available_seats + $2, total_seats),
		    earnings = GREATEST(earnings - $2 * price_per_seat, 0)
		WHERE id = $1
	`
	return requireRows(r.q.ExecContext(ctx, query, id, n))
}

// MarkStatus transitions the ride status unless it is already terminal.
func (r *RideRepository) MarkStatus(ctx context.Context, id string, status domain.RideStatus, reason, by string) error {
	query := `
		UPDATE rides
		SET status = $2,
		    cancel_reason = $3,
		    cancelled_by = $4,
		    cancelled_at = CASE WHEN $2 = 'cancelled' THEN NOW() ELSE cancelled_at END
		WHERE id = $1 AND status NOT IN ('completed', 'cancelled')
	`
	return requireRows(r.q.ExecContext(ctx, query, id, status, nullString(reason), nullString(by)))
}

func (r *RideRepository) queryRides(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var cancelReason, cancelledBy sql.NullString
	var cancelledAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.DriverID,
		&ride.From,
		&ride.To,
		&ride.FromPoint.Lon,
		&ride.FromPoint.Lat,
		&ride.ToPoint.Lon,
		&ride.ToPoint.Lat,
		&ride.Departure,
		&ride.TotalSeats,
		&ride.AvailableSeats,
		&ride.PricePerSeat,
		&ride.Earnings,
		&ride.Vehicle,
		&ride.Notes,
		&ride.Status,
		&cancelReason,
		&cancelledBy,
		&cancelledAt,
		&ride.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	if cancelReason.Valid {
		ride.CancelReason = cancelReason.String
	}
	if cancelledBy.Valid {
		ride.CancelledBy = cancelledBy.String
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}

	return &ride, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ repository.RideRepository = (*RideRepository)(nil)
