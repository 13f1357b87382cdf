package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of
// repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// NewBookingRepositoryWithTx creates a booking repository using a transaction.
func NewBookingRepositoryWithTx(tx *sql.Tx) *BookingRepository {
	return &BookingRepository{q: tx}
}

const bookingColumns = `id, ride_id, passenger_id, driver_id, seats_booked, price_per_seat, total_price,
		status, message, ride_from, ride_to, ride_departure, ride_price_per_seat, ride_vehicle,
		pickup_point, drop_point, payment_status,
		passenger_rated_driver, driver_rated_passenger,
		passenger_rating, driver_rating, passenger_review, driver_review,
		cancel_reason, cancelled_by, cancelled_at, confirmed_at, completed_at, created_at`

// Create persists a new booking. The partial unique index on
// (ride_id, passenger_id) WHERE status IN ('pending','confirmed') turns a
// concurrent duplicate into ErrDuplicate.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`

	_, err := r.q.ExecContext(ctx, query,
		b.ID,
		b.RideID,
		b.PassengerID,
		b.DriverID,
		b.SeatsBooked,
		b.PricePerSeat,
		b.TotalPrice,
		b.Status,
		b.Message,
		b.RideInfo.From,
		b.RideInfo.To,
		b.RideInfo.Departure,
		b.RideInfo.PricePerSeat,
		b.RideInfo.Vehicle,
		nullString(b.PickupPoint),
		nullString(b.DropPoint),
		b.PaymentStatus,
		b.Ratings.PassengerRatedDriver,
		b.Ratings.DriverRatedPassenger,
		nullInt(b.Ratings.PassengerRating),
		nullInt(b.Ratings.DriverRating),
		nullString(b.Ratings.PassengerReview),
		nullString(b.Ratings.DriverReview),
		nullString(b.CancelReason),
		nullString(string(b.CancelledBy)),
		nullTime(b.CancelledAt),
		nullTime(b.ConfirmedAt),
		nullTime(b.CompletedAt),
		b.CreatedAt,
	)

	return translateError(err)
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.q.QueryRowContext(ctx, query, id))
}

// GetByPassenger retrieves all bookings made by a passenger.
func (r *BookingRepository) GetByPassenger(ctx context.Context, passengerID string) ([]*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE passenger_id = $1
		ORDER BY created_at DESC
	`
	return r.queryBookings(ctx, query, passengerID)
}

// GetByRide retrieves all bookings on a ride.
func (r *BookingRepository) GetByRide(ctx context.Context, rideID string) ([]*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE ride_id = $1
		ORDER BY created_at DESC
	`
	return r.queryBookings(ctx, query, rideID)
}

// HasActiveByPassenger reports whether the passenger has a pending or
// confirmed booking on the ride.
func (r *BookingRepository) HasActiveByPassenger(ctx context.Context, rideID, passengerID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE ride_id = $1 AND passenger_id = $2 AND status IN ('pending', 'confirmed')
		)
	`
	var exists bool
	err := r.q.QueryRowContext(ctx, query, rideID, passengerID).Scan(&exists)
	return exists, err
}

// Transition moves a booking between statuses as one conditional update.
func (r *BookingRepository) Transition(ctx context.Context, id string, from []domain.BookingStatus, rec repository.BookingRecord) error {
	fromStatuses := make([]string, len(from))
	for i, s := range from {
		fromStatuses[i] = string(s)
	}

	query := `
		UPDATE bookings
		SET status = $2,
		    cancel_reason = COALESCE($3, cancel_reason),
		    cancelled_by = COALESCE($4, cancelled_by),
		    cancelled_at = CASE WHEN $2 IN ('cancelled', 'rejected') THEN NOW() ELSE cancelled_at END,
		    confirmed_at = CASE WHEN $2 = 'confirmed' THEN NOW() ELSE confirmed_at END,
		    completed_at = CASE WHEN $2 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $1 AND status = ANY($5)
	`
	return requireRows(r.q.ExecContext(ctx, query,
		id,
		rec.Status,
		nullString(rec.CancelReason),
		nullString(string(rec.CancelledBy)),
		pq.Array(fromStatuses),
	))
}

// SetRating flips the one-shot rating flag for one direction.
func (r *BookingRepository) SetRating(ctx context.Context, id string, dir repository.RatingDirection, rating int, review string) error {
	var query string
	switch dir {
	case repository.RatingByPassenger:
		query = `
			UPDATE bookings
			SET passenger_rated_driver = TRUE, passenger_rating = $2, passenger_review = $3
			WHERE id = $1 AND passenger_rated_driver = FALSE
		`
	case repository.RatingByDriver:
		query = `
			UPDATE bookings
			SET driver_rated_passenger = TRUE, driver_rating = $2, driver_review = $3
			WHERE id = $1 AND driver_rated_passenger = FALSE
		`
	}
	return requireRows(r.q.ExecContext(ctx, query, id, rating, nullString(review)))
}

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var pickup, drop, passengerReview, driverReview, cancelReason, cancelledBy sql.NullString
	var passengerRating, driverRating sql.NullInt64
	var cancelledAt, confirmedAt, completedAt sql.NullTime

	err := row.Scan(
		&b.ID,
		&b.RideID,
		&b.PassengerID,
		&b.DriverID,
		&b.SeatsBooked,
		&b.PricePerSeat,
		&b.TotalPrice,
		&b.Status,
		&b.Message,
		&b.RideInfo.From,
		&b.RideInfo.To,
		&b.RideInfo.Departure,
		&b.RideInfo.PricePerSeat,
		&b.RideInfo.Vehicle,
		&pickup,
		&drop,
		&b.PaymentStatus,
		&b.Ratings.PassengerRatedDriver,
		&b.Ratings.DriverRatedPassenger,
		&passengerRating,
		&driverRating,
		&passengerReview,
		&driverReview,
		&cancelReason,
		&cancelledBy,
		&cancelledAt,
		&confirmedAt,
		&completedAt,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	if pickup.Valid {
		b.PickupPoint = pickup.String
	}
	if drop.Valid {
		b.DropPoint = drop.String
	}
	if passengerRating.Valid {
		b.Ratings.PassengerRating = int(passengerRating.Int64)
	}
	if driverRating.Valid {
		b.Ratings.DriverRating = int(driverRating.Int64)
	}
	if passengerReview.Valid {
		b.Ratings.PassengerReview = passengerReview.String
	}
	if driverReview.Valid {
		b.Ratings.DriverReview = driverReview.String
	}
	if cancelReason.Valid {
		b.CancelReason = cancelReason.String
	}
	if cancelledBy.Valid {
		b.CancelledBy = domain.CancelledBy(cancelledBy.String)
	}
	if cancelledAt.Valid {
		b.CancelledAt = cancelledAt.Time
	}
	if confirmedAt.Valid {
		b.ConfirmedAt = confirmedAt.Time
	}
	if completedAt.Valid {
		b.CompletedAt = completedAt.Time
	}

	return &b, nil
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

var _ repository.BookingRepository = (*BookingRepository)(nil)
