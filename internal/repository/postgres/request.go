package postgres

import (
	"context"
	"database/sql"
	"time"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// RequestRepository is a PostgreSQL implementation of
// repository.RequestRepository.
type RequestRepository struct {
	q Querier
}

// NewRequestRepository creates a new PostgreSQL request repository.
func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{q: db}
}

// NewRequestRepositoryWithTx creates a request repository using a transaction.
func NewRequestRepositoryWithTx(tx *sql.Tx) *RequestRepository {
	return &RequestRepository{q: tx}
}

const requestColumns = `id, ride_id, passenger_id, driver_id, seats_requested, message,
		ride_from, ride_to, ride_departure, ride_price_per_seat, ride_vehicle,
		status, driver_response, responded_at, expires_at,
		viewed_by_driver, viewed_at, booking_id, created_at`

// Create persists a new request. The partial unique index on
// (ride_id, passenger_id) WHERE status = 'pending' turns a concurrent
// duplicate into ErrDuplicate.
func (r *RequestRepository) Create(ctx context.Context, req *domain.Request) error {
	query := `
		INSERT INTO requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.q.ExecContext(ctx, query,
		req.ID,
		req.RideID,
		req.PassengerID,
		req.DriverID,
		req.SeatsRequested,
		req.Message,
		req.RideInfo.From,
		req.RideInfo.To,
		req.RideInfo.Departure,
		req.RideInfo.PricePerSeat,
		req.RideInfo.Vehicle,
		req.Status,
		nullString(req.DriverResponse),
		nullTime(req.RespondedAt),
		req.ExpiresAt,
		req.ViewedByDriver,
		nullTime(req.ViewedAt),
		nullString(req.BookingID),
		req.CreatedAt,
	)

	return translateError(err)
}

// GetByID retrieves a request by ID.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	return scanRequest(r.q.QueryRowContext(ctx, query, id))
}

// GetPendingByDriver retrieves pending requests addressed to a driver.
func (r *RequestRepository) GetPendingByDriver(ctx context.Context, driverID string) ([]*domain.Request, error) {
	query := `
		SELECT ` + requestColumns + ` FROM requests
		WHERE driver_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`
	return r.queryRequests(ctx, query, driverID)
}

// GetByPassenger retrieves all requests created by a passenger.
func (r *RequestRepository) GetByPassenger(ctx context.Context, passengerID string) ([]*domain.Request, error) {
	query := `
		SELECT ` + requestColumns + ` FROM requests
		WHERE passenger_id = $1
		ORDER BY created_at DESC
	`
	return r.queryRequests(ctx, query, passengerID)
}

// CountPendingByDriver returns the number of pending requests for a driver.
func (r *RequestRepository) CountPendingByDriver(ctx context.Context, driverID string) (int, error) {
	query := `SELECT COUNT(*) FROM requests WHERE driver_id = $1 AND status = 'pending'`
	var count int
	err := r.q.QueryRowContext(ctx, query, driverID).Scan(&count)
	return count, err
}

// HasActiveByPassenger reports whether the passenger has a pending or
// accepted request on the ride.
func (r *RequestRepository) HasActiveByPassenger(ctx context.Context, rideID, passengerID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM requests
			WHERE ride_id = $1 AND passenger_id = $2 AND status IN ('pending', 'accepted')
		)
	`
	var exists bool
	err := r.q.QueryRowContext(ctx, query, rideID, passengerID).Scan(&exists)
	return exists, err
}

// Resolve transitions a pending request to a terminal status. The guard on
// the pending state makes competing accept/decline/expire calls settle
// first-wins.
func (r *RequestRepository) Resolve(ctx context.Context, id string, status domain.RequestStatus, driverResponse string) error {
	query := `
		UPDATE requests
		SET status = $2, driver_response = $3, responded_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	return requireRows(r.q.ExecContext(ctx, query, id, status, nullString(driverResponse)))
}

// LinkBooking records the booking materialized from an accepted request.
func (r *RequestRepository) LinkBooking(ctx context.Context, id, bookingID string) error {
	query := `UPDATE requests SET booking_id = $2 WHERE id = $1`
	return requireRows(r.q.ExecContext(ctx, query, id, bookingID))
}

// MarkViewed flags a request as seen by the driver.
func (r *RequestRepository) MarkViewed(ctx context.Context, id string) error {
	query := `
		UPDATE requests
		SET viewed_by_driver = TRUE, viewed_at = NOW()
		WHERE id = $1 AND viewed_by_driver = FALSE
	`
	_, err := r.q.ExecContext(ctx, query, id)
	return translateError(err)
}

// Delete removes a pending request (passenger cancellation). Resolved
// requests are history and stay put.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM requests WHERE id = $1 AND status = 'pending'`
	return requireRows(r.q.ExecContext(ctx, query, id))
}

// ExpirePending transitions stale pending requests to expired and returns
// them so the caller can emit events.
func (r *RequestRepository) ExpirePending(ctx context.Context, now time.Time) ([]*domain.Request, error) {
	query := `
		UPDATE requests
		SET status = 'expired'
		WHERE status = 'pending' AND expires_at < $1
		RETURNING ` + requestColumns + `
	`
	return r.queryRequests(ctx, query, now)
}

func (r *RequestRepository) queryRequests(ctx context.Context, query string, args ...any) ([]*domain.Request, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(row rowScanner) (*domain.Request, error) {
	var req domain.Request
	var driverResponse, bookingID sql.NullString
	var respondedAt, viewedAt sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.RideID,
		&req.PassengerID,
		&req.DriverID,
		&req.SeatsRequested,
		&req.Message,
		&req.RideInfo.From,
		&req.RideInfo.To,
		&req.RideInfo.Departure,
		&req.RideInfo.PricePerSeat,
		&req.RideInfo.Vehicle,
		&req.Status,
		&driverResponse,
		&respondedAt,
		&req.ExpiresAt,
		&req.ViewedByDriver,
		&viewedAt,
		&bookingID,
		&req.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	if driverResponse.Valid {
		req.DriverResponse = driverResponse.String
	}
	if bookingID.Valid {
		req.BookingID = bookingID.String
	}
	if respondedAt.Valid {
		req.RespondedAt = respondedAt.Time
	}
	if viewedAt.Valid {
		req.ViewedAt = viewedAt.Time
	}

	return &req, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

var _ repository.RequestRepository = (*RequestRepository)(nil)
