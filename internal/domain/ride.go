package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusUpcoming   RideStatus = "upcoming"
	RideStatusInProgress RideStatus = "in-progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
)

// IsTerminal reports whether the status allows no further transitions.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// Point is a WGS84 coordinate pair.
type Point struct {
	Lon float64
	Lat float64
}

// Seat capacity bounds for a published ride.
const (
	MinSeats = 1
	MaxSeats = 8
)

// Ride is a driver-published trip with a fixed seat inventory.
// AvailableSeats and Earnings are mutated only through the repository's
// conditional reserve/release operations; TotalSeats is immutable after
// creation.
type Ride struct {
	ID       string
	DriverID string

	From           string
	To             string
	FromPoint      Point
	ToPoint        Point
	Departure      time.Time
	TotalSeats     int
	AvailableSeats int
	PricePerSeat   float64
	Earnings       float64

	Vehicle string
	Notes   string

	Status       RideStatus
	CancelReason string
	CancelledBy  string
	CancelledAt  time.Time
	CreatedAt    time.Time
}

// SeatsCommitted returns the seats currently held by active reservations.
func (r *Ride) SeatsCommitted() int {
	return r.TotalSeats - r.AvailableSeats
}

// RideSnapshot is the ride information cached on requests and bookings so
// history stays readable after the ride itself changes.
type RideSnapshot struct {
	From         string
	To           string
	Departure    time.Time
	PricePerSeat float64
	Vehicle      string
}

// Snapshot captures the cacheable ride fields.
func (r *Ride) Snapshot() RideSnapshot {
	return RideSnapshot{
		From:         r.From,
		To:           r.To,
		Departure:    r.Departure,
		PricePerSeat: r.PricePerSeat,
		Vehicle:      r.Vehicle,
	}
}
