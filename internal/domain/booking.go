package domain

import "time"

// BookingStatus represents the current status of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusRejected  BookingStatus = "rejected"
)

// IsActive reports whether the booking currently holds seats.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// PaymentStatus is recorded on a booking for external reconciliation.
// The engine never processes payments.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// CancelledBy identifies which party cancelled a booking.
type CancelledBy string

const (
	CancelledByPassenger CancelledBy = "passenger"
	CancelledByDriver    CancelledBy = "driver"
	CancelledBySystem    CancelledBy = "system"
)

// BookingRatings holds the one-shot mutual rating flags for a booking.
// Each direction is settable exactly once.
type BookingRatings struct {
	PassengerRatedDriver bool
	DriverRatedPassenger bool
	PassengerRating      int
	DriverRating         int
	PassengerReview      string
	DriverReview         string
}

// Booking is a seat commitment against a ride's inventory. Direct bookings
// and bookings materialized from accepted requests both start confirmed;
// pending is reserved for a future payment-confirmation step.
type Booking struct {
	ID          string
	RideID      string
	PassengerID string
	DriverID    string

	SeatsBooked  int
	PricePerSeat float64
	TotalPrice   float64

	Status      BookingStatus
	Message     string
	RideInfo    RideSnapshot
	PickupPoint string
	DropPoint   string

	PaymentStatus PaymentStatus
	Ratings       BookingRatings

	CancelReason string
	CancelledBy  CancelledBy
	CancelledAt  time.Time
	ConfirmedAt  time.Time
	CompletedAt  time.Time
	CreatedAt    time.Time
}
