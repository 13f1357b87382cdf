package domain

import "time"

// RequestStatus represents the current status of a seat request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusDeclined RequestStatus = "declined"
	RequestStatusExpired  RequestStatus = "expired"
)

// RequestTTLBeforeDeparture is how long before departure a pending request
// expires.
const RequestTTLBeforeDeparture = 24 * time.Hour

// Request is a passenger's ask for driver approval. It does not consume
// seat inventory until it is accepted; acceptance materializes a Booking
// and records its ID in BookingID.
type Request struct {
	ID          string
	RideID      string
	PassengerID string
	DriverID    string

	SeatsRequested int
	Message        string
	RideInfo       RideSnapshot

	Status         RequestStatus
	DriverResponse string
	RespondedAt    time.Time
	ExpiresAt      time.Time

	ViewedByDriver bool
	ViewedAt       time.Time

	BookingID string
	CreatedAt time.Time
}

// TotalPrice is the price the passenger would pay if accepted.
func (r *Request) TotalPrice() float64 {
	return r.RideInfo.PricePerSeat * float64(r.SeatsRequested)
}
