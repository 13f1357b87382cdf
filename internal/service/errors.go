package service

import "errors"

var (
	// ErrInvalidDriverID is returned when the driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidPassengerID is returned when the passenger ID is empty.
	ErrInvalidPassengerID = errors.New("invalid passenger id")

	// ErrInvalidRideID is returned when the ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidRequestID is returned when the request ID is empty.
	ErrInvalidRequestID = errors.New("invalid request id")

	// ErrInvalidBookingID is returned when the booking ID is empty.
	ErrInvalidBookingID = errors.New("invalid booking id")

	// ErrInvalidUserID is returned when the user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidUserName is returned when the user name is blank.
	ErrInvalidUserName = errors.New("invalid user name")

	// ErrInvalidEmail is returned when the email is blank or malformed.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrEmailTaken is returned when registering with an email that is
	// already in use.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidOrigin is returned when origin coordinates are out of range.
	ErrInvalidOrigin = errors.New("invalid origin location")

	// ErrInvalidDestination is returned when destination coordinates are out of range.
	ErrInvalidDestination = errors.New("invalid destination location")

	// ErrInvalidRouteLabel is returned when an origin or destination label is missing.
	ErrInvalidRouteLabel = errors.New("origin and destination labels are required")

	// ErrInvalidSchedule is returned when the date or time string cannot be parsed.
	ErrInvalidSchedule = errors.New("invalid date or time format")

	// ErrDepartureInPast is returned when a ride's departure is not strictly in the future.
	ErrDepartureInPast = errors.New("departure must be in the future")

	// ErrInvalidSeatCount is returned when a seat count is out of range.
	ErrInvalidSeatCount = errors.New("invalid seat count")

	// ErrInvalidPrice is returned when price per seat is negative.
	ErrInvalidPrice = errors.New("price per seat must not be negative")

	// ErrNotADriver is returned when a user without a driver profile publishes a ride.
	ErrNotADriver = errors.New("user has no driver profile")

	// ErrInsufficientSeats is returned when the ride has fewer available
	// seats than asked for. Retryable: seats may free up.
	ErrInsufficientSeats = errors.New("not enough seats available")

	// ErrRideNotUpcoming is returned when reserving against a ride that is
	// no longer upcoming.
	ErrRideNotUpcoming = errors.New("ride is not upcoming")

	// ErrRideAlreadyFinal is returned when transitioning a ride out of a
	// terminal status.
	ErrRideAlreadyFinal = errors.New("ride already completed or cancelled")

	// ErrRideNotDeparted is returned when completing before departure.
	ErrRideNotDeparted = errors.New("ride has not departed yet")

	// ErrDuplicateReservation is returned when the passenger already holds
	// an active request or booking on the ride.
	ErrDuplicateReservation = errors.New("passenger already has an active request or booking on this ride")

	// ErrOwnRide is returned when a driver requests or books their own ride.
	ErrOwnRide = errors.New("cannot reserve seats on your own ride")

	// ErrRequestNotPending is returned when resolving a request that has
	// already been resolved or removed. Terminal: the request will never
	// become pending again.
	ErrRequestNotPending = errors.New("request is not pending")

	// ErrRequestExpired is returned when acting on a request past its
	// expiry deadline.
	ErrRequestExpired = errors.New("request has expired")

	// ErrBookingNotActive is returned when cancelling a booking that is
	// already cancelled, rejected or completed.
	ErrBookingNotActive = errors.New("booking is not active")

	// ErrBookingNotPending is returned on confirm/reject of a non-pending booking.
	ErrBookingNotPending = errors.New("booking is not pending")

	// ErrBookingNotConfirmed is returned on completing a non-confirmed booking.
	ErrBookingNotConfirmed = errors.New("booking is not confirmed")

	// ErrBookingNotRatable is returned when rating a booking that is
	// neither confirmed nor completed.
	ErrBookingNotRatable = errors.New("booking cannot be rated in its current state")

	// ErrAlreadyRated is returned when a rating direction has already been used.
	ErrAlreadyRated = errors.New("already rated for this booking")

	// ErrSelfRating is returned when rater and ratee are the same user.
	ErrSelfRating = errors.New("cannot rate yourself")

	// ErrInvalidRating is returned when a rating is outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrNotRideDriver is returned when the actor is not the ride's driver.
	ErrNotRideDriver = errors.New("actor is not the driver of this ride")

	// ErrNotRequestPassenger is returned when the actor is not the
	// request's passenger.
	ErrNotRequestPassenger = errors.New("actor is not the passenger of this request")

	// ErrNotBookingParty is returned when the actor is neither the
	// booking's passenger nor its driver.
	ErrNotBookingParty = errors.New("actor is not a party to this booking")

	// ErrRideBusy is returned when the per-ride reservation lock is held
	// by another operation. Retryable.
	ErrRideBusy = errors.New("ride is busy, try again")
)
