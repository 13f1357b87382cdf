package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// ──────────────────────────────────────────────
// REQUEST CREATION
// ──────────────────────────────────────────────

func TestCreateRequest_Succeeds(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

	req, err := e.requestService.CreateRequest(context.Background(), service.CreateRequestRequest{
		RideID:      ride.ID,
		PassengerID: "passenger-1",
		Seats:       2,
		Message:     "picking up near the metro",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Status != domain.RequestStatusPending {
		t.Errorf("expected pending, got %s", req.Status)
	}
	wantExpiry := ride.Departure.Add(-domain.RequestTTLBeforeDeparture)
	if !req.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expected expiry %v, got %v", wantExpiry, req.ExpiresAt)
	}
	if req.TotalPrice() != 200 {
		t.Errorf("expected total price 200, got %v", req.TotalPrice())
	}

	// No inventory consumed yet.
	if got := e.rides.GetRide(ride.ID).AvailableSeats; got != 4 {
		t.Errorf("request must not consume seats, got %d available", got)
	}
}

func TestCreateRequest_OwnRide(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

	_, err := e.requestService.CreateRequest(context.Background(), service.CreateRequestRequest{
		RideID: ride.ID, PassengerID: "driver-1", Seats: 1,
	})
	if !errors.Is(err, service.ErrOwnRide) {
		t.Errorf("expected ErrOwnRide, got %v", err)
	}
}

func TestCreateRequest_DuplicateGuard(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

	ctx := context.Background()

	if _, err := e.requestService.CreateRequest(ctx, service.CreateRequestRequest{
		RideID: ride.ID, PassengerID: "passenger-1", Seats: 1,
	}); err != nil {
		t.Fatalf("first request: %v", err)
	}

	// Second pending request on the same ride is rejected.
	_, err := e.requestService.CreateRequest(ctx, service.CreateRequestRequest{
		RideID: ride.ID, PassengerID: "passenger-1", Seats: 2,
	})
	if !errors.Is(err, service.ErrDuplicateReservation) {
		t.Errorf("expected ErrDuplicateReservation, got %v", err)
	}

	// An active booking blocks a new request too.
	e.addPassenger("passenger-2")
	if _, err := e.bookingService.CreateBooking(ctx, service.CreateBookingRequest{
		RideID: ride.ID, PassengerID: "passenger-2", Seats: 1,
	}); err != nil {
		t.Fatalf("booking: %v", err)
	}
	_, err = e.requestService.CreateRequest(ctx, service.CreateRequestRequest{
		RideID: ride.ID, PassengerID: "passenger-2", Seats: 1,
	})
	if !errors.Is(err, service.ErrDuplicateReservation) {
		t.Errorf("expected ErrDuplicateReservation, got %v", err)
	}
}

func TestCreateRequest_MoreSeatsThanAvailable(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	ride := e.addRide("ride-1", "driver-1", 2, 100, departureIn(48*time.Hour))

	_, err := e.requestService.CreateRequest(context.Background(), service.CreateRequestRequest{
		RideID: ride.ID, PassengerID: "passenger-1", Seats: 3,
	})
	if !errors.Is(err, service.ErrInsufficientSeats) {
		t.Errorf("expected ErrInsufficientSeats, got %v", err)
	}
}

// ──────────────────────────────────────────────
// ACCEPT FLOW
// ──────────────────────────────────────────────

func TestAcceptRequest_MaterializesBooking(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))
	req := e.addPendingRequest("req-1", ride, "passenger-1", 2)

	booking, err := e.requestService.AcceptRequest(context.Background(), req.ID, "driver-1", "see you there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("expected confirmed booking, got %s", booking.Status)
	}
	if booking.TotalPrice != 200 {
		t.Errorf("expected total price 200, got %v", booking.TotalPrice)
	}

	stored := e.requests.GetRequest(req.ID)
	if stored.Status != domain.RequestStatusAccepted {
		t.Errorf("expected accepted request, got %s", stored.Status)
	}
	if stored.BookingID != booking.ID {
		t.Errorf("expected booking linked, got %q", stored.BookingID)
	}
	if got := e.rides.GetRide(ride.ID).AvailableSeats; got != 2 {
		t.Errorf("expected 2 seats left, got %d", got)
	}
}

// The published scenario: A asks for 2 of 4 seats, B books 3 directly, then
// the driver tries to accept A.
func TestAcceptRequest_CapacityLostToDirectBooking(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-a")
	e.addPassenger("passenger-b")
	e.addPassenger("passenger-c")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

	ctx := context.Background()

	reqA := e.addPendingRequest("req-a", ride, "passenger-a", 2)

	// B books 3 seats directly, leaving 1.
	if _, err := e.bookingService.CreateBooking(ctx, service.CreateBookingRequest{
		RideID: ride.ID, PassengerID: "passenger-b", Seats: 3,
	}); err != nil {
		t.Fatalf("B's booking: %v", err)
	}

	// C wants 2 of the remaining 1. Fails immediately.
	_, err := e.bookingService.CreateBooking(ctx, service.CreateBookingRequest{
		RideID: ride.ID, PassengerID: "passenger-c", Seats: 2,
	})
	if !errors.Is(err, service.ErrInsufficientSeats) {
		t.Errorf("expected ErrInsufficientSeats for C, got %v", err)
	}

	// Accepting A's request for 2 seats fails; the request stays pending so
	// the driver can decline it or wait for space.
	_, err = e.requestService.AcceptRequest(ctx, reqA.ID, "driver-1", "")
	if !errors.Is(err, service.ErrInsufficientSeats) {
		t.Errorf("expected ErrInsufficientSeats for accept, got %v", err)
	}

	stored := e.requests.GetRequest(reqA.ID)
	if stored.Status != domain.RequestStatusPending {
		t.Errorf("request must stay pending after failed accept, got %s", stored.Status)
	}
	if stored.BookingID != "" {
		t.Errorf("no booking must be linked, got %q", stored.BookingID)
	}
	if got := e.rides.GetRide(ride.ID).AvailableSeats; got != 1 {
		t.Errorf("expected 1 seat left, got %d", got)
	}
	if e.bookings.CountBookings() != 1 {
		t.Errorf("expected only B's booking, got %d", e.bookings.CountBookings())
	}
}

func TestAcceptRequest_Expired(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))
	req := e.addPendingRequest("req-1", ride, "passenger-1", 1)
	req.ExpiresAt = time.Now().Add(-time.Minute)

	_, err := e.requestService.AcceptRequest(context.Background(), req.ID, "driver-1", "")
	if !errors.Is(err, service.ErrRequestExpired) {
		t.Errorf("expected ErrRequestExpired, got %v", err)
	}
}

func TestAcceptRequest_OnlyDriver(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))
	req := e.addPendingRequest("req-1", ride, "passenger-1", 1)

	_, err := e.requestService.AcceptRequest(context.Background(), req.ID, "passenger-1", "")
	if !errors.Is(err, service.ErrNotRideDriver) {
		t.Errorf("expected ErrNotRideDriver, got %v", err)
	}
}

func TestAcceptRequest_RideLockHeld(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))
	req := e.addPendingRequest("req-1", ride, "passenger-1", 1)

	e.locks.ForceAcquireFailure = true

	_, err := e.requestService.AcceptRequest(context.Background(), req.ID, "driver-1", "")
	if !errors.Is(err, service.ErrRideBusy) {
		t.Errorf("expected ErrRideBusy, got %v", err)
	}
}

// ──────────────────────────────────────────────
// DECLINE / CANCEL / EXPIRY
// ──────────────────────────────────────────────

func TestDeclineRequest(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))
	req := e.addPendingRequest("req-1", ride, "passenger-1", 1)

	declined, err := e.requestService.DeclineRequest(context.Background(), req.ID, "driver-1", "going a different way")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if declined.Status != domain.RequestStatusDeclined {
		t.Errorf("expected declined, got %s", declined.Status)
	}
	if declined.DriverResponse != "going a different way" {
		t.Errorf("expected driver response recorded, got %q", declined.DriverResponse)
	}

	// Declining again fails; the state machine is one-way.
	_, err = e.requestService.DeclineRequest(context.Background(), req.ID, "driver-1", "")
	if !errors.Is(err, service.ErrRequestNotPending) {
		t.Errorf("expected ErrRequestNotPending, got %v", err)
	}
}

func TestCancelRequest_PassengerOnly(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))
	req := e.addPendingRequest("req-1", ride, "passenger-1", 1)

	if err := e.requestService.CancelRequest(context.Background(), req.ID, "driver-1"); !errors.Is(err, service.ErrNotRequestPassenger) {
		t.Errorf("expected ErrNotRequestPassenger, got %v", err)
	}

	if err := e.requestService.CancelRequest(context.Background(), req.ID, "passenger-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.requests.GetRequest(req.ID) != nil {
		t.Error("expected request removed")
	}
}

func TestExpireStale_SweepsPendingOnly(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	e.addPassenger("passenger-2")
	e.addPassenger("passenger-3")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

	stale := e.addPendingRequest("req-stale", ride, "passenger-1", 1)
	stale.ExpiresAt = time.Now().Add(-time.Minute)

	fresh := e.addPendingRequest("req-fresh", ride, "passenger-2", 1)

	declined := e.addPendingRequest("req-declined", ride, "passenger-3", 1)
	declined.Status = domain.RequestStatusDeclined
	declined.ExpiresAt = time.Now().Add(-time.Minute)

	count, err := e.requestService.ExpireStale(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 expired, got %d", count)
	}
	if got := e.requests.GetRequest(stale.ID).Status; got != domain.RequestStatusExpired {
		t.Errorf("expected expired, got %s", got)
	}
	if got := e.requests.GetRequest(fresh.ID).Status; got != domain.RequestStatusPending {
		t.Errorf("fresh request touched: %s", got)
	}
	if got := e.requests.GetRequest(declined.ID).Status; got != domain.RequestStatusDeclined {
		t.Errorf("declined request touched: %s", got)
	}
}

// The accept/expire race: whoever resolves the pending request first wins,
// the other sees a non-pending request and changes nothing.
func TestAcceptExpireRace_OneWinner(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))
	req := e.addPendingRequest("req-1", ride, "passenger-1", 2)

	// On the expiry boundary: the sweep sees it stale, the accept's own
	// deadline check may still pass.
	req.ExpiresAt = time.Now()

	var wg sync.WaitGroup
	var acceptErr error
	var sweepCount int

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, acceptErr = e.requestService.AcceptRequest(context.Background(), req.ID, "driver-1", "")
	}()
	go func() {
		defer wg.Done()
		sweepCount, _ = e.requestService.ExpireStale(context.Background())
	}()
	wg.Wait()

	stored := e.requests.GetRequest(req.ID)
	switch stored.Status {
	case domain.RequestStatusAccepted:
		if acceptErr != nil {
			t.Errorf("request accepted but accept returned %v", acceptErr)
		}
		if sweepCount != 0 {
			t.Errorf("request accepted but sweep also claimed %d", sweepCount)
		}
		if got := e.rides.GetRide(ride.ID).AvailableSeats; got != 2 {
			t.Errorf("expected 2 seats left after accept, got %d", got)
		}
	case domain.RequestStatusExpired:
		if acceptErr == nil {
			t.Error("request expired but accept also succeeded")
		}
		if got := e.rides.GetRide(ride.ID).AvailableSeats; got != 4 {
			t.Errorf("expired request must not hold seats, got %d", got)
		}
		if e.bookings.CountBookings() != 0 {
			t.Errorf("expired request must not create bookings, got %d", e.bookings.CountBookings())
		}
	default:
		t.Errorf("request left in unexpected status %s", stored.Status)
	}
}

func TestPendingCountAndViewed(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	e.addPassenger("passenger-2")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

	e.addPendingRequest("req-1", ride, "passenger-1", 1)
	e.addPendingRequest("req-2", ride, "passenger-2", 1)

	ctx := context.Background()

	count, err := e.requestService.PendingCount(ctx, "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 pending, got %d", count)
	}

	if err := e.requestService.MarkViewed(ctx, "req-1", "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.requests.GetRequest("req-1").ViewedByDriver {
		t.Error("expected request marked viewed")
	}

	// Idempotent.
	if err := e.requestService.MarkViewed(ctx, "req-1", "driver-1"); err != nil {
		t.Fatalf("second mark viewed: %v", err)
	}
}

// ──────────────────────────────────────────────
// CROSS-PATH DUPLICATE GUARD
// ──────────────────────────────────────────────

func TestCreateRequest_RideLockHeld(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

	e.locks.ForceAcquireFailure = true

	_, err := e.requestService.CreateRequest(context.Background(), service.CreateRequestRequest{
		RideID: ride.ID, PassengerID: "passenger-1", Seats: 1,
	})
	if !errors.Is(err, service.ErrRideBusy) {
		t.Errorf("expected ErrRideBusy, got %v", err)
	}
}

func TestRequestAndDirectBooking_NeverBothActive(t *testing.T) {
	t.Parallel()

	// A passenger racing their own seat request against a direct booking
	// on the same ride must end up with at most one active reservation,
	// whichever path wins.
	for i := 0; i < 30; i++ {
		e := newEnv()
		e.addDriver("driver-1")
		e.addPassenger("passenger-1")
		ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

		ctx := context.Background()
		var wg sync.WaitGroup
		results := make(chan error, 2)

		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := e.requestService.CreateRequest(ctx, service.CreateRequestRequest{
				RideID: ride.ID, PassengerID: "passenger-1", Seats: 1,
			})
			results <- err
		}()
		go func() {
			defer wg.Done()
			_, err := e.bookingService.CreateBooking(ctx, service.CreateBookingRequest{
				RideID: ride.ID, PassengerID: "passenger-1", Seats: 1,
			})
			results <- err
		}()
		wg.Wait()
		close(results)

		for err := range results {
			if err != nil && !errors.Is(err, service.ErrRideBusy) && !errors.Is(err, service.ErrDuplicateReservation) {
				t.Fatalf("iteration %d: unexpected error: %v", i, err)
			}
		}

		hasRequest, _ := e.requests.HasActiveByPassenger(ctx, ride.ID, "passenger-1")
		hasBooking, _ := e.bookings.HasActiveByPassenger(ctx, ride.ID, "passenger-1")
		if hasRequest && hasBooking {
			t.Fatalf("iteration %d: passenger holds both an active request and an active booking", i)
		}
	}
}

// ──────────────────────────────────────────────
// EXPIRY SWEEP VS ROLLBACK
// ──────────────────────────────────────────────

func TestExpireSweep_SurvivesRolledBackBooking(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	e.addPassenger("passenger-2")
	ride := e.addRide("ride-1", "driver-1", 1, 100, departureIn(48*time.Hour))

	request := e.addPendingRequest("req-1", ride, "passenger-1", 1)
	request.ExpiresAt = time.Now().Add(-time.Minute)

	ctx := context.Background()
	var wg sync.WaitGroup
	var sweepCount int

	// Hammer the ride with bookings that fail inside their transaction and
	// roll back, while the sweep expires the stale request. The sweep's
	// write must survive every rollback.
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, _ = e.bookingService.CreateBooking(ctx, service.CreateBookingRequest{
				RideID: ride.ID, PassengerID: "passenger-2", Seats: 2,
			})
		}
	}()
	go func() {
		defer wg.Done()
		sweepCount, _ = e.requestService.ExpireStale(ctx)
	}()
	wg.Wait()

	if sweepCount != 1 {
		t.Errorf("expected 1 expired request, got %d", sweepCount)
	}
	if got := e.requests.GetRequest("req-1").Status; got != domain.RequestStatusExpired {
		t.Errorf("expiry was lost: status %s", got)
	}
}
