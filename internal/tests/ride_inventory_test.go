package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"carpool/internal/domain"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// ──────────────────────────────────────────────
// RIDE PUBLICATION
// ──────────────────────────────────────────────

func TestCreateRide_Succeeds(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")

	departure := time.Now().Add(48 * time.Hour)
	ride, err := e.rideService.CreateRide(context.Background(), service.CreateRideRequest{
		DriverID:     "driver-1",
		From:         "Koramangala",
		To:           "Whitefield",
		FromPoint:    domain.Point{Lat: 12.9352, Lon: 77.6245},
		ToPoint:      domain.Point{Lat: 12.9698, Lon: 77.7500},
		Date:         departure.Format("2006-01-02"),
		Time:         departure.Format("15:04"),
		TotalSeats:   4,
		PricePerSeat: 150,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.AvailableSeats != ride.TotalSeats {
		t.Errorf("expected full seat pool, got %d/%d", ride.AvailableSeats, ride.TotalSeats)
	}
	if ride.Status != domain.RideStatusUpcoming {
		t.Errorf("expected status upcoming, got %s", ride.Status)
	}
	if ride.Vehicle == "" {
		t.Error("expected vehicle from driver profile")
	}
	if !e.index.HasRide(ride.ID) {
		t.Error("expected ride in geo index")
	}
}

func TestCreateRide_Validation(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")

	future := time.Now().Add(48 * time.Hour)
	valid := service.CreateRideRequest{
		DriverID:     "driver-1",
		From:         "A",
		To:           "B",
		FromPoint:    domain.Point{Lat: 12.9, Lon: 77.6},
		ToPoint:      domain.Point{Lat: 13.0, Lon: 77.7},
		Date:         future.Format("2006-01-02"),
		Time:         future.Format("15:04"),
		TotalSeats:   4,
		PricePerSeat: 100,
	}

	tests := []struct {
		name    string
		mutate  func(r *service.CreateRideRequest)
		wantErr error
	}{
		{"zero seats", func(r *service.CreateRideRequest) { r.TotalSeats = 0 }, service.ErrInvalidSeatCount},
		{"nine seats", func(r *service.CreateRideRequest) { r.TotalSeats = 9 }, service.ErrInvalidSeatCount},
		{"negative price", func(r *service.CreateRideRequest) { r.PricePerSeat = -1 }, service.ErrInvalidPrice},
		{"bad latitude", func(r *service.CreateRideRequest) { r.FromPoint.Lat = 91 }, service.ErrInvalidOrigin},
		{"bad longitude", func(r *service.CreateRideRequest) { r.ToPoint.Lon = -181 }, service.ErrInvalidDestination},
		{"missing label", func(r *service.CreateRideRequest) { r.From = "" }, service.ErrInvalidRouteLabel},
		{"past departure", func(r *service.CreateRideRequest) {
			past := time.Now().Add(-time.Hour)
			r.Date = past.Format("2006-01-02")
			r.Time = past.Format("15:04")
		}, service.ErrDepartureInPast},
		{"garbage schedule", func(r *service.CreateRideRequest) { r.Date = "not-a-date" }, service.ErrInvalidSchedule},
		{"not a driver", func(r *service.CreateRideRequest) { r.DriverID = "passenger-1" }, service.ErrNotADriver},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := valid
			tt.mutate(&req)
			_, err := e.rideService.CreateRide(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// ──────────────────────────────────────────────
// SEAT COUNTER INVARIANTS
// ──────────────────────────────────────────────

func TestReserveSeats_ExactBoundary(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	ride := e.addRide("ride-1", "driver-1", 3, 100, departureIn(48*time.Hour))

	ctx := context.Background()

	// Reserving exactly the remaining seats succeeds.
	if err := e.rides.ReserveSeats(ctx, ride.ID, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.rides.GetRide(ride.ID).AvailableSeats; got != 0 {
		t.Errorf("expected 0 available seats, got %d", got)
	}

	// One more seat must fail; the counter never goes negative.
	err := e.rides.ReserveSeats(ctx, ride.ID, 1)
	if !errors.Is(err, repository.ErrNoRowsAffected) {
		t.Errorf("expected ErrNoRowsAffected, got %v", err)
	}
	if got := e.rides.GetRide(ride.ID).AvailableSeats; got != 0 {
		t.Errorf("seat counter went negative: %d", got)
	}
}

func TestReserveRelease_RoundTrip(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

	ctx := context.Background()

	if err := e.rides.ReserveSeats(ctx, ride.ID, 2); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got := e.rides.GetRide(ride.ID).Earnings; got != 200 {
		t.Errorf("expected earnings 200, got %v", got)
	}

	if err := e.rides.ReleaseSeats(ctx, ride.ID, 2); err != nil {
		t.Fatalf("release: %v", err)
	}

	stored := e.rides.GetRide(ride.ID)
	if stored.AvailableSeats != 4 {
		t.Errorf("expected 4 available seats, got %d", stored.AvailableSeats)
	}
	if stored.Earnings != 0 {
		t.Errorf("expected earnings back to 0, got %v", stored.Earnings)
	}
}

func TestReserveSeats_ConcurrentOneWinner(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	ride := e.addRide("ride-1", "driver-1", 3, 100, departureIn(48*time.Hour))

	// Ten goroutines race for 3 seats each; exactly one can win.
	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- e.rides.ReserveSeats(context.Background(), ride.ID, 3)
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else if !errors.Is(err, repository.ErrNoRowsAffected) {
			t.Errorf("unexpected error: %v", err)
		}
	}

	if winners != 1 {
		t.Errorf("expected exactly 1 winner, got %d", winners)
	}
	if got := e.rides.GetRide(ride.ID).AvailableSeats; got != 0 {
		t.Errorf("expected 0 available seats, got %d", got)
	}
}

// ──────────────────────────────────────────────
// RIDE LIFECYCLE
// ──────────────────────────────────────────────

func TestCancelRide_ReleasesActiveBookings(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	e.addPassenger("passenger-2")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

	ctx := context.Background()

	// Two passengers book directly.
	b1, err := e.bookingService.CreateBooking(ctx, service.CreateBookingRequest{
		RideID: ride.ID, PassengerID: "passenger-1", Seats: 2,
	})
	if err != nil {
		t.Fatalf("booking 1: %v", err)
	}
	if _, err := e.bookingService.CreateBooking(ctx, service.CreateBookingRequest{
		RideID: ride.ID, PassengerID: "passenger-2", Seats: 1,
	}); err != nil {
		t.Fatalf("booking 2: %v", err)
	}

	if got := e.rides.GetRide(ride.ID).AvailableSeats; got != 1 {
		t.Fatalf("expected 1 available seat before cancel, got %d", got)
	}

	cancelled, err := e.rideService.CancelRide(ctx, service.CancelRideRequest{
		RideID: ride.ID, DriverID: "driver-1", Reason: "car trouble",
	})
	if err != nil {
		t.Fatalf("cancel ride: %v", err)
	}
	if cancelled.Status != domain.RideStatusCancelled {
		t.Errorf("expected status cancelled, got %s", cancelled.Status)
	}

	// Every active booking is cancelled by the system and seats returned.
	stored := e.rides.GetRide(ride.ID)
	if stored.AvailableSeats != stored.TotalSeats {
		t.Errorf("expected full seat pool after cascade, got %d/%d", stored.AvailableSeats, stored.TotalSeats)
	}
	storedBooking := e.bookings.GetBooking(b1.ID)
	if storedBooking.Status != domain.BookingStatusCancelled {
		t.Errorf("expected booking cancelled, got %s", storedBooking.Status)
	}
	if storedBooking.CancelledBy != domain.CancelledBySystem {
		t.Errorf("expected cancelled_by system, got %s", storedBooking.CancelledBy)
	}
	if e.index.HasRide(ride.ID) {
		t.Error("expected ride removed from geo index")
	}
}

func TestCancelRide_OnlyDriver(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	e.addPassenger("passenger-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

	_, err := e.rideService.CancelRide(context.Background(), service.CancelRideRequest{
		RideID: ride.ID, DriverID: "passenger-1",
	})
	if !errors.Is(err, service.ErrNotRideDriver) {
		t.Errorf("expected ErrNotRideDriver, got %v", err)
	}
}

func TestCancelRide_AlreadyFinal(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))
	ride.Status = domain.RideStatusCompleted

	_, err := e.rideService.CancelRide(context.Background(), service.CancelRideRequest{
		RideID: ride.ID, DriverID: "driver-1",
	})
	if !errors.Is(err, service.ErrRideAlreadyFinal) {
		t.Errorf("expected ErrRideAlreadyFinal, got %v", err)
	}
}

func TestCompleteRide_BeforeDeparture(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

	_, err := e.rideService.CompleteRide(context.Background(), ride.ID, "driver-1")
	if !errors.Is(err, service.ErrRideNotDeparted) {
		t.Errorf("expected ErrRideNotDeparted, got %v", err)
	}
}

func TestCompleteRide_AfterDeparture(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, time.Now().Add(-time.Hour))

	completed, err := e.rideService.CompleteRide(context.Background(), ride.ID, "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completed.Status != domain.RideStatusCompleted {
		t.Errorf("expected status completed, got %s", completed.Status)
	}
}

func TestGetRideSummary_CacheRoundTrip(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

	ctx := context.Background()

	// First read fills the cache.
	summary, err := e.rideService.GetRideSummary(ctx, ride.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.AvailableSeats != 4 {
		t.Errorf("expected 4 seats, got %d", summary.AvailableSeats)
	}
	if !e.cache.HasRide(ride.ID) {
		t.Error("expected ride cached after read")
	}

	// Second read is served from cache.
	before := e.cache.GetCallCount
	if _, err := e.rideService.GetRideSummary(ctx, ride.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.cache.GetCallCount != before+1 {
		t.Errorf("expected one more cache read, got %d", e.cache.GetCallCount-before)
	}
}

func TestSeatsCommitted_Invariant(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1")
	ride := e.addRide("ride-1", "driver-1", 4, 100, departureIn(48*time.Hour))

	for i := 0; i < 3; i++ {
		passengerID := fmt.Sprintf("passenger-%d", i)
		e.addPassenger(passengerID)
		if _, err := e.bookingService.CreateBooking(context.Background(), service.CreateBookingRequest{
			RideID: ride.ID, PassengerID: passengerID, Seats: 1,
		}); err != nil {
			t.Fatalf("booking %d: %v", i, err)
		}

		stored := e.rides.GetRide(ride.ID)
		if stored.AvailableSeats+stored.SeatsCommitted() != stored.TotalSeats {
			t.Fatalf("invariant broken: available=%d committed=%d total=%d",
				stored.AvailableSeats, stored.SeatsCommitted(), stored.TotalSeats)
		}
	}
}
