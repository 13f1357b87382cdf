package tests

import (
	"time"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// env bundles the mock stores and the services under test.
type env struct {
	rides    *MockRideRepository
	requests *MockRequestRepository
	bookings *MockBookingRepository
	users    *MockUserRepository
	tx       *MockTxManager
	locks    *MockLockStore
	cache    *MockCacheStore
	index    *MockIndexStore

	rideService    *service.RideService
	searchService  *service.SearchService
	requestService *service.RequestService
	bookingService *service.BookingService
	userService    *service.UserService
}

func newEnv() *env {
	e := &env{
		rides:    NewMockRideRepository(),
		requests: NewMockRequestRepository(),
		bookings: NewMockBookingRepository(),
		users:    NewMockUserRepository(),
		locks:    NewMockLockStore(),
		cache:    NewMockCacheStore(),
		index:    NewMockIndexStore(),
	}
	e.tx = NewMockTxManager(e.rides, e.requests, e.bookings, e.users)

	notifier := service.NewNotificationService()
	e.rideService = service.NewRideService(e.tx, e.rides, e.bookings, e.users, e.cache, e.index, notifier)
	e.searchService = service.NewSearchService(e.rides, nil)
	e.requestService = service.NewRequestService(e.tx, e.requests, e.rides, e.bookings, e.locks, e.cache, notifier)
	e.bookingService = service.NewBookingService(e.tx, e.bookings, e.rides, e.users, e.requests, e.locks, e.cache, notifier)
	e.userService = service.NewUserService(e.users)

	return e
}

// addDriver seeds a user with a driver profile.
func (e *env) addDriver(id string) *domain.User {
	user := &domain.User{
		ID:    id,
		Name:  "Driver " + id,
		Email: id + "@example.com",
		Driver: &domain.DriverProfile{
			VehicleModel: "Toyota Corolla",
			PlateNumber:  "KA-01-1234",
		},
		CreatedAt: time.Now(),
	}
	e.users.AddUser(user)
	return user
}

// addPassenger seeds a user without a driver profile.
func (e *env) addPassenger(id string) *domain.User {
	user := &domain.User{
		ID:        id,
		Name:      "Passenger " + id,
		Email:     id + "@example.com",
		CreatedAt: time.Now(),
	}
	e.users.AddUser(user)
	return user
}

// addRide seeds an upcoming ride with a full seat pool.
func (e *env) addRide(id, driverID string, seats int, price float64, departure time.Time) *domain.Ride {
	ride := &domain.Ride{
		ID:             id,
		DriverID:       driverID,
		From:           "Koramangala",
		To:             "Whitefield",
		FromPoint:      domain.Point{Lat: 12.9352, Lon: 77.6245},
		ToPoint:        domain.Point{Lat: 12.9698, Lon: 77.7500},
		Departure:      departure,
		TotalSeats:     seats,
		AvailableSeats: seats,
		PricePerSeat:   price,
		Status:         domain.RideStatusUpcoming,
		CreatedAt:      time.Now(),
	}
	e.rides.AddRide(ride)
	return ride
}

// addPendingRequest seeds a pending seat request against a ride.
func (e *env) addPendingRequest(id string, ride *domain.Ride, passengerID string, seats int) *domain.Request {
	req := &domain.Request{
		ID:             id,
		RideID:         ride.ID,
		PassengerID:    passengerID,
		DriverID:       ride.DriverID,
		SeatsRequested: seats,
		RideInfo:       ride.Snapshot(),
		Status:         domain.RequestStatusPending,
		ExpiresAt:      ride.Departure.Add(-domain.RequestTTLBeforeDeparture),
		CreatedAt:      time.Now(),
	}
	e.requests.AddRequest(req)
	return req
}

// departureIn returns a departure timestamp d from now.
func departureIn(d time.Duration) time.Time {
	return time.Now().Add(d)
}
