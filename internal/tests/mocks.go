package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// writeGate blocks single-statement writes while a mock transaction runs,
// the way a row lock would make them wait for the transaction to commit.
// Repos start ungated; the MockTxManager arms the gate with its own mutex.
// Writes issued through the transaction's repo views bypass the gate, since
// the transaction itself holds it.
type writeGate struct {
	mu *sync.Mutex
}

func (g *writeGate) hold() func() {
	if g.mu == nil {
		return func() {}
	}
	g.mu.Lock()
	return g.mu.Unlock
}

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository. Seat
// mutations reproduce the conditional-update semantics of the real store:
// the guard and the write happen under one mutex hold.
type MockRideRepository struct {
	mu    sync.RWMutex
	gate  writeGate
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount  int32
	ReserveCallCount int32
	ReleaseCallCount int32

	// Error injection
	CreateError  error
	ReserveError error
	ReleaseError error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	defer m.gate.hold()()
	return m.create(ctx, ride)
}

func (m *MockRideRepository) create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) GetByDriver(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if r.DriverID == driverID {
			copy := *r
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockRideRepository) GetOpen(ctx context.Context) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if r.Status == domain.RideStatusUpcoming && r.AvailableSeats > 0 {
			copy := *r
			result = append(result, &copy)
		}
	}
	sortByDeparture(result)
	return result, nil
}

func (m *MockRideRepository) GetOpenWithin(ctx context.Context, from, to time.Time) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if r.Status != domain.RideStatusUpcoming || r.AvailableSeats <= 0 {
			continue
		}
		if r.Departure.Before(from) || r.Departure.After(to) {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}
	sortByDeparture(result)
	return result, nil
}

func (m *MockRideRepository) ReserveSeats(ctx context.Context, id string, n int) error {
	defer m.gate.hold()()
	return m.reserveSeats(ctx, id, n)
}

func (m *MockRideRepository) reserveSeats(ctx context.Context, id string, n int) error {
	atomic.AddInt32(&m.ReserveCallCount, 1)
	if m.ReserveError != nil {
		return m.ReserveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok || ride.Status != domain.RideStatusUpcoming || ride.AvailableSeats < n {
		return repository.ErrNoRowsAffected
	}
	ride.AvailableSeats -= n
	ride.Earnings += float64(n) * ride.PricePerSeat
	return nil
}

func (m *MockRideRepository) ReleaseSeats(ctx context.Context, id string, n int) error {
	defer m.gate.hold()()
	return m.releaseSeats(ctx, id, n)
}

func (m *MockRideRepository) releaseSeats(ctx context.Context, id string, n int) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	if m.ReleaseError != nil {
		return m.ReleaseError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok {
		return repository.ErrNoRowsAffected
	}
	ride.AvailableSeats += n
	if ride.AvailableSeats > ride.TotalSeats {
		ride.AvailableSeats = ride.TotalSeats
	}
	ride.Earnings -= float64(n) * ride.PricePerSeat
	if ride.Earnings < 0 {
		ride.Earnings = 0
	}
	return nil
}

func (m *MockRideRepository) MarkStatus(ctx context.Context, id string, status domain.RideStatus, reason, by string) error {
	defer m.gate.hold()()
	return m.markStatus(ctx, id, status, reason, by)
}

func (m *MockRideRepository) markStatus(ctx context.Context, id string, status domain.RideStatus, reason, by string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok || ride.Status.IsTerminal() {
		return repository.ErrNoRowsAffected
	}
	ride.Status = status
	if status == domain.RideStatusCancelled {
		ride.CancelReason = reason
		ride.CancelledBy = by
		ride.CancelledAt = time.Now()
	}
	return nil
}

// GetRide returns the ride by ID (for test assertions).
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

func (m *MockRideRepository) snapshot() map[string]*domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string]*domain.Ride, len(m.rides))
	for id, r := range m.rides {
		copy := *r
		snap[id] = &copy
	}
	return snap
}

func (m *MockRideRepository) restore(snap map[string]*domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides = snap
}

func sortByDeparture(rides []*domain.Ride) {
	sort.Slice(rides, func(i, j int) bool {
		if rides[i].Departure.Equal(rides[j].Departure) {
			return rides[i].ID < rides[j].ID
		}
		return rides[i].Departure.Before(rides[j].Departure)
	})
}

// ──────────────────────────────────────────────
// MOCK REQUEST REPOSITORY
// ──────────────────────────────────────────────

// MockRequestRepository is a mock implementation of RequestRepository.
// Resolve and Delete are guarded on the pending status under the mutex, so
// races between accept, decline and expiry have exactly one winner here too.
type MockRequestRepository struct {
	mu       sync.RWMutex
	gate     writeGate
	requests map[string]*domain.Request

	// Counters for verification
	CreateCallCount  int32
	ResolveCallCount int32

	// Error injection
	CreateError  error
	ResolveError error
}

// NewMockRequestRepository creates a new mock request repository.
func NewMockRequestRepository() *MockRequestRepository {
	return &MockRequestRepository{
		requests: make(map[string]*domain.Request),
	}
}

// AddRequest adds a request to the mock repository.
func (m *MockRequestRepository) AddRequest(req *domain.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = req
}

func (m *MockRequestRepository) Create(ctx context.Context, req *domain.Request) error {
	defer m.gate.hold()()
	return m.create(ctx, req)
}

func (m *MockRequestRepository) create(ctx context.Context, req *domain.Request) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.requests {
		if existing.RideID == req.RideID && existing.PassengerID == req.PassengerID &&
			existing.Status == domain.RequestStatusPending {
			return repository.ErrDuplicate
		}
	}
	copy := *req
	m.requests[req.ID] = &copy
	return nil
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *req
	return &copy, nil
}

func (m *MockRequestRepository) GetPendingByDriver(ctx context.Context, driverID string) ([]*domain.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Request
	for _, r := range m.requests {
		if r.DriverID == driverID && r.Status == domain.RequestStatusPending {
			copy := *r
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockRequestRepository) GetByPassenger(ctx context.Context, passengerID string) ([]*domain.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Request
	for _, r := range m.requests {
		if r.PassengerID == passengerID {
			copy := *r
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockRequestRepository) CountPendingByDriver(ctx context.Context, driverID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, r := range m.requests {
		if r.DriverID == driverID && r.Status == domain.RequestStatusPending {
			count++
		}
	}
	return count, nil
}

func (m *MockRequestRepository) HasActiveByPassenger(ctx context.Context, rideID, passengerID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.requests {
		if r.RideID == rideID && r.PassengerID == passengerID &&
			(r.Status == domain.RequestStatusPending || r.Status == domain.RequestStatusAccepted) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRequestRepository) Resolve(ctx context.Context, id string, status domain.RequestStatus, driverResponse string) error {
	defer m.gate.hold()()
	return m.resolve(ctx, id, status, driverResponse)
}

func (m *MockRequestRepository) resolve(ctx context.Context, id string, status domain.RequestStatus, driverResponse string) error {
	atomic.AddInt32(&m.ResolveCallCount, 1)
	if m.ResolveError != nil {
		return m.ResolveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.Status != domain.RequestStatusPending {
		return repository.ErrNoRowsAffected
	}
	req.Status = status
	req.DriverResponse = driverResponse
	req.RespondedAt = time.Now()
	return nil
}

func (m *MockRequestRepository) LinkBooking(ctx context.Context, id, bookingID string) error {
	defer m.gate.hold()()
	return m.linkBooking(ctx, id, bookingID)
}

func (m *MockRequestRepository) linkBooking(ctx context.Context, id, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return repository.ErrNoRowsAffected
	}
	req.BookingID = bookingID
	return nil
}

func (m *MockRequestRepository) MarkViewed(ctx context.Context, id string) error {
	defer m.gate.hold()()
	return m.markViewed(ctx, id)
}

func (m *MockRequestRepository) markViewed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !req.ViewedByDriver {
		req.ViewedByDriver = true
		req.ViewedAt = time.Now()
	}
	return nil
}

func (m *MockRequestRepository) Delete(ctx context.Context, id string) error {
	defer m.gate.hold()()
	return m.remove(ctx, id)
}

func (m *MockRequestRepository) remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.Status != domain.RequestStatusPending {
		return repository.ErrNoRowsAffected
	}
	delete(m.requests, id)
	return nil
}

func (m *MockRequestRepository) ExpirePending(ctx context.Context, now time.Time) ([]*domain.Request, error) {
	defer m.gate.hold()()
	return m.expirePending(ctx, now)
}

func (m *MockRequestRepository) expirePending(ctx context.Context, now time.Time) ([]*domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []*domain.Request
	for _, r := range m.requests {
		if r.Status == domain.RequestStatusPending && !r.ExpiresAt.After(now) {
			r.Status = domain.RequestStatusExpired
			r.RespondedAt = now
			copy := *r
			expired = append(expired, &copy)
		}
	}
	return expired, nil
}

// GetRequest returns the request by ID (for test assertions).
func (m *MockRequestRepository) GetRequest(id string) *domain.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[id]
}

func (m *MockRequestRepository) snapshot() map[string]*domain.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string]*domain.Request, len(m.requests))
	for id, r := range m.requests {
		copy := *r
		snap[id] = &copy
	}
	return snap
}

func (m *MockRequestRepository) restore(snap map[string]*domain.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = snap
}

// ──────────────────────────────────────────────
// MOCK BOOKING REPOSITORY
// ──────────────────────────────────────────────

// MockBookingRepository is a mock implementation of BookingRepository.
type MockBookingRepository struct {
	mu       sync.RWMutex
	gate     writeGate
	bookings map[string]*domain.Booking

	// Counters for verification
	CreateCallCount     int32
	TransitionCallCount int32

	// Error injection
	CreateError     error
	TransitionError error
}

// NewMockBookingRepository creates a new mock booking repository.
func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{
		bookings: make(map[string]*domain.Booking),
	}
}

// AddBooking adds a booking to the mock repository.
func (m *MockBookingRepository) AddBooking(b *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	defer m.gate.hold()()
	return m.create(ctx, booking)
}

func (m *MockBookingRepository) create(ctx context.Context, booking *domain.Booking) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookings {
		if existing.RideID == booking.RideID && existing.PassengerID == booking.PassengerID &&
			existing.Status.IsActive() {
			return repository.ErrDuplicate
		}
	}
	copy := *booking
	m.bookings[booking.ID] = &copy
	return nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *booking
	return &copy, nil
}

func (m *MockBookingRepository) GetByPassenger(ctx context.Context, passengerID string) ([]*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Booking
	for _, b := range m.bookings {
		if b.PassengerID == passengerID {
			copy := *b
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockBookingRepository) GetByRide(ctx context.Context, rideID string) ([]*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Booking
	for _, b := range m.bookings {
		if b.RideID == rideID {
			copy := *b
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockBookingRepository) HasActiveByPassenger(ctx context.Context, rideID, passengerID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bookings {
		if b.RideID == rideID && b.PassengerID == passengerID && b.Status.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockBookingRepository) Transition(ctx context.Context, id string, from []domain.BookingStatus, rec repository.BookingRecord) error {
	defer m.gate.hold()()
	return m.transition(ctx, id, from, rec)
}

func (m *MockBookingRepository) transition(ctx context.Context, id string, from []domain.BookingStatus, rec repository.BookingRecord) error {
	atomic.AddInt32(&m.TransitionCallCount, 1)
	if m.TransitionError != nil {
		return m.TransitionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return repository.ErrNoRowsAffected
	}
	allowed := false
	for _, s := range from {
		if booking.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return repository.ErrNoRowsAffected
	}
	booking.Status = rec.Status
	switch rec.Status {
	case domain.BookingStatusCancelled, domain.BookingStatusRejected:
		booking.CancelReason = rec.CancelReason
		booking.CancelledBy = rec.CancelledBy
		booking.CancelledAt = time.Now()
	case domain.BookingStatusConfirmed:
		booking.ConfirmedAt = time.Now()
	case domain.BookingStatusCompleted:
		booking.CompletedAt = time.Now()
	}
	return nil
}

func (m *MockBookingRepository) SetRating(ctx context.Context, id string, dir repository.RatingDirection, rating int, review string) error {
	defer m.gate.hold()()
	return m.setRating(ctx, id, dir, rating, review)
}

func (m *MockBookingRepository) setRating(ctx context.Context, id string, dir repository.RatingDirection, rating int, review string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return repository.ErrNoRowsAffected
	}
	switch dir {
	case repository.RatingByPassenger:
		if booking.Ratings.PassengerRatedDriver {
			return repository.ErrNoRowsAffected
		}
		booking.Ratings.PassengerRatedDriver = true
		booking.Ratings.PassengerRating = rating
		booking.Ratings.PassengerReview = review
	case repository.RatingByDriver:
		if booking.Ratings.DriverRatedPassenger {
			return repository.ErrNoRowsAffected
		}
		booking.Ratings.DriverRatedPassenger = true
		booking.Ratings.DriverRating = rating
		booking.Ratings.DriverReview = review
	}
	return nil
}

// GetBooking returns the booking by ID (for test assertions).
func (m *MockBookingRepository) GetBooking(id string) *domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bookings[id]
}

// CountBookings returns the number of bookings.
func (m *MockBookingRepository) CountBookings() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bookings)
}

func (m *MockBookingRepository) snapshot() map[string]*domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string]*domain.Booking, len(m.bookings))
	for id, b := range m.bookings {
		copy := *b
		snap[id] = &copy
	}
	return snap
}

func (m *MockBookingRepository) restore(snap map[string]*domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = snap
}

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	gate  writeGate
	users map[string]*domain.User

	// Error injection
	CreateError error
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]*domain.User),
	}
}

// AddUser adds a user to the mock repository.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	defer m.gate.hold()()
	return m.create(ctx, user)
}

func (m *MockUserRepository) create(ctx context.Context, user *domain.User) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	copy := copyUser(user)
	m.users[user.ID] = copy
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(user), nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) ApplyRating(ctx context.Context, id string, rating int) error {
	defer m.gate.hold()()
	return m.applyRating(ctx, id, rating)
}

func (m *MockUserRepository) applyRating(ctx context.Context, id string, rating int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNoRowsAffected
	}
	user.Rating.Average = (user.Rating.Average*float64(user.Rating.Count) + float64(rating)) / float64(user.Rating.Count+1)
	user.Rating.Count++
	return nil
}

// GetUser returns the user by ID (for test assertions).
func (m *MockUserRepository) GetUser(id string) *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[id]
}

func copyUser(u *domain.User) *domain.User {
	copy := *u
	if u.Driver != nil {
		profile := *u.Driver
		copy.Driver = &profile
	}
	return &copy
}

func (m *MockUserRepository) snapshot() map[string]*domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string]*domain.User, len(m.users))
	for id, u := range m.users {
		snap[id] = copyUser(u)
	}
	return snap
}

func (m *MockUserRepository) restore(snap map[string]*domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = snap
}

// ──────────────────────────────────────────────
// MOCK TRANSACTION MANAGER
// ──────────────────────────────────────────────

// MockTxManager implements service.TxManager over the mock repositories.
// Transactions are serialized by a single mutex; rollback restores a deep
// snapshot taken before the function ran. The same mutex arms the repos'
// write gates, so single-statement writes issued outside a transaction wait
// for the running transaction to finish instead of landing between its
// snapshot and a rollback, where the restore would silently undo them. The
// transaction body itself writes through gate-free views.
type MockTxManager struct {
	mu sync.Mutex

	Rides    *MockRideRepository
	Requests *MockRequestRepository
	Bookings *MockBookingRepository
	Users    *MockUserRepository

	// Counters for verification
	TxCallCount       int32
	RollbackCallCount int32
}

// NewMockTxManager creates a new mock transaction manager and gates the
// given repositories on its transaction mutex.
func NewMockTxManager(rides *MockRideRepository, requests *MockRequestRepository, bookings *MockBookingRepository, users *MockUserRepository) *MockTxManager {
	m := &MockTxManager{
		Rides:    rides,
		Requests: requests,
		Bookings: bookings,
		Users:    users,
	}
	rides.gate = writeGate{mu: &m.mu}
	requests.gate = writeGate{mu: &m.mu}
	bookings.gate = writeGate{mu: &m.mu}
	users.gate = writeGate{mu: &m.mu}
	return m
}

func (m *MockTxManager) WithinTx(ctx context.Context, fn func(r service.Repos) error) error {
	atomic.AddInt32(&m.TxCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()

	rideSnap := m.Rides.snapshot()
	requestSnap := m.Requests.snapshot()
	bookingSnap := m.Bookings.snapshot()
	userSnap := m.Users.snapshot()

	err := fn(service.Repos{
		Rides:    txRideRepo{m.Rides},
		Requests: txRequestRepo{m.Requests},
		Bookings: txBookingRepo{m.Bookings},
		Users:    txUserRepo{m.Users},
	})
	if err != nil {
		atomic.AddInt32(&m.RollbackCallCount, 1)
		m.Rides.restore(rideSnap)
		m.Requests.restore(requestSnap)
		m.Bookings.restore(bookingSnap)
		m.Users.restore(userSnap)
		return err
	}
	return nil
}

// Transaction-scoped repo views. Write methods skip the gate because the
// transaction already holds it; reads are promoted from the embedded mock.

type txRideRepo struct{ *MockRideRepository }

func (t txRideRepo) Create(ctx context.Context, ride *domain.Ride) error {
	return t.create(ctx, ride)
}

func (t txRideRepo) ReserveSeats(ctx context.Context, id string, n int) error {
	return t.reserveSeats(ctx, id, n)
}

func (t txRideRepo) ReleaseSeats(ctx context.Context, id string, n int) error {
	return t.releaseSeats(ctx, id, n)
}

func (t txRideRepo) MarkStatus(ctx context.Context, id string, status domain.RideStatus, reason, by string) error {
	return t.markStatus(ctx, id, status, reason, by)
}

type txRequestRepo struct{ *MockRequestRepository }

func (t txRequestRepo) Create(ctx context.Context, req *domain.Request) error {
	return t.create(ctx, req)
}

func (t txRequestRepo) Resolve(ctx context.Context, id string, status domain.RequestStatus, driverResponse string) error {
	return t.resolve(ctx, id, status, driverResponse)
}

func (t txRequestRepo) LinkBooking(ctx context.Context, id, bookingID string) error {
	return t.linkBooking(ctx, id, bookingID)
}

func (t txRequestRepo) MarkViewed(ctx context.Context, id string) error {
	return t.markViewed(ctx, id)
}

func (t txRequestRepo) Delete(ctx context.Context, id string) error {
	return t.remove(ctx, id)
}

func (t txRequestRepo) ExpirePending(ctx context.Context, now time.Time) ([]*domain.Request, error) {
	return t.expirePending(ctx, now)
}

type txBookingRepo struct{ *MockBookingRepository }

func (t txBookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	return t.create(ctx, booking)
}

func (t txBookingRepo) Transition(ctx context.Context, id string, from []domain.BookingStatus, rec repository.BookingRecord) error {
	return t.transition(ctx, id, from, rec)
}

func (t txBookingRepo) SetRating(ctx context.Context, id string, dir repository.RatingDirection, rating int, review string) error {
	return t.setRating(ctx, id, dir, rating, review)
}

type txUserRepo struct{ *MockUserRepository }

func (t txUserRepo) Create(ctx context.Context, user *domain.User) error {
	return t.create(ctx, user)
}

func (t txUserRepo) ApplyRating(ctx context.Context, id string, rating int) error {
	return t.applyRating(ctx, id, rating)
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of the per-ride reservation lock.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, exists := m.locks[rideID]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[rideID] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseRideLock(ctx context.Context, rideID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, rideID)
	return nil
}

// IsLocked checks if a ride is locked (for test assertions).
func (m *MockLockStore) IsLocked(rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks[rideID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of the ride summary cache.
type MockCacheStore struct {
	mu    sync.RWMutex
	rides map[string]*redis.CachedRide

	// Counters
	GetCallCount        int32
	SetCallCount        int32
	InvalidateCallCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		rides: make(map[string]*redis.CachedRide),
	}
}

func (m *MockCacheStore) GetRide(ctx context.Context, rideID string) (*redis.CachedRide, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return nil, nil
	}
	copy := *ride
	return &copy, nil
}

func (m *MockCacheStore) SetRide(ctx context.Context, ride *redis.CachedRide) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockCacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rides, rideID)
	return nil
}

// HasRide checks if a ride is cached (for test assertions).
func (m *MockCacheStore) HasRide(rideID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rides[rideID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK INDEX STORE
// ──────────────────────────────────────────────

// MockIndexStore is a mock implementation of the ride geo index. It records
// indexed rides and returns all of them as candidates; exact filtering is
// the search service's job.
type MockIndexStore struct {
	mu      sync.RWMutex
	rideIDs map[string]bool

	// Counters
	AddCallCount    int32
	RemoveCallCount int32
}

// NewMockIndexStore creates a new mock index store.
func NewMockIndexStore() *MockIndexStore {
	return &MockIndexStore{
		rideIDs: make(map[string]bool),
	}
}

func (m *MockIndexStore) AddRide(ctx context.Context, rideID string, fromLon, fromLat, toLon, toLat float64) error {
	atomic.AddInt32(&m.AddCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rideIDs[rideID] = true
	return nil
}

func (m *MockIndexStore) FindCandidates(ctx context.Context, fromLon, fromLat, toLon, toLat, radiusMeters float64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id := range m.rideIDs {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MockIndexStore) RemoveRide(ctx context.Context, rideID string) error {
	atomic.AddInt32(&m.RemoveCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rideIDs, rideID)
	return nil
}

// HasRide checks if a ride is indexed (for test assertions).
func (m *MockIndexStore) HasRide(rideID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rideIDs[rideID]
}
