package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"carpool/internal/domain"
)

// EventType identifies a notification event emitted by the engine.
type EventType string

const (
	EventRequestCreated   EventType = "request.created"
	EventRequestAccepted  EventType = "request.accepted"
	EventRequestDeclined  EventType = "request.declined"
	EventRequestExpired   EventType = "request.expired"
	EventRequestCancelled EventType = "request.cancelled"
	EventBookingCreated   EventType = "booking.created"
	EventBookingCancelled EventType = "booking.cancelled"
	EventBookingRejected  EventType = "booking.rejected"
	EventBookingCompleted EventType = "booking.completed"
	EventRideCancelled    EventType = "ride.cancelled"
)

// Event is delivered to the external notification dispatcher. Delivery is
// fire-and-forget; a failed delivery never rolls back the operation that
// produced it.
type Event struct {
	Type        EventType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]any
	CreatedAt   time.Time
}

// NotificationService hands events to the notification dispatcher.
// The real dispatcher (push, SMS, websocket) sits outside the engine; this
// implementation logs deliveries.
type NotificationService struct{}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyRequestCreated tells the driver about a new seat request.
func (s *NotificationService) NotifyRequestCreated(ctx context.Context, req *domain.Request) error {
	return s.send(ctx, Event{
		Type:        EventRequestCreated,
		RecipientID: req.DriverID,
		Title:       "New Seat Request",
		Message:     fmt.Sprintf("A passenger requested %d seat(s) on %s → %s", req.SeatsRequested, req.RideInfo.From, req.RideInfo.To),
		Data: map[string]any{
			"request_id": req.ID,
			"ride_id":    req.RideID,
			"seats":      req.SeatsRequested,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyRequestResolved tells the passenger the driver's decision.
func (s *NotificationService) NotifyRequestResolved(ctx context.Context, req *domain.Request, eventType EventType) error {
	title := "Request Declined"
	message := "The driver declined your seat request."
	if eventType == EventRequestAccepted {
		title = "Request Accepted"
		message = fmt.Sprintf("Your request for %d seat(s) was accepted. Booking confirmed.", req.SeatsRequested)
	}
	return s.send(ctx, Event{
		Type:        eventType,
		RecipientID: req.PassengerID,
		Title:       title,
		Message:     message,
		Data: map[string]any{
			"request_id": req.ID,
			"ride_id":    req.RideID,
			"booking_id": req.BookingID,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyRequestExpired tells the passenger the request lapsed.
func (s *NotificationService) NotifyRequestExpired(ctx context.Context, req *domain.Request) error {
	return s.send(ctx, Event{
		Type:        EventRequestExpired,
		RecipientID: req.PassengerID,
		Title:       "Request Expired",
		Message:     fmt.Sprintf("Your seat request for %s → %s expired without a response.", req.RideInfo.From, req.RideInfo.To),
		Data: map[string]any{
			"request_id": req.ID,
			"ride_id":    req.RideID,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyRequestCancelled tells the driver a pending request was withdrawn.
func (s *NotificationService) NotifyRequestCancelled(ctx context.Context, req *domain.Request) error {
	return s.send(ctx, Event{
		Type:        EventRequestCancelled,
		RecipientID: req.DriverID,
		Title:       "Request Withdrawn",
		Message:     "The passenger withdrew their seat request.",
		Data: map[string]any{
			"request_id": req.ID,
			"ride_id":    req.RideID,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyBookingCreated tells the driver about a direct booking.
func (s *NotificationService) NotifyBookingCreated(ctx context.Context, b *domain.Booking) error {
	return s.send(ctx, Event{
		Type:        EventBookingCreated,
		RecipientID: b.DriverID,
		Title:       "New Booking",
		Message:     fmt.Sprintf("A passenger booked %d seat(s) on %s → %s", b.SeatsBooked, b.RideInfo.From, b.RideInfo.To),
		Data: map[string]any{
			"booking_id": b.ID,
			"ride_id":    b.RideID,
			"seats":      b.SeatsBooked,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyBookingEnded tells the counterparty a booking was cancelled,
// rejected or completed.
func (s *NotificationService) NotifyBookingEnded(ctx context.Context, b *domain.Booking, eventType EventType, actorID string) error {
	recipientID := b.PassengerID
	if actorID == b.PassengerID {
		recipientID = b.DriverID
	}

	var title, message string
	switch eventType {
	case EventBookingCancelled:
		title = "Booking Cancelled"
		message = fmt.Sprintf("Booking for %s → %s was cancelled. Seats have been released.", b.RideInfo.From, b.RideInfo.To)
	case EventBookingRejected:
		title = "Booking Rejected"
		message = "The driver rejected the booking. Seats have been released."
	case EventBookingCompleted:
		title = "Trip Completed"
		message = fmt.Sprintf("Booking for %s → %s is complete. You can now rate each other.", b.RideInfo.From, b.RideInfo.To)
	}

	return s.send(ctx, Event{
		Type:        eventType,
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Data: map[string]any{
			"booking_id": b.ID,
			"ride_id":    b.RideID,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyRideCancelled tells every active booking holder their ride is off.
func (s *NotificationService) NotifyRideCancelled(ctx context.Context, ride *domain.Ride, passengerIDs []string) error {
	for _, passengerID := range passengerIDs {
		event := Event{
			Type:        EventRideCancelled,
			RecipientID: passengerID,
			Title:       "Ride Cancelled",
			Message:     fmt.Sprintf("The ride %s → %s on %s was cancelled by the driver.", ride.From, ride.To, ride.Departure.Format("2006-01-02 15:04")),
			Data: map[string]any{
				"ride_id": ride.ID,
				"reason":  ride.CancelReason,
			},
			CreatedAt: time.Now(),
		}
		_ = s.send(ctx, event)
	}
	return nil
}

// send delivers an event to the dispatcher.
func (s *NotificationService) send(ctx context.Context, event Event) error {
	log.Printf("[EVENT] type=%s recipient=%s title=%q message=%q",
		event.Type, event.RecipientID, event.Title, event.Message)
	return nil
}
