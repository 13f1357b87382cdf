package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookingService *service.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CreateBookingRequest is the HTTP request body for a direct booking.
type CreateBookingRequest struct {
	RideID      string `json:"ride_id"`
	Seats       int    `json:"seats"`
	Message     string `json:"message,omitempty"`
	PickupPoint string `json:"pickup_point,omitempty"`
	DropPoint   string `json:"drop_point,omitempty"`
}

// CancelBookingRequest is the HTTP request body for cancelling or rejecting
// a booking.
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RateBookingRequest is the HTTP request body for rating a booking party.
type RateBookingRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review,omitempty"`
}

// RatingsResponse is the HTTP representation of a booking's mutual ratings.
type RatingsResponse struct {
	PassengerRatedDriver bool   `json:"passenger_rated_driver"`
	DriverRatedPassenger bool   `json:"driver_rated_passenger"`
	PassengerRating      int    `json:"passenger_rating,omitempty"`
	DriverRating         int    `json:"driver_rating,omitempty"`
	PassengerReview      string `json:"passenger_review,omitempty"`
	DriverReview         string `json:"driver_review,omitempty"`
}

// BookingResponse is the HTTP representation of a booking.
type BookingResponse struct {
	ID            string          `json:"id"`
	RideID        string          `json:"ride_id"`
	PassengerID   string          `json:"passenger_id"`
	DriverID      string          `json:"driver_id"`
	Seats         int             `json:"seats"`
	PricePerSeat  float64         `json:"price_per_seat"`
	TotalPrice    float64         `json:"total_price"`
	Status        string          `json:"status"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Departure     string          `json:"departure"`
	PickupPoint   string          `json:"pickup_point,omitempty"`
	DropPoint     string          `json:"drop_point,omitempty"`
	PaymentStatus string          `json:"payment_status"`
	Ratings       RatingsResponse `json:"ratings"`
	CancelReason  string          `json:"cancel_reason,omitempty"`
	CancelledBy   string          `json:"cancelled_by,omitempty"`
	CancelledAt   string          `json:"cancelled_at,omitempty"`
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	resp := BookingResponse{
		ID:            b.ID,
		RideID:        b.RideID,
		PassengerID:   b.PassengerID,
		DriverID:      b.DriverID,
		Seats:         b.SeatsBooked,
		PricePerSeat:  b.PricePerSeat,
		TotalPrice:    b.TotalPrice,
		Status:        string(b.Status),
		From:          b.RideInfo.From,
		To:            b.RideInfo.To,
		Departure:     b.RideInfo.Departure.Format(time.RFC3339),
		PickupPoint:   b.PickupPoint,
		DropPoint:     b.DropPoint,
		PaymentStatus: string(b.PaymentStatus),
		Ratings: RatingsResponse{
			PassengerRatedDriver: b.Ratings.PassengerRatedDriver,
			DriverRatedPassenger: b.Ratings.DriverRatedPassenger,
			PassengerRating:      b.Ratings.PassengerRating,
			DriverRating:         b.Ratings.DriverRating,
			PassengerReview:      b.Ratings.PassengerReview,
			DriverReview:         b.Ratings.DriverReview,
		},
	}
	if !b.CancelledAt.IsZero() || b.CancelledBy != "" {
		resp.CancelReason = b.CancelReason
		resp.CancelledBy = string(b.CancelledBy)
		if !b.CancelledAt.IsZero() {
			resp.CancelledAt = b.CancelledAt.Format(time.RFC3339)
		}
	}
	return resp
}

func toBookingResponses(bookings []*domain.Booking) []BookingResponse {
	response := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		response = append(response, toBookingResponse(b))
	}
	return response
}

// Create handles POST /v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), service.CreateBookingRequest{
		RideID:      req.RideID,
		PassengerID: subjectID(c),
		Seats:       req.Seats,
		Message:     req.Message,
		PickupPoint: req.PickupPoint,
		DropPoint:   req.DropPoint,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// Get handles GET /v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"), subjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// GetMine handles GET /v1/me/bookings
func (h *BookingHandler) GetMine(c *gin.Context) {
	bookings, err := h.bookingService.ListPassengerBookings(c.Request.Context(), subjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

// Confirm handles POST /v1/bookings/:id/confirm
func (h *BookingHandler) Confirm(c *gin.Context) {
	booking, err := h.bookingService.ConfirmBooking(c.Request.Context(), c.Param("id"), subjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Reject handles POST /v1/bookings/:id/reject
func (h *BookingHandler) Reject(c *gin.Context) {
	var req CancelBookingRequest
	if err := bindOptionalBody(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.bookingService.RejectBooking(c.Request.Context(), c.Param("id"), subjectID(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Cancel handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	var req CancelBookingRequest
	if err := bindOptionalBody(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.bookingService.CancelBooking(c.Request.Context(), c.Param("id"), subjectID(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Complete handles POST /v1/bookings/:id/complete
func (h *BookingHandler) Complete(c *gin.Context) {
	booking, err := h.bookingService.CompleteBooking(c.Request.Context(), c.Param("id"), subjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Rate handles POST /v1/bookings/:id/rate
func (h *BookingHandler) Rate(c *gin.Context) {
	var req RateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.bookingService.RateBooking(c.Request.Context(), service.RateBookingRequest{
		BookingID: c.Param("id"),
		RaterID:   subjectID(c),
		Rating:    req.Rating,
		Review:    req.Review,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}
