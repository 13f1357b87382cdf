package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// RequestHandler handles HTTP requests for seat requests.
type RequestHandler struct {
	requestService *service.RequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(requestService *service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// CreateSeatRequest is the HTTP request body for filing a seat request.
type CreateSeatRequest struct {
	RideID  string `json:"ride_id"`
	Seats   int    `json:"seats"`
	Message string `json:"message,omitempty"`
}

// RespondSeatRequest is the HTTP request body for accepting or declining.
type RespondSeatRequest struct {
	Response string `json:"response,omitempty"`
}

// SeatRequestResponse is the HTTP representation of a seat request.
type SeatRequestResponse struct {
	ID             string  `json:"id"`
	RideID         string  `json:"ride_id"`
	PassengerID    string  `json:"passenger_id"`
	DriverID       string  `json:"driver_id"`
	Seats          int     `json:"seats"`
	Message        string  `json:"message,omitempty"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	Departure      string  `json:"departure"`
	TotalPrice     float64 `json:"total_price"`
	Status         string  `json:"status"`
	DriverResponse string  `json:"driver_response,omitempty"`
	ExpiresAt      string  `json:"expires_at"`
	Viewed         bool    `json:"viewed"`
	BookingID      string  `json:"booking_id,omitempty"`
}

func toSeatRequestResponse(r *domain.Request) SeatRequestResponse {
	return SeatRequestResponse{
		ID:             r.ID,
		RideID:         r.RideID,
		PassengerID:    r.PassengerID,
		DriverID:       r.DriverID,
		Seats:          r.SeatsRequested,
		Message:        r.Message,
		From:           r.RideInfo.From,
		To:             r.RideInfo.To,
		Departure:      r.RideInfo.Departure.Format(time.RFC3339),
		TotalPrice:     r.TotalPrice(),
		Status:         string(r.Status),
		DriverResponse: r.DriverResponse,
		ExpiresAt:      r.ExpiresAt.Format(time.RFC3339),
		Viewed:         r.ViewedByDriver,
		BookingID:      r.BookingID,
	}
}

func toSeatRequestResponses(requests []*domain.Request) []SeatRequestResponse {
	response := make([]SeatRequestResponse, 0, len(requests))
	for _, r := range requests {
		response = append(response, toSeatRequestResponse(r))
	}
	return response
}

// Create handles POST /v1/requests
func (h *RequestHandler) Create(c *gin.Context) {
	var req CreateSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	request, err := h.requestService.CreateRequest(c.Request.Context(), service.CreateRequestRequest{
		RideID:      req.RideID,
		PassengerID: subjectID(c),
		Seats:       req.Seats,
		Message:     req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toSeatRequestResponse(request))
}

// Accept handles POST /v1/requests/:id/accept
func (h *RequestHandler) Accept(c *gin.Context) {
	var req RespondSeatRequest
	if err := bindOptionalBody(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	booking, err := h.requestService.AcceptRequest(c.Request.Context(), c.Param("id"), subjectID(c), req.Response)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Decline handles POST /v1/requests/:id/decline
func (h *RequestHandler) Decline(c *gin.Context) {
	var req RespondSeatRequest
	if err := bindOptionalBody(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	request, err := h.requestService.DeclineRequest(c.Request.Context(), c.Param("id"), subjectID(c), req.Response)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toSeatRequestResponse(request))
}

// MarkViewed handles POST /v1/requests/:id/viewed
func (h *RequestHandler) MarkViewed(c *gin.Context) {
	if err := h.requestService.MarkViewed(c.Request.Context(), c.Param("id"), subjectID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Cancel handles DELETE /v1/requests/:id
func (h *RequestHandler) Cancel(c *gin.Context) {
	if err := h.requestService.CancelRequest(c.Request.Context(), c.Param("id"), subjectID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetMine handles GET /v1/me/requests
func (h *RequestHandler) GetMine(c *gin.Context) {
	requests, err := h.requestService.ListPassengerRequests(c.Request.Context(), subjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSeatRequestResponses(requests))
}

// GetIncoming handles GET /v1/me/driver/requests
func (h *RequestHandler) GetIncoming(c *gin.Context) {
	requests, err := h.requestService.ListDriverRequests(c.Request.Context(), subjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSeatRequestResponses(requests))
}

// GetIncomingCount handles GET /v1/me/driver/requests/count
func (h *RequestHandler) GetIncomingCount(c *gin.Context) {
	count, err := h.requestService.PendingCount(c.Request.Context(), subjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"count": count})
}
