package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService    *service.RideService
	searchService  *service.SearchService
	bookingService *service.BookingService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService, searchService *service.SearchService, bookingService *service.BookingService) *RideHandler {
	return &RideHandler{
		rideService:    rideService,
		searchService:  searchService,
		bookingService: bookingService,
	}
}

// CreateRideRequest is the HTTP request body for publishing a ride.
type CreateRideRequest struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	FromLat      float64 `json:"from_lat"`
	FromLng      float64 `json:"from_lng"`
	ToLat        float64 `json:"to_lat"`
	ToLng        float64 `json:"to_lng"`
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	TotalSeats   int     `json:"total_seats"`
	PricePerSeat float64 `json:"price_per_seat"`
	Notes        string  `json:"notes,omitempty"`
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID             string  `json:"id"`
	DriverID       string  `json:"driver_id"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	FromLat        float64 `json:"from_lat"`
	FromLng        float64 `json:"from_lng"`
	ToLat          float64 `json:"to_lat"`
	ToLng          float64 `json:"to_lng"`
	Departure      string  `json:"departure"`
	TotalSeats     int     `json:"total_seats"`
	AvailableSeats int     `json:"available_seats"`
	PricePerSeat   float64 `json:"price_per_seat"`
	Earnings       float64 `json:"earnings"`
	Vehicle        string  `json:"vehicle,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	Status         string  `json:"status"`
	CancelReason   string  `json:"cancel_reason,omitempty"`
	CancelledAt    string  `json:"cancelled_at,omitempty"`
}

func toRideResponse(r *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:             r.ID,
		DriverID:       r.DriverID,
		From:           r.From,
		To:             r.To,
		FromLat:        r.FromPoint.Lat,
		FromLng:        r.FromPoint.Lon,
		ToLat:          r.ToPoint.Lat,
		ToLng:          r.ToPoint.Lon,
		Departure:      r.Departure.Format(time.RFC3339),
		TotalSeats:     r.TotalSeats,
		AvailableSeats: r.AvailableSeats,
		PricePerSeat:   r.PricePerSeat,
		Earnings:       r.Earnings,
		Vehicle:        r.Vehicle,
		Notes:          r.Notes,
		Status:         string(r.Status),
	}
	if !r.CancelledAt.IsZero() {
		resp.CancelReason = r.CancelReason
		resp.CancelledAt = r.CancelledAt.Format(time.RFC3339)
	}
	return resp
}

func toRideResponses(rides []*domain.Ride) []RideResponse {
	response := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		response = append(response, toRideResponse(r))
	}
	return response
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), service.CreateRideRequest{
		DriverID:     subjectID(c),
		From:         req.From,
		To:           req.To,
		FromPoint:    domain.Point{Lat: req.FromLat, Lon: req.FromLng},
		ToPoint:      domain.Point{Lat: req.ToLat, Lon: req.ToLng},
		Date:         req.Date,
		Time:         req.Time,
		TotalSeats:   req.TotalSeats,
		PricePerSeat: req.PricePerSeat,
		Notes:        req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// RideSummaryResponse is the cached, trimmed-down ride representation.
type RideSummaryResponse struct {
	ID             string  `json:"id"`
	DriverID       string  `json:"driver_id"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	Departure      string  `json:"departure"`
	TotalSeats     int     `json:"total_seats"`
	AvailableSeats int     `json:"available_seats"`
	PricePerSeat   float64 `json:"price_per_seat"`
	Status         string  `json:"status"`
}

// GetRideSummary handles GET /v1/rides/:id/summary
func (h *RideHandler) GetRideSummary(c *gin.Context) {
	summary, err := h.rideService.GetRideSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, RideSummaryResponse{
		ID:             summary.ID,
		DriverID:       summary.DriverID,
		From:           summary.From,
		To:             summary.To,
		Departure:      summary.Departure.Format(time.RFC3339),
		TotalSeats:     summary.TotalSeats,
		AvailableSeats: summary.AvailableSeats,
		PricePerSeat:   summary.PricePerSeat,
		Status:         string(summary.Status),
	})
}

// GetAll handles GET /v1/rides
func (h *RideHandler) GetAll(c *gin.Context) {
	rides, err := h.rideService.ListOpenRides(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRideResponses(rides))
}

// GetMine handles GET /v1/me/rides
func (h *RideHandler) GetMine(c *gin.Context) {
	rides, err := h.rideService.ListDriverRides(c.Request.Context(), subjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRideResponses(rides))
}

// Search handles GET /v1/rides/search
func (h *RideHandler) Search(c *gin.Context) {
	var query struct {
		FromLat float64 `form:"from_lat"`
		FromLng float64 `form:"from_lng"`
		ToLat   float64 `form:"to_lat"`
		ToLng   float64 `form:"to_lng"`
		Date    string  `form:"date"`
		Time    string  `form:"time"`
		Radius  float64 `form:"radius"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query parameters"})
		return
	}

	rides, err := h.searchService.Search(c.Request.Context(), service.SearchRequest{
		Origin:       domain.Point{Lat: query.FromLat, Lon: query.FromLng},
		Destination:  domain.Point{Lat: query.ToLat, Lon: query.ToLng},
		Date:         query.Date,
		Time:         query.Time,
		RadiusMeters: query.Radius,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRideResponses(rides))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	if err := bindOptionalBody(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), service.CancelRideRequest{
		RideID:   c.Param("id"),
		DriverID: subjectID(c),
		Reason:   req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// StartRide handles POST /v1/rides/:id/start
func (h *RideHandler) StartRide(c *gin.Context) {
	ride, err := h.rideService.StartRide(c.Request.Context(), c.Param("id"), subjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	ride, err := h.rideService.CompleteRide(c.Request.Context(), c.Param("id"), subjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// GetRideBookings handles GET /v1/rides/:id/bookings
func (h *RideHandler) GetRideBookings(c *gin.Context) {
	bookings, err := h.bookingService.ListRideBookings(c.Request.Context(), c.Param("id"), subjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBookingResponses(bookings))
}
