package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/repository"
	"carpool/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// subjectID returns the authenticated user ID set by the auth middleware.
func subjectID(c *gin.Context) string {
	return c.GetString("subjectID")
}

// bindOptionalBody binds a JSON body into dst when one is present. The
// state-change endpoints take optional bodies, so a bare POST leaves dst at
// its zero value instead of failing with a 400.
func bindOptionalBody(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidPassengerID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidRequestID),
		errors.Is(err, service.ErrInvalidBookingID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidUserName),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidOrigin),
		errors.Is(err, service.ErrInvalidDestination),
		errors.Is(err, service.ErrInvalidRouteLabel),
		errors.Is(err, service.ErrInvalidSchedule),
		errors.Is(err, service.ErrDepartureInPast),
		errors.Is(err, service.ErrInvalidSeatCount),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrNotADriver):
		return http.StatusBadRequest

	// Authorization errors
	case errors.Is(err, service.ErrNotRideDriver),
		errors.Is(err, service.ErrNotRequestPassenger),
		errors.Is(err, service.ErrNotBookingParty):
		return http.StatusForbidden

	// Gone: the request deadline has passed and will never come back
	case errors.Is(err, service.ErrRequestExpired):
		return http.StatusGone

	// Conflict errors
	case errors.Is(err, service.ErrInsufficientSeats),
		errors.Is(err, service.ErrRideNotUpcoming),
		errors.Is(err, service.ErrRideAlreadyFinal),
		errors.Is(err, service.ErrRideNotDeparted),
		errors.Is(err, service.ErrDuplicateReservation),
		errors.Is(err, service.ErrOwnRide),
		errors.Is(err, service.ErrRequestNotPending),
		errors.Is(err, service.ErrBookingNotActive),
		errors.Is(err, service.ErrBookingNotPending),
		errors.Is(err, service.ErrBookingNotConfirmed),
		errors.Is(err, service.ErrBookingNotRatable),
		errors.Is(err, service.ErrAlreadyRated),
		errors.Is(err, service.ErrSelfRating),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrRideBusy):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
