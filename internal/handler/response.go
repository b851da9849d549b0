package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
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
	case errors.Is(err, service.ErrInvalidBookingID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidPickupTime),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrMissingRequiredField),
		errors.Is(err, service.ErrAssignmentTargetRequired),
		errors.Is(err, service.ErrCancelReasonRequired),
		errors.Is(err, service.ErrNoChangesSupplied),
		errors.Is(err, service.ErrMeterMilesRequired),
		errors.Is(err, service.ErrUnknownFee):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrConflictWindow),
		errors.Is(err, service.ErrIneligibleAssignment),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrBookingAlreadyFinal),
		errors.Is(err, service.ErrBookingStale),
		errors.Is(err, service.ErrFlagdownReassignment),
		errors.Is(err, service.ErrDuplicateActive),
		errors.Is(err, service.ErrFlatRateInactive),
		errors.Is(err, service.ErrMissingFareConfig):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrNotAssignedDriver),
		errors.Is(err, service.ErrRosterInactive),
		errors.Is(err, service.ErrDriverOffline),
		errors.Is(err, service.ErrNotCompliant):
		return http.StatusForbidden

	// Service unavailable
	case errors.Is(err, service.ErrNoCandidateAvailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// actorID reads the acting user's id from the X-Actor-ID header. The gateway
// in front of this service authenticates and stamps it.
func actorID(c *gin.Context) string {
	return c.GetHeader("X-Actor-ID")
}
