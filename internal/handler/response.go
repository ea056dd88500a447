package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dealership/internal/repository"
	"dealership/internal/service"
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
	case errors.Is(err, service.ErrVehicleNotFound),
		errors.Is(err, service.ErrReservationNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation and state errors - Bad Request
	case errors.Is(err, service.ErrVehicleNotAvailable),
		errors.Is(err, service.ErrInvalidVehicleID),
		errors.Is(err, service.ErrInvalidStatusFilter),
		errors.Is(err, service.ErrInvalidSessionID),
		errors.Is(err, service.ErrSignatureVerification):
		return http.StatusBadRequest

	// Gateway and store failures
	default:
		return http.StatusInternalServerError
	}
}

// MethodNotAllowed handles requests whose path exists under another method.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
}
