package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dealership/internal/domain"
	"dealership/internal/service"
)

// CheckoutHandler handles HTTP requests that start a deposit checkout.
type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// CreateCheckoutRequest is the HTTP request body for starting a checkout.
type CreateCheckoutRequest struct {
	CarID        domain.VehicleID     `json:"carId"`
	CustomerInfo *domain.CustomerInfo `json:"customerInfo,omitempty"`
}

// CreateCheckoutResponse is the HTTP response carrying the gateway redirect.
type CreateCheckoutResponse struct {
	URL string `json:"url"`
}

// CreateCheckout handles POST /api/create-checkout
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, domain.ErrInvalidVehicleID) {
			respondError(c, service.ErrInvalidVehicleID)
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	session, err := h.checkoutService.CreateCheckout(c.Request.Context(), service.CreateCheckoutRequest{
		VehicleID: req.CarID,
		Customer:  req.CustomerInfo,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CreateCheckoutResponse{URL: session.URL})
}

// Preflight handles OPTIONS /api/create-checkout
func (h *CheckoutHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}
