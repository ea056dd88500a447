package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dealership/internal/domain"
	"dealership/internal/service"
)

// VehicleHandler handles HTTP requests for the vehicle catalog.
type VehicleHandler struct {
	catalogService *service.CatalogService
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(catalogService *service.CatalogService) *VehicleHandler {
	return &VehicleHandler{catalogService: catalogService}
}

// VehicleResponse is the HTTP representation of a vehicle.
type VehicleResponse struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DepositAmount   float64 `json:"deposit_amount"`
	Status          string  `json:"status"`
	Mileage         int64   `json:"mileage"`
	Engine          string  `json:"engine,omitempty"`
	Transmission    string  `json:"transmission,omitempty"`
	Drivetrain      string  `json:"drivetrain,omitempty"`
	FuelType        string  `json:"fuel_type,omitempty"`
	ExteriorColor   string  `json:"exterior_color,omitempty"`
	InteriorColor   string  `json:"interior_color,omitempty"`
	AccidentStatus  string  `json:"accident_status,omitempty"`
	AccidentDetails string  `json:"accident_details,omitempty"`
	FullyRepaired   bool    `json:"fully_repaired"`
	Image           string  `json:"image,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

// ImageResponse is the HTTP representation of a gallery image.
type ImageResponse struct {
	ImageURL     string `json:"image_url"`
	DisplayOrder int    `json:"display_order"`
}

// VehicleDetailResponse is a vehicle with its gallery.
type VehicleDetailResponse struct {
	VehicleResponse
	Images []ImageResponse `json:"images"`
}

// ReservationResponse is the HTTP representation of a reservation.
type ReservationResponse struct {
	ID          string `json:"id"`
	CarID       int64  `json:"car_id"`
	SessionID   string `json:"session_id"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// ListVehicles handles GET /api/cars
func (h *VehicleHandler) ListVehicles(c *gin.Context) {
	status := domain.VehicleStatus(c.Query("status"))

	vehicles, err := h.catalogService.ListVehicles(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		response = append(response, toVehicleResponse(v))
	}

	respondJSON(c, http.StatusOK, response)
}

// GetVehicle handles GET /api/cars/:id
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	id, err := domain.ParseVehicleID(c.Param("id"))
	if err != nil {
		respondError(c, service.ErrInvalidVehicleID)
		return
	}

	detail, err := h.catalogService.GetVehicle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	images := make([]ImageResponse, 0, len(detail.Images))
	for _, img := range detail.Images {
		images = append(images, ImageResponse{ImageURL: img.ImageURL, DisplayOrder: img.DisplayOrder})
	}

	respondJSON(c, http.StatusOK, VehicleDetailResponse{
		VehicleResponse: toVehicleResponse(detail.Vehicle),
		Images:          images,
	})
}

// GetReservation handles GET /api/reservations/:sessionId
func (h *VehicleHandler) GetReservation(c *gin.Context) {
	reservation, err := h.catalogService.GetReservation(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ReservationResponse{
		ID:          reservation.ID,
		CarID:       int64(reservation.VehicleID),
		SessionID:   reservation.SessionID,
		AmountTotal: reservation.AmountTotal,
		Currency:    reservation.Currency,
		Status:      string(reservation.Status),
		CreatedAt:   reservation.CreatedAt.Format(time.RFC3339),
	})
}

func toVehicleResponse(v *domain.Vehicle) VehicleResponse {
	resp := VehicleResponse{
		ID:              int64(v.ID),
		Name:            v.Name,
		Price:           v.Price,
		DepositAmount:   v.DepositAmount,
		Status:          string(v.Status),
		Mileage:         v.Mileage,
		Engine:          v.Engine,
		Transmission:    v.Transmission,
		Drivetrain:      v.Drivetrain,
		FuelType:        v.FuelType,
		ExteriorColor:   v.ExteriorColor,
		InteriorColor:   v.InteriorColor,
		AccidentStatus:  v.AccidentStatus,
		AccidentDetails: v.AccidentDetails,
		FullyRepaired:   v.FullyRepaired,
		Image:           v.Image,
	}
	if !v.CreatedAt.IsZero() {
		resp.CreatedAt = v.CreatedAt.Format(time.RFC3339)
	}
	return resp
}
