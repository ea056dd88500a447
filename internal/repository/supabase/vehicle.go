package supabase

import (
	"context"
	"net/http"
	"time"

	"dealership/internal/domain"
	"dealership/internal/repository"
)

type vehicleRow struct {
	ID              domain.VehicleID     `json:"id"`
	Name            string               `json:"name"`
	Price           float64              `json:"price"`
	DepositAmount   float64              `json:"deposit_amount"`
	Status          domain.VehicleStatus `json:"status"`
	Mileage         int64                `json:"mileage"`
	Engine          string               `json:"engine,omitempty"`
	Transmission    string               `json:"transmission,omitempty"`
	Drivetrain      string               `json:"drivetrain,omitempty"`
	FuelType        string               `json:"fuel_type,omitempty"`
	ExteriorColor   string               `json:"exterior_color,omitempty"`
	InteriorColor   string               `json:"interior_color,omitempty"`
	AccidentStatus  string               `json:"accident_status,omitempty"`
	AccidentDetails string               `json:"accident_details,omitempty"`
	FullyRepaired   bool                 `json:"fully_repaired"`
	Image           string               `json:"image,omitempty"`
	CreatedAt       *time.Time           `json:"created_at,omitempty"`
	UpdatedAt       *time.Time           `json:"updated_at,omitempty"`
}

func (r vehicleRow) toDomain() *domain.Vehicle {
	v := &domain.Vehicle{
		ID:              r.ID,
		Name:            r.Name,
		Price:           r.Price,
		DepositAmount:   r.DepositAmount,
		Status:          r.Status,
		Mileage:         r.Mileage,
		Engine:          r.Engine,
		Transmission:    r.Transmission,
		Drivetrain:      r.Drivetrain,
		FuelType:        r.FuelType,
		ExteriorColor:   r.ExteriorColor,
		InteriorColor:   r.InteriorColor,
		AccidentStatus:  r.AccidentStatus,
		AccidentDetails: r.AccidentDetails,
		FullyRepaired:   r.FullyRepaired,
		Image:           r.Image,
	}
	if r.CreatedAt != nil {
		v.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		v.UpdatedAt = *r.UpdatedAt
	}
	return v
}

type imageRow struct {
	ID           int64            `json:"id,omitempty"`
	VehicleID    domain.VehicleID `json:"car_id"`
	ImageURL     string           `json:"image_url"`
	DisplayOrder int              `json:"display_order"`
}

// VehicleRepository is a Supabase implementation of repository.VehicleRepository.
type VehicleRepository struct {
	client *Client
}

// NewVehicleRepository creates a new Supabase vehicle repository.
func NewVehicleRepository(client *Client) *VehicleRepository {
	return &VehicleRepository{client: client}
}

// GetByID retrieves a vehicle by ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id domain.VehicleID) (*domain.Vehicle, error) {
	var rows []vehicleRow
	err := r.client.do(ctx, request{
		method: http.MethodGet,
		table:  "cars",
		query:  map[string]string{"select": "*", "id": "eq." + id.String()},
	}, &rows)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

// List retrieves vehicles matching the filter.
func (r *VehicleRepository) List(ctx context.Context, filter repository.VehicleFilter) ([]*domain.Vehicle, error) {
	query := map[string]string{"select": "*", "order": "id.asc"}
	if filter.Status != "" {
		query["status"] = "eq." + string(filter.Status)
		query["order"] = "created_at.desc"
	}

	var rows []vehicleRow
	if err := r.client.do(ctx, request{method: http.MethodGet, table: "cars", query: query}, &rows); err != nil {
		return nil, err
	}

	vehicles := make([]*domain.Vehicle, 0, len(rows))
	for _, row := range rows {
		vehicles = append(vehicles, row.toDomain())
	}
	return vehicles, nil
}

// ListImages retrieves gallery images ordered by display order.
func (r *VehicleRepository) ListImages(ctx context.Context, id domain.VehicleID) ([]*domain.VehicleImage, error) {
	var rows []imageRow
	err := r.client.do(ctx, request{
		method: http.MethodGet,
		table:  "car_images",
		query: map[string]string{
			"select": "*",
			"car_id": "eq." + id.String(),
			"order":  "display_order.asc",
		},
	}, &rows)
	if err != nil {
		return nil, err
	}

	images := make([]*domain.VehicleImage, 0, len(rows))
	for _, row := range rows {
		images = append(images, &domain.VehicleImage{
			ID:           row.ID,
			VehicleID:    row.VehicleID,
			ImageURL:     row.ImageURL,
			DisplayOrder: row.DisplayOrder,
		})
	}
	return images, nil
}

// UpdateStatus sets the status and last-updated time of a vehicle.
func (r *VehicleRepository) UpdateStatus(ctx context.Context, id domain.VehicleID, status domain.VehicleStatus, updatedAt time.Time) error {
	var rows []vehicleRow
	err := r.client.do(ctx, request{
		method: http.MethodPatch,
		table:  "cars",
		query:  map[string]string{"id": "eq." + id.String()},
		prefer: "return=representation",
		body: map[string]any{
			"status":     status,
			"updated_at": updatedAt.UTC(),
		},
	}, &rows)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Upsert inserts or replaces a vehicle and its images. PostgREST offers no
// multi-statement transaction, so the image swap is not atomic.
func (r *VehicleRepository) Upsert(ctx context.Context, v *domain.Vehicle, images []*domain.VehicleImage) error {
	now := time.Now().UTC()
	row := vehicleRow{
		ID:              v.ID,
		Name:            v.Name,
		Price:           v.Price,
		DepositAmount:   v.DepositAmount,
		Status:          v.Status,
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
		UpdatedAt:       &now,
	}
	if row.Status == "" {
		row.Status = domain.VehicleStatusAvailable
	}

	if err := r.client.do(ctx, request{
		method: http.MethodPost,
		table:  "cars",
		query:  map[string]string{"on_conflict": "id"},
		prefer: "resolution=merge-duplicates",
		body:   []vehicleRow{row},
	}, nil); err != nil {
		return err
	}

	if err := r.client.do(ctx, request{
		method: http.MethodDelete,
		table:  "car_images",
		query:  map[string]string{"car_id": "eq." + v.ID.String()},
	}, nil); err != nil {
		return err
	}

	if len(images) == 0 {
		return nil
	}

	imageRows := make([]imageRow, 0, len(images))
	for _, img := range images {
		imageRows = append(imageRows, imageRow{
			VehicleID:    v.ID,
			ImageURL:     img.ImageURL,
			DisplayOrder: img.DisplayOrder,
		})
	}
	return r.client.do(ctx, request{
		method: http.MethodPost,
		table:  "car_images",
		body:   imageRows,
	}, nil)
}

var _ repository.VehicleRepository = (*VehicleRepository)(nil)
