package repository

import (
	"context"
	"time"

	"dealership/internal/domain"
)

// VehicleFilter narrows a vehicle listing.
type VehicleFilter struct {
	// Status, when set, restricts the listing and orders newest first.
	Status domain.VehicleStatus
}

// VehicleRepository defines the persistence operations for vehicles.
type VehicleRepository interface {
	// GetByID retrieves a vehicle by ID.
	GetByID(ctx context.Context, id domain.VehicleID) (*domain.Vehicle, error)

	// List retrieves vehicles matching the filter.
	List(ctx context.Context, filter VehicleFilter) ([]*domain.Vehicle, error)

	// ListImages retrieves gallery images ordered by display order.
	ListImages(ctx context.Context, id domain.VehicleID) ([]*domain.VehicleImage, error)

	// UpdateStatus sets the status and last-updated time of a vehicle.
	UpdateStatus(ctx context.Context, id domain.VehicleID, status domain.VehicleStatus, updatedAt time.Time) error

	// Upsert inserts or replaces a vehicle and its images.
	Upsert(ctx context.Context, vehicle *domain.Vehicle, images []*domain.VehicleImage) error
}
