package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dealership/internal/domain"
	"dealership/internal/repository"
)

// VehicleRepository is a PostgreSQL implementation of repository.VehicleRepository.
type VehicleRepository struct {
	q Querier
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{q: db}
}

// NewVehicleRepositoryWithTx creates a vehicle repository using a transaction.
func NewVehicleRepositoryWithTx(tx *sql.Tx) *VehicleRepository {
	return &VehicleRepository{q: tx}
}

const vehicleColumns = `
	id, name, price, deposit_amount, status, COALESCE(mileage, 0),
	COALESCE(engine, ''), COALESCE(transmission, ''), COALESCE(drivetrain, ''),
	COALESCE(fuel_type, ''), COALESCE(exterior_color, ''), COALESCE(interior_color, ''),
	COALESCE(accident_status, ''), COALESCE(accident_details, ''), COALESCE(fully_repaired, false),
	COALESCE(image, ''), created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Price,
		&v.DepositAmount,
		&v.Status,
		&v.Mileage,
		&v.Engine,
		&v.Transmission,
		&v.Drivetrain,
		&v.FuelType,
		&v.ExteriorColor,
		&v.InteriorColor,
		&v.AccidentStatus,
		&v.AccidentDetails,
		&v.FullyRepaired,
		&v.Image,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetByID retrieves a vehicle by ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id domain.VehicleID) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM cars WHERE id = $1`

	vehicle, err := scanVehicle(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return vehicle, nil
}

// List retrieves vehicles matching the filter.
func (r *VehicleRepository) List(ctx context.Context, filter repository.VehicleFilter) ([]*domain.Vehicle, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if filter.Status != "" {
		query := `SELECT ` + vehicleColumns + ` FROM cars WHERE status = $1 ORDER BY created_at DESC`
		rows, err = r.q.QueryContext(ctx, query, filter.Status)
	} else {
		query := `SELECT ` + vehicleColumns + ` FROM cars ORDER BY id`
		rows, err = r.q.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*domain.Vehicle
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}

	return vehicles, rows.Err()
}

// ListImages retrieves gallery images ordered by display order.
func (r *VehicleRepository) ListImages(ctx context.Context, id domain.VehicleID) ([]*domain.VehicleImage, error) {
	query := `
		SELECT id, car_id, image_url, display_order
		FROM car_images WHERE car_id = $1
		ORDER BY display_order ASC
	`

	rows, err := r.q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []*domain.VehicleImage
	for rows.Next() {
		var img domain.VehicleImage
		if err := rows.Scan(&img.ID, &img.VehicleID, &img.ImageURL, &img.DisplayOrder); err != nil {
			return nil, err
		}
		images = append(images, &img)
	}

	return images, rows.Err()
}

// UpdateStatus sets the status and last-updated time of a vehicle.
func (r *VehicleRepository) UpdateStatus(ctx context.Context, id domain.VehicleID, status domain.VehicleStatus, updatedAt time.Time) error {
	query := `UPDATE cars SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, status, updatedAt, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Upsert inserts or replaces a vehicle and its images. Run it inside a
// transaction (NewVehicleRepositoryWithTx) to make the image swap atomic.
func (r *VehicleRepository) Upsert(ctx context.Context, v *domain.Vehicle, images []*domain.VehicleImage) error {
	query := `
		INSERT INTO cars (id, name, price, deposit_amount, status, mileage, engine, transmission,
			drivetrain, fuel_type, exterior_color, interior_color, accident_status, accident_details,
			fully_repaired, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			deposit_amount = EXCLUDED.deposit_amount,
			status = EXCLUDED.status,
			mileage = EXCLUDED.mileage,
			engine = EXCLUDED.engine,
			transmission = EXCLUDED.transmission,
			drivetrain = EXCLUDED.drivetrain,
			fuel_type = EXCLUDED.fuel_type,
			exterior_color = EXCLUDED.exterior_color,
			interior_color = EXCLUDED.interior_color,
			accident_status = EXCLUDED.accident_status,
			accident_details = EXCLUDED.accident_details,
			fully_repaired = EXCLUDED.fully_repaired,
			image = EXCLUDED.image,
			updated_at = EXCLUDED.updated_at
	`

	status := v.Status
	if status == "" {
		status = domain.VehicleStatusAvailable
	}

	now := time.Now().UTC()
	if _, err := r.q.ExecContext(ctx, query,
		v.ID,
		v.Name,
		v.Price,
		v.DepositAmount,
		status,
		v.Mileage,
		nullString(v.Engine),
		nullString(v.Transmission),
		nullString(v.Drivetrain),
		nullString(v.FuelType),
		nullString(v.ExteriorColor),
		nullString(v.InteriorColor),
		nullString(v.AccidentStatus),
		nullString(v.AccidentDetails),
		v.FullyRepaired,
		nullString(v.Image),
		now,
	); err != nil {
		return err
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM car_images WHERE car_id = $1`, v.ID); err != nil {
		return err
	}

	for _, img := range images {
		if _, err := r.q.ExecContext(ctx,
			`INSERT INTO car_images (car_id, image_url, display_order) VALUES ($1, $2, $3)`,
			v.ID, img.ImageURL, img.DisplayOrder,
		); err != nil {
			return err
		}
	}

	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
