package main

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"dealership/internal/domain"
)

// fixture is the on-disk format accepted by "storectl seed".
type fixture struct {
	Vehicles []fixtureVehicle `yaml:"vehicles"`
}

type fixtureVehicle struct {
	ID              int64    `yaml:"id"`
	Name            string   `yaml:"name"`
	Price           float64  `yaml:"price"`
	DepositAmount   float64  `yaml:"deposit_amount"`
	Status          string   `yaml:"status"`
	Mileage         int64    `yaml:"mileage"`
	Engine          string   `yaml:"engine"`
	Transmission    string   `yaml:"transmission"`
	Drivetrain      string   `yaml:"drivetrain"`
	FuelType        string   `yaml:"fuel_type"`
	ExteriorColor   string   `yaml:"exterior_color"`
	InteriorColor   string   `yaml:"interior_color"`
	AccidentStatus  string   `yaml:"accident_status"`
	AccidentDetails string   `yaml:"accident_details"`
	FullyRepaired   bool     `yaml:"fully_repaired"`
	Image           string   `yaml:"image"`
	Images          []string `yaml:"images"`
}

// seedItem is one vehicle with its gallery, ready to upsert.
type seedItem struct {
	Vehicle *domain.Vehicle
	Images  []*domain.VehicleImage
}

func parseFixture(r io.Reader) ([]seedItem, error) {
	var f fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	seen := make(map[int64]bool, len(f.Vehicles))
	items := make([]seedItem, 0, len(f.Vehicles))
	for i, fv := range f.Vehicles {
		if fv.ID <= 0 {
			return nil, fmt.Errorf("vehicle %d: id must be positive", i)
		}
		if seen[fv.ID] {
			return nil, fmt.Errorf("vehicle %d: duplicate id %d", i, fv.ID)
		}
		seen[fv.ID] = true
		if fv.Name == "" {
			return nil, fmt.Errorf("vehicle %d: name is required", fv.ID)
		}
		if fv.DepositAmount <= 0 {
			return nil, fmt.Errorf("vehicle %d: deposit_amount must be positive", fv.ID)
		}

		status := domain.VehicleStatus(fv.Status)
		switch status {
		case "":
			status = domain.VehicleStatusAvailable
		case domain.VehicleStatusAvailable, domain.VehicleStatusReserved:
		default:
			return nil, fmt.Errorf("vehicle %d: unknown status %q", fv.ID, fv.Status)
		}

		id := domain.VehicleID(fv.ID)
		images := make([]*domain.VehicleImage, 0, len(fv.Images))
		for order, url := range fv.Images {
			images = append(images, &domain.VehicleImage{
				VehicleID:    id,
				ImageURL:     url,
				DisplayOrder: order,
			})
		}

		items = append(items, seedItem{
			Vehicle: &domain.Vehicle{
				ID:              id,
				Name:            fv.Name,
				Price:           fv.Price,
				DepositAmount:   fv.DepositAmount,
				Status:          status,
				Mileage:         fv.Mileage,
				Engine:          fv.Engine,
				Transmission:    fv.Transmission,
				Drivetrain:      fv.Drivetrain,
				FuelType:        fv.FuelType,
				ExteriorColor:   fv.ExteriorColor,
				InteriorColor:   fv.InteriorColor,
				AccidentStatus:  fv.AccidentStatus,
				AccidentDetails: fv.AccidentDetails,
				FullyRepaired:   fv.FullyRepaired,
				Image:           fv.Image,
			},
			Images: images,
		})
	}
	return items, nil
}
