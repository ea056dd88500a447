package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// VehicleStatus represents the availability of a vehicle.
type VehicleStatus string

const (
	VehicleStatusAvailable VehicleStatus = "available"
	VehicleStatusReserved  VehicleStatus = "reserved"
)

// Vehicle represents a car listed on the storefront.
type Vehicle struct {
	ID            VehicleID
	Name          string
	Price         float64
	DepositAmount float64 // in major currency units
	Status        VehicleStatus
	Mileage       int64
	Engine        string
	Transmission  string
	Drivetrain    string
	FuelType      string
	ExteriorColor string
	InteriorColor string
	// AccidentStatus is "clean" or "accidented".
	AccidentStatus  string
	AccidentDetails string
	FullyRepaired   bool
	Image           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsAvailable reports whether the vehicle can be checked out.
func (v *Vehicle) IsAvailable() bool {
	return v.Status == VehicleStatusAvailable
}

// VehicleImage is an additional gallery image for a vehicle.
type VehicleImage struct {
	ID           int64
	VehicleID    VehicleID
	ImageURL     string
	DisplayOrder int
}

// VehicleID identifies a vehicle. Clients may send it as a JSON string or
// number; it is always rendered as a decimal string in gateway metadata.
type VehicleID int64

// ErrInvalidVehicleID is returned when a vehicle id cannot be parsed.
var ErrInvalidVehicleID = errors.New("invalid car id")

// ParseVehicleID parses the decimal string form of a vehicle id.
func ParseVehicleID(s string) (VehicleID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidVehicleID
	}
	return VehicleID(id), nil
}

// String returns the decimal form of the id.
func (id VehicleID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// UnmarshalJSON accepts both 7 and "7".
func (id *VehicleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return ErrInvalidVehicleID
	}

	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return ErrInvalidVehicleID
		}
	} else {
		raw = string(data)
	}

	parsed, err := ParseVehicleID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
