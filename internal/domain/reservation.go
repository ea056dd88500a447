package domain

import "time"

// ReservationStatus represents the payment state of a reservation.
type ReservationStatus string

const (
	ReservationStatusPaid ReservationStatus = "paid"
)

// Reservation records a paid deposit against a vehicle. It is created once
// per completed checkout session and never mutated afterwards.
type Reservation struct {
	ID            string
	VehicleID     VehicleID
	SessionID     string
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	AmountTotal   int64 // in minor currency units
	Currency      string
	Status        ReservationStatus
	CreatedAt     time.Time
}

// CustomerInfo is the optional contact data supplied at checkout.
type CustomerInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}
