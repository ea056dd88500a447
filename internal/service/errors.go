package service

import (
	"errors"

	"dealership/internal/domain"
)

var (
	// ErrVehicleNotFound is returned when the requested vehicle does not exist.
	ErrVehicleNotFound = errors.New("car not found")

	// ErrVehicleNotAvailable is returned when checking out a vehicle that is not available.
	ErrVehicleNotAvailable = errors.New("car not available")

	// ErrInvalidVehicleID is returned when a vehicle id is missing or malformed.
	ErrInvalidVehicleID = domain.ErrInvalidVehicleID

	// ErrInvalidStatusFilter is returned when listing by an unknown status.
	ErrInvalidStatusFilter = errors.New("invalid status filter")

	// ErrInvalidSessionID is returned when a session id is empty.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrReservationNotFound is returned when no reservation exists for a session.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrGateway wraps failures reported by the payment gateway.
	ErrGateway = errors.New("payment gateway error")

	// ErrSignatureVerification is returned when a payment notification fails verification.
	ErrSignatureVerification = errors.New("signature verification failed")

	// ErrPersistence wraps store failures after a notification was verified.
	ErrPersistence = errors.New("persistence error")
)
