package repository

import (
	"context"
	"time"

	"dealership/internal/domain"
)

// ReservationRepository defines the persistence operations for reservations.
type ReservationRepository interface {
	// Create persists a new reservation.
	// Returns ErrDuplicate if a reservation for the session already exists.
	Create(ctx context.Context, reservation *domain.Reservation) error

	// GetBySessionID retrieves a reservation by its payment session ID.
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Reservation, error)
}

// ReservationStore applies a completed payment to the store: the vehicle is
// marked reserved and the reservation recorded. Implementations must be safe
// to call again with the same session ID.
type ReservationStore interface {
	// ConfirmReservation returns created=false when the session was already
	// recorded.
	ConfirmReservation(ctx context.Context, reservation *domain.Reservation, at time.Time) (created bool, err error)
}
