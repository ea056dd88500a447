package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dealership/internal/domain"
	"dealership/internal/repository"
)

// ReservationRepository is a PostgreSQL implementation of repository.ReservationRepository.
type ReservationRepository struct {
	q Querier
}

// NewReservationRepository creates a new PostgreSQL reservation repository.
func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{q: db}
}

// NewReservationRepositoryWithTx creates a reservation repository using a transaction.
func NewReservationRepositoryWithTx(tx *sql.Tx) *ReservationRepository {
	return &ReservationRepository{q: tx}
}

// Create persists a new reservation. The session_id unique index makes the
// insert a no-op on replay, reported as repository.ErrDuplicate.
func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	query := `
		INSERT INTO reservations (id, car_id, session_id, customer_email, customer_name, customer_phone, amount_total, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query,
		res.ID,
		res.VehicleID,
		res.SessionID,
		nullString(res.CustomerEmail),
		nullString(res.CustomerName),
		nullString(res.CustomerPhone),
		res.AmountTotal,
		res.Currency,
		res.Status,
		res.CreatedAt,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrDuplicate
	}

	return nil
}

// GetBySessionID retrieves a reservation by its payment session ID.
func (r *ReservationRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Reservation, error) {
	query := `
		SELECT id, car_id, session_id, COALESCE(customer_email, ''), COALESCE(customer_name, ''),
			COALESCE(customer_phone, ''), amount_total, currency, status, created_at
		FROM reservations WHERE session_id = $1
	`

	var res domain.Reservation
	err := r.q.QueryRowContext(ctx, query, sessionID).Scan(
		&res.ID,
		&res.VehicleID,
		&res.SessionID,
		&res.CustomerEmail,
		&res.CustomerName,
		&res.CustomerPhone,
		&res.AmountTotal,
		&res.Currency,
		&res.Status,
		&res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &res, nil
}

// ReservationStore applies completed payments atomically.
type ReservationStore struct {
	db *sql.DB
}

// NewReservationStore creates a new PostgreSQL reservation store.
func NewReservationStore(db *sql.DB) *ReservationStore {
	return &ReservationStore{db: db}
}

// ConfirmReservation inserts the reservation and marks the vehicle reserved in
// one transaction. A replayed session leaves the store untouched.
func (s *ReservationStore) ConfirmReservation(ctx context.Context, res *domain.Reservation, at time.Time) (created bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}

	defer func() {
		if err != nil || !created {
			_ = tx.Rollback()
		}
	}()

	// Create transaction-scoped repositories.
	txReservationRepo := NewReservationRepositoryWithTx(tx)
	txVehicleRepo := NewVehicleRepositoryWithTx(tx)

	if err = txReservationRepo.Create(ctx, res); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}

	if err = txVehicleRepo.UpdateStatus(ctx, res.VehicleID, domain.VehicleStatusReserved, at); err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}

	return true, nil
}

// Ensure interfaces are satisfied.
var (
	_ repository.VehicleRepository     = (*VehicleRepository)(nil)
	_ repository.ReservationRepository = (*ReservationRepository)(nil)
	_ repository.ReservationStore      = (*ReservationStore)(nil)
)
