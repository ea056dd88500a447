package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"dealership/internal/domain"
	"dealership/internal/repository"
)

// rowID is a reservation primary key. The table may use a uuid or an
// identity column, so both JSON strings and numbers are accepted.
type rowID string

func (id *rowID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = rowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = rowID(n.String())
	return nil
}

type reservationRow struct {
	ID            rowID                    `json:"id"`
	VehicleID     domain.VehicleID         `json:"car_id"`
	SessionID     string                   `json:"session_id"`
	CustomerEmail string                   `json:"customer_email,omitempty"`
	CustomerName  string                   `json:"customer_name,omitempty"`
	CustomerPhone string                   `json:"customer_phone,omitempty"`
	AmountTotal   int64                    `json:"amount_total"`
	Currency      string                   `json:"currency"`
	Status        domain.ReservationStatus `json:"status"`
	CreatedAt     time.Time                `json:"created_at"`
}

// reservationInsert leaves id and created_at to the table defaults.
type reservationInsert struct {
	VehicleID     domain.VehicleID         `json:"car_id"`
	SessionID     string                   `json:"session_id"`
	CustomerEmail string                   `json:"customer_email,omitempty"`
	CustomerName  string                   `json:"customer_name,omitempty"`
	CustomerPhone string                   `json:"customer_phone,omitempty"`
	AmountTotal   int64                    `json:"amount_total"`
	Currency      string                   `json:"currency"`
	Status        domain.ReservationStatus `json:"status"`
}

// ReservationRepository is a Supabase implementation of
// repository.ReservationRepository and repository.ReservationStore.
type ReservationRepository struct {
	client   *Client
	vehicles *VehicleRepository
}

// NewReservationRepository creates a new Supabase reservation repository.
func NewReservationRepository(client *Client) *ReservationRepository {
	return &ReservationRepository{
		client:   client,
		vehicles: NewVehicleRepository(client),
	}
}

// Create persists a new reservation. Duplicate session IDs are ignored by
// PostgREST and reported as repository.ErrDuplicate. The id and created_at
// assigned by the table are copied back into res.
func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	var rows []reservationRow
	err := r.client.do(ctx, request{
		method: http.MethodPost,
		table:  "reservations",
		query:  map[string]string{"on_conflict": "session_id"},
		prefer: "resolution=ignore-duplicates,return=representation",
		body: []reservationInsert{{
			VehicleID:     res.VehicleID,
			SessionID:     res.SessionID,
			CustomerEmail: res.CustomerEmail,
			CustomerName:  res.CustomerName,
			CustomerPhone: res.CustomerPhone,
			AmountTotal:   res.AmountTotal,
			Currency:      res.Currency,
			Status:        res.Status,
		}},
	}, &rows)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return repository.ErrDuplicate
	}

	if rows[0].ID != "" {
		res.ID = string(rows[0].ID)
	}
	if !rows[0].CreatedAt.IsZero() {
		res.CreatedAt = rows[0].CreatedAt
	}
	return nil
}

// GetBySessionID retrieves a reservation by its payment session ID.
func (r *ReservationRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Reservation, error) {
	var rows []reservationRow
	err := r.client.do(ctx, request{
		method: http.MethodGet,
		table:  "reservations",
		query:  map[string]string{"select": "*", "session_id": "eq." + sessionID},
	}, &rows)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}

	row := rows[0]
	return &domain.Reservation{
		ID:            string(row.ID),
		VehicleID:     row.VehicleID,
		SessionID:     row.SessionID,
		CustomerEmail: row.CustomerEmail,
		CustomerName:  row.CustomerName,
		CustomerPhone: row.CustomerPhone,
		AmountTotal:   row.AmountTotal,
		Currency:      row.Currency,
		Status:        row.Status,
		CreatedAt:     row.CreatedAt,
	}, nil
}

// ConfirmReservation marks the vehicle reserved, then records the
// reservation. Both writes are idempotent, so replaying a session after a
// partial failure completes it.
func (r *ReservationRepository) ConfirmReservation(ctx context.Context, res *domain.Reservation, at time.Time) (bool, error) {
	if err := r.vehicles.UpdateStatus(ctx, res.VehicleID, domain.VehicleStatusReserved, at); err != nil {
		return false, err
	}

	if err := r.Create(ctx, res); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var (
	_ repository.ReservationRepository = (*ReservationRepository)(nil)
	_ repository.ReservationStore      = (*ReservationRepository)(nil)
)
