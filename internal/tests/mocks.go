package tests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"dealership/internal/domain"
	"dealership/internal/gateway"
	"dealership/internal/redis"
	"dealership/internal/repository"
)

// newTestLogger returns a logger that discards output.
func newTestLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

// ──────────────────────────────────────────────
// MOCK VEHICLE REPOSITORY
// ──────────────────────────────────────────────

// MockVehicleRepository is a mock implementation of VehicleRepository.
type MockVehicleRepository struct {
	mu       sync.RWMutex
	vehicles map[domain.VehicleID]*domain.Vehicle
	images   map[domain.VehicleID][]*domain.VehicleImage

	// Counters for verification
	GetByIDCallCount      int32
	ListCallCount         int32
	UpdateStatusCallCount int32

	// Error injection
	GetByIDError      error
	UpdateStatusError error
}

// NewMockVehicleRepository creates a new mock vehicle repository.
func NewMockVehicleRepository() *MockVehicleRepository {
	return &MockVehicleRepository{
		vehicles: make(map[domain.VehicleID]*domain.Vehicle),
		images:   make(map[domain.VehicleID][]*domain.VehicleImage),
	}
}

// AddVehicle adds a vehicle to the mock repository.
func (m *MockVehicleRepository) AddVehicle(vehicle *domain.Vehicle, images ...*domain.VehicleImage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[vehicle.ID] = vehicle
	m.images[vehicle.ID] = images
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id domain.VehicleID) (*domain.Vehicle, error) {
	atomic.AddInt32(&m.GetByIDCallCount, 1)
	if m.GetByIDError != nil {
		return nil, m.GetByIDError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	vehicle, ok := m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *vehicle
	return &copy, nil
}

func (m *MockVehicleRepository) List(ctx context.Context, filter repository.VehicleFilter) ([]*domain.Vehicle, error) {
	atomic.AddInt32(&m.ListCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		copy := *v
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockVehicleRepository) ListImages(ctx context.Context, id domain.VehicleID) ([]*domain.VehicleImage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.images[id], nil
}

func (m *MockVehicleRepository) UpdateStatus(ctx context.Context, id domain.VehicleID, status domain.VehicleStatus, updatedAt time.Time) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	vehicle, ok := m.vehicles[id]
	if !ok {
		return repository.ErrNotFound
	}
	vehicle.Status = status
	vehicle.UpdatedAt = updatedAt
	return nil
}

func (m *MockVehicleRepository) Upsert(ctx context.Context, vehicle *domain.Vehicle, images []*domain.VehicleImage) error {
	m.AddVehicle(vehicle, images...)
	return nil
}

// GetVehicle returns vehicle for test assertions.
func (m *MockVehicleRepository) GetVehicle(id domain.VehicleID) *domain.Vehicle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vehicles[id]
}

// ──────────────────────────────────────────────
// MOCK RESERVATION REPOSITORY
// ──────────────────────────────────────────────

// MockReservationRepository is a mock implementation of both
// ReservationRepository and ReservationStore. Confirmations update the
// vehicles of the wrapped MockVehicleRepository.
type MockReservationRepository struct {
	mu           sync.RWMutex
	vehicles     *MockVehicleRepository
	reservations map[string]*domain.Reservation

	// Counters for verification
	ConfirmCallCount int32

	// Error injection
	ConfirmError error
}

// NewMockReservationRepository creates a new mock reservation repository.
func NewMockReservationRepository(vehicles *MockVehicleRepository) *MockReservationRepository {
	return &MockReservationRepository{
		vehicles:     vehicles,
		reservations: make(map[string]*domain.Reservation),
	}
}

func (m *MockReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[reservation.SessionID]; ok {
		return repository.ErrDuplicate
	}
	copy := *reservation
	m.reservations[reservation.SessionID] = &copy
	return nil
}

func (m *MockReservationRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reservation, ok := m.reservations[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *reservation
	return &copy, nil
}

func (m *MockReservationRepository) ConfirmReservation(ctx context.Context, reservation *domain.Reservation, at time.Time) (bool, error) {
	atomic.AddInt32(&m.ConfirmCallCount, 1)
	if m.ConfirmError != nil {
		return false, m.ConfirmError
	}
	if err := m.vehicles.UpdateStatus(ctx, reservation.VehicleID, domain.VehicleStatusReserved, at); err != nil {
		return false, err
	}
	if err := m.Create(ctx, reservation); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Count returns the number of stored reservations.
func (m *MockReservationRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reservations)
}

// ──────────────────────────────────────────────
// MOCK PAYMENT GATEWAY
// ──────────────────────────────────────────────

// MockGateway is a mock implementation of service.PaymentGateway. ParseEvent
// trusts any payload unless ParseError is set.
type MockGateway struct {
	mu       sync.Mutex
	requests []gateway.SessionRequest

	// Counters for verification
	CreateSessionCallCount int32

	// Error injection
	CreateSessionError error
	ParseError         error
}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error) {
	n := atomic.AddInt32(&m.CreateSessionCallCount, 1)
	if m.CreateSessionError != nil {
		return nil, m.CreateSessionError
	}
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	id := fmt.Sprintf("cs_test_%d", n)
	return &gateway.Session{ID: id, URL: "https://checkout.example.com/pay/" + id}, nil
}

func (m *MockGateway) ParseEvent(payload []byte, signature string) (*gateway.Event, error) {
	if m.ParseError != nil {
		return nil, &gateway.VerificationError{Err: m.ParseError}
	}
	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &gateway.VerificationError{Err: err}
	}
	return &gateway.Event{ID: raw.ID, Type: raw.Type, Object: raw.Data.Object}, nil
}

// LastRequest returns the most recent session request.
func (m *MockGateway) LastRequest() (gateway.SessionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return gateway.SessionRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// ──────────────────────────────────────────────
// MOCK EVENT LEDGER
// ──────────────────────────────────────────────

// MockEventLedger is a mock implementation of EventLedgerInterface.
type MockEventLedger struct {
	mu       sync.Mutex
	sessions map[string]bool

	// Error injection
	SeenError     error
	RememberError error
}

// NewMockEventLedger creates a new mock event ledger.
func NewMockEventLedger() *MockEventLedger {
	return &MockEventLedger{sessions: make(map[string]bool)}
}

func (m *MockEventLedger) Seen(ctx context.Context, sessionID string) (bool, error) {
	if m.SeenError != nil {
		return false, m.SeenError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID], nil
}

func (m *MockEventLedger) Remember(ctx context.Context, sessionID string) error {
	if m.RememberError != nil {
		return m.RememberError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = true
	return nil
}

// ──────────────────────────────────────────────
// MOCK VEHICLE CACHE
// ──────────────────────────────────────────────

// MockVehicleCache is a mock implementation of VehicleCacheInterface.
type MockVehicleCache struct {
	mu       sync.Mutex
	vehicles map[domain.VehicleID]*redis.CachedVehicle
	listings map[domain.VehicleStatus][]*domain.Vehicle

	// Counters for verification
	InvalidateCallCount int32
}

// NewMockVehicleCache creates a new mock vehicle cache.
func NewMockVehicleCache() *MockVehicleCache {
	return &MockVehicleCache{
		vehicles: make(map[domain.VehicleID]*redis.CachedVehicle),
		listings: make(map[domain.VehicleStatus][]*domain.Vehicle),
	}
}

func (m *MockVehicleCache) GetVehicle(ctx context.Context, id domain.VehicleID) (*redis.CachedVehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vehicles[id], nil
}

func (m *MockVehicleCache) SetVehicle(ctx context.Context, cached *redis.CachedVehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[cached.Vehicle.ID] = cached
	return nil
}

func (m *MockVehicleCache) GetListing(ctx context.Context, status domain.VehicleStatus) ([]*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listings[status], nil
}

func (m *MockVehicleCache) SetListing(ctx context.Context, status domain.VehicleStatus, vehicles []*domain.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[status] = vehicles
	return nil
}

func (m *MockVehicleCache) InvalidateVehicle(ctx context.Context, id domain.VehicleID) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vehicles, id)
	m.listings = make(map[domain.VehicleStatus][]*domain.Vehicle)
	return nil
}

// ──────────────────────────────────────────────
// MOCK RESPONSE STORE
// ──────────────────────────────────────────────

// MockResponseStore is a mock implementation of ResponseStoreInterface.
type MockResponseStore struct {
	mu   sync.Mutex
	data map[string][]byte

	// Error injection
	GetError error
}

// NewMockResponseStore creates a new mock response store.
func NewMockResponseStore() *MockResponseStore {
	return &MockResponseStore{data: make(map[string][]byte)}
}

func (m *MockResponseStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *MockResponseStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

// Ensure mocks implement interfaces.
var (
	_ repository.VehicleRepository     = (*MockVehicleRepository)(nil)
	_ repository.ReservationRepository = (*MockReservationRepository)(nil)
	_ repository.ReservationStore      = (*MockReservationRepository)(nil)
	_ redis.EventLedgerInterface       = (*MockEventLedger)(nil)
	_ redis.VehicleCacheInterface      = (*MockVehicleCache)(nil)
	_ redis.ResponseStoreInterface     = (*MockResponseStore)(nil)
)
