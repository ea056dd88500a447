package redis

import (
	"context"
	"time"

	"dealership/internal/domain"
)

// VehicleCacheInterface defines the interface for vehicle caching.
type VehicleCacheInterface interface {
	GetVehicle(ctx context.Context, id domain.VehicleID) (*CachedVehicle, error)
	SetVehicle(ctx context.Context, cached *CachedVehicle) error
	GetListing(ctx context.Context, status domain.VehicleStatus) ([]*domain.Vehicle, error)
	SetListing(ctx context.Context, status domain.VehicleStatus, vehicles []*domain.Vehicle) error
	InvalidateVehicle(ctx context.Context, id domain.VehicleID) error
}

// EventLedgerInterface defines the interface for reconciled-session tracking.
type EventLedgerInterface interface {
	Seen(ctx context.Context, sessionID string) (bool, error)
	Remember(ctx context.Context, sessionID string) error
}

// ResponseStoreInterface defines the interface for idempotent response storage.
type ResponseStoreInterface interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Ensure concrete types implement interfaces.
var (
	_ VehicleCacheInterface  = (*CacheStore)(nil)
	_ EventLedgerInterface   = (*EventLedger)(nil)
	_ ResponseStoreInterface = (*ResponseStore)(nil)
)
