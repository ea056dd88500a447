package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"dealership/internal/domain"
)

// CacheStore handles vehicle caching in Redis.
type CacheStore struct {
	client redis.Cmdable
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client redis.Cmdable) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	VehicleCacheTTL = 60 * time.Second // Detail pages; invalidated on reservation
	ListingCacheTTL = 15 * time.Second // Listing pages
)

// Key prefixes
const (
	vehicleCachePrefix = "cache:car:"
	listingCachePrefix = "cache:cars:"
)

// listingStatuses are the listing keys invalidated when any vehicle changes.
var listingStatuses = []domain.VehicleStatus{"", domain.VehicleStatusAvailable, domain.VehicleStatusReserved}

// CachedVehicle is a cached vehicle detail page.
type CachedVehicle struct {
	Vehicle *domain.Vehicle        `json:"vehicle"`
	Images  []*domain.VehicleImage `json:"images"`
}

func listingKey(status domain.VehicleStatus) string {
	if status == "" {
		return listingCachePrefix + "all"
	}
	return listingCachePrefix + string(status)
}

// GetVehicle retrieves a vehicle detail from cache. Returns nil on a miss.
func (s *CacheStore) GetVehicle(ctx context.Context, id domain.VehicleID) (*CachedVehicle, error) {
	data, err := s.client.Get(ctx, vehicleCachePrefix+id.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedVehicle
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

// SetVehicle stores a vehicle detail in cache.
func (s *CacheStore) SetVehicle(ctx context.Context, cached *CachedVehicle) error {
	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, vehicleCachePrefix+cached.Vehicle.ID.String(), data, VehicleCacheTTL).Err()
}

// GetListing retrieves a vehicle listing from cache. Returns nil on a miss.
func (s *CacheStore) GetListing(ctx context.Context, status domain.VehicleStatus) ([]*domain.Vehicle, error) {
	data, err := s.client.Get(ctx, listingKey(status)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var vehicles []*domain.Vehicle
	if err := json.Unmarshal(data, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// SetListing stores a vehicle listing in cache.
func (s *CacheStore) SetListing(ctx context.Context, status domain.VehicleStatus, vehicles []*domain.Vehicle) error {
	if vehicles == nil {
		vehicles = []*domain.Vehicle{}
	}
	data, err := json.Marshal(vehicles)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, listingKey(status), data, ListingCacheTTL).Err()
}

// InvalidateVehicle removes a vehicle and every listing from cache.
func (s *CacheStore) InvalidateVehicle(ctx context.Context, id domain.VehicleID) error {
	keys := []string{vehicleCachePrefix + id.String()}
	for _, status := range listingStatuses {
		keys = append(keys, listingKey(status))
	}
	return s.client.Del(ctx, keys...).Err()
}
