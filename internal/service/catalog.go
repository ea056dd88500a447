package service

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dealership/internal/domain"
	"dealership/internal/redis"
	"dealership/internal/repository"
)

// CatalogService serves read-only vehicle and reservation lookups for the
// storefront pages.
type CatalogService struct {
	vehicleRepo     repository.VehicleRepository
	reservationRepo repository.ReservationRepository
	cache           redis.VehicleCacheInterface
	logger          log.FieldLogger
}

// NewCatalogService creates a new CatalogService. cache may be nil.
func NewCatalogService(
	vehicleRepo repository.VehicleRepository,
	reservationRepo repository.ReservationRepository,
	cache redis.VehicleCacheInterface,
	logger log.FieldLogger,
) *CatalogService {
	return &CatalogService{
		vehicleRepo:     vehicleRepo,
		reservationRepo: reservationRepo,
		cache:           cache,
		logger:          logger,
	}
}

// VehicleDetail is a vehicle with its gallery.
type VehicleDetail struct {
	Vehicle *domain.Vehicle
	Images  []*domain.VehicleImage
}

// ListVehicles lists vehicles, optionally restricted to a status.
func (s *CatalogService) ListVehicles(ctx context.Context, status domain.VehicleStatus) ([]*domain.Vehicle, error) {
	switch status {
	case "", domain.VehicleStatusAvailable, domain.VehicleStatusReserved:
	default:
		return nil, ErrInvalidStatusFilter
	}

	if s.cache != nil {
		cached, err := s.cache.GetListing(ctx, status)
		if err != nil {
			s.logger.WithError(err).Warn("car listing cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	vehicles, err := s.vehicleRepo.List(ctx, repository.VehicleFilter{Status: status})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetListing(ctx, status, vehicles); err != nil {
			s.logger.WithError(err).Warn("car listing cache write failed")
		}
	}

	return vehicles, nil
}

// GetVehicle retrieves a vehicle and its images.
func (s *CatalogService) GetVehicle(ctx context.Context, id domain.VehicleID) (*VehicleDetail, error) {
	if id <= 0 {
		return nil, ErrInvalidVehicleID
	}

	if s.cache != nil {
		cached, err := s.cache.GetVehicle(ctx, id)
		if err != nil {
			s.logger.WithError(err).Warn("car cache read failed")
		} else if cached != nil {
			return &VehicleDetail{Vehicle: cached.Vehicle, Images: cached.Images}, nil
		}
	}

	detail := &VehicleDetail{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vehicle, err := s.vehicleRepo.GetByID(gctx, id)
		if err != nil {
			return err
		}
		detail.Vehicle = vehicle
		return nil
	})
	g.Go(func() error {
		images, err := s.vehicleRepo.ListImages(gctx, id)
		if err != nil {
			return err
		}
		detail.Images = images
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetVehicle(ctx, &redis.CachedVehicle{Vehicle: detail.Vehicle, Images: detail.Images}); err != nil {
			s.logger.WithError(err).Warn("car cache write failed")
		}
	}

	return detail, nil
}

// GetReservation retrieves the reservation recorded for a checkout session.
func (s *CatalogService) GetReservation(ctx context.Context, sessionID string) (*domain.Reservation, error) {
	if sessionID == "" {
		return nil, ErrInvalidSessionID
	}

	reservation, err := s.reservationRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return reservation, nil
}
