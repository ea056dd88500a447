package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"dealership/internal/domain"
	"dealership/internal/gateway"
	"dealership/internal/metrics"
	"dealership/internal/repository"
)

// PaymentGateway is the interface for the hosted payment provider.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error)
	ParseEvent(payload []byte, signature string) (*gateway.Event, error)
}

// CheckoutService starts hosted checkouts for vehicle deposits.
type CheckoutService struct {
	vehicleRepo repository.VehicleRepository
	gateway     PaymentGateway
	appURL      string
	currency    string
	logger      log.FieldLogger
}

// NewCheckoutService creates a new CheckoutService. appURL is the public base
// URL the gateway redirects to after payment.
func NewCheckoutService(
	vehicleRepo repository.VehicleRepository,
	paymentGateway PaymentGateway,
	appURL string,
	currency string,
	logger log.FieldLogger,
) *CheckoutService {
	return &CheckoutService{
		vehicleRepo: vehicleRepo,
		gateway:     paymentGateway,
		appURL:      appURL,
		currency:    currency,
		logger:      logger,
	}
}

// CreateCheckoutRequest contains the parameters for starting a checkout.
type CreateCheckoutRequest struct {
	VehicleID domain.VehicleID
	Customer  *domain.CustomerInfo
}

// CreateCheckout validates that the vehicle can be reserved and creates a
// payment session for its deposit. Nothing is persisted.
func (s *CheckoutService) CreateCheckout(ctx context.Context, req CreateCheckoutRequest) (*gateway.Session, error) {
	if req.VehicleID <= 0 {
		return nil, ErrInvalidVehicleID
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, req.VehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.CheckoutSessionsTotal.WithLabelValues("not_found").Inc()
			return nil, ErrVehicleNotFound
		}
		metrics.CheckoutSessionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load car %s: %w", req.VehicleID, err)
	}

	// Best effort: the notification handler is the final authority.
	if !vehicle.IsAvailable() {
		metrics.CheckoutSessionsTotal.WithLabelValues("unavailable").Inc()
		return nil, ErrVehicleNotAvailable
	}

	customer := domain.CustomerInfo{}
	if req.Customer != nil {
		customer = *req.Customer
	}

	id := req.VehicleID.String()
	session, err := s.gateway.CreateSession(ctx, gateway.SessionRequest{
		LineItem: gateway.LineItem{
			Name:       "Deposit for " + vehicle.Name,
			UnitAmount: MinorUnits(vehicle.DepositAmount),
			Currency:   s.currency,
			Quantity:   1,
		},
		Metadata: map[string]string{
			gateway.MetadataVehicleID:     id,
			gateway.MetadataCustomerName:  customer.Name,
			gateway.MetadataCustomerPhone: customer.Phone,
		},
		SuccessURL:    s.appURL + "/success.html?carId=" + id,
		CancelURL:     s.appURL + "/cancel.html?carId=" + id,
		CustomerEmail: customer.Email,
	})
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("gateway_error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	metrics.CheckoutSessionsTotal.WithLabelValues("created").Inc()
	s.logger.WithFields(log.Fields{
		"car_id":     id,
		"session_id": session.ID,
	}).Info("checkout session created")

	return session, nil
}

// MinorUnits converts an amount in major currency units to minor units.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
