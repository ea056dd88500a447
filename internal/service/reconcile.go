package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"dealership/internal/domain"
	"dealership/internal/gateway"
	"dealership/internal/metrics"
	"dealership/internal/redis"
	"dealership/internal/repository"
)

// Outcome describes what a payment notification did to the store.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeReserved  Outcome = "reserved"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// ReconcileService applies verified payment notifications to the store.
type ReconcileService struct {
	gateway PaymentGateway
	store   repository.ReservationStore
	ledger  redis.EventLedgerInterface
	cache   redis.VehicleCacheInterface
	logger  log.FieldLogger
	now     func() time.Time
}

// NewReconcileService creates a new ReconcileService. ledger and cache may be
// nil.
func NewReconcileService(
	paymentGateway PaymentGateway,
	store repository.ReservationStore,
	ledger redis.EventLedgerInterface,
	cache redis.VehicleCacheInterface,
	logger log.FieldLogger,
) *ReconcileService {
	return &ReconcileService{
		gateway: paymentGateway,
		store:   store,
		ledger:  ledger,
		cache:   cache,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// VerifyEvent authenticates the raw notification payload. The payload must be
// the exact bytes received; it is only decoded after verification succeeds.
func (s *ReconcileService) VerifyEvent(payload []byte, signature string) (*gateway.Event, error) {
	event, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		s.logger.WithError(err).Warn("webhook signature verification failed")
		return nil, fmt.Errorf("%w: %w", ErrSignatureVerification, err)
	}
	return event, nil
}

// HandleEvent applies a verified event. Only completed checkout sessions
// change state. Store failures are logged and returned wrapped in
// ErrPersistence; callers acknowledge the notification regardless.
func (s *ReconcileService) HandleEvent(ctx context.Context, event *gateway.Event) (Outcome, error) {
	outcome, err := s.handle(ctx, event)
	metrics.WebhookEventsTotal.WithLabelValues(event.Type, string(outcome)).Inc()
	return outcome, err
}

func (s *ReconcileService) handle(ctx context.Context, event *gateway.Event) (Outcome, error) {
	logger := s.logger.WithFields(log.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	if event.Type != gateway.EventCheckoutSessionCompleted {
		logger.Debug("ignoring webhook event")
		return OutcomeIgnored, nil
	}

	session, err := event.CheckoutSession()
	if err != nil {
		logger.WithError(err).Error("failed to decode checkout session")
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	logger = logger.WithFields(log.Fields{
		"session_id": session.ID,
		"car_id":     session.Metadata[gateway.MetadataVehicleID],
	})

	vehicleID, err := domain.ParseVehicleID(session.Metadata[gateway.MetadataVehicleID])
	if err != nil {
		logger.WithError(err).Error("checkout session has no usable car id")
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if s.ledger != nil {
		seen, err := s.ledger.Seen(ctx, session.ID)
		if err != nil {
			// The store's unique session index still prevents duplicates.
			logger.WithError(err).Warn("event ledger unavailable")
		} else if seen {
			logger.Info("checkout session already reconciled")
			return OutcomeDuplicate, nil
		}
	}

	reservation := &domain.Reservation{
		ID:            uuid.New().String(),
		VehicleID:     vehicleID,
		SessionID:     session.ID,
		CustomerEmail: session.Email(),
		CustomerName:  session.Metadata[gateway.MetadataCustomerName],
		CustomerPhone: session.Metadata[gateway.MetadataCustomerPhone],
		AmountTotal:   session.AmountTotal,
		Currency:      session.Currency,
		Status:        domain.ReservationStatusPaid,
		CreatedAt:     s.now(),
	}

	logger.Info("payment completed for car")

	created, err := s.store.ConfirmReservation(ctx, reservation, reservation.CreatedAt)
	if err != nil {
		logger.WithError(err).Error("failed to record reservation")
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.remember(ctx, logger, session.ID)

	if !created {
		logger.Info("reservation already recorded for session")
		return OutcomeDuplicate, nil
	}

	if s.cache != nil {
		if err := s.cache.InvalidateVehicle(ctx, vehicleID); err != nil {
			logger.WithError(err).Warn("failed to invalidate car cache")
		}
	}

	metrics.DepositAmount.Observe(float64(reservation.AmountTotal) / 100)
	logger.WithField("reservation_id", reservation.ID).Info("reservation recorded")

	return OutcomeReserved, nil
}

func (s *ReconcileService) remember(ctx context.Context, logger log.FieldLogger, sessionID string) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Remember(ctx, sessionID); err != nil {
		logger.WithError(err).Warn("failed to record session in event ledger")
	}
}
