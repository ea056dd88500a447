package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dealership/internal/app"
	"dealership/internal/config"
	"dealership/internal/gateway"
	"dealership/internal/handler"
	internalRedis "dealership/internal/redis"
	"dealership/internal/repository"
	"dealership/internal/repository/postgres"
	"dealership/internal/repository/supabase"
	"dealership/internal/service"
)

// stores groups the repositories backing one STORE_BACKEND.
type stores struct {
	vehicles     repository.VehicleRepository
	reservations repository.ReservationRepository
	reserver     repository.ReservationStore
	close        func() error
}

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	st, err := openStores(ctx, cfg, nrApp, logger)
	if err != nil {
		logger.WithError(err).WithField("backend", cfg.StoreBackend).Fatal("failed to open vehicle store")
	}
	defer st.close()
	logger.WithField("backend", cfg.StoreBackend).Info("Vehicle store ready")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	// Wire dependencies.
	server := wireServer(st, redisClient, nrApp, cfg, logger)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server stopped with error")
		if nrApp != nil {
			nrApp.Shutdown(5 * time.Second)
		}
		os.Exit(1)
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}
	logger.Info("Server exited")
}

// openStores connects the configured store backend.
func openStores(ctx context.Context, cfg *config.Config, nrApp *newrelic.Application, logger log.FieldLogger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendSupabase:
		client := supabase.NewClient(cfg.Supabase, logger)
		reservations := supabase.NewReservationRepository(client)
		return &stores{
			vehicles:     supabase.NewVehicleRepository(client),
			reservations: reservations,
			reserver:     reservations,
			close:        func() error { return nil },
		}, nil
	default:
		db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			return nil, err
		}
		return postgresStores(db), nil
	}
}

func postgresStores(db *sql.DB) *stores {
	return &stores{
		vehicles:     postgres.NewVehicleRepository(db),
		reservations: postgres.NewReservationRepository(db),
		reserver:     postgres.NewReservationStore(db),
		close:        db.Close,
	}
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(st *stores, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, logger log.FieldLogger) *http.Server {
	// Initialize Redis stores.
	cacheStore := internalRedis.NewCacheStore(redisClient)
	eventLedger := internalRedis.NewEventLedger(redisClient)
	responseStore := internalRedis.NewResponseStore(redisClient)

	// Initialize the payment gateway.
	paymentGateway := gateway.NewStripeGateway(cfg.Stripe, logger)

	// Initialize services.
	checkoutService := service.NewCheckoutService(st.vehicles, paymentGateway, cfg.AppURL, cfg.Stripe.Currency, logger)
	reconcileService := service.NewReconcileService(paymentGateway, st.reserver, eventLedger, cacheStore, logger)
	catalogService := service.NewCatalogService(st.vehicles, st.reservations, cacheStore, logger)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		CheckoutHandler: handler.NewCheckoutHandler(checkoutService),
		WebhookHandler:  handler.NewWebhookHandler(reconcileService),
		VehicleHandler:  handler.NewVehicleHandler(catalogService),
		ResponseStore:   responseStore,
		NewRelicApp:     nrApp,
		Logger:          logger,
		MetricsEnabled:  cfg.MetricsEnabled,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
