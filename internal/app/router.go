package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"dealership/internal/handler"
	"dealership/internal/metrics"
	"dealership/internal/middleware"
	"dealership/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	CheckoutHandler *handler.CheckoutHandler
	WebhookHandler  *handler.WebhookHandler
	VehicleHandler  *handler.VehicleHandler
	ResponseStore   redis.ResponseStoreInterface
	NewRelicApp     *newrelic.Application
	Logger          log.FieldLogger
	MetricsEnabled  bool
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.NoMethod(handler.MethodNotAllowed)

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORSMiddleware())

	if deps.MetricsEnabled {
		router.Use(metrics.PrometheusMiddleware())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		// Checkout routes.
		checkout := []gin.HandlerFunc{deps.CheckoutHandler.CreateCheckout}
		if deps.ResponseStore != nil {
			checkout = append([]gin.HandlerFunc{middleware.IdempotencyMiddleware(deps.ResponseStore, deps.Logger)}, checkout...)
		}
		api.POST("/create-checkout", checkout...)
		api.OPTIONS("/create-checkout", deps.CheckoutHandler.Preflight)

		// Payment notifications. The body must reach the handler untouched.
		api.POST("/webhook", deps.WebhookHandler.HandleWebhook)

		// Catalog routes.
		api.GET("/cars", deps.VehicleHandler.ListVehicles)
		api.GET("/cars/:id", deps.VehicleHandler.GetVehicle)
		api.GET("/reservations/:sessionId", deps.VehicleHandler.GetReservation)
	}

	return router
}
