package gateway

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"dealership/internal/config"
	"dealership/internal/patterns"
)

// StripeGateway creates Stripe Checkout sessions and verifies Stripe webhooks.
type StripeGateway struct {
	sessions      *session.Client
	webhookSecret string
	breaker       *patterns.CircuitBreaker
}

// Option customizes a StripeGateway.
type Option func(*stripe.BackendConfig)

// WithAPIURL points the gateway at a different API host.
func WithAPIURL(url string) Option {
	return func(c *stripe.BackendConfig) {
		c.URL = stripe.String(url)
	}
}

// NewStripeGateway creates a Stripe-backed gateway. The SDK logs through logger.
func NewStripeGateway(cfg config.StripeConfig, logger log.FieldLogger, opts ...Option) *StripeGateway {
	backendConfig := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		LeveledLogger:     logger,
		MaxNetworkRetries: stripe.Int64(0),
	}
	for _, opt := range opts {
		opt(backendConfig)
	}
	if cfg.WebhookSecret == "" {
		logger.Warn("stripe webhook secret is empty; all payment notifications will be rejected")
	}

	return &StripeGateway{
		sessions: &session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
			Key: cfg.SecretKey,
		},
		webhookSecret: cfg.WebhookSecret,
		breaker:       patterns.NewCircuitBreaker("stripe", logger, patterns.WithSuccessCheck(providerHealthy)),
	}
}

// CreateSession creates a one-line-item card payment session.
func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	quantity := req.LineItem.Quantity
	if quantity == 0 {
		quantity = 1
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.LineItem.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.LineItem.Name),
					},
					UnitAmount: stripe.Int64(req.LineItem.UnitAmount),
				},
				Quantity: stripe.Int64(quantity),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.sessions.New(params)
	})
	if err != nil {
		return nil, providerError(err)
	}

	s := result.(*stripe.CheckoutSession)
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// ParseEvent verifies the Stripe-Signature header against the exact payload
// bytes and only then decodes the event envelope.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	if g.webhookSecret == "" {
		return nil, &VerificationError{Err: ErrMissingWebhookSecret}
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, &VerificationError{Err: err}
	}

	out := &Event{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if event.Data != nil {
		out.Object = event.Data.Raw
	}
	return out, nil
}

// providerError surfaces Stripe's human-readable message instead of the
// JSON-encoded error body.
func providerError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return &ProviderError{Message: stripeErr.Msg, Err: err}
	}
	return err
}

// providerHealthy reports whether a call outcome says Stripe itself is
// working. Requests Stripe rejected as invalid do not count against the
// circuit; rate limiting, 5xx and transport errors do.
func providerHealthy(err error) bool {
	if err == nil {
		return true
	}
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	code := stripeErr.HTTPStatusCode
	return code >= http.StatusBadRequest && code < http.StatusInternalServerError && code != http.StatusTooManyRequests
}
