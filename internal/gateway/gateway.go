// Package gateway adapts the hosted payment provider to the storefront:
// creating checkout sessions and verifying signed payment notifications.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventCheckoutSessionCompleted is the only notification type that changes
// store state.
const EventCheckoutSessionCompleted = "checkout.session.completed"

// Metadata keys round-tripped through a checkout session.
const (
	MetadataVehicleID     = "carId"
	MetadataCustomerName  = "customerName"
	MetadataCustomerPhone = "customerPhone"
)

// ErrNotCheckoutSession is returned when decoding a session from an event of
// another type.
var ErrNotCheckoutSession = errors.New("event does not carry a checkout session")

// ErrMissingWebhookSecret is returned when notifications arrive but no
// webhook secret is configured. Such notifications are never trusted.
var ErrMissingWebhookSecret = errors.New("webhook secret is not configured")

// LineItem is a single priced line of a checkout session.
type LineItem struct {
	Name       string
	UnitAmount int64 // in minor currency units
	Currency   string
	Quantity   int64
}

// SessionRequest describes a hosted checkout session to create.
type SessionRequest struct {
	LineItem      LineItem
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
}

// Session is a created hosted checkout session.
type Session struct {
	ID  string
	URL string
}

// VerificationError reports a notification whose signature could not be
// verified against the raw payload.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return e.Err.Error()
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// ProviderError carries the message reported by the payment provider.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Event is a verified payment notification.
type Event struct {
	ID   string
	Type string
	// Object is the raw JSON of the event's subject.
	Object json.RawMessage
}

// CompletedSession is the subset of a completed checkout session used for
// reconciliation.
type CompletedSession struct {
	ID            string
	Metadata      map[string]string
	CustomerEmail string
	// DetailsEmail is the email confirmed during payment, if any.
	DetailsEmail string
	AmountTotal  int64
	Currency     string
}

// Email returns the payment-confirmed email, falling back to the email
// supplied at checkout.
func (s *CompletedSession) Email() string {
	if s.DetailsEmail != "" {
		return s.DetailsEmail
	}
	return s.CustomerEmail
}

type checkoutSessionObject struct {
	ID              string            `json:"id"`
	Metadata        map[string]string `json:"metadata"`
	CustomerEmail   string            `json:"customer_email"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

// CheckoutSession decodes the completed session carried by the event.
func (e *Event) CheckoutSession() (*CompletedSession, error) {
	if e.Type != EventCheckoutSessionCompleted {
		return nil, ErrNotCheckoutSession
	}

	var obj checkoutSessionObject
	if err := json.Unmarshal(e.Object, &obj); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	session := &CompletedSession{
		ID:            obj.ID,
		Metadata:      obj.Metadata,
		CustomerEmail: obj.CustomerEmail,
		AmountTotal:   obj.AmountTotal,
		Currency:      obj.Currency,
	}
	if obj.CustomerDetails != nil {
		session.DetailsEmail = obj.CustomerDetails.Email
	}
	if session.Metadata == nil {
		session.Metadata = map[string]string{}
	}
	return session, nil
}
