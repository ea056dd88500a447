package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76/webhook"

	"dealership/internal/config"
)

const testWebhookSecret = "whsec_test_secret"

const completedPayload = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "amount_total": 50000,
      "currency": "cad",
      "customer_email": "checkout@b.com",
      "customer_details": {"email": "a@b.com"},
      "metadata": {"carId": "7", "customerName": "Ada", "customerPhone": "555-0100"}
    }
  }
}`

func quietLogger() log.FieldLogger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestGateway(opts ...Option) *StripeGateway {
	return NewStripeGateway(config.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		Currency:      "cad",
		Timeout:       2 * time.Second,
	}, quietLogger(), opts...)
}

func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  secret,
	}).Header
}

func TestParseEvent_ValidSignature(t *testing.T) {
	g := newTestGateway()
	payload := []byte(completedPayload)

	event, err := g.ParseEvent(payload, sign(payload, testWebhookSecret))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != EventCheckoutSessionCompleted {
		t.Errorf("expected completed event, got %s", event.Type)
	}

	session, err := event.CheckoutSession()
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if session.ID != "cs_test_1" || session.AmountTotal != 50000 || session.Currency != "cad" {
		t.Errorf("unexpected session: %+v", session)
	}
	if session.Metadata[MetadataVehicleID] != "7" {
		t.Errorf("expected carId 7, got %q", session.Metadata[MetadataVehicleID])
	}
	if session.Email() != "a@b.com" {
		t.Errorf("expected payment-confirmed email, got %q", session.Email())
	}
}

func TestParseEvent_RejectsTamperedPayload(t *testing.T) {
	g := newTestGateway()
	payload := []byte(completedPayload)
	header := sign(payload, testWebhookSecret)

	tampered := []byte(completedPayload)
	tampered[len(tampered)-3] = ' '

	_, err := g.ParseEvent(tampered, header)
	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected VerificationError, got %v", err)
	}
	if !errors.Is(err, webhook.ErrNoValidSignature) {
		t.Errorf("expected ErrNoValidSignature, got %v", err)
	}
}

func TestParseEvent_RejectsWrongSecret(t *testing.T) {
	g := newTestGateway()
	payload := []byte(completedPayload)

	_, err := g.ParseEvent(payload, sign(payload, "whsec_other"))
	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected VerificationError, got %v", err)
	}
}

func TestParseEvent_RejectsMalformedHeader(t *testing.T) {
	g := newTestGateway()

	for _, header := range []string{"", "garbage", "t=abc,v1=def"} {
		if _, err := g.ParseEvent([]byte(completedPayload), header); err == nil {
			t.Errorf("expected error for header %q", header)
		}
	}
}

func TestCompletedSession_EmailFallback(t *testing.T) {
	event := &Event{
		Type:   EventCheckoutSessionCompleted,
		Object: []byte(`{"id":"cs_1","customer_email":"checkout@b.com","metadata":{"carId":"3"}}`),
	}

	session, err := event.CheckoutSession()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Email() != "checkout@b.com" {
		t.Errorf("expected checkout email fallback, got %q", session.Email())
	}
}

func TestEvent_CheckoutSession_WrongType(t *testing.T) {
	event := &Event{Type: "payment_intent.succeeded", Object: []byte(`{}`)}

	if _, err := event.CheckoutSession(); !errors.Is(err, ErrNotCheckoutSession) {
		t.Errorf("expected ErrNotCheckoutSession, got %v", err)
	}
}

func TestCreateSession_SendsLineItemAndMetadata(t *testing.T) {
	var form url.Values
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`)
	}))
	defer server.Close()

	g := newTestGateway(WithAPIURL(server.URL))

	session, err := g.CreateSession(context.Background(), SessionRequest{
		LineItem: LineItem{
			Name:       "Deposit for 2019 Civic",
			UnitAmount: 50000,
			Currency:   "cad",
			Quantity:   1,
		},
		Metadata: map[string]string{
			MetadataVehicleID:     "7",
			MetadataCustomerName:  "Ada",
			MetadataCustomerPhone: "",
		},
		SuccessURL:    "https://cars.example.com/success.html?carId=7",
		CancelURL:     "https://cars.example.com/cancel.html?carId=7",
		CustomerEmail: "a@b.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.ID != "cs_test_1" || session.URL != "https://checkout.stripe.com/c/pay/cs_test_1" {
		t.Errorf("unexpected session: %+v", session)
	}
	if path != "/v1/checkout/sessions" {
		t.Errorf("unexpected path %s", path)
	}

	expected := map[string]string{
		"mode":                                          "payment",
		"payment_method_types[0]":                       "card",
		"line_items[0][quantity]":                       "1",
		"line_items[0][price_data][unit_amount]":        "50000",
		"line_items[0][price_data][currency]":           "cad",
		"line_items[0][price_data][product_data][name]": "Deposit for 2019 Civic",
		"metadata[carId]":                               "7",
		"metadata[customerName]":                        "Ada",
		"customer_email":                                "a@b.com",
		"success_url":                                   "https://cars.example.com/success.html?carId=7",
		"cancel_url":                                    "https://cars.example.com/cancel.html?carId=7",
	}
	for key, want := range expected {
		if got := form.Get(key); got != want {
			t.Errorf("form[%s] = %q, want %q", key, got, want)
		}
	}
}

func TestCreateSession_ProviderErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"type":"invalid_request_error","message":"Invalid currency: xyz"}}`)
	}))
	defer server.Close()

	g := newTestGateway(WithAPIURL(server.URL))
	_, err := g.CreateSession(context.Background(), SessionRequest{
		LineItem:   LineItem{Name: "Deposit", UnitAmount: 100, Currency: "xyz", Quantity: 1},
		SuccessURL: "https://cars.example.com/success.html?carId=1",
		CancelURL:  "https://cars.example.com/cancel.html?carId=1",
	})

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if err.Error() != "Invalid currency: xyz" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestParseEvent_EmptySecretRejectsEverything(t *testing.T) {
	g := NewStripeGateway(config.StripeConfig{
		SecretKey: "sk_test_123",
		Currency:  "cad",
		Timeout:   2 * time.Second,
	}, quietLogger())
	payload := []byte(completedPayload)

	// A payload signed with an empty key must not verify.
	_, err := g.ParseEvent(payload, sign(payload, ""))
	if !errors.Is(err, ErrMissingWebhookSecret) {
		t.Fatalf("expected ErrMissingWebhookSecret, got %v", err)
	}
	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Errorf("expected VerificationError, got %T", err)
	}
}

func TestCreateSession_InvalidRequestsDoNotOpenCircuit(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&hits, 1) <= 5 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"type":"invalid_request_error","message":"Invalid email address: nope"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"cs_test_6","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_6"}`)
	}))
	defer server.Close()

	g := newTestGateway(WithAPIURL(server.URL))
	req := SessionRequest{
		LineItem:      LineItem{Name: "Deposit", UnitAmount: 50000, Currency: "cad", Quantity: 1},
		SuccessURL:    "https://cars.example.com/success.html?carId=7",
		CancelURL:     "https://cars.example.com/cancel.html?carId=7",
		CustomerEmail: "nope",
	}

	for i := 0; i < 5; i++ {
		if _, err := g.CreateSession(context.Background(), req); err == nil {
			t.Fatalf("call %d: expected invalid request error", i)
		}
	}

	req.CustomerEmail = "a@b.com"
	session, err := g.CreateSession(context.Background(), req)
	if err != nil {
		t.Fatalf("expected valid checkout to succeed after rejected ones, got %v", err)
	}
	if session.ID != "cs_test_6" {
		t.Errorf("unexpected session %+v", session)
	}
	if got := atomic.LoadInt32(&hits); got != 6 {
		t.Errorf("expected 6 calls to reach stripe, got %d", got)
	}
}

func TestCreateSession_ServerErrorsOpenCircuit(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"type":"api_error","message":"Something went wrong"}}`)
	}))
	defer server.Close()

	g := newTestGateway(WithAPIURL(server.URL))
	req := SessionRequest{
		LineItem:   LineItem{Name: "Deposit", UnitAmount: 50000, Currency: "cad", Quantity: 1},
		SuccessURL: "https://cars.example.com/success.html?carId=7",
		CancelURL:  "https://cars.example.com/cancel.html?carId=7",
	}

	for i := 0; i < 6; i++ {
		_, _ = g.CreateSession(context.Background(), req)
	}
	if got := atomic.LoadInt32(&hits); got != 5 {
		t.Errorf("expected circuit to open after 5 server errors, got %d calls", got)
	}
}
