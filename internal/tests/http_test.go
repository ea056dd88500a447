package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76/webhook"

	"dealership/internal/app"
	"dealership/internal/config"
	"dealership/internal/domain"
	"dealership/internal/gateway"
	"dealership/internal/handler"
	"dealership/internal/service"
)

const testWebhookSecret = "whsec_test_secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type httpFixture struct {
	vehicles     *MockVehicleRepository
	reservations *MockReservationRepository
	checkoutGW   *MockGateway
	responses    *MockResponseStore
	router       *gin.Engine
}

// newHTTPFixture wires the real router. Checkout goes through a mock gateway;
// notifications are verified by the real Stripe adapter.
func newHTTPFixture() *httpFixture {
	logger := newTestLogger()
	f := &httpFixture{
		vehicles:   NewMockVehicleRepository(),
		checkoutGW: NewMockGateway(),
		responses:  NewMockResponseStore(),
	}
	f.reservations = NewMockReservationRepository(f.vehicles)
	f.vehicles.AddVehicle(&domain.Vehicle{
		ID:            7,
		Name:          "2019 Honda Civic",
		Price:         18500,
		DepositAmount: 500,
		Status:        domain.VehicleStatusAvailable,
		CreatedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}, &domain.VehicleImage{VehicleID: 7, ImageURL: "https://cdn.example.com/7/front.jpg", DisplayOrder: 0})

	stripeGW := gateway.NewStripeGateway(config.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		Currency:      "cad",
		Timeout:       2 * time.Second,
	}, logger)

	checkoutService := service.NewCheckoutService(f.vehicles, f.checkoutGW, testAppURL, "cad", logger)
	reconcileService := service.NewReconcileService(stripeGW, f.reservations, NewMockEventLedger(), NewMockVehicleCache(), logger)
	catalogService := service.NewCatalogService(f.vehicles, f.reservations, nil, logger)

	f.router = app.NewRouter(app.RouterDeps{
		CheckoutHandler: handler.NewCheckoutHandler(checkoutService),
		WebhookHandler:  handler.NewWebhookHandler(reconcileService),
		VehicleHandler:  handler.NewVehicleHandler(catalogService),
		ResponseStore:   f.responses,
		Logger:          logger,
	})
	return f
}

func (f *httpFixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func signPayload(payload, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  secret,
	}).Header
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handler.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected JSON error body, got %q", w.Body.String())
	}
	return resp.Error
}

// ──────────────────────────────────────────────
// 3. CHECKOUT ENDPOINT
// ──────────────────────────────────────────────

func TestCheckoutEndpoint_StringAndNumericIDs(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{"carId":"7"}`, `{"carId":7}`} {
		f := newHTTPFixture()
		w := f.do(http.MethodPost, "/api/create-checkout", body, map[string]string{"Content-Type": "application/json"})

		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", body, w.Code, w.Body.String())
		}
		var resp handler.CreateCheckoutResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.URL == "" {
			t.Errorf("%s: expected url in body, got %q", body, w.Body.String())
		}
		req, _ := f.checkoutGW.LastRequest()
		if req.Metadata[gateway.MetadataVehicleID] != "7" {
			t.Errorf("%s: expected carId \"7\", got %q", body, req.Metadata[gateway.MetadataVehicleID])
		}
	}
}

func TestCheckoutEndpoint_ErrorStatuses(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		body       string
		setup      func(f *httpFixture)
		wantStatus int
		wantError  string
	}{
		{
			name:       "unknown vehicle",
			body:       `{"carId":"404"}`,
			wantStatus: http.StatusNotFound,
			wantError:  "car not found",
		},
		{
			name: "reserved vehicle",
			body: `{"carId":"7"}`,
			setup: func(f *httpFixture) {
				f.vehicles.GetVehicle(7).Status = domain.VehicleStatusReserved
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "car not available",
		},
		{
			name:       "non-numeric id",
			body:       `{"carId":"abc"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid car id",
		},
		{
			name:       "missing id",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid car id",
		},
		{
			name:       "malformed body",
			body:       `{"carId":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name: "gateway failure",
			body: `{"carId":"7"}`,
			setup: func(f *httpFixture) {
				f.checkoutGW.CreateSessionError = errString("rate limited")
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "payment gateway error: rate limited",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newHTTPFixture()
			if tc.setup != nil {
				tc.setup(f)
			}
			w := f.do(http.MethodPost, "/api/create-checkout", tc.body, map[string]string{"Content-Type": "application/json"})
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			if got := decodeError(t, w); got != tc.wantError {
				t.Errorf("expected error %q, got %q", tc.wantError, got)
			}
		})
	}
}

func TestCheckoutEndpoint_PreflightAndCORS(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture()
	w := f.do(http.MethodOptions, "/api/create-checkout", "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected CORS origin *, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "POST, OPTIONS" {
		t.Errorf("unexpected allowed methods %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type" {
		t.Errorf("unexpected allowed headers %q", got)
	}
	if f.checkoutGW.CreateSessionCallCount != 0 {
		t.Error("preflight must not create a session")
	}
}

func TestCheckoutEndpoint_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture()
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := f.do(method, "/api/create-checkout", "", nil)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected 405, got %d", method, w.Code)
			continue
		}
		if got := decodeError(t, w); got != "Method not allowed" {
			t.Errorf("%s: unexpected error %q", method, got)
		}
	}
}

func TestCheckoutEndpoint_IdempotencyKeyReplaysResponse(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture()
	headers := map[string]string{"Content-Type": "application/json", "Idempotency-Key": "k-1"}

	first := f.do(http.MethodPost, "/api/create-checkout", `{"carId":"7"}`, headers)
	second := f.do(http.MethodPost, "/api/create-checkout", `{"carId":"7"}`, headers)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected 200s, got %d and %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("expected identical bodies, got %q and %q", first.Body.String(), second.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("expected replay header on second response")
	}
	if f.checkoutGW.CreateSessionCallCount != 1 {
		t.Errorf("expected 1 session, got %d", f.checkoutGW.CreateSessionCallCount)
	}
}

// ──────────────────────────────────────────────
// 4. WEBHOOK ENDPOINT
// ──────────────────────────────────────────────

const completedNotification = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "amount_total": 50000,
      "currency": "cad",
      "customer_details": {"email": "a@b.com"},
      "metadata": {"carId": "7", "customerName": "Ada", "customerPhone": "555-0100"}
    }
  }
}`

func TestWebhookEndpoint_CompletedSession_ReservesVehicle(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture()
	w := f.do(http.MethodPost, "/api/webhook", completedNotification, map[string]string{
		"Stripe-Signature": signPayload(completedNotification, testWebhookSecret),
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if strings.TrimSpace(w.Body.String()) != `{"received":true}` {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	if f.vehicles.GetVehicle(7).Status != domain.VehicleStatusReserved {
		t.Error("expected vehicle to be reserved")
	}

	res, err := f.reservations.GetBySessionID(context.Background(), "cs_test_1")
	if err != nil {
		t.Fatalf("expected reservation, got: %v", err)
	}
	if res.VehicleID != 7 || res.CustomerEmail != "a@b.com" || res.AmountTotal != 50000 || res.Currency != "cad" || res.Status != domain.ReservationStatusPaid {
		t.Errorf("unexpected reservation %+v", res)
	}

	// The success page can look the reservation up.
	lookup := f.do(http.MethodGet, "/api/reservations/cs_test_1", "", nil)
	if lookup.Code != http.StatusOK {
		t.Errorf("expected reservation lookup 200, got %d", lookup.Code)
	}
}

func TestWebhookEndpoint_Replay_OneReservation(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture()
	for i := 0; i < 3; i++ {
		w := f.do(http.MethodPost, "/api/webhook", completedNotification, map[string]string{
			"Stripe-Signature": signPayload(completedNotification, testWebhookSecret),
		})
		if w.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i, w.Code)
		}
	}
	if f.reservations.Count() != 1 {
		t.Errorf("expected 1 reservation, got %d", f.reservations.Count())
	}
}

func TestWebhookEndpoint_RejectsBadSignatures(t *testing.T) {
	t.Parallel()

	tampered := strings.Replace(completedNotification, `"amount_total": 50000`, `"amount_total": 1`, 1)

	testCases := []struct {
		name      string
		payload   string
		signature string
	}{
		{"malformed header", completedNotification, "garbage"},
		{"missing header", completedNotification, ""},
		{"wrong secret", completedNotification, signPayload(completedNotification, "whsec_other")},
		{"tampered payload", tampered, signPayload(completedNotification, testWebhookSecret)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newHTTPFixture()
			headers := map[string]string{}
			if tc.signature != "" {
				headers["Stripe-Signature"] = tc.signature
			}
			w := f.do(http.MethodPost, "/api/webhook", tc.payload, headers)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if !strings.HasPrefix(w.Body.String(), "Webhook Error:") {
				t.Errorf("expected Webhook Error body, got %q", w.Body.String())
			}
			if f.vehicles.GetVehicle(7).Status != domain.VehicleStatusAvailable {
				t.Error("vehicle must not change on rejected notification")
			}
			if f.reservations.Count() != 0 {
				t.Error("no reservation may be created on rejected notification")
			}
		})
	}
}

func TestWebhookEndpoint_StoreFailure_StillAcknowledged(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture()
	f.reservations.ConfirmError = errString("database is down")

	w := f.do(http.MethodPost, "/api/webhook", completedNotification, map[string]string{
		"Stripe-Signature": signPayload(completedNotification, testWebhookSecret),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestWebhookEndpoint_OtherEvent_Acknowledged(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture()
	payload := `{"id":"evt_2","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent"}}}`
	w := f.do(http.MethodPost, "/api/webhook", payload, map[string]string{
		"Stripe-Signature": signPayload(payload, testWebhookSecret),
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if f.vehicles.UpdateStatusCallCount != 0 || f.reservations.Count() != 0 {
		t.Error("store must not change for other event types")
	}
}

func TestWebhookEndpoint_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture()
	w := f.do(http.MethodGet, "/api/webhook", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

// ──────────────────────────────────────────────
// 5. CATALOG ENDPOINTS
// ──────────────────────────────────────────────

func TestCatalogEndpoints(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture()
	f.vehicles.AddVehicle(&domain.Vehicle{ID: 8, Name: "F-150", DepositAmount: 750, Status: domain.VehicleStatusReserved})

	w := f.do(http.MethodGet, "/api/cars?status=available", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []handler.VehicleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != 7 {
		t.Errorf("expected only vehicle 7, got %+v", list)
	}

	w = f.do(http.MethodGet, "/api/cars/7", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var detail handler.VehicleDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.DepositAmount != 500 || len(detail.Images) != 1 || detail.CreatedAt != "2024-05-01T12:00:00Z" {
		t.Errorf("unexpected detail %+v", detail)
	}

	if w = f.do(http.MethodGet, "/api/cars/99", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing car, got %d", w.Code)
	}
	if w = f.do(http.MethodGet, "/api/cars/abc", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", w.Code)
	}
	if w = f.do(http.MethodGet, "/api/cars?status=sold", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad status, got %d", w.Code)
	}
	if w = f.do(http.MethodGet, "/api/reservations/cs_missing", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing reservation, got %d", w.Code)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
