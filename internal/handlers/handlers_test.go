package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tikiti/internal/external"
	"tikiti/internal/middleware"
	"tikiti/internal/models"
	"tikiti/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret     = "whsec_handlers"
	testSweepToken = "sweep-token"
)

// Minimal in-memory stores: a single published event with one pending ticket
// slot, enough to drive the endpoints end to end.

type stubEventStore struct{ event *models.Event }

func (s *stubEventStore) GetByID(_ context.Context, id int64) (*models.Event, error) {
	if s.event != nil && s.event.ID == id {
		cp := *s.event
		return &cp, nil
	}
	return nil, nil
}
func (s *stubEventStore) ListPayoutEligible(context.Context, time.Time) ([]models.Event, error) {
	return nil, nil
}
func (s *stubEventStore) MarkPayoutCompleted(context.Context, int64) error { return nil }

type stubTicketStore struct{ ticket *models.Ticket }

func (s *stubTicketStore) CreatePending(_ context.Context, t *models.Ticket, _ int) error {
	t.ID = 1
	t.TicketNo = 1
	t.PaymentStatus = models.PaymentStatusPending
	t.Status = models.TicketStatusPending
	cp := *t
	s.ticket = &cp
	return nil
}
func (s *stubTicketStore) GetByID(_ context.Context, id int64) (*models.Ticket, error) {
	if s.ticket != nil && s.ticket.ID == id {
		cp := *s.ticket
		return &cp, nil
	}
	return nil, nil
}
func (s *stubTicketStore) GetBySessionID(_ context.Context, sessionID string) (*models.Ticket, error) {
	if s.ticket != nil && s.ticket.SessionID != nil && *s.ticket.SessionID == sessionID {
		cp := *s.ticket
		return &cp, nil
	}
	return nil, nil
}
func (s *stubTicketStore) CountPaid(context.Context, int64) (int, error) { return 0, nil }
func (s *stubTicketStore) SetSessionID(_ context.Context, _ int64, sessionID string) error {
	s.ticket.SessionID = &sessionID
	return nil
}
func (s *stubTicketStore) SetOwner(_ context.Context, _ int64, userID int64) error {
	if s.ticket.UserID == nil {
		s.ticket.UserID = &userID
	}
	return nil
}
func (s *stubTicketStore) TransitionPayment(_ context.Context, _ int64, from []string, to string) (bool, error) {
	for _, f := range from {
		if s.ticket != nil && s.ticket.PaymentStatus == f {
			s.ticket.PaymentStatus = to
			return true, nil
		}
	}
	return false, nil
}
func (s *stubTicketStore) TransitionLifecycle(_ context.Context, _ int64, from []string, to string, qrToken string) (bool, error) {
	for _, f := range from {
		if s.ticket != nil && s.ticket.Status == f {
			s.ticket.Status = to
			if s.ticket.QRToken == nil && qrToken != "" {
				s.ticket.QRToken = &qrToken
			}
			return true, nil
		}
	}
	return false, nil
}
func (s *stubTicketStore) SetProcessorFee(context.Context, int64, decimal.Decimal) error {
	return nil
}
func (s *stubTicketStore) ListPaid(context.Context, int64) ([]models.Ticket, error) { return nil, nil }
func (s *stubTicketStore) ListStale(context.Context, time.Time) ([]models.Ticket, error) {
	return nil, nil
}

type stubUserStore struct{}

func (stubUserStore) GetByID(context.Context, int64) (*models.User, error)     { return nil, nil }
func (stubUserStore) GetByEmail(context.Context, string) (*models.User, error) { return nil, nil }
func (stubUserStore) CreateGuest(_ context.Context, email string) (*models.User, error) {
	return &models.User{ID: 99, Email: email, IsGuest: true}, nil
}

type stubPaymentStore struct{}

func (stubPaymentStore) Create(context.Context, *models.Payment) error { return nil }
func (stubPaymentStore) TransitionByTicket(context.Context, int64, []string, string, string) (bool, error) {
	return true, nil
}

type stubPayoutStore struct{}

func (stubPayoutStore) Create(context.Context, *models.Payout) error { return nil }
func (stubPayoutStore) TransitionByProcessorID(context.Context, string, []string, string, *time.Time) (bool, error) {
	return false, nil
}

type stubProcessor struct{}

func (stubProcessor) Currency() string { return "SLE" }
func (stubProcessor) CreateCheckoutSession(string, decimal.Decimal, map[string]string) (*external.CheckoutSessionResponse, error) {
	return &external.CheckoutSessionResponse{SessionID: "cs_1", RedirectURL: "https://pay.example.test/cs_1"}, nil
}
func (stubProcessor) CreatePayout(_ decimal.Decimal, _ string, _ map[string]string) (*external.PayoutResponse, error) {
	return &external.PayoutResponse{PayoutID: "po_1", Status: "processing"}, nil
}

type stubMailer struct{ sent int }

func (m *stubMailer) SendTicketConfirmation(string, string, string) error {
	m.sent++
	return nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(string, interface{}) error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *stubTicketStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	events := &stubEventStore{event: &models.Event{
		ID:           10,
		OrganizerID:  1,
		Title:        "Handlers Test Event",
		EndsAt:       time.Now().Add(24 * time.Hour),
		MaxAttendees: 50,
		TicketPrice:  decimal.RequireFromString("100"),
		FeeModel:     models.FeeModelBuyerPays,
		Status:       models.EventStatusPublished,
	}}
	tickets := &stubTicketStore{}
	mailer := &stubMailer{}

	services := &service.Services{
		Checkout: service.NewCheckoutService(events, tickets, stubUserStore{}, stubPaymentStore{}, stubProcessor{}, stubPublisher{}),
		Webhooks: service.NewWebhookService(events, tickets, stubUserStore{}, stubPaymentStore{}, stubPayoutStore{}, mailer, stubPublisher{}, nil, testSecret),
		Payouts:  service.NewPayoutService(events, tickets, stubUserStore{}, stubPayoutStore{}, stubProcessor{}, stubPublisher{}),
		Expiry:   service.NewExpiryService(tickets, stubPublisher{}),
	}

	h := NewHandlers(services)
	router := gin.New()
	api := router.Group("/api")
	api.POST("/checkout", h.CreateCheckout)
	api.POST("/checkout/cancel", h.CancelCheckout)
	api.POST("/webhooks/payments", h.PaymentWebhook)
	sweeps := api.Group("/sweeps")
	sweeps.Use(middleware.BearerAuth(testSweepToken))
	sweeps.POST("/payouts", h.SweepPayouts)
	sweeps.POST("/expiry", h.SweepExpiry)
	return router, tickets
}

func doJSON(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCreateCheckoutEndpoint(t *testing.T) {
	router, tickets := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/checkout", models.CreateCheckoutRequest{
		EventID: 10,
		Email:   "buyer@example.sl",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.CreateCheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.TicketID)
	assert.Equal(t, "https://pay.example.test/cs_1", resp.CheckoutURL)
	require.NotNil(t, tickets.ticket)
	assert.Equal(t, models.TicketStatusPending, tickets.ticket.Status)
}

func TestCreateCheckoutEndpointBadRequest(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/checkout", gin.H{"email": "x@example.sl"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCheckoutEndpointUnknownEvent(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/checkout", models.CreateCheckoutRequest{
		EventID: 404,
		Email:   "x@example.sl",
	}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body["error"])
}

func TestCancelCheckoutEndpoint(t *testing.T) {
	router, tickets := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/checkout", models.CreateCheckoutRequest{
		EventID: 10,
		Email:   "buyer@example.sl",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/api/checkout/cancel", models.CancelCheckoutRequest{TicketID: 1}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.TicketStatusCancelled, tickets.ticket.Status)

	// Cancelling twice conflicts
	w = doJSON(router, http.MethodPost, "/api/checkout/cancel", models.CancelCheckoutRequest{TicketID: 1}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPaymentWebhookEndpoint(t *testing.T) {
	router, tickets := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/checkout", models.CreateCheckoutRequest{
		EventID: 10,
		Email:   "buyer@example.sl",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	event := models.WebhookEvent{
		ID:   "evt_1",
		Type: models.WebhookCheckoutCompleted,
		Data: models.WebhookEventData{
			SessionID:     "cs_1",
			TransactionID: "txn_1",
			CustomerEmail: "buyer@example.sl",
		},
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(body))
	req.Header.Set("X-Signature", signBody(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.PaymentStatusPaid, tickets.ticket.PaymentStatus)
	assert.Equal(t, models.TicketStatusApproved, tickets.ticket.Status)
}

func TestPaymentWebhookEndpointBadSignature(t *testing.T) {
	router, _ := newTestRouter(t)

	body := []byte(`{"id":"evt_1","type":"checkout_session.completed"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(body))
	req.Header.Set("X-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaymentWebhookEndpointMalformedBody(t *testing.T) {
	router, _ := newTestRouter(t)

	body := []byte(`{not json`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(body))
	req.Header.Set("X-Signature", signBody(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSweepEndpointsRequireToken(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/api/sweeps/payouts", "/api/sweeps/expiry"} {
		w := doJSON(router, http.MethodPost, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = doJSON(router, http.MethodPost, path, nil, map[string]string{
			"Authorization": "Bearer wrong-token",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = doJSON(router, http.MethodPost, path, nil, map[string]string{
			"Authorization": "Bearer " + testSweepToken,
		})
		require.Equal(t, http.StatusOK, w.Code, path)

		var resp models.SweepResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Total)
	}
}
