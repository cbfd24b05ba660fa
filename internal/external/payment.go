package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "tikiti/internal/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentClient talks to the mobile-money payment processor. Both calls are
// one-way outbound requests; results come back asynchronously on the webhook.
type PaymentClient struct {
	baseURL    string
	apiKey     string
	currency   string
	successURL string
	cancelURL  string
	httpClient *http.Client
}

type PaymentConfig struct {
	BaseURL    string
	APIKey     string
	Currency   string
	SuccessURL string
	CancelURL  string
	Timeout    time.Duration
}

type CheckoutSessionRequest struct {
	Name       string            `json:"name"`
	Amount     decimal.Decimal   `json:"amount"`
	Currency   string            `json:"currency"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata"`
}

type CheckoutSessionResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
	ExpiresAt   string `json:"expires_at"`
}

type PayoutRequest struct {
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Destination string            `json:"destination"`
	Metadata    map[string]string `json:"metadata"`
}

type PayoutResponse struct {
	PayoutID string `json:"payout_id"`
	Status   string `json:"status"`
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "SLE"
	}

	return &PaymentClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		currency:   cfg.Currency,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Currency returns the settlement currency the client charges in.
func (pc *PaymentClient) Currency() string {
	return pc.currency
}

// CreateCheckoutSession obtains a hosted checkout page for the given amount.
// The metadata is echoed back verbatim on the webhook and is the only
// correlation mechanism between the processor and the ledger.
func (pc *PaymentClient) CreateCheckoutSession(name string, amount decimal.Decimal, metadata map[string]string) (*CheckoutSessionResponse, error) {
	req := CheckoutSessionRequest{
		Name:       name,
		Amount:     amount,
		Currency:   pc.currency,
		SuccessURL: pc.successURL,
		CancelURL:  pc.cancelURL,
		Metadata:   metadata,
	}

	var result CheckoutSessionResponse
	if err := pc.post("/checkout-sessions", req, &result); err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if result.SessionID == "" || result.RedirectURL == "" {
		return nil, fmt.Errorf("malformed checkout session response: %w", apperrors.ErrUpstreamFailure)
	}

	return &result, nil
}

// CreatePayout asks the processor to transfer the net amount to the
// organizer's mobile-money account.
func (pc *PaymentClient) CreatePayout(amount decimal.Decimal, destination string, metadata map[string]string) (*PayoutResponse, error) {
	req := PayoutRequest{
		Amount:      amount,
		Currency:    pc.currency,
		Destination: destination,
		Metadata:    metadata,
	}

	var result PayoutResponse
	if err := pc.post("/payouts", req, &result); err != nil {
		return nil, fmt.Errorf("failed to create payout: %w", err)
	}

	if result.PayoutID == "" {
		return nil, fmt.Errorf("malformed payout response: %w", apperrors.ErrUpstreamFailure)
	}

	return &result, nil
}

// post sends an authenticated JSON request with a fresh idempotency key so a
// retried call is not executed twice by the processor.
func (pc *PaymentClient) post(path string, body any, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, pc.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+pc.apiKey)
	httpReq.Header.Set("Idempotency-Key", uuid.New().String())

	resp, err := pc.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status code %d", apperrors.ErrUpstreamFailure, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", apperrors.ErrUpstreamFailure, err)
	}

	return nil
}
