package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MailerClient sends transactional email through the mail API. Delivery is
// best-effort; callers log failures and move on.
type MailerClient struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

type MailerConfig struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
}

type mailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func NewMailerClient(cfg MailerConfig) *MailerClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &MailerClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SendTicketConfirmation emails the buyer their check-in token after a paid
// ticket is approved.
func (mc *MailerClient) SendTicketConfirmation(to, eventTitle, qrToken string) error {
	if mc.baseURL == "" {
		return fmt.Errorf("mailer is not configured")
	}

	msg := mailMessage{
		From:    mc.from,
		To:      to,
		Subject: fmt.Sprintf("Your ticket for %s", eventTitle),
		Body:    fmt.Sprintf("Your payment is confirmed. Present this code at check-in: %s", qrToken),
	}

	jsonBody, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, mc.baseURL+"/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+mc.apiKey)

	resp, err := mc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail API returned status %d", resp.StatusCode)
	}

	return nil
}
