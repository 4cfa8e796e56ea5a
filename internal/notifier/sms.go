package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SMSConfig configures the HTTP SMS gateway. Local aggregators expose a
// plain JSON POST endpoint with a bearer key.
type SMSConfig struct {
	GatewayURL string
	APIKey     string
	Sender     string
	Timeout    time.Duration
}

// SMSNotifier sends messages through an HTTP SMS gateway.
type SMSNotifier struct {
	cfg    SMSConfig
	client *http.Client
}

func NewSMSNotifier(cfg SMSConfig) *SMSNotifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &SMSNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type smsPayload struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

func (n *SMSNotifier) Notify(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(smsPayload{To: phone, From: n.cfg.Sender, Message: message})
	if err != nil {
		return fmt.Errorf("failed to encode sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
