package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/noah-isme/backend-caseshop/internal/resilience"
)

const resendEndpoint = "https://api.resend.com/emails"

// ResendSender delivers email through the Resend REST API.
type ResendSender struct {
	APIKey string
	HTTP   *resilience.HTTPClient
	// Endpoint overrides the API URL; tests point it at a local server.
	Endpoint string
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send implements Sender.
func (s ResendSender) Send(ctx context.Context, from, to, subject, html string) error {
	if s.HTTP == nil {
		return fmt.Errorf("notify: resend http client not configured")
	}
	body, err := json.Marshal(resendPayload{From: from, To: []string{to}, Subject: subject, HTML: html})
	if err != nil {
		return fmt.Errorf("notify: encode resend payload: %w", err)
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = resendEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build resend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("notify: resend request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: resend returned %d", resp.StatusCode)
	}
	return nil
}
