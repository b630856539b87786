// Package paypal implements the REST integration with the PayPal API:
// client-credential token exchange, webhook signature verification and
// payment creation. Cryptographic verification itself is delegated to
// PayPal's verify endpoint; this package never re-implements it.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-caseshop/internal/obs"
	"github.com/noah-isme/backend-caseshop/internal/resilience"
)

const (
	sandboxBaseURL = "https://api-m.sandbox.paypal.com"
	liveBaseURL    = "https://api-m.paypal.com"
)

// ClientConfig carries construction parameters for Client.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	WebhookID    string
	// Env selects the PayPal environment, "sandbox" or "live". There is no
	// implicit default to live; an unrecognised value falls back to sandbox.
	Env string
	// BaseURL overrides environment selection entirely. Tests point it at a
	// local httptest server.
	BaseURL string
	HTTP    *resilience.HTTPClient
	Logger  zerolog.Logger
}

// Client is an explicitly constructed PayPal REST client. One instance is
// shared per process; it holds a short-lived cached access token guarded by a
// mutex.
type Client struct {
	clientID     string
	clientSecret string
	webhookID    string
	baseURL      string
	http         *resilience.HTTPClient
	logger       zerolog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	now func() time.Time
}

// New constructs a PayPal client from config.
func New(cfg ClientConfig) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		if strings.ToLower(strings.TrimSpace(cfg.Env)) == "live" {
			base = liveBaseURL
		} else {
			base = sandboxBaseURL
		}
	}
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = &resilience.HTTPClient{
			Client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Timeout: 10 * time.Second,
		}
	}
	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		webhookID:    cfg.WebhookID,
		baseURL:      base,
		http:         httpClient,
		logger:       cfg.Logger,
		now:          time.Now,
	}
}

// BaseURL exposes the resolved API base, mainly for logging at startup.
func (c *Client) BaseURL() string { return c.baseURL }

// doJSON posts a JSON body with a bearer token and decodes the JSON response
// into out. Responses outside 2xx are returned as errors carrying the status.
func (c *Client) doJSON(ctx context.Context, operation, path string, payload []byte, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return fmt.Errorf("paypal: obtain access token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("paypal: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := c.now()
	resp, err := c.http.Do(ctx, req)
	result := "success"
	if err != nil {
		result = "error"
	}
	defer func() {
		if obs.PayPalRequestDuration != nil {
			obs.PayPalRequestDuration.WithLabelValues(operation, result).Observe(obs.DurationMillis(time.Since(start)))
		}
	}()
	if err != nil {
		return fmt.Errorf("paypal: %s: %w", operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result = "error"
		return fmt.Errorf("paypal: %s: read response: %w", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result = "error"
		c.logger.Warn().Str("operation", operation).Int("status", resp.StatusCode).Msg("paypal_non_2xx")
		return fmt.Errorf("paypal: %s: unexpected status %d", operation, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		result = "error"
		return fmt.Errorf("paypal: %s: decode response: %w", operation, err)
	}
	return nil
}
