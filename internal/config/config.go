package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	PublicBaseURL      string
	CORSAllowedOrigins []string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// PayPal credentials and environment selection. The environment is an
	// explicit setting; BaseURL overrides both and exists for tests.
	PayPalClientID     string
	PayPalClientSecret string
	PayPalWebhookID    string
	PayPalEnv          string
	PayPalBaseURL      string
	PayPalCurrency     string

	ResendAPIKey       string
	NotifyEmailEnabled bool
	NotifyEmailFrom    string

	WebhookReplayEnabled bool
	WebhookReplayTTL     time.Duration
	WebhookBodyLimit     int64

	OutboundTimeout  time.Duration
	RetryMaxAttempts int
	RetryBase        time.Duration

	IdempotencyTTL     time.Duration
	CheckoutRateMax    int
	CheckoutRateWindow time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		PublicBaseURL:      strings.TrimRight(strings.TrimSpace(k.String("PUBLIC_BASE_URL")), "/"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		JWTSecret:   k.String("JWT_SECRET"),
		JWTIssuer:   strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience: strings.TrimSpace(k.String("JWT_AUDIENCE")),

		PayPalClientID:     k.String("PAYPAL_CLIENT_ID"),
		PayPalClientSecret: k.String("PAYPAL_CLIENT_SECRET"),
		PayPalWebhookID:    k.String("PAYPAL_WEBHOOK_ID"),
		PayPalEnv:          valueOrDefault(strings.ToLower(strings.TrimSpace(k.String("PAYPAL_ENV"))), "sandbox"),
		PayPalBaseURL:      strings.TrimRight(strings.TrimSpace(k.String("PAYPAL_BASE_URL")), "/"),
		PayPalCurrency:     valueOrDefault(k.String("PAYPAL_CURRENCY"), "USD"),

		ResendAPIKey:       k.String("RESEND_API_KEY"),
		NotifyEmailEnabled: parseBool(valueOrDefault(k.String("NOTIFY_EMAIL_ENABLED"), "true")),
		NotifyEmailFrom:    valueOrDefault(k.String("NOTIFY_EMAIL_FROM"), "CaseShop <orders@caseshop.example>"),

		WebhookReplayEnabled: parseBool(valueOrDefault(k.String("WEBHOOK_REPLAY_ENABLED"), "true")),
		WebhookReplayTTL:     parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "24h"),
		WebhookBodyLimit:     int64(parseInt(k.String("WEBHOOK_BODY_LIMIT_BYTES"), 1<<20)),

		OutboundTimeout:  parseDuration(k.String("OUTBOUND_TIMEOUT"), "10s"),
		RetryMaxAttempts: parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
		RetryBase:        parseDuration(k.String("RETRY_BASE"), "200ms"),

		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "15m"),
		CheckoutRateMax:    parseInt(k.String("CHECKOUT_RATE_MAX"), 30),
		CheckoutRateWindow: parseDuration(k.String("CHECKOUT_RATE_WINDOW"), "1m"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.PayPalClientID == "" || cfg.PayPalClientSecret == "" {
		return nil, errors.New("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET are required")
	}
	if cfg.PayPalWebhookID == "" {
		return nil, errors.New("PAYPAL_WEBHOOK_ID is required")
	}
	if cfg.PayPalEnv != "sandbox" && cfg.PayPalEnv != "live" {
		return nil, fmt.Errorf("PAYPAL_ENV must be sandbox or live, got %q", cfg.PayPalEnv)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
