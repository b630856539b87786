package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":         "postgres://localhost:5432/caseshop",
		"REDIS_URL":            "redis://localhost:6379/0",
		"JWT_SECRET":           "test-secret",
		"PAYPAL_CLIENT_ID":     "client",
		"PAYPAL_CLIENT_SECRET": "secret",
		"PAYPAL_WEBHOOK_ID":    "wh-1",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(validEnv())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr())
	assert.Equal(t, "sandbox", cfg.PayPalEnv)
	assert.Equal(t, "USD", cfg.PayPalCurrency)
	assert.True(t, cfg.WebhookReplayEnabled)
	assert.Equal(t, 24*time.Hour, cfg.WebhookReplayTTL)
	assert.Equal(t, int64(1<<20), cfg.WebhookBodyLimit)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
}

func TestLoadRequiredVars(t *testing.T) {
	for _, missing := range []string{
		"DATABASE_URL",
		"REDIS_URL",
		"JWT_SECRET",
		"PAYPAL_CLIENT_ID",
		"PAYPAL_WEBHOOK_ID",
	} {
		env := validEnv()
		env[missing] = ""
		_, err := LoadForTests(env)
		assert.Error(t, err, "expected error when %s is missing", missing)
	}
}

func TestLoadRejectsUnknownPayPalEnv(t *testing.T) {
	env := validEnv()
	env["PAYPAL_ENV"] = "staging"
	_, err := LoadForTests(env)
	require.Error(t, err)
}

func TestLoadTrimsPublicBaseURL(t *testing.T) {
	env := validEnv()
	env["PUBLIC_BASE_URL"] = "https://shop.example/"
	env["CORS_ALLOWED_ORIGINS"] = "https://shop.example, https://admin.example"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example", cfg.PublicBaseURL)
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.CORSAllowedOrigins)
}
